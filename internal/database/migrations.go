// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tejzpr/dreamscape-mcp/internal/locking"
)

// AllModels returns all database models for migration
func AllModels() []interface{} {
	return []interface{}{
		&DreamRecord{},
		&DreamTag{},
		&DreamCharacter{},
		&DreamLocation{},
		&DreamRelation{},
		&CharacterRecord{},
		&LocationRecord{},
		&JournalFlag{},
		&locking.Lease{},
	}
}

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// DropAllTables drops all tables (use with caution!)
func DropAllTables(db *gorm.DB) error {
	models := AllModels()
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}

// CreateIndexes creates additional indexes for frequently queried combinations
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		columns []string
		name    string
	}{
		{
			table:   "dreams",
			columns: []string{"type", "date"},
			name:    "idx_dreams_type_date",
		},
		{
			table:   "dream_relations",
			columns: []string{"related_id"},
			name:    "idx_relations_related",
		},
		{
			table:   "dream_tags",
			columns: []string{"tag", "dream_id"},
			name:    "idx_tags_tag_dream",
		},
		{
			table:   "dream_characters",
			columns: []string{"character_id", "dream_id"},
			name:    "idx_characters_character_dream",
		},
		{
			table:   "dream_locations",
			columns: []string{"location_id", "dream_id"},
			name:    "idx_locations_location_dream",
		},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			idx.name,
			idx.table,
			strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
