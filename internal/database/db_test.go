// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(&Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "journal.db"),
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   logger.Silent,
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.NoError(t, Ping(db))
	assert.NoError(t, Close(db))
}

func TestConnect_InvalidType(t *testing.T) {
	cfg := &Config{
		Type:     "mysql",
		LogLevel: logger.Silent,
	}

	db, err := Connect(cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestEnsureSQLiteDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "another", "test.db")

	require.NoError(t, ensureSQLiteDir(dbPath))

	info, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)

	tables := []string{
		"dreams",
		"dream_tags",
		"dream_characters",
		"dream_locations",
		"dream_relations",
		"characters",
		"locations",
		"journal_flags",
		"journal_locks",
	}
	for _, table := range tables {
		assert.True(t, db.Migrator().HasTable(table), "table %s should exist", table)
	}

	// Migrations and indexes are idempotent
	require.NoError(t, Migrate(db))
	require.NoError(t, CreateIndexes(db))
	assert.True(t, db.Migrator().HasIndex("dream_relations", "idx_relations_related"))
}

func TestModels_TableNames(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
	}{
		{DreamRecord{}.TableName(), "dreams"},
		{DreamTag{}.TableName(), "dream_tags"},
		{DreamCharacter{}.TableName(), "dream_characters"},
		{DreamLocation{}.TableName(), "dream_locations"},
		{DreamRelation{}.TableName(), "dream_relations"},
		{CharacterRecord{}.TableName(), "characters"},
		{LocationRecord{}.TableName(), "locations"},
		{JournalFlag{}.TableName(), "journal_flags"},
	}

	for _, tt := range tests {
		t.Run(tt.tableName, func(t *testing.T) {
			assert.Equal(t, tt.tableName, tt.name)
		})
	}
}

func TestDropAllTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, DropAllTables(db))
	assert.False(t, db.Migrator().HasTable("dreams"))
	assert.False(t, db.Migrator().HasTable("journal_locks"))
}
