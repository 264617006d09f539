// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
	"github.com/tejzpr/dreamscape-mcp/internal/locking"
)

// Store is a journal.Store backed by gorm (SQLite or PostgreSQL)
type Store struct {
	db *gorm.DB
}

var _ journal.Store = (*Store)(nil)

// NewStore wraps a migrated database connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn inside a database transaction
func (s *Store) Atomic(ctx context.Context, fn func(tx journal.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func nextSeq(tx *gorm.DB, model interface{}) (int64, error) {
	var max int64
	if err := tx.Model(model).Select("COALESCE(MAX(seq), 0)").Scan(&max).Error; err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return max + 1, nil
}

// ListDreams returns all dreams, newest insertion first
func (s *Store) ListDreams(ctx context.Context) ([]dream.Dream, error) {
	db := s.db.WithContext(ctx)

	var records []DreamRecord
	if err := db.Order("seq DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query dreams: %w", err)
	}
	return s.hydrate(db, records)
}

// GetDream returns a dream by id
func (s *Store) GetDream(ctx context.Context, id string) (dream.Dream, error) {
	db := s.db.WithContext(ctx)

	var record DreamRecord
	err := db.Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dream.Dream{}, journal.ErrNotFound
	}
	if err != nil {
		return dream.Dream{}, fmt.Errorf("failed to query dream: %w", err)
	}

	dreams, err := s.hydrate(db, []DreamRecord{record})
	if err != nil {
		return dream.Dream{}, err
	}
	return dreams[0], nil
}

// hydrate attaches the ordered tag, character, location and relation lists
func (s *Store) hydrate(db *gorm.DB, records []DreamRecord) ([]dream.Dream, error) {
	if len(records) == 0 {
		return []dream.Dream{}, nil
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	var tags []DreamTag
	if err := db.Where("dream_id IN ?", ids).Order("dream_id, position").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	var chars []DreamCharacter
	if err := db.Where("dream_id IN ?", ids).Order("dream_id, position").Find(&chars).Error; err != nil {
		return nil, fmt.Errorf("failed to query dream characters: %w", err)
	}
	var locs []DreamLocation
	if err := db.Where("dream_id IN ?", ids).Order("dream_id, position").Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("failed to query dream locations: %w", err)
	}
	var rels []DreamRelation
	if err := db.Where("dream_id IN ?", ids).Order("dream_id, position").Find(&rels).Error; err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}

	tagsBy := make(map[string][]string)
	for _, t := range tags {
		tagsBy[t.DreamID] = append(tagsBy[t.DreamID], t.Tag)
	}
	charsBy := make(map[string][]string)
	for _, c := range chars {
		charsBy[c.DreamID] = append(charsBy[c.DreamID], c.CharacterID)
	}
	locsBy := make(map[string][]string)
	for _, l := range locs {
		locsBy[l.DreamID] = append(locsBy[l.DreamID], l.LocationID)
	}
	relsBy := make(map[string][]string)
	for _, r := range rels {
		relsBy[r.DreamID] = append(relsBy[r.DreamID], r.RelatedID)
	}

	out := make([]dream.Dream, len(records))
	for i, r := range records {
		out[i] = dream.Dream{
			ID:              r.ID,
			Title:           r.Title,
			Content:         r.Content,
			Date:            r.Date,
			Type:            dream.Type(r.Type),
			Sentiment:       r.Sentiment,
			Clarity:         r.Clarity,
			Tags:            nonNil(tagsBy[r.ID]),
			CharacterIDs:    nonNil(charsBy[r.ID]),
			LocationIDs:     nonNil(locsBy[r.ID]),
			RelatedDreamIDs: relsBy[r.ID],
		}
	}
	return out, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// UpsertDream inserts a dream or fully replaces an existing one, keeping its position
func (s *Store) UpsertDream(ctx context.Context, d dream.Dream) (dream.Dream, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing DreamRecord
		err := tx.Where("id = ?", d.ID).First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seq, err := nextSeq(tx, &DreamRecord{})
			if err != nil {
				return err
			}
			record := DreamRecord{
				ID:        d.ID,
				Seq:       seq,
				Title:     d.Title,
				Content:   d.Content,
				Date:      d.Date,
				Type:      string(d.Type),
				Sentiment: d.Sentiment,
				Clarity:   d.Clarity,
				Version:   1,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to create dream: %w", err)
			}

		case err != nil:
			return fmt.Errorf("failed to query dream: %w", err)

		default:
			err := locking.UpdateWithVersion(tx, existing.TableName(), "id", d.ID, existing.Version, map[string]interface{}{
				"title":      d.Title,
				"content":    d.Content,
				"date":       d.Date,
				"type":       string(d.Type),
				"sentiment":  d.Sentiment,
				"clarity":    d.Clarity,
				"updated_at": time.Now(),
			})
			if err != nil {
				return fmt.Errorf("failed to update dream: %w", err)
			}
		}

		return replaceChildren(tx, d)
	})
	if err != nil {
		return dream.Dream{}, err
	}
	return d.Clone(), nil
}

// replaceChildren rewrites every ordered list of a dream
func replaceChildren(tx *gorm.DB, d dream.Dream) error {
	for _, model := range []interface{}{&DreamTag{}, &DreamCharacter{}, &DreamLocation{}, &DreamRelation{}} {
		if err := tx.Where("dream_id = ?", d.ID).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear dream lists: %w", err)
		}
	}

	if len(d.Tags) > 0 {
		rows := make([]DreamTag, len(d.Tags))
		for i, tag := range d.Tags {
			rows[i] = DreamTag{DreamID: d.ID, Position: i, Tag: tag}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save tags: %w", err)
		}
	}
	if len(d.CharacterIDs) > 0 {
		rows := make([]DreamCharacter, len(d.CharacterIDs))
		for i, id := range d.CharacterIDs {
			rows[i] = DreamCharacter{DreamID: d.ID, Position: i, CharacterID: id}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save dream characters: %w", err)
		}
	}
	if len(d.LocationIDs) > 0 {
		rows := make([]DreamLocation, len(d.LocationIDs))
		for i, id := range d.LocationIDs {
			rows[i] = DreamLocation{DreamID: d.ID, Position: i, LocationID: id}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save dream locations: %w", err)
		}
	}

	// The related set is a set; a repeated id keeps its first position
	var rels []DreamRelation
	seen := make(map[string]bool)
	for _, id := range d.RelatedDreamIDs {
		if seen[id] || id == d.ID {
			continue
		}
		seen[id] = true
		rels = append(rels, DreamRelation{DreamID: d.ID, RelatedID: id, Position: len(rels)})
	}
	if len(rels) > 0 {
		if err := tx.Create(&rels).Error; err != nil {
			return fmt.Errorf("failed to save relations: %w", err)
		}
	}
	return nil
}

// DeleteDream removes a dream and its own lists. Links pointing at it are left to RemoveRelated.
func (s *Store) DeleteDream(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&DreamRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete dream: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return journal.ErrNotFound
		}
		for _, model := range []interface{}{&DreamTag{}, &DreamCharacter{}, &DreamLocation{}, &DreamRelation{}} {
			if err := tx.Where("dream_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete dream lists: %w", err)
			}
		}
		return nil
	})
}

// AppendRelated adds relatedID at the end of dreamID's related set.
// The dream row version is bumped so concurrent appends serialise through optimistic retries.
func (s *Store) AppendRelated(ctx context.Context, dreamID, relatedID string) error {
	db := s.db.WithContext(ctx)

	return locking.RetryWithBackoff(locking.MaxRetries, locking.RetryDelay, func() error {
		var record DreamRecord
		err := db.Where("id = ?", dreamID).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query dream: %w", err)
		}

		var count int64
		if err := db.Model(&DreamRelation{}).
			Where("dream_id = ? AND related_id = ?", dreamID, relatedID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to query relations: %w", err)
		}
		if count > 0 {
			return nil
		}

		if err := locking.UpdateWithVersion(db, record.TableName(), "id", dreamID, record.Version, map[string]interface{}{
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}

		var position int
		if err := db.Model(&DreamRelation{}).
			Where("dream_id = ?", dreamID).
			Select("COALESCE(MAX(position) + 1, 0)").
			Scan(&position).Error; err != nil {
			return fmt.Errorf("failed to read relation position: %w", err)
		}

		rel := DreamRelation{DreamID: dreamID, RelatedID: relatedID, Position: position}
		if err := db.Create(&rel).Error; err != nil {
			return fmt.Errorf("failed to append relation: %w", err)
		}
		return nil
	})
}

// RemoveRelated drops relatedID from every related set
func (s *Store) RemoveRelated(ctx context.Context, relatedID string) error {
	if err := s.db.WithContext(ctx).Where("related_id = ?", relatedID).Delete(&DreamRelation{}).Error; err != nil {
		return fmt.Errorf("failed to prune relations: %w", err)
	}
	return nil
}

type dreamRef struct {
	OwnerID string
	DreamID string
}

// dreamRefs maps character or location ids to the dreams referencing them, oldest first
func dreamRefs(db *gorm.DB, table, column string, ownerIDs []string) (map[string][]string, error) {
	var refs []dreamRef
	query := db.Table(table).
		Select(fmt.Sprintf("DISTINCT %s.%s AS owner_id, %s.dream_id AS dream_id, dreams.seq", table, column, table)).
		Joins(fmt.Sprintf("JOIN dreams ON dreams.id = %s.dream_id", table)).
		Order("dreams.seq ASC")
	if ownerIDs != nil {
		query = query.Where(fmt.Sprintf("%s.%s IN ?", table, column), ownerIDs)
	}
	if err := query.Scan(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	out := make(map[string][]string)
	for _, r := range refs {
		out[r.OwnerID] = append(out[r.OwnerID], r.DreamID)
	}
	return out, nil
}

func toCharacter(r CharacterRecord, refs []string) dream.Character {
	return dream.Character{
		ID:              r.ID,
		Name:            r.Name,
		Relationship:    r.Relationship,
		Description:     r.Description,
		AvatarURL:       r.AvatarURL,
		FirstAppearance: r.FirstAppearance,
		DreamIDs:        nonNil(refs),
		Appearances:     len(refs),
	}
}

func toLocation(r LocationRecord, refs []string) dream.Location {
	return dream.Location{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		DreamIDs:    nonNil(refs),
		Appearances: len(refs),
	}
}

// ListCharacters returns all characters, newest first, with derived appearances
func (s *Store) ListCharacters(ctx context.Context) ([]dream.Character, error) {
	db := s.db.WithContext(ctx)

	var records []CharacterRecord
	if err := db.Order("seq DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query characters: %w", err)
	}
	refs, err := dreamRefs(db, "dream_characters", "character_id", nil)
	if err != nil {
		return nil, err
	}

	out := make([]dream.Character, len(records))
	for i, r := range records {
		out[i] = toCharacter(r, refs[r.ID])
	}
	return out, nil
}

// UpsertCharacter inserts or replaces a character
func (s *Store) UpsertCharacter(ctx context.Context, c dream.Character) (dream.Character, error) {
	var saved CharacterRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", c.ID).First(&saved).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seq, err := nextSeq(tx, &CharacterRecord{})
			if err != nil {
				return err
			}
			saved = CharacterRecord{ID: c.ID, Seq: seq}
		case err != nil:
			return fmt.Errorf("failed to query character: %w", err)
		}

		saved.Name = c.Name
		saved.Relationship = c.Relationship
		saved.Description = c.Description
		saved.AvatarURL = c.AvatarURL
		saved.FirstAppearance = c.FirstAppearance
		if err := tx.Save(&saved).Error; err != nil {
			return fmt.Errorf("failed to save character: %w", err)
		}
		return nil
	})
	if err != nil {
		return dream.Character{}, err
	}

	refs, err := dreamRefs(s.db.WithContext(ctx), "dream_characters", "character_id", []string{c.ID})
	if err != nil {
		return dream.Character{}, err
	}
	return toCharacter(saved, refs[c.ID]), nil
}

// DeleteCharacter removes a character; dreams keep their references
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&CharacterRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete character: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return journal.ErrNotFound
	}
	return nil
}

// ListLocations returns all locations, newest first, with derived appearances
func (s *Store) ListLocations(ctx context.Context) ([]dream.Location, error) {
	db := s.db.WithContext(ctx)

	var records []LocationRecord
	if err := db.Order("seq DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	refs, err := dreamRefs(db, "dream_locations", "location_id", nil)
	if err != nil {
		return nil, err
	}

	out := make([]dream.Location, len(records))
	for i, r := range records {
		out[i] = toLocation(r, refs[r.ID])
	}
	return out, nil
}

// UpsertLocation inserts or replaces a location
func (s *Store) UpsertLocation(ctx context.Context, l dream.Location) (dream.Location, error) {
	var saved LocationRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", l.ID).First(&saved).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seq, err := nextSeq(tx, &LocationRecord{})
			if err != nil {
				return err
			}
			saved = LocationRecord{ID: l.ID, Seq: seq}
		case err != nil:
			return fmt.Errorf("failed to query location: %w", err)
		}

		saved.Name = l.Name
		saved.Description = l.Description
		saved.ImageURL = l.ImageURL
		if err := tx.Save(&saved).Error; err != nil {
			return fmt.Errorf("failed to save location: %w", err)
		}
		return nil
	})
	if err != nil {
		return dream.Location{}, err
	}

	refs, err := dreamRefs(s.db.WithContext(ctx), "dream_locations", "location_id", []string{l.ID})
	if err != nil {
		return dream.Location{}, err
	}
	return toLocation(saved, refs[l.ID]), nil
}

// DeleteLocation removes a location; dreams keep their references
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&LocationRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return journal.ErrNotFound
	}
	return nil
}

// HasFlag reports whether a journal flag is set
func (s *Store) HasFlag(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&JournalFlag{}).Where("name = ?", key).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to query flag: %w", err)
	}
	return count > 0, nil
}

// SetFlag sets a journal flag; setting it again is a no-op
func (s *Store) SetFlag(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&JournalFlag{Name: key}).Error
	if err != nil {
		return fmt.Errorf("failed to set flag: %w", err)
	}
	return nil
}

// Clear removes every dream, character and location. Flags and leases are kept.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := []interface{}{
			&DreamRelation{},
			&DreamTag{},
			&DreamCharacter{},
			&DreamLocation{},
			&DreamRecord{},
			&CharacterRecord{},
			&LocationRecord{},
		}
		for _, model := range models {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear journal: %w", err)
			}
		}
		return nil
	})
}
