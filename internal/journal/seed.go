// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// sampleJournal returns the first-run dreams (oldest first), characters and locations
func sampleJournal(now time.Time) ([]dream.Dream, []dream.Character, []dream.Location) {
	yesterday := now.Add(-24 * time.Hour)

	dreams := []dream.Dream{
		{
			ID:           "2",
			Title:        "The Endless Library",
			Content:      "Walking through infinite corridors of books. Each book contained a different universe.",
			Date:         yesterday,
			Type:         dream.TypeNormal,
			Sentiment:    0.5,
			Clarity:      7,
			Tags:         []string{"library", "books", "infinity"},
			CharacterIDs: []string{"c2"},
			LocationIDs:  []string{"l2"},
		},
		{
			ID:           "1",
			Title:        "Neon City Flight",
			Content:      "I was soaring above a metropolis of glowing neon structures. The wind felt electric.",
			Date:         now,
			Type:         dream.TypeLucid,
			Sentiment:    0.8,
			Clarity:      9,
			Tags:         []string{"flying", "neon", "city"},
			CharacterIDs: []string{"c1"},
			LocationIDs:  []string{"l1"},
		},
	}

	characters := []dream.Character{
		{
			ID:              "c2",
			Name:            "The Librarian",
			Relationship:    "Stranger",
			Description:     "An old man with glasses who guards the books.",
			FirstAppearance: yesterday,
		},
		{
			ID:              "c1",
			Name:            "The Guide",
			Relationship:    "Mentor",
			Description:     "A glowing figure that shows me the way.",
			FirstAppearance: now,
		},
	}

	locations := []dream.Location{
		{ID: "l2", Name: "Infinite Library", Description: "A library with no end."},
		{ID: "l1", Name: "Neon Metropolis", Description: "A futuristic city with glowing lights."},
	}

	return dreams, characters, locations
}

// Seed writes the sample journal once. It does nothing when the journal was seeded before
// or already holds dreams. It reports whether anything was written.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	seeded := false
	err := s.store.Atomic(ctx, func(tx Store) error {
		done, err := tx.HasFlag(ctx, FlagSeeded)
		if err != nil {
			return fmt.Errorf("failed to read seed flag: %w", err)
		}
		if done {
			return nil
		}
		existing, err := tx.ListDreams(ctx)
		if err != nil {
			return fmt.Errorf("failed to list dreams: %w", err)
		}
		if len(existing) > 0 {
			return nil
		}

		dreams, characters, locations := sampleJournal(s.now())
		for _, d := range dreams {
			if _, err := tx.UpsertDream(ctx, d); err != nil {
				return fmt.Errorf("failed to seed dream %s: %w", d.ID, err)
			}
		}
		for _, c := range characters {
			if _, err := tx.UpsertCharacter(ctx, c); err != nil {
				return fmt.Errorf("failed to seed character %s: %w", c.ID, err)
			}
		}
		for _, l := range locations {
			if _, err := tx.UpsertLocation(ctx, l); err != nil {
				return fmt.Errorf("failed to seed location %s: %w", l.ID, err)
			}
		}
		if err := tx.SetFlag(ctx, FlagSeeded); err != nil {
			return fmt.Errorf("failed to set seed flag: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		s.logger.Error("seed journal failed", zap.Error(err))
		return false, err
	}
	if seeded {
		s.logger.Info("sample journal seeded")
	}
	return seeded, nil
}
