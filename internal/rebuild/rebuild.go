// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package rebuild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tejzpr/dreamscape-mcp/internal/archive"
	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// Options configures rebuild behavior
type Options struct {
	Force  bool // Clear existing data before rebuild
	Logger *zap.Logger
}

// Result contains statistics from the rebuild operation
type Result struct {
	DreamsProcessed int      `json:"dreamsProcessed"`
	DreamsRestored  int      `json:"dreamsRestored"`
	DreamsSkipped   int      `json:"dreamsSkipped"`
	Characters      int      `json:"characters"`
	Locations       int      `json:"locations"`
	LinksRestored   int      `json:"linksRestored"`
	Errors          []string `json:"errors,omitempty"`
}

// ErrJournalNotEmpty is returned when the store already holds dreams and Force is off
var ErrJournalNotEmpty = errors.New("journal is not empty")

// RestoreFromArchive rebuilds the journal store from an archive worktree.
//
// Dream markdown files under dreams/ are the source of truth for dreams, so hand edits
// in the archive survive. journal.json supplies characters, locations and the journal
// order; dreams missing from it are placed by date. Related links are restored as
// archived, not recomputed.
func RestoreFromArchive(ctx context.Context, store journal.Store, archivePath string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	result := &Result{}

	if err := handleExistingData(ctx, store, opts, logger); err != nil {
		return nil, err
	}

	files, err := scanArchive(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive: %w", err)
	}
	logger.Info("found dream files to restore", zap.Int("count", len(files)))

	dreams := make(map[string]dream.Dream, len(files))
	for _, path := range files {
		result.DreamsProcessed++

		d, err := readDreamFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if _, dup := dreams[d.ID]; dup {
			result.DreamsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: duplicate dream id %s", path, d.ID))
			continue
		}
		dreams[d.ID] = d
	}

	index, err := readJournalIndex(archivePath)
	if err != nil {
		return nil, err
	}
	ordered := journalOrder(dreams, index.Dreams)

	err = store.Atomic(ctx, func(tx journal.Store) error {
		// Force replaces the journal within the same unit of work
		if opts.Force {
			if err := tx.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear journal: %w", err)
			}
		}

		// Stores prepend new records, so oldest goes in first
		for i := len(index.Characters) - 1; i >= 0; i-- {
			if _, err := tx.UpsertCharacter(ctx, index.Characters[i]); err != nil {
				return fmt.Errorf("failed to restore character %s: %w", index.Characters[i].ID, err)
			}
			result.Characters++
		}
		for i := len(index.Locations) - 1; i >= 0; i-- {
			if _, err := tx.UpsertLocation(ctx, index.Locations[i]); err != nil {
				return fmt.Errorf("failed to restore location %s: %w", index.Locations[i].ID, err)
			}
			result.Locations++
		}

		// First pass: records without links
		for i := len(ordered) - 1; i >= 0; i-- {
			d := ordered[i].Clone()
			d.RelatedDreamIDs = nil
			if _, err := tx.UpsertDream(ctx, d); err != nil {
				return fmt.Errorf("failed to restore dream %s: %w", d.ID, err)
			}
			result.DreamsRestored++
		}

		// Second pass: related links between restored dreams
		for _, d := range ordered {
			for _, relatedID := range d.RelatedDreamIDs {
				if _, ok := dreams[relatedID]; !ok {
					result.Errors = append(result.Errors, fmt.Sprintf("dream %s: related dream %s not in archive", d.ID, relatedID))
					continue
				}
				if err := tx.AppendRelated(ctx, d.ID, relatedID); err != nil {
					return fmt.Errorf("failed to link dream %s: %w", d.ID, err)
				}
				result.LinksRestored++
			}
		}
		return tx.SetFlag(ctx, journal.FlagSeeded)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("journal restored from archive",
		zap.String("path", archivePath),
		zap.Int("dreams", result.DreamsRestored),
		zap.Int("links", result.LinksRestored),
		zap.Int("warnings", len(result.Errors)))
	return result, nil
}

// handleExistingData refuses to restore over existing dreams unless force is enabled
func handleExistingData(ctx context.Context, store journal.Store, opts Options, logger *zap.Logger) error {
	existing, err := store.ListDreams(ctx)
	if err != nil {
		return fmt.Errorf("failed to count existing dreams: %w", err)
	}

	if len(existing) > 0 && !opts.Force {
		return fmt.Errorf("%w: it contains %d dreams. Use --force to clear and restore", ErrJournalNotEmpty, len(existing))
	}

	if opts.Force && len(existing) > 0 {
		logger.Warn("force restore: journal will be replaced", zap.Int("dreams", len(existing)))
	}
	return nil
}

// scanArchive returns every dream markdown file in the archive, sorted by path
func scanArchive(archivePath string) ([]string, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, err
	}

	root := filepath.Join(archivePath, archive.DreamsDir)
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipDir
			}
			return err
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readDreamFile(path string) (dream.Dream, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return dream.Dream{}, fmt.Errorf("failed to read file: %w", err)
	}
	d, err := dream.ParseMarkdown(string(content))
	if err != nil {
		return dream.Dream{}, err
	}
	if d.ID == "" {
		return dream.Dream{}, errors.New("frontmatter has no id")
	}
	if d.Type == "" {
		d.Type = dream.TypeNormal
	}
	return d, nil
}

// readJournalIndex loads journal.json. A missing file yields an empty index.
func readJournalIndex(archivePath string) (journal.Export, error) {
	var index journal.Export
	data, err := os.ReadFile(filepath.Join(archivePath, archive.JournalFile))
	if errors.Is(err, fs.ErrNotExist) {
		return index, nil
	}
	if err != nil {
		return index, fmt.Errorf("failed to read %s: %w", archive.JournalFile, err)
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return index, fmt.Errorf("failed to parse %s: %w", archive.JournalFile, err)
	}
	return index, nil
}

// journalOrder returns the dreams newest first: journal.json order, then the rest by date
func journalOrder(dreams map[string]dream.Dream, indexed []dream.Dream) []dream.Dream {
	ordered := make([]dream.Dream, 0, len(dreams))
	placed := make(map[string]bool, len(dreams))
	for _, ref := range indexed {
		if d, ok := dreams[ref.ID]; ok && !placed[ref.ID] {
			ordered = append(ordered, d)
			placed[ref.ID] = true
		}
	}

	var rest []dream.Dream
	for id, d := range dreams {
		if !placed[id] {
			rest = append(rest, d)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if !rest[i].Date.Equal(rest[j].Date) {
			return rest[i].Date.After(rest[j].Date)
		}
		return rest[i].ID < rest[j].ID
	})
	return append(ordered, rest...)
}
