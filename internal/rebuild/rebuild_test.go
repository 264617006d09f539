// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package rebuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejzpr/dreamscape-mcp/internal/archive"
	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

var restoreNow = time.Date(2026, 5, 20, 6, 0, 0, 0, time.UTC)

func newService(store journal.Store) *journal.Service {
	return journal.NewService(store, nil, journal.Options{
		Location: time.UTC,
		Now:      func() time.Time { return restoreNow },
	})
}

// archivedJournal seeds a journal with a linked third dream and snapshots it
func archivedJournal(t *testing.T) (*journal.Service, string) {
	t.Helper()
	ctx := context.Background()

	svc := newService(journal.NewMemoryStore())
	_, err := svc.Seed(ctx)
	require.NoError(t, err)
	_, err = svc.SaveDream(ctx, dream.Dream{
		ID:           "3",
		Title:        "Neon Library",
		Content:      "Glowing shelves",
		Date:         restoreNow,
		Tags:         []string{"neon", "books"},
		CharacterIDs: []string{"c1"},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "archive")
	archiver, err := archive.NewArchiver(path, svc, nil, archive.Options{Holder: "test"})
	require.NoError(t, err)
	result, err := archiver.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, result.Committed)

	return svc, path
}

func TestRestoreFromArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	original, path := archivedJournal(t)

	store := journal.NewMemoryStore()
	result, err := RestoreFromArchive(ctx, store, path, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.DreamsProcessed)
	assert.Equal(t, 3, result.DreamsRestored)
	assert.Equal(t, 2, result.Characters)
	assert.Equal(t, 2, result.Locations)
	assert.Equal(t, 4, result.LinksRestored) // 3->1, 3->2 and both back-links
	assert.Empty(t, result.Errors)

	want, err := original.ExportJSON(ctx)
	require.NoError(t, err)
	got, err := newService(store).ExportJSON(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	// The restored journal counts as seeded
	seeded, err := newService(store).Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestRestoreFromArchive_RequiresForce(t *testing.T) {
	ctx := context.Background()
	_, path := archivedJournal(t)

	_, err := RestoreFromArchive(ctx, journal.NewMemoryStore(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)

	store := journal.NewMemoryStore()
	_, err = newService(store).SaveDream(ctx, dream.Dream{ID: "local", Title: "Local", Date: restoreNow})
	require.NoError(t, err)

	_, err = RestoreFromArchive(ctx, store, path, Options{})
	assert.ErrorIs(t, err, ErrJournalNotEmpty)

	result, err := RestoreFromArchive(ctx, store, path, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.DreamsRestored)

	_, err = store.GetDream(ctx, "local")
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

// failingStore fails dream writes inside transactions
type failingStore struct {
	journal.Store
}

func (f *failingStore) Atomic(ctx context.Context, fn func(tx journal.Store) error) error {
	return f.Store.Atomic(ctx, func(tx journal.Store) error {
		return fn(&failingStore{Store: tx})
	})
}

func (f *failingStore) UpsertDream(ctx context.Context, d dream.Dream) (dream.Dream, error) {
	return dream.Dream{}, errors.New("disk full")
}

func TestRestoreFromArchive_ForceKeepsJournalOnFailure(t *testing.T) {
	ctx := context.Background()
	_, path := archivedJournal(t)

	store := journal.NewMemoryStore()
	_, err := newService(store).SaveDream(ctx, dream.Dream{ID: "local", Title: "Local", Content: "Keep me", Date: restoreNow})
	require.NoError(t, err)

	_, err = RestoreFromArchive(ctx, &failingStore{Store: store}, path, Options{Force: true})
	require.Error(t, err)

	kept, err := store.GetDream(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "Keep me", kept.Content)

	dreams, err := store.ListDreams(ctx)
	require.NoError(t, err)
	assert.Len(t, dreams, 1)
	characters, err := store.ListCharacters(ctx)
	require.NoError(t, err)
	assert.Empty(t, characters)
}

func TestRestoreFromArchive_SameTitleSameDay(t *testing.T) {
	ctx := context.Background()
	svc := newService(journal.NewMemoryStore())
	for _, id := range []string{"dream-001", "dream-002"} {
		_, err := svc.SaveDream(ctx, dream.Dream{ID: id, Title: "Untitled", Content: "Entry " + id, Date: restoreNow})
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "archive")
	archiver, err := archive.NewArchiver(path, svc, nil, archive.Options{Holder: "test"})
	require.NoError(t, err)
	_, err = archiver.Snapshot(ctx)
	require.NoError(t, err)

	store := journal.NewMemoryStore()
	result, err := RestoreFromArchive(ctx, store, path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DreamsRestored)
	assert.Empty(t, result.Errors)

	for _, id := range []string{"dream-001", "dream-002"} {
		restored, err := store.GetDream(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Entry "+id, restored.Content)
	}
}

func TestRestoreFromArchive_PreservesContentWhitespace(t *testing.T) {
	ctx := context.Background()
	svc := newService(journal.NewMemoryStore())
	content := "  indented opening line\n\n    quoted verse\n"
	_, err := svc.SaveDream(ctx, dream.Dream{ID: "poem", Title: "Poem", Content: content, Date: restoreNow})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "archive")
	archiver, err := archive.NewArchiver(path, svc, nil, archive.Options{Holder: "test"})
	require.NoError(t, err)
	_, err = archiver.Snapshot(ctx)
	require.NoError(t, err)

	store := journal.NewMemoryStore()
	_, err = RestoreFromArchive(ctx, store, path, Options{})
	require.NoError(t, err)

	restored, err := store.GetDream(ctx, "poem")
	require.NoError(t, err)
	assert.Equal(t, content, restored.Content)
}

func TestRestoreFromArchive_MarkdownEditsWin(t *testing.T) {
	ctx := context.Background()
	_, path := archivedJournal(t)

	files, err := scanArchive(path)
	require.NoError(t, err)
	require.Len(t, files, 3)

	var target string
	for _, f := range files {
		d, err := readDreamFile(f)
		require.NoError(t, err)
		if d.ID == "1" {
			target = f
		}
	}
	require.NotEmpty(t, target)

	d, err := readDreamFile(target)
	require.NoError(t, err)
	d.Title = "Neon City Flight (edited)"
	d.Content = "Rewritten by hand."
	content, err := dream.ToMarkdown(d)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(target, []byte(content), 0644))

	store := journal.NewMemoryStore()
	_, err = RestoreFromArchive(ctx, store, path, Options{})
	require.NoError(t, err)

	restored, err := store.GetDream(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Neon City Flight (edited)", restored.Title)
	assert.Equal(t, "Rewritten by hand.", restored.Content)
}

func TestRestoreFromArchive_WithoutIndex(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()
	dir := filepath.Join(path, archive.DreamsDir, "2026", "05")
	require.NoError(t, os.MkdirAll(dir, 0755))

	write := func(d dream.Dream) {
		content, err := dream.ToMarkdown(d)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, dream.Slug(d)+".md"), []byte(content), 0644))
	}
	write(dream.Dream{ID: "old", Title: "Old", Date: restoreNow.AddDate(0, 0, -2), RelatedDreamIDs: []string{"gone"}})
	write(dream.Dream{ID: "new", Title: "New", Date: restoreNow, Type: dream.TypeLucid, RelatedDreamIDs: []string{"old"}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("---\nid: [\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	store := journal.NewMemoryStore()
	result, err := RestoreFromArchive(ctx, store, path, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.DreamsProcessed)
	assert.Equal(t, 2, result.DreamsRestored)
	assert.Equal(t, 1, result.LinksRestored)
	assert.Len(t, result.Errors, 2)
	assert.Zero(t, result.Characters)

	dreams, err := store.ListDreams(ctx)
	require.NoError(t, err)
	require.Len(t, dreams, 2)
	assert.Equal(t, "new", dreams[0].ID)
	assert.Equal(t, []string{"old"}, dreams[0].RelatedDreamIDs)
	assert.Equal(t, dream.TypeNormal, dreams[1].Type)
	assert.Empty(t, dreams[1].RelatedDreamIDs)
}

func TestJournalOrder(t *testing.T) {
	dreams := map[string]dream.Dream{
		"a": {ID: "a", Date: restoreNow.AddDate(0, 0, -3)},
		"b": {ID: "b", Date: restoreNow},
		"c": {ID: "c", Date: restoreNow.AddDate(0, 0, -1)},
	}

	ordered := journalOrder(dreams, []dream.Dream{{ID: "a"}, {ID: "missing"}})
	ids := make([]string, len(ordered))
	for i, d := range ordered {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
