// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package journaltest holds a behavioural test suite shared by every journal.Store
package journaltest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// Factory returns a fresh, empty store for one subtest
type Factory func(t *testing.T) journal.Store

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// Dream builds a minimal dream for store tests
func Dream(id string, day int, tags, chars, locs []string) dream.Dream {
	return dream.Dream{
		ID:           id,
		Title:        "Dream " + id,
		Content:      "content of " + id,
		Date:         base.AddDate(0, 0, day),
		Type:         dream.TypeNormal,
		Sentiment:    0.5,
		Clarity:      5,
		Tags:         tags,
		CharacterIDs: chars,
		LocationIDs:  locs,
	}
}

func ids(dreams []dream.Dream) []string {
	out := make([]string, len(dreams))
	for i, d := range dreams {
		out[i] = d.ID
	}
	return out
}

// Run executes the store suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("OrderNewestFirst", func(t *testing.T) { testOrder(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("AppendRelated", func(t *testing.T) { testAppendRelated(t, newStore(t)) })
	t.Run("RemoveRelated", func(t *testing.T) { testRemoveRelated(t, newStore(t)) })
	t.Run("Characters", func(t *testing.T) { testCharacters(t, newStore(t)) })
	t.Run("Locations", func(t *testing.T) { testLocations(t, newStore(t)) })
	t.Run("FlagsSurviveClear", func(t *testing.T) { testFlags(t, newStore(t)) })
	t.Run("AtomicRollback", func(t *testing.T) { testAtomicRollback(t, newStore(t)) })
	t.Run("AtomicCommit", func(t *testing.T) { testAtomicCommit(t, newStore(t)) })
}

func testRoundTrip(t *testing.T, store journal.Store) {
	ctx := context.Background()
	d := Dream("1", 0, []string{"flying", "neon", "city"}, []string{"c1"}, []string{"l1"})
	d.Type = dream.TypeLucid
	d.Sentiment = 0.8
	d.Clarity = 9
	d.RelatedDreamIDs = []string{"9", "7"}

	_, err := store.UpsertDream(ctx, d)
	require.NoError(t, err)

	got, err := store.GetDream(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, d.Content, got.Content)
	assert.True(t, d.Date.Equal(got.Date))
	assert.Equal(t, dream.TypeLucid, got.Type)
	assert.InDelta(t, 0.8, got.Sentiment, 1e-9)
	assert.Equal(t, 9, got.Clarity)
	assert.Equal(t, []string{"flying", "neon", "city"}, got.Tags)
	assert.Equal(t, []string{"c1"}, got.CharacterIDs)
	assert.Equal(t, []string{"l1"}, got.LocationIDs)
	assert.Equal(t, []string{"9", "7"}, got.RelatedDreamIDs)
}

func testOrder(t *testing.T, store journal.Store) {
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		_, err := store.UpsertDream(ctx, Dream(id, i, nil, nil, nil))
		require.NoError(t, err)
	}

	list, err := store.ListDreams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(list))

	// Replacing keeps the position and the new content
	replaced := Dream("a", 10, []string{"new"}, nil, nil)
	replaced.Title = "Replaced"
	_, err = store.UpsertDream(ctx, replaced)
	require.NoError(t, err)

	list, err = store.ListDreams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(list))
	assert.Equal(t, "Replaced", list[2].Title)
	assert.Equal(t, []string{"new"}, list[2].Tags)

	require.NoError(t, store.DeleteDream(ctx, "b"))
	list, err = store.ListDreams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(list))
}

func testNotFound(t *testing.T, store journal.Store) {
	ctx := context.Background()
	_, err := store.GetDream(ctx, "missing")
	assert.True(t, errors.Is(err, journal.ErrNotFound))
	assert.True(t, errors.Is(store.DeleteDream(ctx, "missing"), journal.ErrNotFound))
	assert.True(t, errors.Is(store.DeleteCharacter(ctx, "missing"), journal.ErrNotFound))
	assert.True(t, errors.Is(store.DeleteLocation(ctx, "missing"), journal.ErrNotFound))
}

func testAppendRelated(t *testing.T, store journal.Store) {
	ctx := context.Background()
	d := Dream("a", 0, nil, nil, nil)
	d.RelatedDreamIDs = []string{"x"}
	_, err := store.UpsertDream(ctx, d)
	require.NoError(t, err)

	require.NoError(t, store.AppendRelated(ctx, "a", "b"))
	require.NoError(t, store.AppendRelated(ctx, "a", "b"))
	require.NoError(t, store.AppendRelated(ctx, "missing", "b"))

	got, err := store.GetDream(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "b"}, got.RelatedDreamIDs)
}

func testRemoveRelated(t *testing.T, store journal.Store) {
	ctx := context.Background()
	a := Dream("a", 0, nil, nil, nil)
	a.RelatedDreamIDs = []string{"x", "gone", "y"}
	b := Dream("b", 1, nil, nil, nil)
	b.RelatedDreamIDs = []string{"gone"}
	for _, d := range []dream.Dream{a, b} {
		_, err := store.UpsertDream(ctx, d)
		require.NoError(t, err)
	}

	require.NoError(t, store.RemoveRelated(ctx, "gone"))

	got, err := store.GetDream(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got.RelatedDreamIDs)

	got, err = store.GetDream(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, got.RelatedDreamIDs)
}

func testCharacters(t *testing.T, store journal.Store) {
	ctx := context.Background()
	_, err := store.UpsertCharacter(ctx, dream.Character{ID: "c1", Name: "The Guide", Relationship: "Mentor", FirstAppearance: base})
	require.NoError(t, err)
	_, err = store.UpsertCharacter(ctx, dream.Character{ID: "c2", Name: "The Librarian", Relationship: "Stranger", FirstAppearance: base})
	require.NoError(t, err)

	for i, id := range []string{"d1", "d2", "d3"} {
		chars := []string{"c1"}
		if id == "d2" {
			chars = []string{"c2"}
		}
		_, err := store.UpsertDream(ctx, Dream(id, i, nil, chars, nil))
		require.NoError(t, err)
	}

	list, err := store.ListCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)
	assert.Equal(t, []string{"d1", "d3"}, list[1].DreamIDs)
	assert.Equal(t, 2, list[1].Appearances)
	assert.Equal(t, []string{"d2"}, list[0].DreamIDs)
	assert.True(t, base.Equal(list[1].FirstAppearance))

	updated, err := store.UpsertCharacter(ctx, dream.Character{ID: "c1", Name: "The Old Guide", Relationship: "Mentor", FirstAppearance: base})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Appearances)

	list, err = store.ListCharacters(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The Old Guide", list[1].Name)

	require.NoError(t, store.DeleteCharacter(ctx, "c2"))
	list, err = store.ListCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Dreams keep their references
	d2, err := store.GetDream(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, d2.CharacterIDs)
}

func testLocations(t *testing.T, store journal.Store) {
	ctx := context.Background()
	_, err := store.UpsertLocation(ctx, dream.Location{ID: "l1", Name: "Neon Metropolis", Description: "A futuristic city"})
	require.NoError(t, err)
	_, err = store.UpsertDream(ctx, Dream("d1", 0, nil, nil, []string{"l1"}))
	require.NoError(t, err)

	list, err := store.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Neon Metropolis", list[0].Name)
	assert.Equal(t, []string{"d1"}, list[0].DreamIDs)
	assert.Equal(t, 1, list[0].Appearances)

	require.NoError(t, store.DeleteDream(ctx, "d1"))
	list, err = store.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list[0].DreamIDs)
	assert.Equal(t, 0, list[0].Appearances)
}

func testFlags(t *testing.T, store journal.Store) {
	ctx := context.Background()
	ok, err := store.HasFlag(ctx, journal.FlagSeeded)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetFlag(ctx, journal.FlagSeeded))
	require.NoError(t, store.SetFlag(ctx, journal.FlagSeeded))
	_, err = store.UpsertDream(ctx, Dream("a", 0, nil, nil, nil))
	require.NoError(t, err)
	_, err = store.UpsertCharacter(ctx, dream.Character{ID: "c1", Name: "x"})
	require.NoError(t, err)
	_, err = store.UpsertLocation(ctx, dream.Location{ID: "l1", Name: "y"})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))

	dreams, err := store.ListDreams(ctx)
	require.NoError(t, err)
	assert.Empty(t, dreams)
	chars, err := store.ListCharacters(ctx)
	require.NoError(t, err)
	assert.Empty(t, chars)
	locs, err := store.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)

	ok, err = store.HasFlag(ctx, journal.FlagSeeded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testAtomicRollback(t *testing.T, store journal.Store) {
	ctx := context.Background()
	_, err := store.UpsertDream(ctx, Dream("a", 0, nil, nil, nil))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Atomic(ctx, func(tx journal.Store) error {
		if _, err := tx.UpsertDream(ctx, Dream("b", 1, nil, nil, nil)); err != nil {
			return err
		}
		if err := tx.AppendRelated(ctx, "a", "b"); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, "touched"); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	list, err := store.ListDreams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(list))
	assert.Empty(t, list[0].RelatedDreamIDs)

	ok, err := store.HasFlag(ctx, "touched")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testAtomicCommit(t *testing.T, store journal.Store) {
	ctx := context.Background()
	err := store.Atomic(ctx, func(tx journal.Store) error {
		if _, err := tx.UpsertDream(ctx, Dream("a", 0, nil, nil, nil)); err != nil {
			return err
		}
		// Reads inside the unit see its own writes
		list, err := tx.ListDreams(ctx)
		if err != nil {
			return err
		}
		if len(list) != 1 {
			return errors.New("write not visible inside transaction")
		}
		return tx.AppendRelated(ctx, "a", "z")
	})
	require.NoError(t, err)

	got, err := store.GetDream(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, got.RelatedDreamIDs)
}
