// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejzpr/dreamscape-mcp/internal/archive"
	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/graph"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

var toolsNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newService(store journal.Store) *journal.Service {
	return journal.NewService(store, nil, journal.Options{
		Location:           time.UTC,
		PruneLinksOnDelete: true,
		Now:                func() time.Time { return toolsNow },
	})
}

func setupToolContext(t *testing.T) *ToolContext {
	t.Helper()
	svc := newService(journal.NewMemoryStore())
	_, err := svc.Seed(context.Background())
	require.NoError(t, err)
	return NewToolContext(svc, nil, nil)
}

func callTool(t *testing.T, handler Handler, args map[string]interface{}) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result, result.Content[0].(mcp.TextContent).Text
}

// brokenStore fails every read and transaction
type brokenStore struct {
	journal.Store
}

func (brokenStore) ListDreams(ctx context.Context) ([]dream.Dream, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) Atomic(ctx context.Context, fn func(tx journal.Store) error) error {
	return errors.New("connection reset")
}

func TestRecordHandler(t *testing.T) {
	tc := setupToolContext(t)
	handler := RecordHandler(tc)

	result, text := callTool(t, handler, map[string]interface{}{
		"id":         "3",
		"title":      "Neon Library",
		"content":    "Glowing shelves",
		"date":       "2026-03-13",
		"type":       "recurring",
		"sentiment":  0.9,
		"clarity":    float64(8),
		"tags":       []interface{}{"neon", "books"},
		"characters": []interface{}{"c1"},
	})
	assert.False(t, result.IsError)
	assert.Contains(t, text, "Dream 'Neon Library' recorded")
	assert.Contains(t, text, "**ID**: `3` | **Date**: 2026-03-13 | **Type**: recurring")
	assert.Contains(t, text, "**Related**: 1, 2")

	saved, err := tc.Journal.GetDream(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, 0.9, saved.Sentiment)
	assert.Equal(t, 8, saved.Clarity)
	assert.Empty(t, saved.LocationIDs)

	first, err := tc.Journal.GetDream(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, first.RelatedDreamIDs)
}

func TestRecordHandler_Defaults(t *testing.T) {
	tc := setupToolContext(t)

	_, text := callTool(t, RecordHandler(tc), map[string]interface{}{
		"id":      "plain",
		"title":   "Plain",
		"content": "Nothing much",
	})
	assert.Contains(t, text, "**Related**: none")

	saved, err := tc.Journal.GetDream(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, dream.TypeNormal, saved.Type)
	assert.Equal(t, DefaultSentiment, saved.Sentiment)
	assert.Equal(t, DefaultClarity, saved.Clarity)
	assert.True(t, saved.Date.Equal(toolsNow))
}

func TestRecordHandler_InvalidInput(t *testing.T) {
	tc := setupToolContext(t)
	handler := RecordHandler(tc)

	tests := []struct {
		name     string
		args     map[string]interface{}
		contains string
	}{
		{name: "missing title", args: map[string]interface{}{"content": "x"}, contains: "title"},
		{name: "missing content", args: map[string]interface{}{"title": "x"}, contains: "content"},
		{name: "unknown type", args: map[string]interface{}{"title": "x", "content": "y", "type": "daydream"}, contains: "invalid dream type"},
		{name: "bad date", args: map[string]interface{}{"title": "x", "content": "y", "date": "last tuesday"}, contains: "invalid dream date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, text := callTool(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.contains)
		})
	}
}

func TestRecordHandler_StorageFailure(t *testing.T) {
	tc := NewToolContext(newService(brokenStore{Store: journal.NewMemoryStore()}), nil, nil)

	result, text := callTool(t, RecordHandler(tc), map[string]interface{}{
		"title":   "x",
		"content": "y",
	})
	assert.True(t, result.IsError)
	assert.Equal(t, "Failed to save dream.", text)
}

func TestForgetHandler(t *testing.T) {
	tc := setupToolContext(t)
	handler := ForgetHandler(tc)

	result, text := callTool(t, handler, map[string]interface{}{"id": "1"})
	assert.False(t, result.IsError)
	assert.Equal(t, "Dream '1' deleted", text)

	result, text = callTool(t, handler, map[string]interface{}{"id": "1"})
	assert.True(t, result.IsError)
	assert.Equal(t, "dream not found: 1", text)

	result, _ = callTool(t, handler, map[string]interface{}{})
	assert.True(t, result.IsError)
}

func TestForgetHandler_LinkPruning(t *testing.T) {
	description := NewForgetTool().Description
	assert.Contains(t, description, "When link pruning is enabled")
	assert.Contains(t, description, "otherwise their related lists keep the deleted id")

	for _, prune := range []bool{true, false} {
		ctx := context.Background()
		svc := journal.NewService(journal.NewMemoryStore(), nil, journal.Options{
			Location:           time.UTC,
			PruneLinksOnDelete: prune,
			Now:                func() time.Time { return toolsNow },
		})
		_, err := svc.Seed(ctx)
		require.NoError(t, err)
		linked, err := svc.SaveDream(ctx, dream.Dream{ID: "3", Title: "Neon Library", Date: toolsNow, Tags: []string{"neon", "books"}})
		require.NoError(t, err)
		require.Contains(t, linked.RelatedDreamIDs, "1")

		result, _ := callTool(t, ForgetHandler(NewToolContext(svc, nil, nil)), map[string]interface{}{"id": "1"})
		require.False(t, result.IsError)

		after, err := svc.GetDream(ctx, "3")
		require.NoError(t, err)
		if prune {
			assert.NotContains(t, after.RelatedDreamIDs, "1")
		} else {
			assert.Contains(t, after.RelatedDreamIDs, "1")
		}
	}
}

func TestRecallHandler(t *testing.T) {
	tc := setupToolContext(t)
	handler := RecallHandler(tc)

	_, text := callTool(t, handler, map[string]interface{}{"id": "2"})
	var one dream.Dream
	require.NoError(t, json.Unmarshal([]byte(text), &one))
	assert.Equal(t, "The Endless Library", one.Title)

	result, text := callTool(t, handler, map[string]interface{}{"id": "missing"})
	assert.True(t, result.IsError)
	assert.Equal(t, "dream not found: missing", text)

	tests := []struct {
		name string
		args map[string]interface{}
		ids  []string
	}{
		{name: "everything newest first", args: map[string]interface{}{}, ids: []string{"1", "2"}},
		{name: "by type", args: map[string]interface{}{"type": "lucid"}, ids: []string{"1"}},
		{name: "by tag", args: map[string]interface{}{"tag": "books"}, ids: []string{"2"}},
		{name: "by character", args: map[string]interface{}{"character": "c2"}, ids: []string{"2"}},
		{name: "by location", args: map[string]interface{}{"location": "l1"}, ids: []string{"1"}},
		{name: "by text", args: map[string]interface{}{"query": "NEON"}, ids: []string{"1"}},
		{name: "limit", args: map[string]interface{}{"limit": float64(1)}, ids: []string{"1"}},
		{name: "no match", args: map[string]interface{}{"tag": "ocean"}, ids: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, text := callTool(t, handler, tt.args)
			var dreams []dream.Dream
			require.NoError(t, json.Unmarshal([]byte(text), &dreams))
			ids := []string{}
			for _, d := range dreams {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	result, _ = callTool(t, handler, map[string]interface{}{"type": "daydream"})
	assert.True(t, result.IsError)
}

func TestRelatedHandler(t *testing.T) {
	tc := setupToolContext(t)
	_, err := tc.Journal.SaveDream(context.Background(), dream.Dream{
		ID:           "3",
		Title:        "Neon Library",
		Date:         toolsNow,
		Tags:         []string{"neon", "books"},
		CharacterIDs: []string{"c1"},
	})
	require.NoError(t, err)

	_, text := callTool(t, RelatedHandler(tc), map[string]interface{}{"id": "1"})
	var matches []dream.Match
	require.NoError(t, json.Unmarshal([]byte(text), &matches))
	assert.Equal(t, []dream.Match{{ID: "3", Score: 3}}, matches)

	result, text := callTool(t, RelatedHandler(tc), map[string]interface{}{"id": "nope"})
	assert.True(t, result.IsError)
	assert.Equal(t, "dream not found: nope", text)
}

func TestStatsHandler(t *testing.T) {
	tc := setupToolContext(t)

	_, text := callTool(t, StatsHandler(tc), map[string]interface{}{})
	var stats dream.Stats
	require.NoError(t, json.Unmarshal([]byte(text), &stats))
	assert.Equal(t, 2, stats.TotalDreams)
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, 8.0, stats.AverageClarity)
	assert.Equal(t, 0.65, stats.AverageSentiment)
	require.NotNil(t, stats.LastRecorded)
	assert.True(t, stats.LastRecorded.Equal(toolsNow))

	broken := NewToolContext(newService(brokenStore{Store: journal.NewMemoryStore()}), nil, nil)
	result, text := callTool(t, StatsHandler(broken), map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Equal(t, "Failed to compute statistics.", text)
}

func TestInsightsHandler(t *testing.T) {
	tc := setupToolContext(t)
	handler := InsightsHandler(tc)

	_, text := callTool(t, handler, map[string]interface{}{})
	var all journal.Insights
	require.NoError(t, json.Unmarshal([]byte(text), &all))
	assert.Len(t, all.Tags, 6)
	assert.Len(t, all.Sentiment, 2)
	assert.Len(t, all.Heatmap, dream.DefaultHeatmapDays+1)

	_, text = callTool(t, handler, map[string]interface{}{
		"include":   []interface{}{"tags"},
		"tag_limit": float64(2),
	})
	var tagsOnly journal.Insights
	require.NoError(t, json.Unmarshal([]byte(text), &tagsOnly))
	assert.Len(t, tagsOnly.Tags, 2)
	assert.Empty(t, tagsOnly.Sentiment)
	assert.Empty(t, tagsOnly.Heatmap)

	_, text = callTool(t, handler, map[string]interface{}{
		"include":      []interface{}{"heatmap"},
		"heatmap_days": float64(6),
	})
	var week journal.Insights
	require.NoError(t, json.Unmarshal([]byte(text), &week))
	assert.Len(t, week.Heatmap, 7)

	result, text := callTool(t, handler, map[string]interface{}{
		"include":      []interface{}{"heatmap"},
		"heatmap_days": float64(1 << 40),
	})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "heatmap_days must be at most 3660")

	result, text = callTool(t, handler, map[string]interface{}{"include": []interface{}{"moods"}})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "unknown insight")
}

func TestUniverseHandler(t *testing.T) {
	tc := setupToolContext(t)
	_, err := tc.Journal.SaveDream(context.Background(), dream.Dream{
		ID:    "3",
		Title: "Neon Library",
		Date:  toolsNow,
		Tags:  []string{"neon", "books"},
	})
	require.NoError(t, err)
	handler := UniverseHandler(tc)

	_, text := callTool(t, handler, map[string]interface{}{})
	var universe graph.Graph
	require.NoError(t, json.Unmarshal([]byte(text), &universe))
	assert.Len(t, universe.Nodes, 3)
	assert.NotEmpty(t, universe.Edges)

	_, text = callTool(t, handler, map[string]interface{}{"from": "1", "hops": float64(1), "mode": "dfs"})
	var walk graph.Graph
	require.NoError(t, json.Unmarshal([]byte(text), &walk))
	require.Len(t, walk.Nodes, 2)
	assert.Equal(t, "1", walk.Nodes[0].DreamID)
	assert.Equal(t, "3", walk.Nodes[1].DreamID)

	result, text := callTool(t, handler, map[string]interface{}{"from": "ghost"})
	assert.True(t, result.IsError)
	assert.Equal(t, "dream not found: ghost", text)

	result, _ = callTool(t, handler, map[string]interface{}{"mode": "random"})
	assert.True(t, result.IsError)
}

func TestCharacterHandlers(t *testing.T) {
	tc := setupToolContext(t)

	result, text := callTool(t, CharacterSaveHandler(tc), map[string]interface{}{
		"id":               "c1",
		"name":             "The Guide",
		"relationship":     "Mentor",
		"first_appearance": "2026-03-01",
	})
	assert.False(t, result.IsError)
	var saved dream.Character
	require.NoError(t, json.Unmarshal([]byte(text), &saved))
	assert.Equal(t, "Mentor", saved.Relationship)
	assert.Equal(t, []string{"1"}, saved.DreamIDs)
	assert.Equal(t, 1, saved.Appearances)

	result, _ = callTool(t, CharacterSaveHandler(tc), map[string]interface{}{"name": "x", "first_appearance": "soon"})
	assert.True(t, result.IsError)

	result, text = callTool(t, CharacterForgetHandler(tc), map[string]interface{}{"id": "c1"})
	assert.False(t, result.IsError)
	assert.Equal(t, "Character 'c1' deleted", text)

	result, text = callTool(t, CharacterForgetHandler(tc), map[string]interface{}{"id": "c1"})
	assert.True(t, result.IsError)
	assert.Equal(t, "character not found: c1", text)
}

func TestLocationHandlers(t *testing.T) {
	tc := setupToolContext(t)

	result, text := callTool(t, LocationSaveHandler(tc), map[string]interface{}{
		"name":        "Glass Beach",
		"description": "Waves of light",
	})
	assert.False(t, result.IsError)
	var saved dream.Location
	require.NoError(t, json.Unmarshal([]byte(text), &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 0, saved.Appearances)

	locations, err := tc.Journal.ListLocations(context.Background())
	require.NoError(t, err)
	assert.Len(t, locations, 3)

	result, _ = callTool(t, LocationSaveHandler(tc), map[string]interface{}{})
	assert.True(t, result.IsError)

	result, text = callTool(t, LocationForgetHandler(tc), map[string]interface{}{"id": "nowhere"})
	assert.True(t, result.IsError)
	assert.Equal(t, "location not found: nowhere", text)

	result, _ = callTool(t, LocationForgetHandler(tc), map[string]interface{}{"id": saved.ID})
	assert.False(t, result.IsError)
}

func TestExportAndClearHandlers(t *testing.T) {
	tc := setupToolContext(t)

	_, text := callTool(t, ExportHandler(tc), map[string]interface{}{})
	var export journal.Export
	require.NoError(t, json.Unmarshal([]byte(text), &export))
	assert.Len(t, export.Dreams, 2)
	assert.Len(t, export.Characters, 2)
	assert.Len(t, export.Locations, 2)

	result, _ := callTool(t, ClearHandler(tc), map[string]interface{}{})
	assert.True(t, result.IsError)
	result, _ = callTool(t, ClearHandler(tc), map[string]interface{}{"confirm": false})
	assert.True(t, result.IsError)

	result, text = callTool(t, ClearHandler(tc), map[string]interface{}{"confirm": true})
	assert.False(t, result.IsError)
	assert.Equal(t, "Journal cleared", text)

	_, text = callTool(t, ExportHandler(tc), map[string]interface{}{})
	assert.JSONEq(t, `{"dreams": [], "characters": [], "locations": []}`, text)
}

func TestSnapshotAndHistoryHandlers(t *testing.T) {
	tc := setupToolContext(t)

	result, text := callTool(t, SnapshotHandler(tc), map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Equal(t, "the journal archive is not enabled", text)
	result, _ = callTool(t, HistoryHandler(tc), map[string]interface{}{})
	assert.True(t, result.IsError)

	archiver, err := archive.NewArchiver(filepath.Join(t.TempDir(), "archive"), tc.Journal, nil, archive.Options{Holder: "test"})
	require.NoError(t, err)
	tc.Archiver = archiver

	_, text = callTool(t, HistoryHandler(tc), map[string]interface{}{})
	assert.Equal(t, "No snapshots yet.", text)

	result, text = callTool(t, SnapshotHandler(tc), map[string]interface{}{})
	assert.False(t, result.IsError)
	assert.Contains(t, text, "Snapshot committed")
	assert.Contains(t, text, "snapshot: Journal with 2 dreams")

	_, text = callTool(t, SnapshotHandler(tc), map[string]interface{}{})
	assert.Equal(t, "Archive already up to date (2 dreams)", text)

	_, text = callTool(t, HistoryHandler(tc), map[string]interface{}{"limit": float64(5)})
	assert.Contains(t, text, "Found 1 snapshots")
	assert.Contains(t, text, "snapshot: Journal with 2 dreams")
}
