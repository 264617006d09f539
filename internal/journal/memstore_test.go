// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejzpr/dreamscape-mcp/internal/journal"
	"github.com/tejzpr/dreamscape-mcp/internal/journal/journaltest"
)

func TestMemoryStore(t *testing.T) {
	journaltest.Run(t, func(t *testing.T) journal.Store {
		return journal.NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	_, err := store.UpsertDream(ctx, journaltest.Dream("a", 0, []string{"x"}, nil, nil))
	require.NoError(t, err)

	got, err := store.GetDream(ctx, "a")
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := store.GetDream(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Tags)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	_, err := store.UpsertDream(ctx, journaltest.Dream("a", 0, nil, nil, nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.AppendRelated(ctx, "a", string(rune('b'+n%5)))
		}(i)
	}
	wg.Wait()

	got, err := store.GetDream(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got.RelatedDreamIDs, 5)
}
