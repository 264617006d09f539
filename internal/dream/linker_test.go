// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDream(id string, tags, chars, locs []string) Dream {
	return Dream{
		ID:           id,
		Title:        "Dream " + id,
		Type:         TypeNormal,
		Tags:         tags,
		CharacterIDs: chars,
		LocationIDs:  locs,
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Dream
		score int
	}{
		{
			name:  "no overlap",
			a:     newDream("a", []string{"flying"}, nil, nil),
			b:     newDream("b", []string{"water"}, nil, nil),
			score: 0,
		},
		{
			name:  "tags count once each",
			a:     newDream("a", []string{"flying", "neon"}, nil, nil),
			b:     newDream("b", []string{"neon", "flying", "city"}, nil, nil),
			score: 2,
		},
		{
			name:  "characters weigh double",
			a:     newDream("a", nil, []string{"c1"}, nil),
			b:     newDream("b", nil, []string{"c1", "c2"}, nil),
			score: 2,
		},
		{
			name:  "locations weigh double",
			a:     newDream("a", nil, nil, []string{"l1", "l2"}),
			b:     newDream("b", nil, nil, []string{"l2", "l1"}),
			score: 4,
		},
		{
			name:  "mixed",
			a:     newDream("a", []string{"x"}, []string{"c1"}, []string{"l1"}),
			b:     newDream("b", []string{"x"}, []string{"c1"}, []string{"l1"}),
			score: 5,
		},
		{
			name:  "duplicate tags are a set",
			a:     newDream("a", []string{"x", "x"}, nil, nil),
			b:     newDream("b", []string{"x"}, nil, nil),
			score: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.score, Score(tt.a, tt.b))
			assert.Equal(t, tt.score, Score(tt.b, tt.a))
		})
	}
}

func TestComputeRelated_ExcludesSelf(t *testing.T) {
	d := newDream("1", []string{"flying"}, []string{"c1"}, nil)
	corpus := []Dream{
		d,
		newDream("2", []string{"flying"}, nil, nil),
	}

	related := ComputeRelated(d, corpus)
	assert.Equal(t, []string{"2"}, related)
	assert.NotContains(t, related, d.ID)
}

func TestComputeRelated_EmptyInputs(t *testing.T) {
	d := newDream("1", nil, nil, nil)
	assert.Empty(t, ComputeRelated(d, nil))
	assert.Empty(t, ComputeRelated(d, []Dream{newDream("2", []string{"a"}, nil, nil)}))
}

func TestComputeRelated_OrderAndLimit(t *testing.T) {
	d := newDream("new", []string{"a", "b", "c"}, []string{"c1"}, []string{"l1"})

	// scores: t1=1 t2=2 c=2 all=5 none=0 t3=3 t1b=1
	corpus := []Dream{
		newDream("t1", []string{"a"}, nil, nil),
		newDream("t2", []string{"a", "b"}, nil, nil),
		newDream("c", nil, []string{"c1"}, nil),
		newDream("all", []string{"a"}, []string{"c1"}, []string{"l1"}),
		newDream("none", []string{"z"}, nil, nil),
		newDream("t3", []string{"a", "b", "c"}, nil, nil),
		newDream("t1b", []string{"c"}, nil, nil),
	}

	matches := RankRelated(d, corpus)
	require.Len(t, matches, MaxRelated)

	ids := ComputeRelated(d, corpus)
	assert.Equal(t, []string{"all", "t3", "t2", "c", "t1"}, ids)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestComputeRelated_StableForTies(t *testing.T) {
	d := newDream("x", []string{"t"}, nil, nil)
	var corpus []Dream
	for i := 0; i < 8; i++ {
		corpus = append(corpus, newDream(fmt.Sprintf("d%d", i), []string{"t"}, nil, nil))
	}

	assert.Equal(t, []string{"d0", "d1", "d2", "d3", "d4"}, ComputeRelated(d, corpus))
}

func TestBacklinks(t *testing.T) {
	patches := Backlinks("new", []string{"a", "new", "b"})
	assert.Equal(t, []Backlink{
		{DreamID: "a", RelatedID: "new"},
		{DreamID: "b", RelatedID: "new"},
	}, patches)
}

func TestApplyBacklinks(t *testing.T) {
	a := newDream("a", nil, nil, nil)
	a.RelatedDreamIDs = []string{"z"}
	b := newDream("b", nil, nil, nil)
	b.RelatedDreamIDs = []string{"new"}
	corpus := []Dream{a, b}

	out := ApplyBacklinks(corpus, []Backlink{
		{DreamID: "a", RelatedID: "new"},
		{DreamID: "b", RelatedID: "new"},
		{DreamID: "missing", RelatedID: "new"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, []string{"z", "new"}, out[0].RelatedDreamIDs)
	assert.Equal(t, []string{"new"}, out[1].RelatedDreamIDs)

	// Input is untouched
	assert.Equal(t, []string{"z"}, corpus[0].RelatedDreamIDs)
}

func TestLinkingIsSymmetric(t *testing.T) {
	corpus := []Dream{
		newDream("1", []string{"flying", "neon"}, []string{"c1"}, []string{"l1"}),
		newDream("2", []string{"library"}, []string{"c2"}, []string{"l2"}),
		newDream("3", []string{"neon"}, nil, nil),
	}
	saved := newDream("4", []string{"neon"}, []string{"c1"}, nil)

	saved.RelatedDreamIDs = ComputeRelated(saved, corpus)
	updated := ApplyBacklinks(append([]Dream{saved}, corpus...), Backlinks(saved.ID, saved.RelatedDreamIDs))

	byID := make(map[string]Dream)
	for _, d := range updated {
		byID[d.ID] = d
	}
	for _, id := range saved.RelatedDreamIDs {
		assert.True(t, byID[id].HasRelated(saved.ID), "dream %s should link back", id)
	}
	assert.False(t, byID["2"].HasRelated(saved.ID))
}
