// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dream

import "sort"

// MaxRelated is the maximum number of related dreams kept per dream
const MaxRelated = 5

// Relatedness weights. Shared characters and locations count double.
const (
	tagWeight       = 1
	characterWeight = 2
	locationWeight  = 2
)

// Match is a candidate dream with its relatedness score
type Match struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// Backlink is an append-if-absent patch: DreamID gets RelatedID added to its related set
type Backlink struct {
	DreamID   string
	RelatedID string
}

// Score returns the weighted count of tags, characters and locations shared by a and b
func Score(a, b Dream) int {
	return tagWeight*overlap(a.Tags, b.Tags) +
		characterWeight*overlap(a.CharacterIDs, b.CharacterIDs) +
		locationWeight*overlap(a.LocationIDs, b.LocationIDs)
}

// RankRelated scores every other dream in the corpus against d and returns
// the positive matches, highest score first. Ties keep corpus order.
func RankRelated(d Dream, corpus []Dream) []Match {
	matches := make([]Match, 0, len(corpus))
	for _, candidate := range corpus {
		if candidate.ID == d.ID {
			continue
		}
		score := Score(candidate, d)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{ID: candidate.ID, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > MaxRelated {
		matches = matches[:MaxRelated]
	}
	return matches
}

// ComputeRelated returns the ids of at most MaxRelated dreams related to d
func ComputeRelated(d Dream, corpus []Dream) []string {
	matches := RankRelated(d, corpus)
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

// Backlinks builds the patches that make the relation symmetric after savedID
// was linked to related
func Backlinks(savedID string, related []string) []Backlink {
	patches := make([]Backlink, 0, len(related))
	for _, id := range related {
		if id == savedID {
			continue
		}
		patches = append(patches, Backlink{DreamID: id, RelatedID: savedID})
	}
	return patches
}

// ApplyBacklinks returns a copy of corpus with the patches applied.
// Patches addressing unknown dreams are ignored.
func ApplyBacklinks(corpus []Dream, patches []Backlink) []Dream {
	out := make([]Dream, len(corpus))
	index := make(map[string]int, len(corpus))
	for i, d := range corpus {
		out[i] = d.Clone()
		index[d.ID] = i
	}

	for _, p := range patches {
		i, ok := index[p.DreamID]
		if !ok {
			continue
		}
		if !out[i].HasRelated(p.RelatedID) {
			out[i].RelatedDreamIDs = append(out[i].RelatedDreamIDs, p.RelatedID)
		}
	}
	return out
}

// overlap counts distinct values present in both a and b
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	count := 0
	for _, v := range a {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := set[v]; ok {
			count++
		}
	}
	return count
}
