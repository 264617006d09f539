// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"strings"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// Filter narrows a dream listing. Empty fields match everything.
type Filter struct {
	Type        dream.Type
	Tag         string
	CharacterID string
	LocationID  string
	Query       string // case-insensitive substring of title or content
	Limit       int
}

// Apply returns the matching dreams, preserving order
func (f Filter) Apply(corpus []dream.Dream) []dream.Dream {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]dream.Dream, 0, len(corpus))
	for _, d := range corpus {
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		if f.Tag != "" && !hasValue(d.Tags, f.Tag) {
			continue
		}
		if f.CharacterID != "" && !hasValue(d.CharacterIDs, f.CharacterID) {
			continue
		}
		if f.LocationID != "" && !hasValue(d.LocationIDs, f.LocationID) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(d.Title), query) &&
			!strings.Contains(strings.ToLower(d.Content), query) {
			continue
		}
		out = append(out, d)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func hasValue(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
