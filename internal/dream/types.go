// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dream

import (
	"errors"
	"fmt"
	"time"
)

// Type classifies a dream
type Type string

// Dream types
const (
	TypeLucid     Type = "lucid"
	TypeNightmare Type = "nightmare"
	TypeRecurring Type = "recurring"
	TypeNormal    Type = "normal"
)

var (
	// ErrInvalidType is returned when a dream type is not one of the known types
	ErrInvalidType = errors.New("invalid dream type")
	// ErrInvalidDate is returned when a date string cannot be parsed
	ErrInvalidDate = errors.New("invalid dream date")
)

// ValidTypes returns all valid dream types
func ValidTypes() []Type {
	return []Type{TypeLucid, TypeNightmare, TypeRecurring, TypeNormal}
}

// ParseType converts a string into a Type. An empty string maps to TypeNormal.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeNormal, nil
	}
	for _, t := range ValidTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// ParseDate parses an ISO-8601 date. Full timestamps and plain calendar dates are accepted.
func ParseDate(s string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Dream is a single journal entry.
// Sentiment is expected in [0,1] and Clarity in [0,10]; neither range is enforced.
type Dream struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Content         string    `json:"content" yaml:"-"`
	Date            time.Time `json:"date" yaml:"date"`
	Type            Type      `json:"type" yaml:"type"`
	Sentiment       float64   `json:"sentiment" yaml:"sentiment"`
	Clarity         int       `json:"clarity" yaml:"clarity"`
	Tags            []string  `json:"tags" yaml:"tags"`
	CharacterIDs    []string  `json:"characterIds" yaml:"characters"`
	LocationIDs     []string  `json:"locationIds" yaml:"locations"`
	RelatedDreamIDs []string  `json:"relatedDreamIds,omitempty" yaml:"related,omitempty"`
}

// Clone returns a deep copy of the dream
func (d Dream) Clone() Dream {
	d.Tags = cloneStrings(d.Tags)
	d.CharacterIDs = cloneStrings(d.CharacterIDs)
	d.LocationIDs = cloneStrings(d.LocationIDs)
	d.RelatedDreamIDs = cloneStrings(d.RelatedDreamIDs)
	return d
}

// HasRelated reports whether id is already in the dream's related set
func (d Dream) HasRelated(id string) bool {
	return contains(d.RelatedDreamIDs, id)
}

// Character is a recurring person or figure seen in dreams
type Character struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Relationship    string    `json:"relationship"`
	Description     string    `json:"description,omitempty"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	FirstAppearance time.Time `json:"firstAppearance"`
	DreamIDs        []string  `json:"dreamIds"`
	Appearances     int       `json:"appearances"`
}

// Location is a recurring place seen in dreams
type Location struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	DreamIDs    []string `json:"dreamIds"`
	Appearances int      `json:"appearances"`
}

// Stats is a summary snapshot over the corpus
type Stats struct {
	TotalDreams      int        `json:"totalDreams"`
	Streak           int        `json:"streak"`
	LastRecorded     *time.Time `json:"lastRecorded"`
	AverageClarity   float64    `json:"averageClarity"`
	AverageSentiment float64    `json:"averageSentiment"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
