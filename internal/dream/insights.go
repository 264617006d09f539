// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dream

import (
	"sort"
	"time"
)

// Insight defaults
const (
	DefaultTagLimit    = 30
	DefaultTrendLimit  = 20
	DefaultHeatmapDays = 365
	MaxHeatmapDays     = 3660 // ten years
	heatmapDateLayout  = "2006-01-02"
)

// TagCount is the number of dreams carrying a tag
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TrendPoint is one dream on the sentiment trend line.
// Mood is +1 for lucid dreams, -1 for nightmares and 0 otherwise.
type TrendPoint struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Mood      int       `json:"mood"`
	Sentiment float64   `json:"sentiment"`
}

// HeatmapDay is one cell of the calendar heatmap
type HeatmapDay struct {
	Date      string   `json:"date"`
	Count     int      `json:"count"`
	DreamIDs  []string `json:"dreamIds"`
	Intensity int      `json:"intensity"`
}

// TagFrequency counts tag usage across the corpus and returns the limit most used tags.
// Equal counts keep first-seen order. limit <= 0 means DefaultTagLimit.
func TagFrequency(corpus []Dream, limit int) []TagCount {
	if limit <= 0 {
		limit = DefaultTagLimit
	}

	index := make(map[string]int)
	var counts []TagCount
	for _, d := range corpus {
		for _, tag := range d.Tags {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// SentimentTrend returns the most recent limit dreams in chronological order.
// limit <= 0 means DefaultTrendLimit.
func SentimentTrend(corpus []Dream, limit int) []TrendPoint {
	if limit <= 0 {
		limit = DefaultTrendLimit
	}

	sorted := make([]Dream, len(corpus))
	copy(sorted, corpus)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	points := make([]TrendPoint, 0, len(sorted))
	for _, d := range sorted {
		points = append(points, TrendPoint{
			ID:        d.ID,
			Title:     d.Title,
			Date:      d.Date,
			Mood:      mood(d.Type),
			Sentiment: d.Sentiment,
		})
	}
	return points
}

// CalendarHeatmap buckets dreams per calendar day for the days preceding now plus today,
// oldest first. days <= 0 means DefaultHeatmapDays; larger spans are capped at MaxHeatmapDays.
func CalendarHeatmap(corpus []Dream, now time.Time, loc *time.Location, days int) []HeatmapDay {
	if days <= 0 {
		days = DefaultHeatmapDays
	}
	if days > MaxHeatmapDays {
		days = MaxHeatmapDays
	}
	if loc == nil {
		loc = time.Local
	}

	byDate := make(map[string][]string)
	for _, d := range corpus {
		key := d.Date.In(loc).Format(heatmapDateLayout)
		byDate[key] = append(byDate[key], d.ID)
	}

	today := StartOfDay(now, loc)
	cells := make([]HeatmapDay, 0, days+1)
	for i := days; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(heatmapDateLayout)
		ids := byDate[key]
		if ids == nil {
			ids = []string{}
		}
		cells = append(cells, HeatmapDay{
			Date:      key,
			Count:     len(ids),
			DreamIDs:  ids,
			Intensity: intensity(len(ids)),
		})
	}
	return cells
}

// intensity maps a day's dream count onto a 0-4 scale
func intensity(count int) int {
	switch {
	case count > 4:
		return 4
	case count > 2:
		return 3
	case count > 1:
		return 2
	case count > 0:
		return 1
	default:
		return 0
	}
}

func mood(t Type) int {
	switch t {
	case TypeLucid:
		return 1
	case TypeNightmare:
		return -1
	default:
		return 0
	}
}
