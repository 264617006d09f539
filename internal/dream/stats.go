// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dream

import (
	"math"
	"sort"
	"time"
)

// ComputeStats summarizes the corpus as of now. Calendar days are evaluated in loc;
// a nil loc means time.Local.
func ComputeStats(corpus []Dream, now time.Time, loc *time.Location) Stats {
	total := len(corpus)
	if total == 0 {
		return Stats{}
	}
	if loc == nil {
		loc = time.Local
	}

	sorted := SortByDateDesc(corpus)
	last := sorted[0].Date

	var clarity, sentiment float64
	for _, d := range corpus {
		clarity += float64(d.Clarity)
		sentiment += d.Sentiment
	}

	return Stats{
		TotalDreams:      total,
		Streak:           streak(sorted, now, loc),
		LastRecorded:     &last,
		AverageClarity:   round(clarity/float64(total), 1),
		AverageSentiment: round(sentiment/float64(total), 2),
	}
}

// SortByDateDesc returns a copy of corpus ordered newest first. Equal dates keep corpus order.
func SortByDateDesc(corpus []Dream) []Dream {
	sorted := make([]Dream, len(corpus))
	copy(sorted, corpus)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}

// streak counts consecutive calendar days with at least one dream, ending today or yesterday.
// sorted must be ordered newest first.
func streak(sorted []Dream, now time.Time, loc *time.Location) int {
	today := dayNumber(now, loc)
	cursor := dayNumber(sorted[0].Date, loc)

	if today-cursor > 1 {
		return 0
	}

	count := 1
	for _, d := range sorted[1:] {
		day := dayNumber(d.Date, loc)
		switch cursor - day {
		case 0:
			continue
		case 1:
			count++
			cursor = day
		default:
			return count
		}
	}
	return count
}

// dayNumber maps t to a whole-day index of its calendar date in loc.
// Using the date alone keeps DST transitions from producing fractional gaps.
func dayNumber(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// StartOfDay truncates t to midnight in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
