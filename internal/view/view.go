// Package view is the filter engine: a pure transformation from the full
// event set plus user filter parameters to the filtered subset and its
// derived aggregates. No I/O, no mutation of inputs; callers invoke it on
// every parameter or data change and always get the same answer for the
// same inputs at the same instant.
package view

import (
	"sort"

	"github.com/jonboulle/clockwork"

	"github.com/quakewatch/quakewatch/internal/metrics"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic
// time-window boundaries.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Compute applies the magnitude and time-window filters (conjunctively) and
// derives the summary aggregates in a single pass over the filtered set.
//
// "Now" is sampled exactly once per call, so every event in one computation
// is judged against the same instant. The magnitude predicate is skipped
// entirely when MinMagnitude is 0; with any positive threshold an event
// whose magnitude is missing (NaN) is excluded.
func Compute(events []quake.Event, params quake.FilterParams) ([]quake.Event, quake.Summary) {
	metrics.ViewComputations.Inc()

	now := clock.Now().UnixMilli()
	windowMillis := params.Window.Millis()

	filtered := make([]quake.Event, 0, len(events))
	var summary quake.Summary
	var sum float64
	haveMax := false

	for _, ev := range events {
		if params.MinMagnitude > 0 {
			if !quake.IsFinite(ev.Magnitude) || ev.Magnitude < params.MinMagnitude {
				continue
			}
		}
		if params.Window != quake.WindowAll && now-ev.OccurredAt > windowMillis {
			continue
		}

		filtered = append(filtered, ev)

		if quake.IsFinite(ev.Magnitude) {
			sum += ev.Magnitude
			if !haveMax || ev.Magnitude > summary.MaxMagnitude {
				summary.MaxMagnitude = ev.Magnitude
				haveMax = true
			}
			if ev.Magnitude >= quake.SignificantMagnitude {
				summary.SignificantCount++
			}
		}
	}

	summary.FilteredCount = len(filtered)
	if len(filtered) > 0 {
		summary.MeanMagnitude = sum / float64(len(filtered))
	}
	summary.TopSignificant = topSignificant(filtered, 5)

	return filtered, summary
}

// topSignificant returns up to limit events with magnitude at or above the
// significance threshold, sorted by magnitude descending. The sort is
// stable: equal magnitudes keep their original feed order. That ordering is
// part of the contract, not an accident of the sort implementation.
func topSignificant(events []quake.Event, limit int) []quake.Event {
	var top []quake.Event
	for _, ev := range events {
		if quake.IsFinite(ev.Magnitude) && ev.Magnitude >= quake.SignificantMagnitude {
			top = append(top, ev)
		}
	}

	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Magnitude > top[j].Magnitude
	})

	if len(top) > limit {
		top = top[:limit]
	}
	return top
}
