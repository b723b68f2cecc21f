package quake

import (
	"math"
	"time"
)

// Event is a single seismic event as reported by the feed.
type Event struct {
	ID         string
	Magnitude  float64 // Richter-like, NaN when not reported
	Place      string
	OccurredAt int64 // epoch milliseconds, event time
	Longitude  float64
	Latitude   float64
	DepthKm    float64 // may be negative, NaN when missing
}

// Time returns the event time as a time.Time in UTC.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.OccurredAt).UTC()
}

// MapEligible reports whether the event can be placed on a map.
// Magnitude and both coordinates must be finite; everything else
// (depth included) is allowed to be missing.
func (e Event) MapEligible() bool {
	return IsFinite(e.Magnitude) && IsFinite(e.Longitude) && IsFinite(e.Latitude)
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SignificantMagnitude is the threshold above which an event counts as
// significant in summaries and the ranked list.
const SignificantMagnitude = 2.5

// TimeWindow restricts the view to events within a fixed lookback.
type TimeWindow string

const (
	WindowAll    TimeWindow = "all"
	WindowHour   TimeWindow = "1h"
	Window6Hours TimeWindow = "6h"
	Window12Hours TimeWindow = "12h"
)

// Millis returns the window length in epoch milliseconds, 0 for WindowAll.
func (w TimeWindow) Millis() int64 {
	switch w {
	case WindowHour:
		return 3_600_000
	case Window6Hours:
		return 21_600_000
	case Window12Hours:
		return 43_200_000
	default:
		return 0
	}
}

// Label returns a human-readable name for the window selector.
func (w TimeWindow) Label() string {
	switch w {
	case WindowHour:
		return "Last hour"
	case Window6Hours:
		return "Last 6 hours"
	case Window12Hours:
		return "Last 12 hours"
	default:
		return "All (past day)"
	}
}

// ParseWindow maps a selector value to a TimeWindow, defaulting to WindowAll.
func ParseWindow(s string) TimeWindow {
	switch TimeWindow(s) {
	case WindowHour, Window6Hours, Window12Hours:
		return TimeWindow(s)
	default:
		return WindowAll
	}
}

// FilterParams are the user-adjustable view controls. The zero value means
// no filtering at all.
type FilterParams struct {
	MinMagnitude float64
	Window       TimeWindow
}

// Summary holds the aggregates derived from a filtered event set. It is
// recomputed from scratch on every change and never mutated in place.
type Summary struct {
	FilteredCount    int
	SignificantCount int
	MaxMagnitude     float64
	MeanMagnitude    float64
	TopSignificant   []Event
}
