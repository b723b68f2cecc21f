// Package marker turns filtered seismic events into visual marker
// descriptors and synchronizes them against a map renderer. The renderer is
// a capability boundary: any mapping backend (or a headless test double)
// that can clear and add markers satisfies it.
package marker

import (
	"fmt"
	"html/template"

	"github.com/quakewatch/quakewatch/internal/quake"
)

// Class buckets magnitude into one of five severity tiers.
type Class string

const (
	ClassMicro    Class = "micro"
	ClassMinor    Class = "minor"
	ClassLight    Class = "light"
	ClassModerate Class = "moderate"
	ClassMajor    Class = "major"
)

// Color returns the marker fill color for the tier.
func (c Class) Color() string {
	switch c {
	case ClassMajor:
		return "#d32f2f" // red
	case ClassModerate:
		return "#f57c00" // orange
	case ClassLight:
		return "#fbc02d" // yellow
	case ClassMinor:
		return "#1976d2" // blue
	default:
		return "#388e3c" // green
	}
}

// Classify maps a magnitude to its tier and pixel radius. Thresholds are
// evaluated top-down, inclusive on the lower bound of each tier.
func Classify(magnitude float64) (Class, int) {
	switch {
	case magnitude >= 7:
		return ClassMajor, 15
	case magnitude >= 5:
		return ClassModerate, 12
	case magnitude >= 3:
		return ClassLight, 9
	case magnitude >= 1:
		return ClassMinor, 7
	default:
		return ClassMicro, 5
	}
}

// Descriptor is one marker: position, style bucket and popup text.
type Descriptor struct {
	EventID  string
	Latitude float64
	Longitude float64
	Class    Class
	Color    string
	RadiusPx int
	Popup    string
}

// Project maps events to marker descriptors, preserving order. Events with
// a non-finite magnitude or coordinates are skipped: they still count in
// statistics computed before projection, they just have nowhere to go on
// the map.
func Project(events []quake.Event) []Descriptor {
	descriptors := make([]Descriptor, 0, len(events))
	for _, ev := range events {
		if !ev.MapEligible() {
			continue
		}
		class, radius := Classify(ev.Magnitude)
		descriptors = append(descriptors, Descriptor{
			EventID:   ev.ID,
			Latitude:  ev.Latitude,
			Longitude: ev.Longitude,
			Class:     class,
			Color:     class.Color(),
			RadiusPx:  radius,
			Popup:     popupHTML(ev),
		})
	}
	return descriptors
}

// popupHTML formats the marker popup. Place text comes from the feed, so it
// is escaped before being embedded.
func popupHTML(ev quake.Event) string {
	depth := "depth unknown"
	if quake.IsFinite(ev.DepthKm) {
		depth = fmt.Sprintf("%.1f km deep", ev.DepthKm)
	}
	return fmt.Sprintf("<strong>M%.1f</strong> %s<br>%s · %s",
		ev.Magnitude,
		template.HTMLEscapeString(ev.Place),
		ev.Time().Format("Jan 2 15:04 UTC"),
		depth,
	)
}
