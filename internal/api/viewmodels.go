package api

import (
	"time"

	"github.com/quakewatch/quakewatch/internal/dashboard"
	"github.com/quakewatch/quakewatch/internal/marker"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// EventVM is the JSON shape for one event. Missing magnitude, coordinates
// or depth (NaN in the domain model) become null rather than breaking the
// encoder.
type EventVM struct {
	ID         string   `json:"id"`
	Magnitude  *float64 `json:"magnitude"`
	Place      string   `json:"place"`
	OccurredAt int64    `json:"occurred_at"`
	Time       string   `json:"time"`
	Longitude  *float64 `json:"longitude"`
	Latitude   *float64 `json:"latitude"`
	DepthKm    *float64 `json:"depth_km"`
}

func toEventVM(ev quake.Event) EventVM {
	return EventVM{
		ID:         ev.ID,
		Magnitude:  finitePtr(ev.Magnitude),
		Place:      ev.Place,
		OccurredAt: ev.OccurredAt,
		Time:       ev.Time().Format(time.RFC3339),
		Longitude:  finitePtr(ev.Longitude),
		Latitude:   finitePtr(ev.Latitude),
		DepthKm:    finitePtr(ev.DepthKm),
	}
}

func toEventVMs(events []quake.Event) []EventVM {
	out := make([]EventVM, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventVM(ev))
	}
	return out
}

func finitePtr(f float64) *float64 {
	if !quake.IsFinite(f) {
		return nil
	}
	v := f
	return &v
}

// SummaryVM is the JSON shape for derived aggregates.
type SummaryVM struct {
	FilteredCount    int       `json:"filtered_count"`
	SignificantCount int       `json:"significant_count"`
	MaxMagnitude     float64   `json:"max_magnitude"`
	MeanMagnitude    float64   `json:"mean_magnitude"`
	TopSignificant   []EventVM `json:"top_significant"`
}

func toSummaryVM(s quake.Summary) SummaryVM {
	return SummaryVM{
		FilteredCount:    s.FilteredCount,
		SignificantCount: s.SignificantCount,
		MaxMagnitude:     s.MaxMagnitude,
		MeanMagnitude:    s.MeanMagnitude,
		TopSignificant:   toEventVMs(s.TopSignificant),
	}
}

// MarkerVM is the JSON shape for one map marker descriptor.
type MarkerVM struct {
	EventID   string  `json:"event_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Class     string  `json:"class"`
	Color     string  `json:"color"`
	RadiusPx  int     `json:"radius_px"`
	Popup     string  `json:"popup"`
}

func toMarkerVMs(descriptors []marker.Descriptor) []MarkerVM {
	out := make([]MarkerVM, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, MarkerVM{
			EventID:   d.EventID,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Class:     string(d.Class),
			Color:     d.Color,
			RadiusPx:  d.RadiusPx,
			Popup:     d.Popup,
		})
	}
	return out
}

// StatusVM reports the two failure domains separately: feed errors never
// masquerade as render errors and vice versa.
type StatusVM struct {
	Loading     bool   `json:"loading"`
	LastFetch   string `json:"last_fetch,omitempty"`
	FeedError   string `json:"feed_error,omitempty"`
	StaleData   bool   `json:"stale_data"`
	MapReady    bool   `json:"map_ready"`
	RenderError string `json:"render_error,omitempty"`
}

func toStatusVM(snap dashboard.Snapshot, mapReady bool, mapErr string) StatusVM {
	vm := StatusVM{
		Loading:     snap.Loading,
		FeedError:   snap.FeedError,
		StaleData:   snap.StaleData,
		MapReady:    mapReady,
		RenderError: snap.RenderError,
	}
	if vm.RenderError == "" {
		vm.RenderError = mapErr
	}
	if !snap.LastFetch.IsZero() {
		vm.LastFetch = snap.LastFetch.UTC().Format(time.RFC3339)
	}
	return vm
}
