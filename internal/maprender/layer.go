// Package maprender is the concrete map renderer behind the marker
// boundary. The actual drawing happens in the browser with Leaflet; this
// package owns the server-side marker layer the page is hydrated from,
// plus the tile-source probe that gates readiness.
package maprender

import (
	"sync"

	"github.com/quakewatch/quakewatch/internal/marker"
)

// Fixed tile source for the browser map. Not configurable.
const (
	TileURL         = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	TileAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

// Layer is an in-memory marker layer implementing marker.Renderer. It
// becomes ready once the tile-source probe succeeds (or immediately when
// probing is disabled).
type Layer struct {
	mu      sync.RWMutex
	ready   bool
	markers []marker.Descriptor
	lastErr string
}

// NewLayer creates a marker layer. Pass ready=true to skip the probe
// gate (tests, --no-probe).
func NewLayer(ready bool) *Layer {
	return &Layer{ready: ready}
}

// Ready reports whether the tile source has been verified reachable.
func (l *Layer) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// ClearMarkers empties the layer.
func (l *Layer) ClearMarkers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = nil
}

// AddMarker appends one marker to the layer.
func (l *Layer) AddMarker(d marker.Descriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = append(l.markers, d)
	return nil
}

// Markers returns a copy of the current marker set in insertion order.
func (l *Layer) Markers() []marker.Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]marker.Descriptor, len(l.markers))
	copy(out, l.markers)
	return out
}

// LastError returns the render-domain error message, empty when healthy.
func (l *Layer) LastError() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

func (l *Layer) setReady(ready bool, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready = ready
	l.lastErr = errMsg
}
