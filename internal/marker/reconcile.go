package marker

import (
	"errors"
	"fmt"

	"github.com/quakewatch/quakewatch/internal/metrics"
)

// Renderer is the map boundary the projector reconciles against. Concrete
// implementations wrap a real mapping backend; tests use an in-memory double.
type Renderer interface {
	// Ready reports whether the renderer can accept markers. Reconcile
	// must not be called before the first Ready() == true.
	Ready() bool
	// ClearMarkers removes every marker from the layer.
	ClearMarkers()
	// AddMarker appends one marker to the layer.
	AddMarker(Descriptor) error
}

// ErrNotReady is returned when reconciliation is attempted before the
// renderer has signalled readiness.
var ErrNotReady = errors.New("map renderer not ready")

// Reconcile replaces the renderer's marker layer wholesale so it matches
// descriptors exactly: clear everything, then add one marker per descriptor
// in order. The feed is bounded to a day of events and reconciliation runs
// at filter-change rate, so a full replace stays cheap and never drifts.
func Reconcile(r Renderer, descriptors []Descriptor) error {
	if !r.Ready() {
		metrics.MarkerReconciles.WithLabelValues("not_ready").Inc()
		return ErrNotReady
	}

	r.ClearMarkers()
	for i, d := range descriptors {
		if err := r.AddMarker(d); err != nil {
			metrics.MarkerReconciles.WithLabelValues("error").Inc()
			return fmt.Errorf("add marker %d (%s): %w", i, d.EventID, err)
		}
	}

	metrics.MarkerReconciles.WithLabelValues("ok").Inc()
	return nil
}
