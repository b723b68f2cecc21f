package maprender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quakewatch/quakewatch/internal/marker"
)

func TestLayerMarkers(t *testing.T) {
	l := NewLayer(true)

	if !l.Ready() {
		t.Fatal("expected layer to be ready")
	}

	if err := l.AddMarker(marker.Descriptor{EventID: "a"}); err != nil {
		t.Fatalf("AddMarker: %v", err)
	}
	if err := l.AddMarker(marker.Descriptor{EventID: "b"}); err != nil {
		t.Fatalf("AddMarker: %v", err)
	}

	markers := l.Markers()
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].EventID != "a" || markers[1].EventID != "b" {
		t.Errorf("markers out of order: %q, %q", markers[0].EventID, markers[1].EventID)
	}

	l.ClearMarkers()
	if len(l.Markers()) != 0 {
		t.Error("expected no markers after clear")
	}
}

func TestLayerMarkersReturnsCopy(t *testing.T) {
	l := NewLayer(true)
	l.AddMarker(marker.Descriptor{EventID: "a"})

	got := l.Markers()
	got[0].EventID = "mutated"

	if l.Markers()[0].EventID != "a" {
		t.Error("Markers() exposed internal slice")
	}
}

func TestProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("expected a User-Agent header")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l := NewLayer(false)
	if err := l.probe(context.Background(), srv.URL); err != nil {
		t.Fatalf("probe: %v", err)
	}

	if !l.Ready() {
		t.Error("expected layer ready after successful probe")
	}
	if l.LastError() != "" {
		t.Errorf("expected no error, got %q", l.LastError())
	}
}

func TestProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	l := NewLayer(false)
	if err := l.probe(ctx, srv.URL); err == nil {
		t.Fatal("expected probe to fail")
	}

	if l.Ready() {
		t.Error("expected layer to stay unready after failed probe")
	}
	if l.LastError() == "" {
		t.Error("expected a render error to be recorded")
	}
}

func TestProbeRetriesUntilSuccess(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l := NewLayer(false)
	if err := l.probe(context.Background(), srv.URL); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if attempts < 3 {
		t.Errorf("expected at least 3 attempts, got %d", attempts)
	}
	if !l.Ready() {
		t.Error("expected layer ready after eventual success")
	}
}
