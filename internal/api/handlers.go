package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/quakewatch/quakewatch/internal/dashboard"
	"github.com/quakewatch/quakewatch/internal/imagegen"
	"github.com/quakewatch/quakewatch/internal/marker"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/view"
)

// maxMinMagnitude matches the range of the dashboard's magnitude slider.
const maxMinMagnitude = 8.0

// parseParams reads filter parameters from the query string. Returns the
// parsed params and whether either control was present at all.
func parseParams(r *http.Request) (quake.FilterParams, bool) {
	q := r.URL.Query()
	params := quake.FilterParams{Window: quake.WindowAll}
	present := false

	if v := q.Get("minmag"); v != "" {
		present = true
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			switch {
			case f < 0:
				params.MinMagnitude = 0
			case f > maxMinMagnitude:
				params.MinMagnitude = maxMinMagnitude
			default:
				params.MinMagnitude = f
			}
		}
	}
	if v := q.Get("window"); v != "" {
		present = true
		params.Window = quake.ParseWindow(v)
	}
	return params, present
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

// handleIndex renders the dashboard page. A request carrying filter
// controls is a control change: it updates the shared parameters before
// rendering.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if params, ok := parseParams(r); ok {
		s.state.SetParams(params)
	}
	snap := s.state.Snapshot()

	markerJSON, err := json.Marshal(toMarkerVMs(s.layer.Markers()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := indexData{
		Snapshot:        snap,
		Summary:         toSummaryVM(snap.Summary),
		MarkerJSON:      markerJSON,
		MapReady:        s.layer.Ready(),
		MapError:        snap.RenderError,
		TileURL:         s.tileURL(),
		TileAttribution: s.tileAttribution(),
		Windows:         windowOptions(snap.Params.Window),
		MagSteps:        magnitudeSteps(snap.Params.MinMagnitude),
		ShowFilters:     r.URL.Query().Get("filters") != "hidden",
	}
	if data.MapError == "" {
		data.MapError = s.layer.LastError()
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

// handleAPIView computes a filtered view. Explicit query parameters are an
// ephemeral query and do not touch the shared dashboard parameters.
func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()

	filtered, summary := snap.Filtered, snap.Summary
	if params, ok := parseParams(r); ok {
		filtered, summary = view.Compute(snap.Events, params)
	}

	writeJSON(w, http.StatusOK, struct {
		Events  []EventVM `json:"events"`
		Summary SummaryVM `json:"summary"`
	}{toEventVMs(filtered), toSummaryVM(summary)})
}

// handleAPIMarkers returns marker descriptors: the reconciled layer by
// default, or an ephemeral projection when query parameters are provided.
func (s *Server) handleAPIMarkers(w http.ResponseWriter, r *http.Request) {
	if params, ok := parseParams(r); ok {
		snap := s.state.Snapshot()
		filtered, _ := view.Compute(snap.Events, params)
		writeJSON(w, http.StatusOK, toMarkerVMs(marker.Project(filtered)))
		return
	}
	writeJSON(w, http.StatusOK, toMarkerVMs(s.layer.Markers()))
}

// handleAPIRefresh triggers a feed fetch. While one is already pending the
// request is accepted but no second fetch is issued.
func (s *Server) handleAPIRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := s.state.Refresh(r.Context())
	if errors.Is(err, dashboard.ErrRefreshInFlight) {
		writeJSON(w, http.StatusAccepted, toStatusVM(s.state.Snapshot(), s.layer.Ready(), s.layer.LastError()))
		return
	}
	// Feed failures are part of the status payload, not an HTTP error:
	// the page still renders, with the error state in the map panel.
	writeJSON(w, http.StatusOK, toStatusVM(s.state.Snapshot(), s.layer.Ready(), s.layer.LastError()))
}

// handleAPIProbe re-runs the tile-source probe, the retry affordance for
// the render failure domain.
func (s *Server) handleAPIProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.layer.Probe(r.Context()); err != nil {
		log.Printf("api: tile probe: %v", err)
	} else {
		s.state.Reconcile()
	}
	writeJSON(w, http.StatusOK, toStatusVM(s.state.Snapshot(), s.layer.Ready(), s.layer.LastError()))
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusVM(s.state.Snapshot(), s.layer.Ready(), s.layer.LastError()))
}

type healthStatus struct {
	Status      string `json:"status"`
	LastFetch   string `json:"last_fetch,omitempty"`
	FeedError   string `json:"feed_error,omitempty"`
	MapReady    bool   `json:"map_ready"`
	FetchRuns   int    `json:"fetch_runs_24h,omitempty"`
	FailedRuns  int    `json:"failed_runs_24h,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()

	health := healthStatus{
		Status:    "ok",
		FeedError: snap.FeedError,
		MapReady:  s.layer.Ready(),
	}
	if !snap.LastFetch.IsZero() {
		health.LastFetch = snap.LastFetch.UTC().Format(time.RFC3339)
	}
	if snap.FeedError != "" || !s.layer.Ready() {
		health.Status = "degraded"
	}

	if s.journal != nil {
		if sum, err := s.journal.GetHealthSummary(1); err == nil {
			health.FetchRuns = sum.TotalRuns
			health.FailedRuns = sum.FailedRuns
		} else {
			log.Printf("api: journal health: %v", err)
		}
	}

	if health.Status != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.ogCache.Get(); ok {
		serveOGImage(w, data)
		return
	}

	snap := s.state.Snapshot()
	data, err := imagegen.GenerateOGImage(imagegen.OGImageData{
		FilteredCount:    snap.Summary.FilteredCount,
		SignificantCount: snap.Summary.SignificantCount,
		MaxMagnitude:     snap.Summary.MaxMagnitude,
		GeneratedAt:      time.Now(),
	})
	if err != nil {
		log.Printf("api: og image: %v", err)
		http.Error(w, "image generation failed", http.StatusInternalServerError)
		return
	}

	s.ogCache.Set(data)
	serveOGImage(w, data)
}

func serveOGImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=600")
	w.Write(data)
}
