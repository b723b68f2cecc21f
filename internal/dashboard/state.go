// Package dashboard owns all shared dashboard state: the current event
// set, the active filter parameters, and the loading/error flags. Every
// mutation goes through one State value under one lock; fetches run on the
// caller's goroutine but marshal their result back through that lock, so
// no other component ever touches shared state directly.
package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quakewatch/quakewatch/internal/feed"
	"github.com/quakewatch/quakewatch/internal/marker"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/store"
	"github.com/quakewatch/quakewatch/internal/view"
)

// Fetcher is the feed-client capability the dashboard needs.
type Fetcher interface {
	Fetch(ctx context.Context) ([]quake.Event, feed.Stats, error)
	LastSuccess() time.Time
}

// ErrRefreshInFlight is returned when a refresh is requested while another
// fetch is still pending. At most one fetch is in flight at a time; the
// pending one keeps going and its result is applied normally.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// State is the single owner of dashboard data.
type State struct {
	fetcher  Fetcher
	renderer marker.Renderer
	journal  *store.Journal // nil disables journaling
	clock    clockwork.Clock

	mu        sync.Mutex
	events    []quake.Event
	params    quake.FilterParams
	filtered  []quake.Event
	summary   quake.Summary
	loading   bool
	fetchSeq  uint64
	feedErr   string
	renderErr string
	lastFetch time.Time
}

// New creates the dashboard state. journal may be nil.
func New(fetcher Fetcher, renderer marker.Renderer, journal *store.Journal) *State {
	s := &State{
		fetcher:  fetcher,
		renderer: renderer,
		journal:  journal,
		clock:    clockwork.NewRealClock(),
		params:   quake.FilterParams{Window: quake.WindowAll},
	}
	return s
}

// SetClock swaps the time source for tests.
func (s *State) SetClock(c clockwork.Clock) {
	s.clock = c
}

// Refresh fetches the feed and, on success, replaces the event set
// wholesale. It is the only fetch trigger: initial page load and the
// manual refresh control both land here. A second call while a fetch is
// pending returns ErrRefreshInFlight without issuing a request, and a
// response that has been superseded by a newer refresh is discarded, so
// there is no last-response-wins race.
func (s *State) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrRefreshInFlight
	}
	s.loading = true
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	var run *store.FetchRun
	if s.journal != nil {
		var err error
		if run, err = s.journal.StartRun(); err != nil {
			log.Printf("dashboard: journal start run: %v", err)
		}
	}

	events, stats, fetchErr := s.fetcher.Fetch(ctx)

	s.completeRun(run, stats, fetchErr)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if seq != s.fetchSeq {
		// A newer refresh superseded this one; drop the response.
		log.Printf("dashboard: discarding stale fetch response (seq %d)", seq)
		return nil
	}

	if fetchErr != nil {
		// Previously loaded data stays in memory; the error state and the
		// stale-data flag travel together in the snapshot so the UI never
		// shows stale success silently beside an active error.
		s.feedErr = fetchErr.Error()
		log.Printf("dashboard: fetch failed: %v", fetchErr)
		return fetchErr
	}

	s.events = events
	s.feedErr = ""
	s.lastFetch = s.clock.Now()
	s.recomputeLocked()
	log.Printf("dashboard: loaded %d events from feed", len(events))
	return nil
}

func (s *State) completeRun(run *store.FetchRun, stats feed.Stats, fetchErr error) {
	if s.journal == nil || run == nil {
		return
	}
	run.Success = fetchErr == nil
	if stats.HTTPStatus > 0 {
		run.HTTPStatus = sql.NullInt64{Int64: int64(stats.HTTPStatus), Valid: true}
	}
	if stats.ResponseSize > 0 {
		run.ResponseBytes = sql.NullInt64{Int64: int64(stats.ResponseSize), Valid: true}
	}
	run.EventsParsed = sql.NullInt64{Int64: int64(stats.EventCount), Valid: true}
	if fetchErr != nil {
		run.ErrorMessage = sql.NullString{String: fetchErr.Error(), Valid: true}
	}
	if err := s.journal.CompleteRun(run); err != nil {
		log.Printf("dashboard: journal complete run: %v", err)
	}
}

// SetParams installs new filter parameters and recomputes the view
// synchronously from the last-known event set, even while a fetch is
// pending.
func (s *State) SetParams(params quake.FilterParams) {
	if params.MinMagnitude < 0 {
		params.MinMagnitude = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	s.recomputeLocked()
}

// recomputeLocked rebuilds the filtered view and pushes markers into the
// renderer. Caller holds the lock.
func (s *State) recomputeLocked() {
	s.filtered, s.summary = view.Compute(s.events, s.params)

	descriptors := marker.Project(s.filtered)
	if err := marker.Reconcile(s.renderer, descriptors); err != nil {
		if !errors.Is(err, marker.ErrNotReady) {
			s.renderErr = err.Error()
			log.Printf("dashboard: reconcile markers: %v", err)
		}
		return
	}
	s.renderErr = ""
}

// Reconcile re-syncs markers without changing events or params. Used after
// the renderer becomes ready.
func (s *State) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

// Snapshot is an immutable copy of the dashboard state for rendering.
type Snapshot struct {
	Events      []quake.Event
	Filtered    []quake.Event
	Summary     quake.Summary
	Params      quake.FilterParams
	Loading     bool
	LastFetch   time.Time
	FeedError   string
	RenderError string
	// StaleData is true when a feed error is active but previously loaded
	// events are still displayed.
	StaleData bool
}

// Snapshot returns a copy of the current state. The contained slices are
// copies; callers may not mutate shared state through them.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Events:      append([]quake.Event(nil), s.events...),
		Filtered:    append([]quake.Event(nil), s.filtered...),
		Summary:     s.summary,
		Params:      s.params,
		Loading:     s.loading,
		LastFetch:   s.lastFetch,
		FeedError:   s.feedErr,
		RenderError: s.renderErr,
	}
	snap.StaleData = s.feedErr != "" && len(s.events) > 0
	return snap
}
