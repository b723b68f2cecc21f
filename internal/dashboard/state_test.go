package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakewatch/quakewatch/internal/feed"
	"github.com/quakewatch/quakewatch/internal/marker"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/view"
)

// stubFetcher returns a scripted sequence of responses, one per Fetch call.
type stubFetcher struct {
	responses []fetchResponse
	calls     int
	block     chan struct{} // when non-nil, Fetch waits until closed
}

type fetchResponse struct {
	events []quake.Event
	err    error
}

func (f *stubFetcher) Fetch(ctx context.Context) ([]quake.Event, feed.Stats, error) {
	if f.block != nil {
		<-f.block
	}
	resp := f.responses[f.calls]
	f.calls++
	stats := feed.Stats{HTTPStatus: 200, EventCount: len(resp.events)}
	return resp.events, stats, resp.err
}

func (f *stubFetcher) LastSuccess() time.Time { return time.Time{} }

// readyRenderer is an always-ready in-memory marker sink.
type readyRenderer struct {
	markers []marker.Descriptor
}

func (r *readyRenderer) Ready() bool   { return true }
func (r *readyRenderer) ClearMarkers() { r.markers = nil }
func (r *readyRenderer) AddMarker(d marker.Descriptor) error {
	r.markers = append(r.markers, d)
	return nil
}

// notReadyRenderer refuses markers until flipped.
type notReadyRenderer struct {
	readyRenderer
	ready bool
}

func (r *notReadyRenderer) Ready() bool { return r.ready }

var stateTestNow = time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)

func newTestState(t *testing.T, fetcher Fetcher, renderer marker.Renderer) *State {
	t.Helper()
	fake := clockwork.NewFakeClockAt(stateTestNow)
	view.SetClock(fake)
	t.Cleanup(func() { view.SetClock(nil) })

	s := New(fetcher, renderer, nil)
	s.SetClock(fake)
	return s
}

func testEvents() []quake.Event {
	return []quake.Event{
		{ID: "a", Magnitude: 6.1, Place: "Fiji", OccurredAt: stateTestNow.Add(-10 * time.Minute).UnixMilli(), Longitude: 178.1, Latitude: -17.8, DepthKm: 550},
		{ID: "b", Magnitude: 2.0, Place: "Alaska", OccurredAt: stateTestNow.Add(-7 * time.Hour).UnixMilli(), Longitude: -150.1, Latitude: 61.2, DepthKm: 40},
	}
}

func TestRefresh(t *testing.T) {
	renderer := &readyRenderer{}
	fetcher := &stubFetcher{responses: []fetchResponse{{events: testEvents()}}}
	s := newTestState(t, fetcher, renderer)

	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.Len(t, snap.Events, 2)
	assert.Len(t, snap.Filtered, 2)
	assert.Equal(t, 6.1, snap.Summary.MaxMagnitude)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.FeedError)
	assert.False(t, snap.StaleData)
	assert.Equal(t, stateTestNow, snap.LastFetch)
	assert.Len(t, renderer.markers, 2)
}

func TestRefresh_GuardRejectsConcurrent(t *testing.T) {
	block := make(chan struct{})
	fetcher := &stubFetcher{
		responses: []fetchResponse{{events: testEvents()}},
		block:     block,
	}
	s := newTestState(t, fetcher, &readyRenderer{})

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()

	// Wait for the first refresh to take the loading flag.
	require.Eventually(t, func() bool {
		return s.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInFlight)
	assert.Equal(t, 0, fetcher.calls, "second refresh must not issue a request")

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fetcher.calls)
}

func TestRefresh_ErrorKeepsPreviousEvents(t *testing.T) {
	fetcher := &stubFetcher{responses: []fetchResponse{
		{events: testEvents()},
		{err: errors.New("feed request: connection refused")},
	}}
	s := newTestState(t, fetcher, &readyRenderer{})

	require.NoError(t, s.Refresh(context.Background()))
	firstFetch := s.Snapshot().LastFetch

	err := s.Refresh(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Events, 2, "previous events survive a failed refresh")
	assert.Contains(t, snap.FeedError, "connection refused")
	assert.True(t, snap.StaleData)
	assert.Equal(t, firstFetch, snap.LastFetch, "failed refresh must not advance the fetch time")
}

func TestRefresh_ErrorWithNoPriorData(t *testing.T) {
	fetcher := &stubFetcher{responses: []fetchResponse{
		{err: errors.New("feed request: timeout")},
	}}
	s := newTestState(t, fetcher, &readyRenderer{})

	require.Error(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.Empty(t, snap.Events)
	assert.NotEmpty(t, snap.FeedError)
	assert.False(t, snap.StaleData, "no data on screen means nothing is stale")
}

func TestRefresh_SuccessClearsFeedError(t *testing.T) {
	fetcher := &stubFetcher{responses: []fetchResponse{
		{err: errors.New("feed request: 503")},
		{events: testEvents()},
	}}
	s := newTestState(t, fetcher, &readyRenderer{})

	require.Error(t, s.Refresh(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.Empty(t, snap.FeedError)
	assert.False(t, snap.StaleData)
	assert.Len(t, snap.Events, 2)
}

func TestSetParams(t *testing.T) {
	renderer := &readyRenderer{}
	fetcher := &stubFetcher{responses: []fetchResponse{{events: testEvents()}}}
	s := newTestState(t, fetcher, renderer)
	require.NoError(t, s.Refresh(context.Background()))

	s.SetParams(quake.FilterParams{MinMagnitude: 5, Window: quake.WindowAll})

	snap := s.Snapshot()
	require.Len(t, snap.Filtered, 1)
	assert.Equal(t, "a", snap.Filtered[0].ID)
	assert.Equal(t, 1, snap.Summary.FilteredCount)
	require.Len(t, renderer.markers, 1)
	assert.Equal(t, "a", renderer.markers[0].EventID)
}

func TestSetParams_ClampsNegativeMagnitude(t *testing.T) {
	s := newTestState(t, &stubFetcher{}, &readyRenderer{})

	s.SetParams(quake.FilterParams{MinMagnitude: -3, Window: quake.WindowAll})
	assert.Equal(t, 0.0, s.Snapshot().Params.MinMagnitude)
}

func TestSetParams_WorksWithoutData(t *testing.T) {
	s := newTestState(t, &stubFetcher{}, &readyRenderer{})

	s.SetParams(quake.FilterParams{MinMagnitude: 4, Window: quake.WindowHour})

	snap := s.Snapshot()
	assert.Empty(t, snap.Filtered)
	assert.Equal(t, 0, snap.Summary.FilteredCount)
	assert.Equal(t, 4.0, snap.Params.MinMagnitude)
}

func TestReconcile_AfterRendererBecomesReady(t *testing.T) {
	renderer := &notReadyRenderer{}
	fetcher := &stubFetcher{responses: []fetchResponse{{events: testEvents()}}}
	s := newTestState(t, fetcher, renderer)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Empty(t, renderer.markers, "markers must not reach an unready renderer")
	assert.Empty(t, s.Snapshot().RenderError, "unready renderer is not a render failure")

	renderer.ready = true
	s.Reconcile()
	assert.Len(t, renderer.markers, 2)
}

func TestSnapshot_CopiesSlices(t *testing.T) {
	fetcher := &stubFetcher{responses: []fetchResponse{{events: testEvents()}}}
	s := newTestState(t, fetcher, &readyRenderer{})
	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	snap.Events[0].ID = "mutated"
	snap.Filtered[0].ID = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "a", fresh.Events[0].ID)
	assert.Equal(t, "a", fresh.Filtered[0].ID)
}
