package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/quakewatch/quakewatch/internal/httputil"
	"github.com/quakewatch/quakewatch/internal/metrics"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// FeedURL is the USGS all-day summary feed. One bounded document covering
// the past 24 hours of global events; no query parameters, no auth.
const FeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"

// FetchError is a feed-domain failure carried as a value so the rendering
// path never sees a panic or a conflated render error.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Stats describes a single fetch attempt for journaling and /api/status.
type Stats struct {
	HTTPStatus   int
	ResponseSize int
	EventCount   int
	Duration     time.Duration
}

// Client fetches the earthquake feed. Exactly one request per Fetch call:
// no retry and no backoff, the user's refresh action is the retry path.
type Client struct {
	httpClient *http.Client
	url        string

	mu          sync.Mutex
	lastSuccess time.Time
}

// NewClient creates a feed client for the fixed USGS endpoint.
func NewClient() *Client {
	return NewClientURL(FeedURL)
}

// NewClientURL creates a feed client against an alternate endpoint,
// used by tests to point at a stub server.
func NewClientURL(url string) *Client {
	return &Client{
		httpClient: httputil.NewFeedClient(),
		url:        url,
	}
}

// LastSuccess returns the time of the most recent successful fetch,
// zero if none has succeeded yet. Updated on success only.
func (c *Client) LastSuccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// Fetch performs one GET against the feed and parses the document into a
// flat event list, preserving feed order. Any failure comes back as a
// *FetchError; stats are populated as far as the attempt got.
func (c *Client) Fetch(ctx context.Context) ([]quake.Event, Stats, error) {
	var stats Stats
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		metrics.FeedFetchLatency.Observe(stats.Duration.Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, stats, &FetchError{Message: "could not build feed request", Err: err}
	}
	req.Header.Set("User-Agent", "QuakeWatch/1.0 (earthquake dashboard)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, stats, &FetchError{Message: fmt.Sprintf("feed unreachable: %v", err), Err: err}
	}
	defer resp.Body.Close()

	stats.HTTPStatus = resp.StatusCode
	metrics.FeedFetchesTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, stats, &FetchError{Message: fmt.Sprintf("feed returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stats, &FetchError{Message: fmt.Sprintf("read feed body: %v", err), Err: err}
	}
	stats.ResponseSize = len(body)

	var doc geoJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, stats, &FetchError{Message: fmt.Sprintf("malformed feed document: %v", err), Err: err}
	}

	events := make([]quake.Event, 0, len(doc.Features))
	for _, f := range doc.Features {
		events = append(events, toEvent(f))
	}
	stats.EventCount = len(events)
	metrics.EventsFetched.Add(float64(len(events)))

	c.mu.Lock()
	c.lastSuccess = time.Now()
	c.mu.Unlock()

	return events, stats, nil
}

// toEvent flattens one GeoJSON feature. Missing magnitude or coordinates
// become NaN; downstream filters and the marker projector treat NaN as
// "absent" rather than rejecting the event outright.
func toEvent(f feature) quake.Event {
	ev := quake.Event{
		ID:         f.ID,
		Magnitude:  math.NaN(),
		Place:      f.Properties.Place,
		OccurredAt: f.Properties.Time,
		Longitude:  math.NaN(),
		Latitude:   math.NaN(),
		DepthKm:    math.NaN(),
	}

	if f.Properties.Mag != nil {
		ev.Magnitude = *f.Properties.Mag
	}

	if f.Geometry != nil {
		c := f.Geometry.Coordinates
		if len(c) >= 2 {
			ev.Longitude = c[0]
			ev.Latitude = c[1]
		}
		if len(c) >= 3 {
			ev.DepthKm = c[2]
		}
	}

	return ev
}
