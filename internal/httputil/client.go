// Package httputil holds the outbound HTTP clients. Both upstreams get a
// hard client timeout so a hung connection can never wedge a refresh or
// the tile probe.
package httputil

import (
	"net/http"
	"time"
)

// FeedTimeout bounds one feed document download; the all-day feed runs to
// a few MB on active days.
const FeedTimeout = 30 * time.Second

// ProbeTimeout bounds one tile probe attempt. The probe retries, so each
// attempt is kept short.
const ProbeTimeout = 10 * time.Second

// NewFeedClient returns the HTTP client used for feed fetches.
func NewFeedClient() *http.Client {
	return &http.Client{Timeout: FeedTimeout}
}

// NewProbeClient returns the HTTP client used for tile probes.
func NewProbeClient() *http.Client {
	return &http.Client{Timeout: ProbeTimeout}
}
