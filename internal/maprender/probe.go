package maprender

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/quakewatch/quakewatch/internal/httputil"
)

// probeTileURL is the z0 world tile, the cheapest object the tile server
// can hand back.
const probeTileURL = "https://tile.openstreetmap.org/0/0/0.png"

// Probe verifies the tile source is reachable, retrying with exponential
// backoff for up to 30 seconds. On success the layer becomes ready; on
// failure it stays unready and records the render-domain error so the map
// panel can show it without touching the statistics panels.
func (l *Layer) Probe(ctx context.Context) error {
	return l.probe(ctx, probeTileURL)
}

func (l *Layer) probe(ctx context.Context, url string) error {
	client := httputil.NewProbeClient()

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build probe request: %w", err))
		}
		req.Header.Set("User-Agent", "QuakeWatch/1.0 (tile availability probe)")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("tile probe: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("tile probe: status %d", resp.StatusCode)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		l.setReady(false, fmt.Sprintf("map tiles unavailable: %v", err))
		return err
	}

	l.setReady(true, "")
	return nil
}
