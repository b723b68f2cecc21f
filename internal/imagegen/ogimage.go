// Package imagegen renders the Open Graph share card: a PNG snapshot of
// the current dashboard summary for link previews.
package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OGWidth and OGHeight are the standard Open Graph image dimensions.
const (
	OGWidth  = 1200
	OGHeight = 630
)

// The card is drawn small with the fixed basicfont face and scaled up with
// nearest-neighbor, which keeps the text crisp without bundling font files.
const (
	baseWidth  = 300
	baseHeight = 158
	scale      = 4
)

// OGImageData contains the dynamic data for the OG image.
type OGImageData struct {
	FilteredCount    int
	SignificantCount int
	MaxMagnitude     float64
	GeneratedAt      time.Time
}

// GenerateOGImage renders the summary card as a PNG.
func GenerateOGImage(data OGImageData) ([]byte, error) {
	base := image.NewRGBA(image.Rect(0, 0, baseWidth, baseHeight))

	// Dark blue gradient background
	for y := 0; y < baseHeight; y++ {
		progress := float64(y) / float64(baseHeight)
		r := uint8(16 + progress*12)
		g := uint8(20 + progress*16)
		b := uint8(38 + progress*24)
		for x := 0; x < baseWidth; x++ {
			base.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}

	white := color.RGBA{255, 255, 255, 255}
	lightGray := color.RGBA{196, 200, 210, 255}
	amber := color.RGBA{251, 192, 45, 255}

	maxLine := "no events match"
	if data.FilteredCount > 0 {
		maxLine = fmt.Sprintf("strongest M%.1f", data.MaxMagnitude)
	}

	drawText(base, "QuakeWatch", 16, 34, white)
	drawText(base, fmt.Sprintf("%d earthquakes today", data.FilteredCount), 16, 64, lightGray)
	drawText(base, fmt.Sprintf("%d significant (M2.5+)", data.SignificantCount), 16, 84, lightGray)
	drawText(base, maxLine, 16, 104, amber)
	drawText(base, data.GeneratedAt.UTC().Format("Jan 2 15:04 UTC"), 16, 140, lightGray)

	// Nearest-neighbor upscale to OG dimensions
	dst := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	for y := 0; y < OGHeight; y++ {
		for x := 0; x < OGWidth; x++ {
			dst.SetRGBA(x, y, base.RGBAAt(x/scale, y/scale))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode OG image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText draws text at the given position with the fixed face.
func drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// Cache holds the generated card for a short period so repeated link
// unfurls don't redraw it.
type Cache struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	cacheTTL  time.Duration
}

// NewCache creates an OG image cache with the specified TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{cacheTTL: ttl}
}

// Get returns the cached image if still valid.
func (c *Cache) Get() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

// Set stores a freshly generated image.
func (c *Cache) Set(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(c.cacheTTL)
}
