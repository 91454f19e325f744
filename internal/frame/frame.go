// Package frame provides pull-based frame sources for the monitoring engine.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/gatewatch/internal/constants"
)

var (
	ErrNoFrame    = errors.New("no frame captured yet")
	ErrStaleFrame = errors.New("latest frame is stale")
)

// Decode decodes a JPEG, PNG, BMP or WebP image
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// LoadImage reads and decodes an image file
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Fit downscales img to fit within maxW x maxH keeping the aspect ratio.
// Images that already fit are returned unchanged; non-positive bounds use the
// reference capture resolution.
func Fit(img image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 || maxH <= 0 {
		maxW, maxH = constants.DefaultFrameWidth, constants.DefaultFrameHeight
	}
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img
	}

	scale := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// StaticSource always returns the same frame
type StaticSource struct {
	img image.Image
}

// NewStaticSource wraps an already decoded image
func NewStaticSource(img image.Image) *StaticSource {
	return &StaticSource{img: img}
}

// NewFileSource loads path once, fits it within maxW x maxH and serves it forever
func NewFileSource(path string, maxW, maxH int) (*StaticSource, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return &StaticSource{img: Fit(img, maxW, maxH)}, nil
}

func (s *StaticSource) CurrentFrame(context.Context) (image.Image, error) {
	if s.img == nil {
		return nil, ErrNoFrame
	}
	return s.img, nil
}
