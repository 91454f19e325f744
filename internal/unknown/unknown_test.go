package unknown

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/detector"
)

type fakeReporter struct {
	mu      sync.Mutex
	reports []backend.UnknownReport
	err     error
}

func (f *fakeReporter) LogUnknown(_ context.Context, r backend.UnknownReport) (*backend.UnknownResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	if f.err != nil {
		return nil, f.err
	}
	return &backend.UnknownResult{IsNew: len(f.reports) == 1, DisplayName: "Unknown #1", TotalDetections: len(f.reports)}, nil
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for y := range 720 {
		for x := range 1280 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func embedding(first float32) []float32 {
	emb := make([]float32, 16)
	emb[0] = first
	for i := 1; i < len(emb); i++ {
		emb[i] = float32(i) / 100
	}
	return emb
}

func TestSignatureKey(t *testing.T) {
	emb := []float32{0.123, -0.456, 0.789, 1, 0.006, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}

	assert.Equal(t, "0.12,-0.46,0.79,1.00,0.01,0.10,0.20,0.30,0.40,0.50", SignatureKey(emb, 10))
	assert.Equal(t, "0.12,-0.46", SignatureKey(emb, 2))
	assert.Equal(t, "0.12,-0.46,0.79", SignatureKey(emb[:3], 10), "short embeddings use every component")
	assert.Equal(t, "", SignatureKey(nil, 10))
}

func TestSignatureKey_PrefixCollision(t *testing.T) {
	a := embedding(0.301)
	b := embedding(0.304)
	b[15] = 0.99 // differs only past the prefix

	assert.Equal(t, SignatureKey(a, 10), SignatureKey(b, 10))
}

func TestHandle_SuppressesWithinTTL(t *testing.T) {
	rep := &fakeReporter{}
	d := NewDeduplicator(rep, Options{TTL: time.Minute, PrefixLen: 10, CropMargin: 20})
	frame := testFrame()
	det := detector.Detection{Box: image.Rect(100, 100, 200, 220), Embedding: embedding(0.3)}

	first, err := d.Handle(context.Background(), frame, det, 20)
	require.NoError(t, err)
	assert.False(t, first.Suppressed)
	require.NotNil(t, first.Result)
	assert.True(t, first.Result.IsNew)

	second, err := d.Handle(context.Background(), frame, det, 20)
	require.NoError(t, err)
	assert.True(t, second.Suppressed)
	assert.Nil(t, second.Result)

	assert.Equal(t, 1, rep.count(), "only the first attempt reaches the service")
	assert.Equal(t, first.Key, second.Key)
}

func TestHandle_NewSubmissionAfterTTL(t *testing.T) {
	rep := &fakeReporter{}
	d := NewDeduplicator(rep, Options{TTL: 50 * time.Millisecond})
	frame := testFrame()
	det := detector.Detection{Box: image.Rect(10, 10, 60, 60), Embedding: embedding(0.5)}

	_, err := d.Handle(context.Background(), frame, det, 10)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	// expired but not yet swept
	assert.Equal(t, 1, d.Len())
	assert.False(t, d.Seen(SignatureKey(det.Embedding, 10)))

	out, err := d.Handle(context.Background(), frame, det, 10)
	require.NoError(t, err)
	assert.False(t, out.Suppressed)
	assert.Equal(t, 2, rep.count())
}

func TestHandle_FailureStillSuppresses(t *testing.T) {
	rep := &fakeReporter{err: errors.New("backend unavailable")}
	d := NewDeduplicator(rep, Options{TTL: time.Minute})
	frame := testFrame()
	det := detector.Detection{Box: image.Rect(10, 10, 60, 60), Embedding: embedding(0.7)}

	_, err := d.Handle(context.Background(), frame, det, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")

	out, err := d.Handle(context.Background(), frame, det, 10)
	require.NoError(t, err)
	assert.True(t, out.Suppressed)
	assert.Equal(t, 1, rep.count())
}

func TestHandle_DifferentKeysBothSubmitted(t *testing.T) {
	rep := &fakeReporter{}
	d := NewDeduplicator(rep, Options{TTL: time.Minute})
	frame := testFrame()

	_, err := d.Handle(context.Background(), frame, detector.Detection{Box: image.Rect(0, 0, 50, 50), Embedding: embedding(0.1)}, 5)
	require.NoError(t, err)
	_, err = d.Handle(context.Background(), frame, detector.Detection{Box: image.Rect(0, 0, 50, 50), Embedding: embedding(0.9)}, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.count())
}

func TestHandle_ReportPayload(t *testing.T) {
	rep := &fakeReporter{}
	d := NewDeduplicator(rep, Options{})
	det := detector.Detection{Box: image.Rect(600, 300, 700, 420), Embedding: embedding(0.2)}

	_, err := d.Handle(context.Background(), testFrame(), det, 23.5)
	require.NoError(t, err)
	require.Equal(t, 1, rep.count())

	r := rep.reports[0]
	assert.Equal(t, det.Embedding, r.Embedding)
	assert.InDelta(t, 23.5, r.Confidence, 1e-9)
	require.True(t, strings.HasPrefix(r.Image, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(r.Image, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	img, err := jpeg.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)
	// 100x120 box plus 20px margin on each side
	assert.Equal(t, 140, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())
}

func TestSweepAndClose(t *testing.T) {
	rep := &fakeReporter{}
	d := NewDeduplicator(rep, Options{TTL: 20 * time.Millisecond})
	frame := testFrame()

	_, _ = d.Handle(context.Background(), frame, detector.Detection{Box: image.Rect(0, 0, 50, 50), Embedding: embedding(0.1)}, 5)
	require.Equal(t, 1, d.Len())

	time.Sleep(40 * time.Millisecond)
	d.Sweep()
	assert.Equal(t, 0, d.Len())

	_, _ = d.Handle(context.Background(), frame, detector.Detection{Box: image.Rect(0, 0, 50, 50), Embedding: embedding(0.2)}, 5)
	d.Close()
	assert.Equal(t, 0, d.Len())

	// reports finishing after Close leave nothing behind
	_, _ = d.Handle(context.Background(), frame, detector.Detection{Box: image.Rect(0, 0, 50, 50), Embedding: embedding(0.3)}, 5)
	assert.Equal(t, 0, d.Len())
}

func TestCropFace(t *testing.T) {
	frame := testFrame()

	crop, err := CropFace(frame, image.Rect(5, 5, 45, 45), 20)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 65, 65), crop.Bounds(), "clipped at the frame edge")

	crop, err = CropFace(frame, image.Rect(0, 0, 1280, 720), 20)
	require.NoError(t, err)
	assert.Equal(t, 320, crop.Bounds().Dx())
	assert.Equal(t, 180, crop.Bounds().Dy())

	_, err = CropFace(frame, image.Rect(2000, 2000, 2100, 2100), 20)
	assert.ErrorIs(t, err, ErrEmptyCrop)

	_, err = CropFace(nil, image.Rect(0, 0, 10, 10), 20)
	assert.ErrorIs(t, err, ErrEmptyCrop)
}
