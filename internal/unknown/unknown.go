// Package unknown deduplicates reports of unrecognized faces using a short-lived
// cache keyed by an approximate embedding signature.
package unknown

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/detector"
)

// Reporter is the unknown sighting side of the identity service
type Reporter interface {
	LogUnknown(ctx context.Context, report backend.UnknownReport) (*backend.UnknownResult, error)
}

// Options configures a Deduplicator. A zero TTL or PrefixLen uses the default,
// a negative CropMargin uses the default margin.
type Options struct {
	TTL        time.Duration
	PrefixLen  int
	CropMargin int
}

// Outcome describes what happened to one unknown detection
type Outcome struct {
	Key        string
	Suppressed bool
	Result     *backend.UnknownResult // nil when suppressed or failed
}

// Deduplicator submits unknown faces at most once per signature per TTL.
// Expired entries read as absent even before Sweep removes them.
type Deduplicator struct {
	reporter Reporter
	cache    *cache.Cache
	ttl      time.Duration
	prefix   int
	margin   int
	closed   atomic.Bool
}

// NewDeduplicator creates a deduplicator in front of reporter
func NewDeduplicator(reporter Reporter, opts Options) *Deduplicator {
	if opts.TTL <= 0 {
		opts.TTL = constants.DefaultUnknownTTLSeconds * time.Second
	}
	if opts.PrefixLen <= 0 {
		opts.PrefixLen = constants.DefaultSignaturePrefix
	}
	if opts.CropMargin < 0 {
		opts.CropMargin = constants.DefaultCropMargin
	}
	return &Deduplicator{
		reporter: reporter,
		// no janitor goroutine; the engine sweeps once per cycle
		cache:  cache.New(opts.TTL, 0),
		ttl:    opts.TTL,
		prefix: opts.PrefixLen,
		margin: opts.CropMargin,
	}
}

// SignatureKey formats the first n components of an embedding with two decimals.
func SignatureKey(embedding []float32, n int) string {
	n = min(n, len(embedding))
	parts := make([]string, n)
	for i := range n {
		parts[i] = strconv.FormatFloat(float64(embedding[i]), 'f', 2, 32)
	}
	return strings.Join(parts, ",")
}

// Seen reports whether key is cached and unexpired
func (d *Deduplicator) Seen(key string) bool {
	_, found := d.cache.Get(key)
	return found
}

// Handle reports an unknown detection unless its signature was reported within
// the TTL. The signature is remembered whether or not the report succeeds.
func (d *Deduplicator) Handle(ctx context.Context, frame image.Image, det detector.Detection, confidence float64) (Outcome, error) {
	key := SignatureKey(det.Embedding, d.prefix)
	if d.Seen(key) {
		return Outcome{Key: key, Suppressed: true}, nil
	}

	res, err := d.report(ctx, frame, det, confidence)
	d.remember(key)
	if err != nil {
		return Outcome{Key: key}, err
	}
	return Outcome{Key: key, Result: res}, nil
}

func (d *Deduplicator) report(ctx context.Context, frame image.Image, det detector.Detection, confidence float64) (*backend.UnknownResult, error) {
	img, err := EncodeCrop(frame, det.Box, d.margin)
	if err != nil {
		return nil, fmt.Errorf("crop unknown face: %w", err)
	}
	res, err := d.reporter.LogUnknown(ctx, backend.UnknownReport{
		Embedding:  det.Embedding,
		Confidence: confidence,
		Image:      img,
	})
	if err != nil {
		return nil, fmt.Errorf("report unknown face: %w", err)
	}
	return res, nil
}

func (d *Deduplicator) remember(key string) {
	if d.closed.Load() {
		return
	}
	d.cache.Set(key, struct{}{}, d.ttl)
}

// Sweep drops expired signatures
func (d *Deduplicator) Sweep() {
	d.cache.DeleteExpired()
}

// Len returns the number of cached signatures, including expired ones not yet swept
func (d *Deduplicator) Len() int {
	return d.cache.ItemCount()
}

// Clear drops every signature
func (d *Deduplicator) Clear() {
	d.cache.Flush()
}

// Close clears the cache and ignores signatures from reports still in flight
func (d *Deduplicator) Close() {
	d.closed.Store(true)
	d.cache.Flush()
}
