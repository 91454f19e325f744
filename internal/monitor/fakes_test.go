package monitor

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/detector"
)

var errBackendDown = errors.New("backend down")

type fakeFrames struct {
	img image.Image
	err error
}

func (f *fakeFrames) CurrentFrame(context.Context) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

// fakeExtractor returns a fixed result. When block is set every call waits on
// it after signalling entered.
type fakeExtractor struct {
	mu      sync.Mutex
	dets    []detector.Detection
	err     error
	calls   int
	active  int
	peak    int
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeExtractor) set(dets []detector.Detection, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dets, f.err = dets, err
}

func (f *fakeExtractor) Detect(context.Context, image.Image) ([]detector.Detection, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	f.peak = max(f.peak, f.active)
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if block != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	return f.dets, f.err
}

func (f *fakeExtractor) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type fakeGallery struct {
	mu         sync.Mutex
	identities []backend.Identity
	err        error
	calls      int
}

func (f *fakeGallery) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeGallery) ListIdentities(context.Context) ([]backend.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.identities, nil
}

func (f *fakeGallery) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAttendance struct {
	mu    sync.Mutex
	last  map[string]backend.EventStatus
	ins   []string
	outs  []string
	inErr error
}

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{last: make(map[string]backend.EventStatus)}
}

func (f *fakeAttendance) LastEvent(_ context.Context, id string) (backend.LastEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.last[id]
	if !ok {
		status = backend.StatusNone
	}
	return backend.LastEvent{Status: status}, nil
}

func (f *fakeAttendance) RecordIn(_ context.Context, id, _ string) (*backend.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inErr != nil {
		return nil, f.inErr
	}
	f.ins = append(f.ins, id)
	f.last[id] = backend.StatusIn
	return &backend.CheckIn{EntryNumber: len(f.ins)}, nil
}

func (f *fakeAttendance) RecordOut(_ context.Context, id, _ string) (*backend.CheckOut, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outs = append(f.outs, id)
	f.last[id] = backend.StatusOut
	return &backend.CheckOut{SessionDuration: 600, TodayTotal: 600}, nil
}

func (f *fakeAttendance) checkIns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ins...)
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []backend.UnknownReport
	err     error
}

func (f *fakeReporter) LogUnknown(_ context.Context, report backend.UnknownReport) (*backend.UnknownResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	if f.err != nil {
		return nil, f.err
	}
	return &backend.UnknownResult{
		IsNew:           len(f.reports) == 1,
		DisplayName:     "Unknown #1",
		TotalDetections: len(f.reports),
	}, nil
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}
