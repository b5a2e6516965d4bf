package capture

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// countingGrabber yields frames until limit, then ErrSourceExhausted. limit 0
// means unlimited. Every failEvery-th call fails.
type countingGrabber struct {
	calls     atomic.Int64
	limit     int64
	failEvery int64
}

func (g *countingGrabber) Grab() (*image.RGBA, error) {
	n := g.calls.Add(1)
	if g.limit > 0 && n > g.limit {
		return nil, ErrSourceExhausted
	}
	if g.failEvery > 0 && n%g.failEvery == 0 {
		return nil, errors.New("transient")
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestCaptureService_StopsWhenExhausted(t *testing.T) {
	g := &countingGrabber{limit: 3}
	svc := NewCaptureService(discardLogger(), g, time.Millisecond)
	svc.Start()
	waitFor(t, svc.Exhausted, time.Second)
	if svc.Running() {
		t.Fatalf("service should stop after exhaustion")
	}
	st := svc.Stats()
	if st.Captures != 3 || st.Sequence != 3 || !st.Exhausted {
		t.Fatalf("unexpected stats %+v", st)
	}
	svc.Stop() // no-op after exhaustion

	g.limit = 5
	svc.Start()
	if svc.Exhausted() && svc.Running() {
		t.Fatalf("restart should clear exhaustion")
	}
	waitFor(t, svc.Exhausted, time.Second)
	if got := svc.LatestFrame().Sequence; got != 4 {
		t.Fatalf("sequence should continue across restarts, got %d", got)
	}
}

func TestCaptureService_CountsFailuresAndStops(t *testing.T) {
	g := &countingGrabber{failEvery: 2}
	svc := NewCaptureService(discardLogger(), g, time.Millisecond)
	svc.Start()
	svc.Start()
	waitFor(t, func() bool { return svc.Stats().Captures >= 3 }, time.Second)
	svc.Stop()
	if svc.Running() {
		t.Fatalf("service still running after Stop")
	}
	st := svc.Stats()
	if st.Skipped == 0 {
		t.Fatalf("failed grabs should be counted as skipped")
	}
	calls := g.calls.Load()
	time.Sleep(10 * time.Millisecond)
	if g.calls.Load() != calls {
		t.Fatalf("grabber called after Stop returned")
	}
	svc.Stop()
}

func TestCaptureService_NilGrabber(t *testing.T) {
	svc := NewCaptureService(nil, nil, 0)
	svc.Start()
	if svc.Running() {
		t.Fatalf("service without grabber must not start")
	}
	if snap := svc.LatestFrame(); snap.Image != nil {
		t.Fatalf("unexpected frame")
	}
}
