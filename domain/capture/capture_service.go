package capture

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	captureStatsLogInterval = 5 * time.Second
	defaultCaptureInterval  = 200 * time.Microsecond
)

// CaptureService pulls probe frames from a Grabber and exposes the latest
// capture alongside instrumentation data. Use NewCaptureService to construct
// an instance.
type CaptureService interface {
	Start()
	Stop()
	LatestFrame() FrameSnapshot
	Running() bool
	Exhausted() bool
	Stats() CaptureStats
}

type captureService struct {
	running      atomic.Bool
	exhausted    atomic.Bool
	latest       atomic.Pointer[FrameSnapshot]
	grabber      Grabber
	interval     time.Duration
	logger       *slog.Logger
	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func newCaptureService(logger *slog.Logger, grabber Grabber, interval time.Duration) *captureService {
	if interval <= 0 {
		interval = defaultCaptureInterval
	}
	return &captureService{grabber: grabber, interval: interval, logger: logger}
}

// NewCaptureService constructs a capture service that grabs a frame every
// interval while running.
func NewCaptureService(logger *slog.Logger, grabber Grabber, interval time.Duration) CaptureService {
	return newCaptureService(logger, grabber, interval)
}

func (s *captureService) LatestFrame() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

func (s *captureService) Running() bool { return s.running.Load() }

// Exhausted reports whether the grabber signalled the end of its frames.
func (s *captureService) Exhausted() bool { return s.exhausted.Load() }

func (s *captureService) Stats() CaptureStats {
	captures := s.captures.Load()
	skipped := s.skipped.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	snapshot := s.LatestFrame()
	age := time.Duration(0)
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return CaptureStats{
		Captures:         captures,
		Skipped:          skipped,
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      snapshot.CapturedAt,
		LatestFrameAge:   age,
		Sequence:         snapshot.Sequence,
		Exhausted:        s.exhausted.Load(),
	}
}

func (s *captureService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grabber == nil || !s.running.CompareAndSwap(false, true) {
		return
	}
	// A loop that ended on exhaustion may still be unwinding.
	s.wg.Wait()
	s.exhausted.Store(false)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stop)
}

// Stop ends the capture loop and waits for it to return.
func (s *captureService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.CompareAndSwap(true, false) {
		close(s.stop)
	}
	s.wg.Wait()
}

func (s *captureService) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	logTicker := time.NewTicker(captureStatsLogInterval)
	defer logTicker.Stop()
	wait := time.NewTimer(s.interval)
	defer wait.Stop()
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		img, err := s.grabber.Grab()
		switch {
		case errors.Is(err, ErrSourceExhausted):
			s.exhausted.Store(true)
			s.running.Store(false)
			if s.logger != nil {
				s.logger.Info("capture.exhausted", "frames", s.captures.Load())
			}
			return
		case err != nil:
			s.skipped.Add(1)
			if s.logger != nil {
				s.logger.Error("capture grab", "error", err)
			}
		case img == nil:
			s.skipped.Add(1)
		default:
			elapsed := time.Since(start)
			s.captureNanos.Add(uint64(elapsed.Nanoseconds()))
			s.captures.Add(1)
			seq := s.sequence.Add(1)
			s.latest.Store(&FrameSnapshot{Image: img, CapturedAt: time.Now(), Sequence: seq})
		}

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}

		wait.Reset(s.interval)
		select {
		case <-stop:
			return
		case <-wait.C:
		}
	}
}

func (s *captureService) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", humanize.Comma(int64(stats.Captures)),
		"skipped", humanize.Comma(int64(stats.Skipped)),
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}
