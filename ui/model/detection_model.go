package model

import (
	"image"
	"sync"
	"time"

	"github.com/soocke/probe-tracker-go/domain/search"
)

// DetectionSnapshot is a copy of the detection counters and latest result.
type DetectionSnapshot struct {
	Last         *search.MatchCandidate
	Region       image.Rectangle
	Mode         search.SearchMode
	StableCount  int
	Confidence   float64
	Hits         uint64
	Misses       uint64
	Errors       uint64
	Dropped      uint64
	LastDuration time.Duration
	TotalSweep   time.Duration
}

// DetectionModel aggregates sweep results for presentation. The zero value is usable.
type DetectionModel struct {
	mu   sync.Mutex
	snap DetectionSnapshot
}

func NewDetectionModel() *DetectionModel { return &DetectionModel{} }

// Record folds a finished sweep into the model.
func (m *DetectionModel) Record(rep search.SweepReport) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rep.Found {
		c := rep.Candidate
		m.snap.Last = &c
		m.snap.Hits++
	} else {
		m.snap.Misses++
	}
	m.snap.Region = rep.Region.Rect()
	m.snap.Mode = rep.State.Mode
	m.snap.StableCount = rep.State.StableCount
	m.snap.Confidence = rep.State.LastConfidence
	m.snap.LastDuration = rep.Duration
	m.snap.TotalSweep += rep.Duration
}

// RecordError counts a detect call that could not run.
func (m *DetectionModel) RecordError() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.snap.Errors++
	m.mu.Unlock()
}

// RecordDropped counts a frame skipped because the detector was busy.
func (m *DetectionModel) RecordDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.snap.Dropped++
	m.mu.Unlock()
}

// ROI returns the region searched by the latest sweep (may be empty).
func (m *DetectionModel) ROI() image.Rectangle {
	if m == nil {
		return image.Rectangle{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Region
}

// Snapshot returns a copy of the current values.
func (m *DetectionModel) Snapshot() DetectionSnapshot {
	if m == nil {
		return DetectionSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snap
	if s.Last != nil {
		c := *s.Last
		s.Last = &c
	}
	return s
}
