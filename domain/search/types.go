package search

import (
	"image"
	"time"
)

// SearchMode selects how densely the rotation and scale tables are sampled.
// Modes are ordered: ModeCoarse < ModeMedium < ModeFine.
type SearchMode int

const (
	ModeCoarse SearchMode = iota
	ModeMedium
	ModeFine
)

func (m SearchMode) String() string {
	switch m {
	case ModeCoarse:
		return "coarse"
	case ModeMedium:
		return "medium"
	case ModeFine:
		return "fine"
	default:
		return "unknown"
	}
}

// MatchCandidate is one hypothesis of where the probe lies in the reference.
// X, Y, Width and Height are in reference coordinates; Width and Height are the
// dimensions of the rotated and scaled template that produced the score.
type MatchCandidate struct {
	Confidence float64
	Scale      float64
	Rotation   int
	X, Y       int
	Width      int
	Height     int
}

// Rect returns the candidate bounding box.
func (m MatchCandidate) Rect() image.Rectangle {
	return image.Rect(m.X, m.Y, m.X+m.Width, m.Y+m.Height)
}

// SearchRegion is an axis-aligned sub-rectangle of the reference image. Regions
// handed out by the controller are always clipped to the reference bounds.
type SearchRegion struct {
	X, Y          int
	Width, Height int
}

func regionFromRect(r image.Rectangle) SearchRegion {
	return SearchRegion{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect converts the region to an image.Rectangle.
func (r SearchRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region covers no pixels.
func (r SearchRegion) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// DetectorState is the adaptive memory carried from one probe to the next.
// Snapshots returned by the controller are copies; LastMatch and ActiveRegion
// are nil until the first successful detect call sets them.
type DetectorState struct {
	Mode           SearchMode
	LastConfidence float64
	LastMatch      *MatchCandidate
	StableCount    int
	ActiveRegion   *SearchRegion
}

func (s DetectorState) clone() DetectorState {
	out := s
	if s.LastMatch != nil {
		m := *s.LastMatch
		out.LastMatch = &m
	}
	if s.ActiveRegion != nil {
		r := *s.ActiveRegion
		out.ActiveRegion = &r
	}
	return out
}

// StopReason tells why a sweep ended.
type StopReason int

const (
	StopExhausted StopReason = iota
	StopEarly
	StopIterationCap
)

func (s StopReason) String() string {
	switch s {
	case StopExhausted:
		return "exhausted"
	case StopEarly:
		return "early"
	case StopIterationCap:
		return "iteration_cap"
	default:
		return "unknown"
	}
}

// SweepReport describes a single detect call.
type SweepReport struct {
	Candidate MatchCandidate
	Found     bool
	Mode      SearchMode // mode the sweep ran in
	Narrowed  bool       // stable-lock candidate override was used
	Region    SearchRegion
	Visited   int // (rotation, scale) pairs visited, bounded by MaxSweepIterations
	Evaluated int // pairs that reached the correlator
	Skipped   int // pairs rejected by the template size checks
	Failed    int // collaborator errors or panics
	Stop      StopReason
	Duration  time.Duration
	State     DetectorState // snapshot after the stability update
}
