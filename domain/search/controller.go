package search

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Controller is the adaptive search engine. It owns the detector state and
// decides, per probe, which region of the reference to search and which
// rotations and scales to try.
//
// Detect must not be called concurrently on the same Controller; overlapping
// calls are rejected with ErrConcurrentDetect. Run it from a single worker.
type Controller struct {
	cfg    Config
	xf     Transformer
	rel    Releaser
	corr   Correlator
	ref    ReferenceCache
	prep   Preprocessor
	logger *slog.Logger

	state     DetectorState
	sessionID atomic.Pointer[string] // read from any goroutine
	inFlight  atomic.Bool
}

// New builds a controller. cfg is validated and copied.
func New(cfg Config, collab Collaborators, logger *slog.Logger) (*Controller, error) {
	if collab.Transformer == nil || collab.Correlator == nil || collab.Reference == nil {
		return nil, ErrMissingCollaborator
	}
	cfg = cfg.clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("search config: %w", err)
	}
	c := &Controller{
		cfg:    cfg,
		xf:     collab.Transformer,
		corr:   collab.Correlator,
		ref:    collab.Reference,
		prep:   collab.Preprocessor,
		logger: logger,
	}
	if r, ok := collab.Transformer.(Releaser); ok {
		c.rel = r
	}
	c.state = initialState()
	return c, nil
}

func initialState() DetectorState { return DetectorState{Mode: ModeCoarse} }

// InitializeSession preprocesses and caches a new reference, discarding all
// previous detector state.
func (c *Controller) InitializeSession(reference image.Image) error {
	if reference == nil || reference.Bounds().Empty() {
		return ErrEmptyReference
	}
	var gray *image.Gray
	if c.prep != nil {
		gray = c.prep.Prepare(reference)
	} else {
		gray = toGray(reference)
	}
	if gray == nil || gray.Bounds().Empty() {
		return ErrEmptyReference
	}
	c.ref.Store(gray)
	c.state = initialState()
	id := uuid.NewString()
	c.sessionID.Store(&id)
	if c.logger != nil {
		b := gray.Bounds()
		c.logger.Info("session.start", "session", id, "width", b.Dx(), "height", b.Dy())
	}
	return nil
}

// EndSession drops the reference and resets the state.
func (c *Controller) EndSession() {
	c.ref.Clear()
	c.state = initialState()
	if prev := c.sessionID.Swap(nil); prev != nil && c.logger != nil {
		c.logger.Info("session.end", "session", *prev)
	}
}

// SessionID identifies the current reference; empty without a session.
func (c *Controller) SessionID() string {
	if id := c.sessionID.Load(); id != nil {
		return *id
	}
	return ""
}

// State returns a copy of the detector state.
func (c *Controller) State() DetectorState { return c.state.clone() }

// Reset restores the initial detector state and keeps the reference.
func (c *Controller) Reset() { c.state = initialState() }

// Detect locates probe in the reference. ok is false on a miss and when a
// precondition fails; in the latter case the state is left untouched.
func (c *Controller) Detect(probe *image.Gray) (MatchCandidate, bool) {
	rep, err := c.DetectDetailed(probe)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("detect skipped", "error", err)
		}
		return MatchCandidate{}, false
	}
	return rep.Candidate, rep.Found
}

// DetectDetailed is Detect with a full sweep report. Only precondition
// failures produce an error; collaborator failures are counted in the report.
func (c *Controller) DetectDetailed(probe *image.Gray) (SweepReport, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return SweepReport{}, ErrConcurrentDetect
	}
	defer c.inFlight.Store(false)

	bounds, ok := c.ref.Bounds()
	if !ok || bounds.Empty() {
		return SweepReport{}, ErrNoReference
	}
	if probe == nil || probe.Bounds().Empty() {
		return SweepReport{}, ErrEmptyProbe
	}

	start := time.Now()
	region := selectRegion(&c.cfg, &c.state, bounds)
	cands := selectCandidates(&c.cfg, &c.state)
	rep := SweepReport{Mode: c.state.Mode, Narrowed: cands.narrowed, Region: region}
	active := region
	c.state.ActiveRegion = &active

	var (
		best  MatchCandidate
		found bool
	)
	if regionImg, err := c.ref.Extract(region.Rect()); err != nil {
		rep.Failed++
		c.debug("sweep.extract_failed", "region", region.Rect().String(), "error", err)
	} else {
		best, found = c.sweep(probe, regionImg, image.Pt(region.X, region.Y), cands, &rep)
	}

	if found {
		applyHit(&c.cfg, &c.state, best)
	} else {
		applyMiss(&c.cfg, &c.state)
	}
	rep.Candidate, rep.Found = best, found
	rep.Duration = time.Since(start)
	rep.State = c.state.clone()
	c.logSweep(&rep)
	return rep, nil
}

func (c *Controller) logSweep(rep *SweepReport) {
	if c.logger == nil {
		return
	}
	attrs := []any{
		"session", c.SessionID(),
		"found", rep.Found,
		"mode", rep.Mode.String(),
		"next_mode", rep.State.Mode.String(),
		"narrowed", rep.Narrowed,
		"visited", rep.Visited,
		"evaluated", rep.Evaluated,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"stop", rep.Stop.String(),
		"stable", rep.State.StableCount,
		"dur", rep.Duration,
	}
	if rep.Found {
		attrs = append(attrs,
			"confidence", rep.Candidate.Confidence,
			"x", rep.Candidate.X, "y", rep.Candidate.Y,
			"rotation", rep.Candidate.Rotation,
			"scale", rep.Candidate.Scale,
		)
	}
	c.logger.Debug("sweep.done", attrs...)
}

func (c *Controller) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
