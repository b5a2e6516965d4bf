package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/probe-tracker-go/domain/capture"
	"github.com/soocke/probe-tracker-go/domain/search"
	"github.com/soocke/probe-tracker-go/domain/tracking"
)

// ReferenceLoader produces the reference image of a session.
type ReferenceLoader func() (image.Image, error)

// Summary describes a finished run.
type Summary struct {
	Frames   uint64
	Hits     uint64
	Misses   uint64
	Errors   uint64
	Dropped  uint64
	Tracked  time.Duration
	Duration time.Duration
	Last     *search.MatchCandidate
	State    tracking.TrackingState
}

// App runs the headless tracking loop on top of an AppContainer.
type App struct {
	c       *AppContainer
	load    ReferenceLoader
	reload  chan struct{}
	summary Summary
}

// New returns an App that loads the reference from cfg.ReferencePath or, when
// unset, grabs the full screen.
func New(c *AppContainer) *App {
	return NewWithLoader(c, referenceLoader(c.Config.ReferencePath))
}

func NewWithLoader(c *AppContainer, load ReferenceLoader) *App {
	return &App{c: c, load: load, reload: make(chan struct{}, 1)}
}

func referenceLoader(path string) ReferenceLoader {
	if path != "" {
		return func() (image.Image, error) { return capture.LoadImage(path) }
	}
	return func() (image.Image, error) {
		img, err := capture.GrabScreen()
		if err != nil {
			return nil, err
		}
		return img, nil
	}
}

// Reload asks the running loop to load the reference again. Safe for use
// from signal handlers; repeated requests coalesce.
func (a *App) Reload() {
	select {
	case a.reload <- struct{}{}:
	default:
	}
}

// Summary returns the figures of the last completed Run.
func (a *App) Summary() Summary { return a.summary }

// Run starts a session and ticks the presenters until ctx ends or a finite
// probe source has been fully searched.
func (a *App) Run(ctx context.Context) error {
	c := a.c
	ref, err := a.load()
	if err != nil {
		return fmt.Errorf("load reference: %w", err)
	}
	if err := c.Controller.InitializeSession(ref); err != nil {
		return fmt.Errorf("initialise session: %w", err)
	}
	start := time.Now()
	c.CapturePresenter.Enable()

	ticker := time.NewTicker(time.Duration(c.Config.TickMillis) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.shutdown(start)
			return nil
		case <-a.reload:
			a.replaceReference()
		case <-ticker.C:
			c.Loop.Tick()
			if c.CaptureSvc.Exhausted() && c.DetectionPresenter.Drained() {
				c.Logger.Info("probe source exhausted")
				a.shutdown(start)
				return nil
			}
		}
	}
}

func (a *App) replaceReference() {
	ref, err := a.load()
	if err != nil {
		a.c.Logger.Error("reload reference", "error", err)
		return
	}
	a.c.DetectionPresenter.ReplaceReference(ref)
}

func (a *App) finish(start time.Time) {
	c := a.c
	snap := c.Detection.Snapshot()
	stats := c.CaptureSvc.Stats()
	a.summary = Summary{
		Frames:   stats.Captures,
		Hits:     snap.Hits,
		Misses:   snap.Misses,
		Errors:   snap.Errors,
		Dropped:  snap.Dropped,
		Tracked:  c.Session.Tracked(),
		Duration: time.Since(start),
		Last:     snap.Last,
		State:    c.FSM.Current(),
	}
	attrs := []any{
		"session", c.Controller.SessionID(),
		"frames", humanize.Comma(int64(stats.Captures)),
		"hits", humanize.Comma(int64(snap.Hits)),
		"misses", humanize.Comma(int64(snap.Misses)),
		"errors", snap.Errors,
		"dropped", snap.Dropped,
		"tracked", a.summary.Tracked,
		"duration", a.summary.Duration,
		"state", a.summary.State.String(),
	}
	if sweeps := snap.Hits + snap.Misses; sweeps > 0 {
		attrs = append(attrs, "avg_sweep", snap.TotalSweep/time.Duration(sweeps))
	}
	if snap.Last != nil {
		attrs = append(attrs, "last_x", snap.Last.X, "last_y", snap.Last.Y, "last_rotation", snap.Last.Rotation, "last_scale", snap.Last.Scale)
	}
	if c.Transformer != nil {
		ts := c.Transformer.Stats()
		attrs = append(attrs, "plan_hits", ts.PlanHits, "plan_misses", ts.PlanMisses, "leased", ts.Leased)
	}
	c.Logger.Info("session.summary", attrs...)
}

// shutdown stops capture and waits for the detection worker before the
// summary is taken.
func (a *App) shutdown(start time.Time) {
	c := a.c
	c.CapturePresenter.Disable()
	c.DetectionPresenter.Close()
	c.Loop.Tick()
	a.finish(start)
	c.FSM.Close()
	c.Controller.EndSession()
}
