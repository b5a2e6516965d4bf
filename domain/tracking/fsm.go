package tracking

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// TrackingFSM tracks whether the probe is currently located in the reference.
// Events are queued and applied in order by a single goroutine; Current and
// TargetCoordinates may be read from any goroutine.
type TrackingFSM struct {
	state       atomic.Int32
	logger      *slog.Logger
	lostTimeout time.Duration
	lostAt      time.Time
	closeOnce   sync.Once
	events      chan interface{}
	listeners   []TrackingStateListener

	coordMu        sync.Mutex
	coordX, coordY int
	coordSet       bool
}

// NewFSM constructs and starts the event loop. A non-positive lostTimeout
// selects DefaultLostTimeout.
func NewFSM(logger *slog.Logger, lostTimeout time.Duration) *TrackingFSM {
	if lostTimeout <= 0 {
		lostTimeout = DefaultLostTimeout
	}
	f := &TrackingFSM{logger: logger, lostTimeout: lostTimeout, events: make(chan interface{}, 64)}
	f.state.Store(int32(StateHalt))
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				if logger != nil {
					logger.Error("fsm panic", "error", r, "stack", stack)
				}
			}
		}()
		f.loop()
	}()
	return f
}

func (f *TrackingFSM) loop() {
	for ev := range f.events {
		switch e := ev.(type) {
		case evtAddListener:
			f.listeners = append(f.listeners, e.l)
		case evtTick:
			f.handleTick(e.now)
		case evtStart:
			if f.Current() == StateHalt {
				f.transition(StateSearching)
			}
		case evtReferenceReplaced:
			f.clearTarget()
			if f.Current() != StateHalt {
				f.transition(StateSearching)
			}
		case evtMatchAt:
			if f.Current() == StateHalt {
				continue
			}
			f.setTarget(e.x, e.y)
			f.transition(StateTracking)
		case evtMiss:
			if f.Current() == StateTracking {
				f.lostAt = e.now
				f.transition(StateLost)
			}
		case evtHalt:
			f.clearTarget()
			f.transition(StateHalt)
		}
	}
}

// events
type (
	evtTick              struct{ now time.Time }
	evtStart             struct{}
	evtReferenceReplaced struct{}
	evtMatchAt           struct{ x, y int }
	evtMiss              struct{ now time.Time }
	evtHalt              struct{}
	evtAddListener       struct{ l TrackingStateListener }
)

func (f *TrackingFSM) transition(next TrackingState) {
	prev := f.Current()
	if prev == next {
		return
	}
	f.state.Store(int32(next))
	if f.logger != nil {
		f.logger.Debug("tracking state transition", "from", prev.String(), "to", next.String())
	}
	for _, l := range f.listeners {
		func() {
			defer recoverLog(f.logger, "listener panic")
			l(prev, next)
		}()
	}
}

func (f *TrackingFSM) handleTick(now time.Time) {
	if f.Current() == StateLost && !f.lostAt.IsZero() && now.Sub(f.lostAt) > f.lostTimeout {
		f.clearTarget()
		f.transition(StateSearching)
	}
}

func (f *TrackingFSM) setTarget(x, y int) {
	f.coordMu.Lock()
	f.coordX, f.coordY, f.coordSet = x, y, true
	f.coordMu.Unlock()
}

func (f *TrackingFSM) clearTarget() {
	f.coordMu.Lock()
	f.coordSet = false
	f.coordMu.Unlock()
	f.lostAt = time.Time{}
}

// Public API implements contracts
func (f *TrackingFSM) AddListener(l TrackingStateListener) { f.send(evtAddListener{l: l}) }
func (f *TrackingFSM) Current() TrackingState              { return TrackingState(f.state.Load()) }
func (f *TrackingFSM) EventStart()                         { f.send(evtStart{}) }
func (f *TrackingFSM) EventReferenceReplaced()             { f.send(evtReferenceReplaced{}) }
func (f *TrackingFSM) EventMatchAt(x, y int)               { f.send(evtMatchAt{x: x, y: y}) }
func (f *TrackingFSM) EventMiss()                          { f.send(evtMiss{now: time.Now()}) }
func (f *TrackingFSM) EventHalt()                          { f.send(evtHalt{}) }
func (f *TrackingFSM) Tick(now time.Time)                  { f.send(evtTick{now: now}) }

func (f *TrackingFSM) TargetCoordinates() (int, int, bool) {
	f.coordMu.Lock()
	defer f.coordMu.Unlock()
	if !f.coordSet {
		return 0, 0, false
	}
	return f.coordX, f.coordY, true
}

// Close stops the event loop. Events sent afterwards are dropped.
func (f *TrackingFSM) Close() {
	f.closeOnce.Do(func() { close(f.events) })
}

func (f *TrackingFSM) send(ev interface{}) {
	defer func() { _ = recover() }() // send on closed channel after Close
	f.events <- ev
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r)
		}
	}
}

// Ensure contract satisfaction
var _ TrackingFSMContract = (*TrackingFSM)(nil)
