package presenter

import (
	"sync"
	"time"

	"github.com/soocke/probe-tracker-go/domain/tracking"
)

// FSMSource provides the tracking FSM methods the presenter requires.
type FSMSource interface {
	Current() tracking.TrackingState
}

// StateView sets the state label in the view.
type StateView interface{ SetStateLabel(string) }

// FSMPresenter receives FSM transitions and reflects the latest one in the
// view on each tick.
type FSMPresenter struct {
	eng    FSMSource
	view   StateView
	latest tracking.TrackingState // last reflected state

	mu      sync.Mutex
	pending []tracking.TrackingState
}

func NewFSMPresenter(eng FSMSource, view StateView) *FSMPresenter {
	return &FSMPresenter{eng: eng, view: view, latest: tracking.StateHalt}
}

// OnState queues a transitioned state from the FSM listener. It runs on the
// FSM goroutine.
//
// The latest queued state will be reflected on the next Tick.
func (p *FSMPresenter) OnState(prev, next tracking.TrackingState) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Tick processes queued states and updates the view with the most recent state.
// It clears the pending queue after processing.
func (p *FSMPresenter) Tick(now time.Time) {
	if p == nil || p.eng == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	last := p.pending[len(p.pending)-1]
	p.pending = p.pending[:0]
	p.mu.Unlock()
	if last != p.latest {
		p.latest = last
		p.view.SetStateLabel("State: " + last.String())
	}
}
