package presenter

import (
	"time"

	"github.com/soocke/probe-tracker-go/domain/tracking"
	"github.com/soocke/probe-tracker-go/ui/model"
)

// CaptureEnabledModel reports whether capture is enabled.
type CaptureEnabledModel interface{ Enabled() bool }

// SessionView displays session, total and tracked durations.
type SessionView interface {
	SetSession(session, total, tracked time.Duration)
}

// SessionPresenter pushes session durations from the model to the view.
type SessionPresenter struct {
	sess  *model.SessionModel
	cap   CaptureEnabledModel
	state FSMSource
	view  SessionView
}

// NewSessionPresenter returns a new SessionPresenter. state may be nil, in
// which case no tracked time is recorded.
func NewSessionPresenter(sess *model.SessionModel, cap CaptureEnabledModel, state FSMSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, cap: cap, state: state, view: view}
}

// Tick updates the presenter: advance the session model and push values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.cap == nil || p.view == nil {
		return
	}
	locked := p.state != nil && p.state.Current() == tracking.StateTracking
	p.sess.OnTick(p.cap.Enabled(), locked, now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t, p.sess.Tracked())
}
