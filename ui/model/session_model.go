package model

import (
	"time"
)

// SessionModel tracks the current capture session duration, the accumulated
// active time and how long the probe has been tracked.
// It is decoupled from the UI; presenters should poll Values() and update views.
// The zero value is ready to use.
type SessionModel struct {
	active              bool
	captureStart        time.Time
	lastSessionDuration time.Duration
	accumulated         time.Duration

	lastTick time.Time
	tracked  time.Duration
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model using the current capture and tracking state.
// Tracked time accrues between consecutive ticks that both report tracking.
func (m *SessionModel) OnTick(capturing, tracking bool, now time.Time) {
	if m == nil {
		return
	}
	if capturing {
		if !m.active { // transition off -> on
			m.active = true
			m.captureStart = now
			m.lastSessionDuration = 0
			m.lastTick = time.Time{}
		}
		m.lastSessionDuration = now.Sub(m.captureStart)
	} else if m.active { // transition on -> off
		m.lastSessionDuration = now.Sub(m.captureStart)
		m.accumulated += m.lastSessionDuration
		m.active = false
	}
	if capturing && tracking {
		if !m.lastTick.IsZero() && now.After(m.lastTick) {
			m.tracked += now.Sub(m.lastTick)
		}
		m.lastTick = now
	} else {
		m.lastTick = time.Time{}
	}
}

// Values returns the current session duration and the total accumulated duration.
// The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.lastSessionDuration
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Tracked returns the accumulated time spent with a located probe.
func (m *SessionModel) Tracked() time.Duration {
	if m == nil {
		return 0
	}
	return m.tracked
}
