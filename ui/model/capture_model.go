package model

import (
	"sync/atomic"
	"time"
)

// CaptureModel tracks whether capture is enabled and since when. The zero
// value is disabled and usable. Concurrency-safe via atomics because signal
// handlers and presenter ticks may race.
type CaptureModel struct {
	enabled atomic.Bool
	since   atomic.Int64 // unix nanos of the last off -> on transition
}

// Enabled reports whether capture is currently enabled.
func (m *CaptureModel) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled.Load()
}

// SetEnabled stores the enabled flag.
func (m *CaptureModel) SetEnabled(b bool) {
	if m == nil {
		return
	}
	if !m.enabled.CompareAndSwap(!b, b) { // no change
		return
	}
	if b {
		m.since.Store(time.Now().UnixNano())
	}
}

// EnabledSince returns when capture was last enabled, or the zero time.
func (m *CaptureModel) EnabledSince() time.Time {
	if m == nil || !m.enabled.Load() {
		return time.Time{}
	}
	return time.Unix(0, m.since.Load())
}
