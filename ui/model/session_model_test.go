package model

import (
	"testing"
	"time"
)

func TestSessionModel_BasicLifecycle(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(0, 0)

	// Start at t0 and run for 5s.
	m.OnTick(true, false, base)
	m.OnTick(true, false, base.Add(5*time.Second))
	session, total := m.Values()
	if session != 5*time.Second || total != 5*time.Second {
		t.Fatalf("expected 5s session & total; got session=%v total=%v", session, total)
	}

	// Stop at 5s.
	m.OnTick(false, false, base.Add(5*time.Second))
	session, total = m.Values()
	if session != 5*time.Second || total != 5*time.Second {
		t.Fatalf("after stop expected persisted 5s; got session=%v total=%v", session, total)
	}

	// Idle 2s (no change expected).
	m.OnTick(false, false, base.Add(7*time.Second))
	session2, total2 := m.Values()
	if session2 != session || total2 != total {
		t.Fatalf("idle tick should not change durations: before session=%v total=%v after session=%v total=%v", session, total, session2, total2)
	}

	// Second session at 10s lasting 3s.
	m.OnTick(true, false, base.Add(10*time.Second))
	m.OnTick(true, false, base.Add(13*time.Second))
	s3, t3 := m.Values()
	if s3 != 3*time.Second || t3 != 8*time.Second {
		t.Fatalf("second session expected 3s of 8s total, got session=%v total=%v", s3, t3)
	}
}

func TestSessionModel_TrackedTime(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(100, 0)
	m.OnTick(true, false, base)
	m.OnTick(true, true, base.Add(1*time.Second)) // tracking starts
	m.OnTick(true, true, base.Add(3*time.Second))
	m.OnTick(true, false, base.Add(4*time.Second)) // lost
	m.OnTick(true, true, base.Add(6*time.Second))
	m.OnTick(true, true, base.Add(7*time.Second))
	if got := m.Tracked(); got != 3*time.Second {
		t.Fatalf("expected 3s tracked, got %v", got)
	}
	// Tracking without capture does not count.
	m.OnTick(false, true, base.Add(9*time.Second))
	m.OnTick(false, true, base.Add(10*time.Second))
	if got := m.Tracked(); got != 3*time.Second {
		t.Fatalf("tracked time grew while capture was off: %v", got)
	}
}
