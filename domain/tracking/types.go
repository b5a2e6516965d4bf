package tracking

import "time"

// TrackingState enumerates the states of a tracking session.
type TrackingState int32

const (
	StateHalt TrackingState = iota
	StateSearching
	StateTracking
	StateLost
)

func (s TrackingState) String() string {
	switch s {
	case StateHalt:
		return "halt"
	case StateSearching:
		return "searching"
	case StateTracking:
		return "tracking"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// DefaultLostTimeout is how long a lost target is remembered before the
// session falls back to searching.
const DefaultLostTimeout = 2 * time.Second

// TrackingStateListener is called on each successful state transition.
type TrackingStateListener func(prev, next TrackingState)

// Interface slices for consumers (presenters).
type TrackingStateSource interface{ Current() TrackingState }
type TrackingTargetOps interface {
	EventMatchAt(x, y int)
	EventMiss()
	TargetCoordinates() (int, int, bool)
}
type TrackingLifecycle interface {
	EventStart()
	EventReferenceReplaced()
	EventHalt()
	Close()
}
type TrackingTicker interface{ Tick(now time.Time) }

// TrackingFSMContract aggregate for DI.
type TrackingFSMContract interface {
	TrackingStateSource
	TrackingTargetOps
	TrackingLifecycle
	TrackingTicker
	AddListener(TrackingStateListener)
}
