package capture

import (
	"errors"
	"image"
)

// ErrSourceExhausted is returned by a Grabber that will not produce further
// frames. The capture service stops and reports Exhausted.
var ErrSourceExhausted = errors.New("capture: source exhausted")

// Grabber produces one frame per call.
type Grabber interface {
	Grab() (*image.RGBA, error)
}

// GrabberFunc adapts a function to Grabber.
type GrabberFunc func() (*image.RGBA, error)

func (f GrabberFunc) Grab() (*image.RGBA, error) { return f() }

// FrameSource provides read-only access to captured frames.
// LatestFrame returns the freshest snapshot while Running reports activity.
type FrameSource interface {
	LatestFrame() FrameSnapshot
	Running() bool
}

// ServiceContract exposes basic lifecycle control for capture services.
type ServiceContract interface {
	Start()
	Stop()
	Running() bool
}
