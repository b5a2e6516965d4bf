package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

// ScreenGrabber captures the desktop. When Selection returns a non-empty
// rectangle only that part of the screen is grabbed.
type ScreenGrabber struct {
	Selection func() *image.Rectangle
}

var _ Grabber = ScreenGrabber{}

func (g ScreenGrabber) Grab() (*image.RGBA, error) {
	if g.Selection != nil {
		if r := g.Selection(); r != nil && !r.Empty() {
			return GrabSelection(*r)
		}
	}
	return GrabScreen()
}

// GrabScreen returns a capture of the primary monitor.
func GrabScreen() (*image.RGBA, error) {
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

// GrabSelection captures sel clipped to the screen bounds.
func GrabSelection(sel image.Rectangle) (*image.RGBA, error) {
	if sel.Empty() {
		return nil, errors.New("capture: empty selection")
	}
	screen, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("capture screen rect: %w", err)
	}
	r := sel.Intersect(screen)
	if r.Empty() {
		return nil, fmt.Errorf("capture: selection out of bounds sel=%v screen=%v", sel, screen)
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("capture selection: %w", err)
	}
	return img, nil
}
