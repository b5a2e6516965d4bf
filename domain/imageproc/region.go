package imageproc

import (
	"errors"
	"image"
)

// ErrEmptyRegion is returned when a requested rectangle does not overlap the image.
var ErrEmptyRegion = errors.New("imageproc: region outside image")

// ClipRect clamps r to bounds and fails when nothing is left.
func ClipRect(r, bounds image.Rectangle) (image.Rectangle, error) {
	clipped := r.Canon().Intersect(bounds)
	if clipped.Empty() {
		return image.Rectangle{}, ErrEmptyRegion
	}
	return clipped, nil
}

// ExtractRegion returns the part of img inside r as a view sharing img's
// pixels, together with the clipped rectangle actually used.
func ExtractRegion(img *image.Gray, r image.Rectangle) (*image.Gray, image.Rectangle, error) {
	if img == nil {
		return nil, image.Rectangle{}, ErrNilImage
	}
	clipped, err := ClipRect(r, img.Bounds())
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return img.SubImage(clipped).(*image.Gray), clipped, nil
}
