package search

import "image"

// Transformer produces rotated and rescaled copies of a probe.
//
// Rotate turns src counter-clockwise by degrees about its centre onto a canvas
// large enough to hold the whole result. Implementations may return src itself
// for the identity transform.
type Transformer interface {
	Rotate(src *image.Gray, degrees int) (*image.Gray, error)
	Resize(src *image.Gray, factor float64) (*image.Gray, error)
}

// Releaser is implemented by transformers that hand out pooled buffers.
// Release must ignore images it did not allocate.
type Releaser interface {
	Release(img *image.Gray)
}

// Correlation is the best placement of a template inside a region.
// Location is relative to region.Bounds().Min.
type Correlation struct {
	Score    float64
	Location image.Point
}

// Correlator scores a template against every placement inside region.
// A template that does not fit must yield Score 0 without an error.
type Correlator interface {
	Correlate(region, template *image.Gray) (Correlation, error)
}

// ReferenceCache holds the preprocessed reference image of the session.
type ReferenceCache interface {
	Store(ref *image.Gray)
	Clear()
	Bounds() (image.Rectangle, bool)
	Extract(r image.Rectangle) (*image.Gray, error)
}

// Preprocessor turns a raw capture into the grayscale, denoised form that the
// controller matches on.
type Preprocessor interface {
	Prepare(img image.Image) *image.Gray
}

// Collaborators bundles the external dependencies of a Controller.
// Preprocessor is optional; without it references are converted to gray as is.
type Collaborators struct {
	Transformer  Transformer
	Correlator   Correlator
	Reference    ReferenceCache
	Preprocessor Preprocessor
}
