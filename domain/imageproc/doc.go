// Package imageproc provides the pure Go image collaborators of the search
// controller: preprocessing, pooled rotation and rescaling, normalised
// cross-correlation and the reference cache. Building with the gocv tag adds
// an OpenCV-backed alternative for transforms and correlation.
package imageproc

import "github.com/soocke/probe-tracker-go/domain/search"

var (
	_ search.Transformer  = (*Transformer)(nil)
	_ search.Releaser     = (*Transformer)(nil)
	_ search.Preprocessor = Preprocessor{}
)
