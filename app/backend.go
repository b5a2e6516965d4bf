package app

import (
	"errors"

	"github.com/soocke/probe-tracker-go/config"
	"github.com/soocke/probe-tracker-go/domain/imageproc"
	"github.com/soocke/probe-tracker-go/domain/search"
)

var errGoCVUnavailable = errors.New("backend gocv: binary built without the gocv tag")

// buildCollaborators returns the controller collaborators for the configured
// backend. The native transformer is returned as well so its cache and pool
// statistics can be reported; it is nil for the gocv backend.
func buildCollaborators(cfg *config.Config) (search.Collaborators, *imageproc.Transformer, error) {
	collab := search.Collaborators{
		Reference:    imageproc.NewReferenceCache(),
		Preprocessor: imageproc.Preprocessor{BlurSigma: cfg.BlurSigma},
	}
	if cfg.Backend == config.BackendGoCV {
		xf, corr, err := gocvBackend()
		if err != nil {
			return search.Collaborators{}, nil, err
		}
		collab.Transformer, collab.Correlator = xf, corr
		return collab, nil, nil
	}
	xf, err := imageproc.NewTransformer(cfg.RotationCacheSize)
	if err != nil {
		return search.Collaborators{}, nil, err
	}
	collab.Transformer = xf
	collab.Correlator = imageproc.NewNCC(cfg.Stride, cfg.Refine)
	return collab, xf, nil
}
