//go:build !gocv

package app

import "github.com/soocke/probe-tracker-go/domain/search"

func gocvBackend() (search.Transformer, search.Correlator, error) {
	return nil, nil, errGoCVUnavailable
}
