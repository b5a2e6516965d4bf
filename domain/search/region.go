package search

import (
	"image"
	"math"
)

// selectRegion picks the part of the reference to search. The last match box
// is grown by a margin proportional to its larger side and clipped to bounds
// when ROI narrowing applies; otherwise the full reference is used.
func selectRegion(cfg *Config, st *DetectorState, bounds image.Rectangle) SearchRegion {
	full := regionFromRect(bounds)
	if !cfg.ROIEnabled || st.LastMatch == nil || st.LastConfidence <= cfg.DisplayThreshold {
		return full
	}
	factor := cfg.LowConfidenceMargin
	if st.LastConfidence > cfg.HighConfidence {
		factor = cfg.HighConfidenceMargin
	}
	m := st.LastMatch
	margin := int(math.Round(float64(max(m.Width, m.Height)) * factor))
	r := expandClip(m.Rect(), margin, bounds)
	if r.Empty() {
		return full
	}
	return regionFromRect(r)
}

func expandClip(r image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	return r.Inset(-margin).Intersect(bounds)
}
