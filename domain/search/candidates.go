package search

// candidateSet is the ordered list of rotations and scales one sweep visits.
type candidateSet struct {
	rotations []int
	scales    []float64
	narrowed  bool
}

// selectCandidates returns the mode table, or a three-scale set around the
// last match once the lock has been stable for more than half of MaxStable
// at high confidence. The override does not change the mode.
func selectCandidates(cfg *Config, st *DetectorState) candidateSet {
	if st.LastMatch != nil && st.StableCount > cfg.MaxStable/2 && st.LastConfidence > cfg.HighConfidence {
		s := st.LastMatch.Scale
		spread := cfg.NarrowScaleSpread
		return candidateSet{
			rotations: []int{normaliseAngle(st.LastMatch.Rotation)},
			scales:    []float64{s * (1 - spread), s, s * (1 + spread)},
			narrowed:  true,
		}
	}
	t := cfg.Table(st.Mode)
	return candidateSet{rotations: t.Rotations, scales: t.Scales}
}
