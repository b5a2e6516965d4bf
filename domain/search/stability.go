package search

// applyHit folds a successful match into the state: the stability counter
// moves by one depending on agreement with the previous match, the match and
// its score are carried forward and the mode escalates at most one step.
func applyHit(cfg *Config, st *DetectorState, m MatchCandidate) {
	if st.LastMatch != nil {
		if consistent(cfg, *st.LastMatch, m) {
			st.StableCount = min(st.StableCount+1, cfg.MaxStable)
		} else {
			st.StableCount = max(st.StableCount-1, 0)
		}
	}
	hit := m
	st.LastMatch = &hit
	st.LastConfidence = m.Confidence
	st.Mode = escalate(cfg, st.Mode, m.Confidence)
}

// applyMiss decays confidence and stability. Once stability is gone the mode
// drops straight back to coarse. The last match is kept for region selection.
func applyMiss(cfg *Config, st *DetectorState) {
	st.LastConfidence = max(st.LastConfidence-cfg.ConfidenceDecay, 0)
	st.StableCount = max(st.StableCount-1, 0)
	if st.StableCount == 0 && st.Mode != ModeCoarse {
		st.Mode = ModeCoarse
	}
}

func escalate(cfg *Config, mode SearchMode, conf float64) SearchMode {
	switch {
	case mode == ModeCoarse && conf > cfg.EscalateMediumAbove:
		return ModeMedium
	case mode == ModeMedium && conf > cfg.EscalateFineAbove:
		return ModeFine
	default:
		return mode
	}
}

func consistent(cfg *Config, prev, next MatchCandidate) bool {
	return absInt(next.X-prev.X) <= cfg.PositionTolerance &&
		absInt(next.Y-prev.Y) <= cfg.PositionTolerance &&
		absInt(next.Width-prev.Width) <= cfg.SizeTolerance &&
		angleDelta(prev.Rotation, next.Rotation) <= cfg.RotationTolerance
}

// angleDelta is |a-b| after normalising both into [0,360). 350 and 10 are
// 340 apart; wrap-around is not folded.
func angleDelta(a, b int) int {
	return absInt(normaliseAngle(a) - normaliseAngle(b))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
