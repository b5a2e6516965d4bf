package search

import (
	"image"
	"reflect"
	"testing"
)

func lockedWorld() *fakeWorld {
	w := newFakeWorld()
	w.score = scoreAt(0.1, map[templateMeta]float64{{rot: 90, scale: 0.7}: 0.9})
	w.locate = fixedLocation(image.Pt(100, 100))
	return w
}

func TestStability_BoundedAndNarrows(t *testing.T) {
	w := lockedWorld()
	cfg := DefaultConfig()
	c, _ := newTestController(t, cfg, w)

	narrowedSeen := false
	for i := 0; i < 30; i++ {
		before := c.State()
		w.resetCalls()
		rep, err := c.DetectDetailed(probe(100, 100))
		if err != nil || !rep.Found {
			t.Fatalf("iteration %d: expected hit, err=%v", i, err)
		}
		st := c.State()
		if st.StableCount < 0 || st.StableCount > cfg.MaxStable {
			t.Fatalf("iteration %d: stable count out of range: %d", i, st.StableCount)
		}
		wantNarrow := before.StableCount > cfg.MaxStable/2 && before.LastConfidence > cfg.HighConfidence
		if rep.Narrowed != wantNarrow {
			t.Fatalf("iteration %d: narrowed=%v want %v (stable=%d)", i, rep.Narrowed, wantNarrow, before.StableCount)
		}
		if wantNarrow {
			narrowedSeen = true
			if !reflect.DeepEqual(w.rotations, []int{90}) {
				t.Fatalf("iteration %d: narrowed sweep should try only the last rotation, got %v", i, w.rotations)
			}
			var scales []float64
			for _, m := range w.corrCalls {
				scales = append(scales, m.scale)
			}
			if len(scales) != 3 || !approx(scales[0], 0.665) || !approx(scales[1], 0.7) || !approx(scales[2], 0.735) {
				t.Fatalf("iteration %d: unexpected narrowed scales %v", i, scales)
			}
			if rep.Mode != before.Mode {
				t.Fatalf("narrowing must not change the mode")
			}
		}
	}
	if !narrowedSeen {
		t.Fatalf("stable lock never narrowed the candidates")
	}
	if got := c.State().StableCount; got != cfg.MaxStable {
		t.Fatalf("expected saturation at %d, got %d", cfg.MaxStable, got)
	}
}

func TestStability_EscalatesOneStepAndResetsDirectly(t *testing.T) {
	w := lockedWorld()
	c, _ := newTestController(t, DefaultConfig(), w)

	want := []SearchMode{ModeMedium, ModeFine, ModeFine}
	for i, m := range want {
		c.Detect(probe(100, 100))
		if got := c.State().Mode; got != m {
			t.Fatalf("hit %d: mode %v want %v", i+1, got, m)
		}
	}
	if got := c.State().StableCount; got != 2 {
		t.Fatalf("expected stable count 2 after three consistent hits, got %d", got)
	}

	w.score = scoreAt(0, nil)
	c.Detect(probe(100, 100))
	if st := c.State(); st.Mode != ModeFine || st.StableCount != 1 {
		t.Fatalf("mode should hold while stability remains: %+v", st)
	}
	c.Detect(probe(100, 100))
	if st := c.State(); st.Mode != ModeCoarse || st.StableCount != 0 {
		t.Fatalf("mode should drop straight to coarse: %+v", st)
	}
}

func TestApplyHit_InconsistentDecrements(t *testing.T) {
	cfg := DefaultConfig()
	st := DetectorState{
		Mode:        ModeMedium,
		LastMatch:   &MatchCandidate{X: 10, Y: 10, Width: 40, Rotation: 0},
		StableCount: 3,
	}
	applyHit(&cfg, &st, MatchCandidate{Confidence: 0.5, X: 200, Y: 10, Width: 40})
	if st.StableCount != 2 || st.Mode != ModeMedium || st.LastMatch.X != 200 {
		t.Fatalf("unexpected state after jump: %+v", st)
	}

	st.StableCount = 0
	applyHit(&cfg, &st, MatchCandidate{Confidence: 0.5, X: 500, Width: 40})
	if st.StableCount != 0 {
		t.Fatalf("stable count must not go negative, got %d", st.StableCount)
	}
}

func TestApplyHit_RotationDeltaIsAbsolute(t *testing.T) {
	cfg := DefaultConfig()
	st := DetectorState{StableCount: 2, LastMatch: &MatchCandidate{X: 10, Y: 10, Width: 40, Rotation: 350}}
	applyHit(&cfg, &st, MatchCandidate{Confidence: 0.5, X: 12, Y: 9, Width: 42, Rotation: 5})
	if st.StableCount != 1 {
		t.Fatalf("350 and 5 degrees differ by 345, got stable=%d", st.StableCount)
	}
	applyHit(&cfg, &st, MatchCandidate{Confidence: 0.5, X: 12, Y: 9, Width: 42, Rotation: 15})
	if st.StableCount != 2 {
		t.Fatalf("5 and 15 degrees are within tolerance, got stable=%d", st.StableCount)
	}
}

func TestApplyHit_EscalationThresholdsAreStrict(t *testing.T) {
	cfg := DefaultConfig()
	st := DetectorState{}
	applyHit(&cfg, &st, MatchCandidate{Confidence: 0.80})
	if st.Mode != ModeCoarse {
		t.Fatalf("0.80 is not above the medium threshold")
	}
	applyHit(&cfg, &st, MatchCandidate{Confidence: 0.99})
	if st.Mode != ModeMedium {
		t.Fatalf("a single hit may escalate one step only, got %v", st.Mode)
	}
}

func TestApplyMiss_Floors(t *testing.T) {
	cfg := DefaultConfig()
	st := DetectorState{Mode: ModeCoarse, LastConfidence: 0.05}
	applyMiss(&cfg, &st)
	if st.LastConfidence != 0 || st.StableCount != 0 || st.Mode != ModeCoarse {
		t.Fatalf("unexpected floors: %+v", st)
	}
}

func TestAngleDelta(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 0, 0},
		{0, 90, 90},
		{350, 10, 340},
		{10, 350, 340},
		{0, 180, 180},
		{-90, 270, 0},
	}
	for _, tc := range cases {
		if got := angleDelta(tc.a, tc.b); got != tc.want {
			t.Fatalf("angleDelta(%d,%d)=%d want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
