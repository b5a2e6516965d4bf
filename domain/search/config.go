package search

import "math"

// ModeTable lists the candidate rotations (degrees) and scale factors tried in
// one search mode. Order matters: rotations form the outer sweep loop.
type ModeTable struct {
	Rotations []int     `json:"rotations" yaml:"rotations"`
	Scales    []float64 `json:"scales" yaml:"scales"`
}

// ModeTables holds one table per SearchMode.
type ModeTables struct {
	Coarse ModeTable `json:"coarse" yaml:"coarse"`
	Medium ModeTable `json:"medium" yaml:"medium"`
	Fine   ModeTable `json:"fine" yaml:"fine"`
}

// Config is the immutable tuning table of the search controller. It is copied
// into the controller at construction time.
type Config struct {
	Modes ModeTables `json:"modes" yaml:"modes"`

	DetectionThreshold float64 `json:"detection_threshold" yaml:"detection_threshold"`
	DisplayThreshold   float64 `json:"display_threshold" yaml:"display_threshold"`
	HighConfidence     float64 `json:"high_confidence" yaml:"high_confidence"`
	EarlyTermination   float64 `json:"early_termination" yaml:"early_termination"`

	// Escalation thresholds (strictly greater than).
	EscalateMediumAbove float64 `json:"escalate_medium_above" yaml:"escalate_medium_above"`
	EscalateFineAbove   float64 `json:"escalate_fine_above" yaml:"escalate_fine_above"`

	// Stability tolerances between consecutive hits.
	PositionTolerance int `json:"position_tolerance" yaml:"position_tolerance"`
	SizeTolerance     int `json:"size_tolerance" yaml:"size_tolerance"`
	RotationTolerance int `json:"rotation_tolerance" yaml:"rotation_tolerance"`
	MaxStable         int `json:"max_stable" yaml:"max_stable"`

	MaxSweepIterations int `json:"max_sweep_iterations" yaml:"max_sweep_iterations"`
	MinTemplateSize    int `json:"min_template_size" yaml:"min_template_size"`

	ROIEnabled           bool    `json:"roi_enabled" yaml:"roi_enabled"`
	HighConfidenceMargin float64 `json:"high_confidence_margin" yaml:"high_confidence_margin"`
	LowConfidenceMargin  float64 `json:"low_confidence_margin" yaml:"low_confidence_margin"`

	// ConfidenceDecay is subtracted from the carried confidence on every miss.
	ConfidenceDecay float64 `json:"confidence_decay" yaml:"confidence_decay"`
	// NarrowScaleSpread is the +/- factor around the last scale once locked.
	NarrowScaleSpread float64 `json:"narrow_scale_spread" yaml:"narrow_scale_spread"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Modes: ModeTables{
			Coarse: ModeTable{
				Rotations: []int{0, 90, 180, 270},
				Scales:    []float64{0.3, 0.5, 0.7, 1.0},
			},
			Medium: ModeTable{
				Rotations: []int{0, 45, 90, 135, 180, 225, 270, 315},
				Scales:    []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.85, 1.0},
			},
			Fine: ModeTable{
				Rotations: []int{0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330},
				Scales:    []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		},
		DetectionThreshold:   0.40,
		DisplayThreshold:     0.60,
		HighConfidence:       0.85,
		EarlyTermination:     0.95,
		EscalateMediumAbove:  0.80,
		EscalateFineAbove:    0.85,
		PositionTolerance:    20,
		SizeTolerance:        10,
		RotationTolerance:    15,
		MaxStable:            10,
		MaxSweepIterations:   128,
		MinTemplateSize:      8,
		ROIEnabled:           true,
		HighConfidenceMargin: 0.5,
		LowConfidenceMargin:  1.5,
		ConfidenceDecay:      0.1,
		NarrowScaleSpread:    0.05,
	}
}

// Table returns the rotation/scale table for mode.
func (c *Config) Table(mode SearchMode) ModeTable {
	switch mode {
	case ModeMedium:
		return c.Modes.Medium
	case ModeFine:
		return c.Modes.Fine
	default:
		return c.Modes.Coarse
	}
}

// Validate clamps values to safe ranges, normalises rotations into [0,360)
// and restores default tables for modes left without usable entries.
func (c *Config) Validate() error {
	d := DefaultConfig()
	c.Modes.Coarse = normaliseTable(c.Modes.Coarse, d.Modes.Coarse)
	c.Modes.Medium = normaliseTable(c.Modes.Medium, d.Modes.Medium)
	c.Modes.Fine = normaliseTable(c.Modes.Fine, d.Modes.Fine)

	clampUnit := func(v *float64, def float64) {
		if *v <= 0 || *v > 1 || math.IsNaN(*v) {
			*v = def
		}
	}
	clampUnit(&c.DetectionThreshold, d.DetectionThreshold)
	clampUnit(&c.DisplayThreshold, d.DisplayThreshold)
	clampUnit(&c.HighConfidence, d.HighConfidence)
	clampUnit(&c.EarlyTermination, d.EarlyTermination)
	clampUnit(&c.EscalateMediumAbove, d.EscalateMediumAbove)
	clampUnit(&c.EscalateFineAbove, d.EscalateFineAbove)
	clampUnit(&c.ConfidenceDecay, d.ConfidenceDecay)
	if c.PositionTolerance < 0 {
		c.PositionTolerance = d.PositionTolerance
	}
	if c.SizeTolerance < 0 {
		c.SizeTolerance = d.SizeTolerance
	}
	if c.RotationTolerance < 0 || c.RotationTolerance > 180 {
		c.RotationTolerance = d.RotationTolerance
	}
	if c.MaxStable <= 0 {
		c.MaxStable = d.MaxStable
	}
	if c.MaxSweepIterations <= 0 {
		c.MaxSweepIterations = d.MaxSweepIterations
	}
	if c.MinTemplateSize < 0 {
		c.MinTemplateSize = d.MinTemplateSize
	}
	if c.HighConfidenceMargin < 0 {
		c.HighConfidenceMargin = d.HighConfidenceMargin
	}
	if c.LowConfidenceMargin < 0 {
		c.LowConfidenceMargin = d.LowConfidenceMargin
	}
	if c.NarrowScaleSpread <= 0 || c.NarrowScaleSpread >= 1 {
		c.NarrowScaleSpread = d.NarrowScaleSpread
	}
	return nil
}

func normaliseTable(t, def ModeTable) ModeTable {
	out := ModeTable{}
	for _, r := range t.Rotations {
		out.Rotations = append(out.Rotations, normaliseAngle(r))
	}
	for _, s := range t.Scales {
		if s > 0 && !math.IsNaN(s) && !math.IsInf(s, 0) {
			out.Scales = append(out.Scales, s)
		}
	}
	if len(out.Rotations) == 0 {
		out.Rotations = append([]int(nil), def.Rotations...)
	}
	if len(out.Scales) == 0 {
		out.Scales = append([]float64(nil), def.Scales...)
	}
	return out
}

// clone deep-copies the tables so later edits by the caller do not leak in.
func (c Config) clone() Config {
	out := c
	cp := func(t ModeTable) ModeTable {
		return ModeTable{
			Rotations: append([]int(nil), t.Rotations...),
			Scales:    append([]float64(nil), t.Scales...),
		}
	}
	out.Modes.Coarse = cp(c.Modes.Coarse)
	out.Modes.Medium = cp(c.Modes.Medium)
	out.Modes.Fine = cp(c.Modes.Fine)
	return out
}

func normaliseAngle(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
