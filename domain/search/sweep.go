package search

import (
	"fmt"
	"image"
)

// sweepState accumulates the running best of one detect call.
type sweepState struct {
	best    MatchCandidate
	found   bool
	visited int
	origin  image.Point
	region  *image.Gray
	report  *SweepReport
}

// sweep walks rotations (outer) and scales (inner). Each rotation is produced
// once and shared by its scales. The walk stops when the best score passes the
// early termination threshold or MaxSweepIterations pairs have been visited.
func (c *Controller) sweep(probe, region *image.Gray, origin image.Point, cands candidateSet, rep *SweepReport) (MatchCandidate, bool) {
	st := &sweepState{origin: origin, region: region, report: rep}
	rep.Stop = StopExhausted
	for _, rot := range cands.rotations {
		if st.visited >= c.cfg.MaxSweepIterations {
			rep.Stop = StopIterationCap
			break
		}
		if stop, done := c.sweepRotation(st, probe, rot, cands.scales); done {
			rep.Stop = stop
			break
		}
	}
	rep.Visited = st.visited
	return st.best, st.found
}

func (c *Controller) sweepRotation(st *sweepState, probe *image.Gray, rot int, scales []float64) (StopReason, bool) {
	rotated, err := c.rotate(probe, rot)
	if err != nil {
		st.report.Failed++
		// The scales of a lost rotation still count against the cap.
		st.visited = min(st.visited+len(scales), c.cfg.MaxSweepIterations)
		c.debug("sweep.rotate_failed", "rotation", rot, "error", err)
		return StopExhausted, false
	}
	defer c.release(rotated, probe)
	for _, s := range scales {
		if st.visited >= c.cfg.MaxSweepIterations {
			return StopIterationCap, true
		}
		st.visited++
		c.evaluate(st, rotated, rot, s)
		if st.found && st.best.Confidence > c.cfg.EarlyTermination {
			return StopEarly, true
		}
	}
	return StopExhausted, false
}

// evaluate scores one (rotation, scale) pair and folds it into the running best.
func (c *Controller) evaluate(st *sweepState, rotated *image.Gray, rot int, scale float64) {
	tmpl, err := c.resize(rotated, scale)
	if err != nil {
		st.report.Failed++
		c.debug("sweep.resize_failed", "rotation", rot, "scale", scale, "error", err)
		return
	}
	defer c.release(tmpl, rotated)

	tb, rb := tmpl.Bounds(), st.region.Bounds()
	tw, th := tb.Dx(), tb.Dy()
	if tw >= rb.Dx() || th >= rb.Dy() || tw <= c.cfg.MinTemplateSize || th <= c.cfg.MinTemplateSize {
		st.report.Skipped++
		return
	}

	res, err := c.correlate(st.region, tmpl)
	if err != nil {
		st.report.Failed++
		c.debug("sweep.correlate_failed", "rotation", rot, "scale", scale, "error", err)
		return
	}
	st.report.Evaluated++
	if res.Score < c.cfg.DetectionThreshold {
		return
	}
	if st.found && res.Score <= st.best.Confidence {
		return
	}
	st.best = MatchCandidate{
		Confidence: res.Score,
		Scale:      scale,
		Rotation:   rot,
		X:          st.origin.X + res.Location.X,
		Y:          st.origin.Y + res.Location.Y,
		Width:      tw,
		Height:     th,
	}
	st.found = true
}

// rotate, resize and correlate turn collaborator panics into errors so a bad
// candidate never escapes the sweep.
func (c *Controller) rotate(src *image.Gray, deg int) (out *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("rotate %d: panic: %v", deg, r)
		}
	}()
	out, err = c.xf.Rotate(src, deg)
	if err == nil && out == nil {
		err = fmt.Errorf("rotate %d: nil image", deg)
	}
	return out, err
}

func (c *Controller) resize(src *image.Gray, factor float64) (out *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("resize %.3f: panic: %v", factor, r)
		}
	}()
	out, err = c.xf.Resize(src, factor)
	if err == nil && out == nil {
		err = fmt.Errorf("resize %.3f: nil image", factor)
	}
	return out, err
}

func (c *Controller) correlate(region, tmpl *image.Gray) (res Correlation, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Correlation{}, fmt.Errorf("correlate: panic: %v", r)
		}
	}()
	return c.corr.Correlate(region, tmpl)
}

// release hands a working image back to a pooling transformer. The parent is
// the image it was derived from; identity transforms return the parent and
// must not be released twice.
func (c *Controller) release(img, parent *image.Gray) {
	if c.rel == nil || img == nil || img == parent {
		return
	}
	c.rel.Release(img)
}
