package imageproc

import (
	"errors"
	"image"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/soocke/probe-tracker-go/domain/search"
)

const (
	varianceEpsilon = 1e-6
	flatEpsilon     = 1e-9
)

// ErrNilImage is returned when either correlation input is missing.
var ErrNilImage = errors.New("imageproc: nil image")

// regionPrecomp stores region intensities and their summed-area tables
// (integral images). The integrals give O(1) window sum and variance queries.
type regionPrecomp struct {
	gray       []float64 // per pixel intensity (length W*H)
	integral   []float64 // summed-area table of intensity
	integralSq []float64 // summed-area table of intensity squared
	W, H       int
}

// templatePrecomp caches template intensities and summary statistics.
type templatePrecomp struct {
	gray  []float64
	W, H  int
	meanT float64
	stdT  float64
}

// NCC is a zero-mean normalised cross-correlation Correlator. Scores are in
// [0,1]; anti-correlation is reported as 0. With Stride > 1 the scan visits
// every Stride-th placement and, when Refine is set, rescans the neighbourhood
// of the coarse best at full resolution.
//
// The integral images of the most recent region are memoised, so a sweep that
// correlates many templates against one region builds them once.
type NCC struct {
	Stride int
	Refine bool

	mu      sync.Mutex
	lastImg *image.Gray
	lastPre *regionPrecomp
}

// NewNCC returns a correlator with the given scan stride.
func NewNCC(stride int, refine bool) *NCC {
	if stride <= 0 {
		stride = 1
	}
	return &NCC{Stride: stride, Refine: refine}
}

var _ search.Correlator = (*NCC)(nil)

// Correlate returns the best placement of template inside region. Location is
// relative to region.Bounds().Min. Oversized templates score 0.
func (n *NCC) Correlate(region, template *image.Gray) (search.Correlation, error) {
	if region == nil || template == nil {
		return search.Correlation{}, ErrNilImage
	}
	rb, tb := region.Bounds(), template.Bounds()
	if tb.Empty() || rb.Empty() || tb.Dx() > rb.Dx() || tb.Dy() > rb.Dy() {
		return search.Correlation{}, nil
	}
	pre := n.regionPrecomp(region)
	pc := buildTemplatePrecomp(template)
	stride := n.Stride
	if stride <= 0 {
		stride = 1
	}
	if pc.stdT <= flatEpsilon {
		return matchFlat(pre, pc, stride), nil
	}
	x, y, score := scanNCC(pre, pc, stride, n.Refine)
	return search.Correlation{Score: clampScore(score), Location: image.Pt(x, y)}, nil
}

func (n *NCC) regionPrecomp(region *image.Gray) *regionPrecomp {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastImg == region && n.lastPre != nil {
		return n.lastPre
	}
	pre := buildRegionPrecomp(region)
	n.lastImg, n.lastPre = region, pre
	return pre
}

// scanNCC evaluates every stride-th placement and optionally refines around
// the best one.
func scanNCC(pre *regionPrecomp, pc *templatePrecomp, stride int, refine bool) (int, int, float64) {
	W, H := pre.W, pre.H
	w, h := pc.W, pc.H
	bestX, bestY, bestScore := 0, 0, -1.0
	for y := 0; y <= H-h; y += stride {
		for x := 0; x <= W-w; x += stride {
			if s, ok := pre.score(pc, x, y); ok && s > bestScore {
				bestScore, bestX, bestY = s, x, y
			}
		}
	}
	if refine && stride > 1 {
		minY := max(0, bestY-stride)
		maxY := min(H-h, bestY+stride)
		minX := max(0, bestX-stride)
		maxX := min(W-w, bestX+stride)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if s, ok := pre.score(pc, x, y); ok && s > bestScore {
					bestScore, bestX, bestY = s, x, y
				}
			}
		}
	}
	return bestX, bestY, bestScore
}

// score computes the NCC of the template placed with its top-left at (x,y).
// Flat windows have no defined correlation and report ok=false.
func (p *regionPrecomp) score(pc *templatePrecomp, x, y int) (float64, bool) {
	w, h := pc.W, pc.H
	n := float64(w * h)
	sumF := integralSum(p.integral, p.W, x, y, x+w-1, y+h-1)
	sumF2 := integralSum(p.integralSq, p.W, x, y, x+w-1, y+h-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= varianceEpsilon {
		return 0, false
	}
	var sumFT float64
	for py := 0; py < h; py++ {
		off := (y+py)*p.W + x
		sumFT += floats.Dot(p.gray[off:off+w], pc.gray[py*w:(py+1)*w])
	}
	denom := n * math.Sqrt(varF) * pc.stdT
	if denom <= 0 {
		return 0, false
	}
	return (sumFT - n*meanF*pc.meanT) / denom, true
}

// matchFlat handles uniform templates, where NCC is undefined: only an exactly
// equal uniform window counts, with score 1.
func matchFlat(pre *regionPrecomp, pc *templatePrecomp, stride int) search.Correlation {
	ref := pc.gray[0]
	w, h := pc.W, pc.H
	n := float64(w * h)
	for y := 0; y <= pre.H-h; y += stride {
		for x := 0; x <= pre.W-w; x += stride {
			sum := integralSum(pre.integral, pre.W, x, y, x+w-1, y+h-1)
			sumSq := integralSum(pre.integralSq, pre.W, x, y, x+w-1, y+h-1)
			if math.Abs(sum/n-ref) > flatEpsilon || (sumSq-sum*sum/n)/n > varianceEpsilon {
				continue
			}
			return search.Correlation{Score: 1, Location: image.Pt(x, y)}
		}
	}
	return search.Correlation{}
}

func buildRegionPrecomp(img *image.Gray) *regionPrecomp {
	b := img.Bounds()
	W, H := b.Dx(), b.Dy()
	need := W * H
	p := &regionPrecomp{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
	}
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		row := img.Pix[y*img.Stride : y*img.Stride+W]
		for x, v := range row {
			g := float64(v)
			off := y*W + x
			p.gray[off] = g
			rowSum += g
			rowSum2 += g * g
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

func buildTemplatePrecomp(img *image.Gray) *templatePrecomp {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			gray[y*w+x] = float64(v)
		}
	}
	n := float64(w * h)
	sumT := floats.Sum(gray)
	sumT2 := floats.Dot(gray, gray)
	meanT := sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	stdT := 0.0
	if varT > 0 {
		stdT = math.Sqrt(varT)
	}
	return &templatePrecomp{gray: gray, W: w, H: h, meanT: meanT, stdT: stdT}
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}

func clampScore(s float64) float64 {
	switch {
	case s <= 0 || math.IsNaN(s):
		return 0
	case s >= 1:
		return 1
	default:
		return s
	}
}
