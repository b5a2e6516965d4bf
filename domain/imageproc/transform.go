package imageproc

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"
)

// DefaultRotationCacheSize bounds the number of cached rotation plans.
const DefaultRotationCacheSize = 64

var (
	ErrEmptyImage   = errors.New("imageproc: empty image")
	ErrInvalidScale = errors.New("imageproc: scale factor must be positive and finite")
)

type planKey struct{ angle, w, h int }

// rotationPlan maps each destination pixel of a rotated canvas back to a
// source coordinate. A plan depends only on the angle and the source size, so
// one plan serves every probe with the same dimensions. Plans are never
// mutated after construction and may be shared between goroutines.
type rotationPlan struct {
	w, h       int
	srcW, srcH int
	sx, sy     []float32 // sx < 0 marks background
}

// TransformStats reports cache effectiveness and outstanding buffers.
type TransformStats struct {
	PlanHits   uint64
	PlanMisses uint64
	Leased     int
}

// Transformer rotates and rescales grayscale probes into pooled buffers.
// Quarter turns are exact; other angles use cached bilinear rotation plans
// and fill uncovered canvas with the mean intensity of the source.
// Shrinking uses area averaging, enlarging uses Catmull-Rom.
type Transformer struct {
	plans  *lru.Cache[planKey, *rotationPlan]
	hits   atomic.Uint64
	misses atomic.Uint64

	mu     sync.Mutex
	leased map[*image.Gray]struct{}
}

// NewTransformer builds a transformer whose plan cache holds cacheSize entries.
func NewTransformer(cacheSize int) (*Transformer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultRotationCacheSize
	}
	plans, err := lru.New[planKey, *rotationPlan](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("rotation cache: %w", err)
	}
	return &Transformer{plans: plans, leased: map[*image.Gray]struct{}{}}, nil
}

// Rotate turns src counter-clockwise by degrees. Zero returns src itself.
func (t *Transformer) Rotate(src *image.Gray, degrees int) (*image.Gray, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	deg := normaliseAngle(degrees)
	switch deg {
	case 0:
		return src, nil
	case 90:
		return t.fromNRGBA(imaging.Rotate90(src)), nil
	case 180:
		return t.fromNRGBA(imaging.Rotate180(src)), nil
	case 270:
		return t.fromNRGBA(imaging.Rotate270(src)), nil
	}
	b := src.Bounds()
	plan := t.plan(planKey{angle: deg, w: b.Dx(), h: b.Dy()})
	out := t.lease(plan.w, plan.h)
	plan.apply(src, out)
	return out, nil
}

// Resize scales src by factor. Output dimensions are rounded and at least 1.
// A factor that leaves the size unchanged returns src itself.
func (t *Transformer) Resize(src *image.Gray, factor float64) (*image.Gray, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, ErrInvalidScale
	}
	b := src.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	if w == b.Dx() && h == b.Dy() {
		return src, nil
	}
	if factor < 1 {
		return t.fromNRGBA(imaging.Resize(src, w, h, imaging.Box)), nil
	}
	out := t.lease(w, h)
	draw.CatmullRom.Scale(out, out.Bounds(), src, b, draw.Src, nil)
	return out, nil
}

// Release recycles a buffer previously returned by Rotate or Resize. Images
// the transformer did not allocate are ignored.
func (t *Transformer) Release(img *image.Gray) {
	if img == nil {
		return
	}
	t.mu.Lock()
	_, ok := t.leased[img]
	delete(t.leased, img)
	t.mu.Unlock()
	if ok {
		recycleGray(img)
	}
}

// Stats returns plan cache counters and the number of unreleased buffers.
func (t *Transformer) Stats() TransformStats {
	t.mu.Lock()
	leased := len(t.leased)
	t.mu.Unlock()
	return TransformStats{PlanHits: t.hits.Load(), PlanMisses: t.misses.Load(), Leased: leased}
}

func (t *Transformer) lease(w, h int) *image.Gray {
	img := acquireGray(w, h)
	t.mu.Lock()
	t.leased[img] = struct{}{}
	t.mu.Unlock()
	return img
}

// fromNRGBA copies the red channel of a gray-valued NRGBA into a pooled buffer.
func (t *Transformer) fromNRGBA(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	out := t.lease(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = row[x*4]
		}
	}
	return out
}

func (t *Transformer) plan(k planKey) *rotationPlan {
	if p, ok := t.plans.Get(k); ok {
		t.hits.Add(1)
		return p
	}
	t.misses.Add(1)
	p := buildPlan(k)
	t.plans.Add(k, p)
	return p
}

func buildPlan(k planKey) *rotationPlan {
	sin, cos := math.Sincos(float64(k.angle) * math.Pi / 180)
	w, h := float64(k.w), float64(k.h)
	dw := max(1, int(math.Ceil(math.Abs(w*cos)+math.Abs(h*sin)-1e-9)))
	dh := max(1, int(math.Ceil(math.Abs(w*sin)+math.Abs(h*cos)-1e-9)))
	p := &rotationPlan{
		w: dw, h: dh,
		srcW: k.w, srcH: k.h,
		sx: make([]float32, dw*dh),
		sy: make([]float32, dw*dh),
	}
	cxD, cyD := float64(dw)/2, float64(dh)/2
	cxS, cyS := w/2, h/2
	for y := 0; y < dh; y++ {
		dy := float64(y) + 0.5 - cyD
		for x := 0; x < dw; x++ {
			dx := float64(x) + 0.5 - cxD
			// Inverse of a counter-clockwise turn with y pointing down.
			sx := dx*cos - dy*sin + cxS - 0.5
			sy := dx*sin + dy*cos + cyS - 0.5
			i := y*dw + x
			if sx < -0.5 || sy < -0.5 || sx > w-0.5 || sy > h-0.5 {
				p.sx[i] = -1
				continue
			}
			p.sx[i] = float32(math.Min(math.Max(sx, 0), w-1))
			p.sy[i] = float32(math.Min(math.Max(sy, 0), h-1))
		}
	}
	return p
}

func (p *rotationPlan) apply(src, dst *image.Gray) {
	bg := meanGray(src)
	for y := 0; y < p.h; y++ {
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+p.w]
		for x := range drow {
			i := y*p.w + x
			fx := p.sx[i]
			if fx < 0 {
				drow[x] = bg
				continue
			}
			fy := p.sy[i]
			x0, y0 := int(fx), int(fy)
			x1, y1 := min(x0+1, p.srcW-1), min(y0+1, p.srcH-1)
			ax, ay := fx-float32(x0), fy-float32(y0)
			r0 := src.Pix[y0*src.Stride:]
			r1 := src.Pix[y1*src.Stride:]
			top := float32(r0[x0])*(1-ax) + float32(r0[x1])*ax
			bot := float32(r1[x0])*(1-ax) + float32(r1[x1])*ax
			drow[x] = uint8(top*(1-ay) + bot*ay + 0.5)
		}
	}
}

func meanGray(img *image.Gray) uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+w] {
			sum += uint64(v)
		}
	}
	return uint8(sum / uint64(w*h))
}

func normaliseAngle(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
