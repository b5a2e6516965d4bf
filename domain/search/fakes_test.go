package search

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// templateMeta tags images produced by fakeWorld with the transform that made them.
type templateMeta struct {
	rot   int
	scale float64
}

// fakeWorld is a deterministic Transformer, Releaser and Correlator. Scores
// are scripted per (rotation, scale) so sweeps can be steered precisely.
type fakeWorld struct {
	mu sync.Mutex

	meta map[*image.Gray]templateMeta

	score  func(m templateMeta) float64
	locate func(m templateMeta, region, tmpl image.Rectangle) image.Point

	rotateErr    map[int]error
	resizeErr    func(m templateMeta) error
	correlateErr func(m templateMeta) error
	panicOn      func(m templateMeta) bool

	rotations []int
	corrCalls []templateMeta
	released  int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		meta:      map[*image.Gray]templateMeta{},
		score:     func(templateMeta) float64 { return 0 },
		rotateErr: map[int]error{},
	}
}

func (w *fakeWorld) Rotate(src *image.Gray, deg int) (*image.Gray, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotations = append(w.rotations, deg)
	if err := w.rotateErr[deg]; err != nil {
		return nil, err
	}
	if deg == 0 {
		return src, nil
	}
	b := src.Bounds()
	nw, nh := b.Dx(), b.Dy()
	if deg%180 == 90 {
		nw, nh = nh, nw
	}
	img := image.NewGray(image.Rect(0, 0, nw, nh))
	w.meta[img] = templateMeta{rot: deg, scale: 1}
	return img, nil
}

func (w *fakeWorld) Resize(src *image.Gray, factor float64) (*image.Gray, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.metaOf(src)
	m.scale = factor
	if w.resizeErr != nil {
		if err := w.resizeErr(m); err != nil {
			return nil, err
		}
	}
	if factor == 1 {
		return src, nil
	}
	b := src.Bounds()
	nw := int(math.Round(float64(b.Dx()) * factor))
	nh := int(math.Round(float64(b.Dy()) * factor))
	img := image.NewGray(image.Rect(0, 0, max(nw, 1), max(nh, 1)))
	w.meta[img] = m
	return img, nil
}

func (w *fakeWorld) Release(img *image.Gray) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.meta[img]; ok {
		delete(w.meta, img)
		w.released++
	}
}

func (w *fakeWorld) Correlate(region, tmpl *image.Gray) (Correlation, error) {
	w.mu.Lock()
	m := w.metaOf(tmpl)
	w.corrCalls = append(w.corrCalls, m)
	w.mu.Unlock()
	if w.panicOn != nil && w.panicOn(m) {
		panic("malformed buffer")
	}
	if w.correlateErr != nil {
		if err := w.correlateErr(m); err != nil {
			return Correlation{}, err
		}
	}
	rb, tb := region.Bounds(), tmpl.Bounds()
	loc := image.Point{}
	if w.locate != nil {
		loc = w.locate(m, rb, tb)
	}
	return Correlation{Score: w.score(m), Location: loc}, nil
}

// metaOf treats untagged images (the probe itself) as rotation 0, scale 1.
func (w *fakeWorld) metaOf(img *image.Gray) templateMeta {
	if m, ok := w.meta[img]; ok {
		return m
	}
	return templateMeta{rot: 0, scale: 1}
}

func (w *fakeWorld) outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.meta)
}

func (w *fakeWorld) resetCalls() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotations = nil
	w.corrCalls = nil
}

// scoreAt returns a scripted score table with a default for unlisted pairs.
func scoreAt(def float64, table map[templateMeta]float64) func(templateMeta) float64 {
	return func(m templateMeta) float64 {
		for k, v := range table {
			if k.rot == m.rot && math.Abs(k.scale-m.scale) < 1e-9 {
				return v
			}
		}
		return def
	}
}

// fixedLocation places every template at reference point p, pulled inside the
// region if needed. Region bounds carry the region origin.
func fixedLocation(p image.Point) func(templateMeta, image.Rectangle, image.Rectangle) image.Point {
	return func(_ templateMeta, rb, tb image.Rectangle) image.Point {
		local := p.Sub(rb.Min)
		local.X = max(0, min(local.X, rb.Dx()-tb.Dx()))
		local.Y = max(0, min(local.Y, rb.Dy()-tb.Dy()))
		return local
	}
}

type fakeReference struct {
	img        *image.Gray
	extractErr error
	extracts   []image.Rectangle
}

func (r *fakeReference) Store(ref *image.Gray) { r.img = ref }
func (r *fakeReference) Clear()                { r.img = nil }

func (r *fakeReference) Bounds() (image.Rectangle, bool) {
	if r.img == nil {
		return image.Rectangle{}, false
	}
	return r.img.Bounds(), true
}

func (r *fakeReference) Extract(rect image.Rectangle) (*image.Gray, error) {
	if r.img == nil {
		return nil, errors.New("no reference")
	}
	if r.extractErr != nil {
		return nil, r.extractErr
	}
	r.extracts = append(r.extracts, rect)
	return r.img.SubImage(rect.Intersect(r.img.Bounds())).(*image.Gray), nil
}

func newTestController(t *testing.T, cfg Config, w *fakeWorld) (*Controller, *fakeReference) {
	t.Helper()
	ref := &fakeReference{}
	c, err := New(cfg, Collaborators{Transformer: w, Correlator: w, Reference: ref}, discardLogger)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := c.InitializeSession(image.NewGray(image.Rect(0, 0, 640, 480))); err != nil {
		t.Fatalf("initialize session: %v", err)
	}
	return c, ref
}

func probe(w, h int) *image.Gray { return image.NewGray(image.Rect(0, 0, w, h)) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
