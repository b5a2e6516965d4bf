//go:build gocv

package imageproc

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/soocke/probe-tracker-go/domain/search"
)

// GoCV implements the transform and correlation collaborators on OpenCV.
// Every Mat is closed before the call returns; results are Go-owned images.
type GoCV struct{}

func NewGoCV() *GoCV { return &GoCV{} }

var (
	_ search.Transformer = (*GoCV)(nil)
	_ search.Correlator  = (*GoCV)(nil)
)

// Rotate turns src counter-clockwise by degrees onto an enlarged canvas,
// filling uncovered pixels with the source mean.
func (g *GoCV) Rotate(src *image.Gray, degrees int) (*image.Gray, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	deg := normaliseAngle(degrees)
	if deg == 0 {
		return src, nil
	}
	mat, err := matFromGray(src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	w, h := mat.Cols(), mat.Rows()
	sin, cos := math.Sincos(float64(deg) * math.Pi / 180)
	newW := max(1, int(math.Ceil(math.Abs(float64(w)*cos)+math.Abs(float64(h)*sin)-1e-9)))
	newH := max(1, int(math.Ceil(math.Abs(float64(w)*sin)+math.Abs(float64(h)*cos)-1e-9)))

	rot := gocv.GetRotationMatrix2D(image.Pt(w/2, h/2), float64(deg), 1.0)
	defer rot.Close()
	rot.SetDoubleAt(0, 2, rot.GetDoubleAt(0, 2)+float64(newW-w)/2)
	rot.SetDoubleAt(1, 2, rot.GetDoubleAt(1, 2)+float64(newH-h)/2)

	bg := meanGray(src)
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(mat, &dst, rot, image.Pt(newW, newH),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{R: bg, G: bg, B: bg, A: 255})
	if dst.Empty() {
		return nil, fmt.Errorf("gocv rotate %d: empty result", deg)
	}
	return grayFromMat(dst)
}

// Resize scales src with area interpolation for shrinking and cubic otherwise.
func (g *GoCV) Resize(src *image.Gray, factor float64) (*image.Gray, error) {
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
	mat, err := matFromGray(src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	interp := gocv.InterpolationArea
	if factor > 1 {
		interp = gocv.InterpolationCubic
	}
	dst := gocv.NewMat()
	defer dst.Close()
	if err := gocv.Resize(mat, &dst, image.Pt(w, h), 0, 0, interp); err != nil {
		return nil, fmt.Errorf("gocv resize: %w", err)
	}
	return grayFromMat(dst)
}

// Correlate runs TM_CCOEFF_NORMED and reports the maximum, clamped to [0,1].
func (g *GoCV) Correlate(region, template *image.Gray) (search.Correlation, error) {
	if region == nil || template == nil {
		return search.Correlation{}, ErrNilImage
	}
	rb, tb := region.Bounds(), template.Bounds()
	if tb.Empty() || rb.Empty() || tb.Dx() > rb.Dx() || tb.Dy() > rb.Dy() {
		return search.Correlation{}, nil
	}
	rm, err := matFromGray(region)
	if err != nil {
		return search.Correlation{}, err
	}
	defer rm.Close()
	tm, err := matFromGray(template)
	if err != nil {
		return search.Correlation{}, err
	}
	defer tm.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(rm, tm, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		return search.Correlation{}, fmt.Errorf("gocv match: empty result")
	}
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	return search.Correlation{Score: clampScore(float64(maxVal)), Location: maxLoc}, nil
}

// matFromGray copies img into a single-channel Mat, compacting rows when the
// image is a view with a wider stride.
func matFromGray(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(buf[y*w:(y+1)*w], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("gocv mat: %w", err)
	}
	return mat, nil
}

func grayFromMat(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("gocv image: %w", err)
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	return Preprocessor{}.Prepare(img), nil
}
