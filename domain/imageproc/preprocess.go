package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// Preprocessor converts captures to the grayscale, lightly blurred form used
// for matching. The reference and every probe must go through the same
// Preprocessor so intensities are comparable.
type Preprocessor struct {
	BlurSigma float64 // Gaussian sigma; 0 disables denoising
}

// Prepare returns a fresh origin-anchored gray image, or nil for empty input.
func (p Preprocessor) Prepare(img image.Image) *image.Gray {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	g := imaging.Grayscale(img)
	if p.BlurSigma > 0 {
		g = imaging.Blur(g, p.BlurSigma)
	}
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride:]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = row[x*4]
		}
	}
	return out
}
