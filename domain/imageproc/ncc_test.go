package imageproc

import (
	"errors"
	"image"
	"testing"
)

func TestNCC_FindsExactCrop(t *testing.T) {
	ref := noiseGray(120, 100, 1)
	tmpl := cropGray(ref, image.Rect(37, 21, 61, 39))
	res, err := NewNCC(1, false).Correlate(ref, tmpl)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if res.Location != image.Pt(37, 21) || res.Score < 0.999 {
		t.Fatalf("expected exact hit at (37,21), got %+v", res)
	}
}

func TestNCC_LocationRelativeToRegion(t *testing.T) {
	ref := noiseGray(120, 100, 2)
	tmpl := cropGray(ref, image.Rect(37, 21, 61, 39))
	region := ref.SubImage(image.Rect(20, 10, 100, 90)).(*image.Gray)
	res, err := NewNCC(1, false).Correlate(region, tmpl)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if res.Location != image.Pt(17, 11) {
		t.Fatalf("location should be relative to the region origin, got %v", res.Location)
	}
}

func TestNCC_StrideWithRefine(t *testing.T) {
	ref := noiseGray(90, 90, 3)
	tmpl := cropGray(ref, image.Rect(36, 21, 56, 41))
	res, err := NewNCC(3, true).Correlate(ref, tmpl)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if res.Location != image.Pt(36, 21) || res.Score < 0.999 {
		t.Fatalf("stride scan missed the crop: %+v", res)
	}
}

func TestNCC_OversizeTemplateScoresZero(t *testing.T) {
	res, err := NewNCC(1, false).Correlate(noiseGray(20, 20, 4), noiseGray(30, 10, 5))
	if err != nil || res.Score != 0 {
		t.Fatalf("expected graceful zero score, got %+v err=%v", res, err)
	}
}

func TestNCC_AntiCorrelationClampsToZero(t *testing.T) {
	tmpl := noiseGray(16, 16, 6)
	inv := image.NewGray(tmpl.Bounds())
	for i, v := range tmpl.Pix {
		inv.Pix[i] = 255 - v
	}
	res, err := NewNCC(1, false).Correlate(inv, tmpl)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if res.Score != 0 {
		t.Fatalf("negative correlation should clamp to 0, got %v", res.Score)
	}
}

func TestNCC_FlatTemplate(t *testing.T) {
	ref := noiseGray(60, 60, 7)
	for y := 7; y < 17; y++ {
		for x := 5; x < 15; x++ {
			ref.Pix[y*ref.Stride+x] = 200
		}
	}
	n := NewNCC(1, false)
	res, err := n.Correlate(ref, uniformGray(8, 8, 200))
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if res.Score != 1 || res.Location != image.Pt(5, 7) {
		t.Fatalf("expected flat patch at (5,7), got %+v", res)
	}
	res, _ = n.Correlate(ref, uniformGray(8, 8, 17))
	if res.Score != 0 {
		t.Fatalf("flat template without an equal window should score 0, got %+v", res)
	}
}

func TestNCC_NilInputs(t *testing.T) {
	if _, err := NewNCC(1, false).Correlate(nil, uniformGray(2, 2, 1)); !errors.Is(err, ErrNilImage) {
		t.Fatalf("expected ErrNilImage, got %v", err)
	}
}

func TestNCC_MemoisesRegion(t *testing.T) {
	ref := noiseGray(40, 40, 8)
	n := NewNCC(1, false)
	n.Correlate(ref, cropGray(ref, image.Rect(0, 0, 10, 10)))
	first := n.lastPre
	n.Correlate(ref, cropGray(ref, image.Rect(5, 5, 15, 15)))
	if n.lastPre != first {
		t.Fatalf("integral images rebuilt for the same region")
	}
	other := noiseGray(40, 40, 9)
	n.Correlate(other, cropGray(other, image.Rect(0, 0, 10, 10)))
	if n.lastPre == first {
		t.Fatalf("memo not refreshed for a new region")
	}
}
