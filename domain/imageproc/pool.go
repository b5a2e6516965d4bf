package imageproc

import (
	"image"
	"sync"
)

// Reusable grayscale working buffers. A sweep rotates and rescales the probe
// dozens of times per frame; pooling keeps those short-lived backing slices
// from piling up between GC cycles. Images obtained from acquireGray must be
// handed back with recycleGray once nothing reads them anymore.

var grayPool sync.Pool // stores *image.Gray

// acquireGray returns a w x h gray image anchored at the origin. Pixel
// contents are undefined; callers overwrite every pixel.
func acquireGray(w, h int) *image.Gray {
	rect := image.Rect(0, 0, w, h)
	if w <= 0 || h <= 0 {
		return &image.Gray{Rect: rect}
	}
	needed := w * h
	var img *image.Gray
	if v := grayPool.Get(); v != nil {
		img = v.(*image.Gray)
	}
	if img == nil || cap(img.Pix) < needed {
		return &image.Gray{Pix: make([]uint8, needed), Stride: w, Rect: rect}
	}
	img.Pix = img.Pix[:needed]
	img.Stride = w
	img.Rect = rect
	return img
}

// recycleGray returns img to the pool. The caller must not touch it afterwards.
func recycleGray(img *image.Gray) {
	if img == nil || img.Pix == nil {
		return
	}
	grayPool.Put(img)
}
