package capture

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff"}

// FileSequence replays image files from a directory in lexical order. After
// the last file it either starts over (Loop) or reports ErrSourceExhausted.
type FileSequence struct {
	Loop bool

	mu    sync.Mutex
	paths []string
	next  int
}

var _ Grabber = (*FileSequence)(nil)

// NewFileSequence lists the images in dir. A directory without images is an error.
func NewFileSequence(dir string, loop bool) (*FileSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("probe dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("probe dir %s: no images", dir)
	}
	slices.Sort(paths)
	return &FileSequence{Loop: loop, paths: paths}, nil
}

// Len is the number of files in one pass.
func (f *FileSequence) Len() int { return len(f.paths) }

func (f *FileSequence) Grab() (*image.RGBA, error) {
	f.mu.Lock()
	if f.next >= len(f.paths) {
		if !f.Loop {
			f.mu.Unlock()
			return nil, ErrSourceExhausted
		}
		f.next = 0
	}
	path := f.paths[f.next]
	f.next++
	f.mu.Unlock()

	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

// LoadImage decodes an image file, honouring EXIF orientation.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return img, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
