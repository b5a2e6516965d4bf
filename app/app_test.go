package app

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/soocke/probe-tracker-go/config"
	"github.com/soocke/probe-tracker-go/domain/capture"
	"github.com/soocke/probe-tracker-go/domain/search"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func noiseReference(seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 160, 160))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// replayConfig writes a reference and three probes cut from it at (60,80),
// turned by 0, 90 and 180 degrees.
func replayConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	ref := noiseReference(7)
	refPath := filepath.Join(dir, "reference.png")
	if err := imaging.Save(ref, refPath); err != nil {
		t.Fatalf("save reference: %v", err)
	}
	probes := filepath.Join(dir, "probes")
	if err := os.MkdirAll(probes, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	crop := imaging.Crop(ref, image.Rect(60, 80, 100, 120))
	frames := []image.Image{crop, imaging.Rotate270(crop), imaging.Rotate180(crop)}
	for i, f := range frames {
		name := filepath.Join(probes, string(rune('a'+i))+".png")
		if err := imaging.Save(f, name); err != nil {
			t.Fatalf("save probe: %v", err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.BlurSigma = 0
	cfg.ReferencePath = refPath
	cfg.ProbeDir = probes
	cfg.CaptureIntervalMillis = 1
	cfg.TickMillis = 1
	cfg.SearchDelayMillis = 1
	return cfg
}

func TestRunReplaysProbeDirectory(t *testing.T) {
	cfg := replayConfig(t)
	c, err := BuildContainer(cfg, testLogger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a := New(c)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("run ended by timeout, not by exhaustion")
	}
	sum := a.Summary()
	if sum.Frames != 3 {
		t.Fatalf("expected 3 frames, got %d", sum.Frames)
	}
	if sum.Errors != 0 {
		t.Fatalf("expected no errors, got %d", sum.Errors)
	}
	if sum.Hits == 0 {
		t.Fatalf("expected at least one hit: %+v", sum)
	}
	if sum.Last == nil || sum.Last.X != 60 || sum.Last.Y != 80 {
		t.Fatalf("unexpected last candidate %+v", sum.Last)
	}
	if c.Controller.SessionID() != "" {
		t.Fatalf("session should end with the run")
	}
	if c.Transformer.Stats().Leased != 0 {
		t.Fatalf("pooled buffers leaked: %+v", c.Transformer.Stats())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := replayConfig(t)
	cfg.ProbeLoop = true
	c, err := BuildContainer(cfg, testLogger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a := New(c)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if c.CaptureSvc.Running() {
		t.Fatalf("capture should stop with the run")
	}
}

func TestRunReloadThenCancel(t *testing.T) {
	cfg := replayConfig(t)
	cfg.ProbeLoop = true
	c, err := BuildContainer(cfg, testLogger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a := New(c)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for c.Detection.Snapshot().Hits == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	a.Reload()
	time.Sleep(5 * time.Millisecond)
	a.Reload()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	if c.Controller.SessionID() != "" {
		t.Fatalf("session should end with the run")
	}
	if a.Summary().Frames == 0 {
		t.Fatalf("summary not recorded: %+v", a.Summary())
	}
}

func TestRunReferenceLoadFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	c, err := BuildContainerWith(cfg, testLogger, capture.GrabberFunc(func() (*image.RGBA, error) {
		return nil, capture.ErrSourceExhausted
	}))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	boom := errors.New("boom")
	a := NewWithLoader(c, func() (image.Image, error) { return nil, boom })
	if err := a.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestRunRejectsUnusableReference(t *testing.T) {
	cfg := config.DefaultConfig()
	c, err := BuildContainerWith(cfg, testLogger, capture.GrabberFunc(func() (*image.RGBA, error) {
		return nil, capture.ErrSourceExhausted
	}))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a := NewWithLoader(c, func() (image.Image, error) { return image.NewGray(image.Rect(0, 0, 0, 0)), nil })
	if err := a.Run(context.Background()); !errors.Is(err, search.ErrEmptyReference) {
		t.Fatalf("expected empty reference error, got %v", err)
	}
}

func TestBuildContainerRejectsUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "opencl"
	if _, err := BuildContainerWith(cfg, testLogger, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildContainerMissingProbeDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ProbeDir = filepath.Join(t.TempDir(), "missing")
	if _, err := BuildContainer(cfg, testLogger); err == nil {
		t.Fatalf("expected error")
	}
}

func TestReloadCoalesces(t *testing.T) {
	a := &App{reload: make(chan struct{}, 1)}
	a.Reload()
	a.Reload()
	if len(a.reload) != 1 {
		t.Fatalf("expected one pending reload, got %d", len(a.reload))
	}
}

