package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/probe-tracker-go/domain/search"
)

// DefaultSessionLogInterval spaces out session duration lines.
const DefaultSessionLogInterval = 5 * time.Second

// LogView renders presenter output as structured log lines. It implements
// the state, session, detection and capture views of the presenters.
type LogView struct {
	logger          *slog.Logger
	sessionInterval time.Duration

	mu          sync.Mutex
	lastSession time.Time
	lastFound   bool
	reported    bool
}

func NewLogView(logger *slog.Logger, sessionInterval time.Duration) *LogView {
	if sessionInterval <= 0 {
		sessionInterval = DefaultSessionLogInterval
	}
	return &LogView{logger: logger, sessionInterval: sessionInterval}
}

func (v *LogView) SetStateLabel(label string) {
	if v == nil || v.logger == nil {
		return
	}
	v.logger.Info("state", "label", label)
}

// SetSession logs durations at most once per session interval.
func (v *LogView) SetSession(session, total, tracked time.Duration) {
	if v == nil || v.logger == nil {
		return
	}
	v.mu.Lock()
	now := time.Now()
	due := v.lastSession.IsZero() || now.Sub(v.lastSession) >= v.sessionInterval
	if due {
		v.lastSession = now
	}
	v.mu.Unlock()
	if !due {
		return
	}
	v.logger.Info("session",
		"session", formatClock(session),
		"total", formatClock(total),
		"tracked", formatClock(tracked),
	)
}

// UpdateDetection logs every hit at debug level and the transitions between
// hit and miss at info level.
func (v *LogView) UpdateDetection(rep search.SweepReport, sequence uint64) {
	if v == nil || v.logger == nil {
		return
	}
	v.mu.Lock()
	changed := !v.reported || v.lastFound != rep.Found
	v.lastFound, v.reported = rep.Found, true
	v.mu.Unlock()

	level := slog.LevelDebug
	if changed {
		level = slog.LevelInfo
	}
	if !rep.Found {
		v.logger.Log(context.Background(), level, "probe.miss",
			"frame", humanize.Comma(int64(sequence)),
			"mode", rep.State.Mode.String(),
			"confidence", humanize.FtoaWithDigits(rep.State.LastConfidence, 3),
		)
		return
	}
	c := rep.Candidate
	v.logger.Log(context.Background(), level, "probe.found",
		"frame", humanize.Comma(int64(sequence)),
		"x", c.X, "y", c.Y,
		"w", c.Width, "h", c.Height,
		"rotation", c.Rotation,
		"scale", c.Scale,
		"confidence", humanize.FtoaWithDigits(c.Confidence, 3),
		"mode", rep.Mode.String(),
		"stable", rep.State.StableCount,
		"sweep", rep.Duration,
	)
}

func (v *LogView) CaptureEnabled(enabled bool) {
	if v == nil || v.logger == nil {
		return
	}
	v.logger.Info("capture", "enabled", enabled)
}

func formatClock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
