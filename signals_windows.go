//go:build windows

package main

import (
	"context"
	"log/slog"

	"github.com/soocke/probe-tracker-go/app"
)

// notifyReload is a no-op; Windows has no hangup signal.
func notifyReload(ctx context.Context, a *app.App, logger *slog.Logger) {}
