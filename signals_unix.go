//go:build !windows

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/soocke/probe-tracker-go/app"
)

// notifyReload reloads the reference on SIGHUP until ctx is done.
func notifyReload(ctx context.Context, a *app.App, logger *slog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGHUP)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				logger.Info("reload requested")
				a.Reload()
			}
		}
	}()
}
