package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soocke/probe-tracker-go/app"
	"github.com/soocke/probe-tracker-go/assets"
	"github.com/soocke/probe-tracker-go/config"
	"github.com/soocke/probe-tracker-go/debug"
)

func main() {
	configPath := flag.String("config", "config.yaml", "configuration file (.yaml, .yml or .json)")
	reference := flag.String("reference", "", "reference image; empty grabs the screen")
	probes := flag.String("probes", "", "directory of probe images to replay instead of the screen")
	backend := flag.String("backend", "", "matching backend: native or gocv")
	initConfig := flag.Bool("init-config", false, "write an example configuration to -config and exit")
	debugFlag := flag.Bool("debug", false, "enable debug logging and runtime metrics")
	flag.Parse()

	if *initConfig {
		if err := assets.WriteExampleConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "init-config:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", *configPath)
		return
	}

	// Base config from file, falling back to defaults
	cfg, cfgErr := config.Load(*configPath)
	if *reference != "" {
		cfg.ReferencePath = *reference
	}
	if *probes != "" {
		cfg.ProbeDir = *probes
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *debugFlag {
		cfg.Debug = true
	}

	logger := NewLogger(cfg.Level(), cfg.Debug)
	if cfgErr != nil {
		logger.Warn("config load failed, using defaults", "path", *configPath, "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		debug.StartMemLogger(ctx, 2*time.Second, logger)
		debug.StartGoroutineLogger(ctx, 5*time.Second, logger)
	}

	c, err := app.BuildContainer(cfg, logger)
	if err != nil {
		logger.Error("build", "error", err)
		os.Exit(1)
	}
	application := app.New(c)
	notifyReload(ctx, application, logger)

	if err := application.Run(ctx); err != nil {
		logger.Error("run", "error", err)
		os.Exit(1)
	}
}
