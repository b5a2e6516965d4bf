package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soocke/probe-tracker-go/config"
	"github.com/soocke/probe-tracker-go/domain/capture"
	"github.com/soocke/probe-tracker-go/domain/imageproc"
	"github.com/soocke/probe-tracker-go/domain/search"
	"github.com/soocke/probe-tracker-go/domain/tracking"
	"github.com/soocke/probe-tracker-go/ui/model"
	"github.com/soocke/probe-tracker-go/ui/presenter"
	"github.com/soocke/probe-tracker-go/ui/view"
)

// AppContainer assembles models, services, presenters and the view.
type AppContainer struct {
	Config     *config.Config
	Logger     *slog.Logger
	Capture    *model.CaptureModel
	Session    *model.SessionModel
	Detection  *model.DetectionModel
	Grabber    capture.Grabber
	CaptureSvc capture.CaptureService
	FSM        tracking.TrackingFSMContract
	View       *view.LogView

	Controller   *search.Controller
	Preprocessor search.Preprocessor
	Transformer  *imageproc.Transformer // nil unless the native backend is used

	// Presenters
	SessionPresenter   *presenter.SessionPresenter
	FSMPresenter       *presenter.FSMPresenter
	DetectionPresenter *presenter.DetectionPresenter
	CapturePresenter   *presenter.CapturePresenter
	Loop               *presenter.Loop
}

// BuildContainer constructs all components with the probe source named by
// cfg: a directory replay when ProbeDir is set, the screen otherwise.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*AppContainer, error) {
	var grabber capture.Grabber
	if cfg.ProbeDir != "" {
		seq, err := capture.NewFileSequence(cfg.ProbeDir, cfg.ProbeLoop)
		if err != nil {
			return nil, err
		}
		grabber = seq
	} else {
		grabber = capture.ScreenGrabber{Selection: cfg.Selection}
	}
	return BuildContainerWith(cfg, logger, grabber)
}

// BuildContainerWith constructs all components around the given probe grabber.
func BuildContainerWith(cfg *config.Config, logger *slog.Logger, grabber capture.Grabber) (*AppContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	collab, xf, err := buildCollaborators(cfg)
	if err != nil {
		return nil, err
	}
	ctrl, err := search.New(cfg.Search, collab, logger)
	if err != nil {
		return nil, fmt.Errorf("search controller: %w", err)
	}

	c := &AppContainer{
		Config:       cfg,
		Logger:       logger,
		Capture:      &model.CaptureModel{},
		Session:      model.NewSessionModel(),
		Detection:    model.NewDetectionModel(),
		Grabber:      grabber,
		Controller:   ctrl,
		Preprocessor: collab.Preprocessor,
		Transformer:  xf,
	}
	c.CaptureSvc = capture.NewCaptureService(logger, grabber, time.Duration(cfg.CaptureIntervalMillis)*time.Millisecond)
	c.FSM = tracking.NewFSM(logger, time.Duration(cfg.LostTimeoutMillis)*time.Millisecond)
	c.View = view.NewLogView(logger, view.DefaultSessionLogInterval)

	c.FSMPresenter = presenter.NewFSMPresenter(c.FSM, c.View)
	c.FSM.AddListener(c.FSMPresenter.OnState)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Capture, c.FSM, c.View)
	c.DetectionPresenter = presenter.NewDetectionPresenter(
		c.Capture.Enabled,
		c.CaptureSvc,
		ctrl,
		collab.Preprocessor,
		c.FSM,
		c.View,
		c.Detection,
		time.Duration(cfg.SearchDelayMillis)*time.Millisecond,
		logger,
	)
	c.CapturePresenter = presenter.NewCapturePresenter(c.Capture, c.CaptureSvc, c.FSM, c.View)
	c.Loop = presenter.NewLoop(c.SessionPresenter, c.FSMPresenter, c.DetectionPresenter, c.FSM, nil)
	return c, nil
}
