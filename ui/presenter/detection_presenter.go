package presenter

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/soocke/probe-tracker-go/domain/capture"
	"github.com/soocke/probe-tracker-go/domain/search"
	"github.com/soocke/probe-tracker-go/ui/model"
)

// DefaultSearchDelay is the minimum spacing between two dispatched probes.
const DefaultSearchDelay = 65 * time.Millisecond

// FrameSource supplies the most recent probe capture.
type FrameSource interface {
	LatestFrame() capture.FrameSnapshot
}

// Detector runs one adaptive search for a prepared probe and accepts
// replacement references between searches.
type Detector interface {
	DetectDetailed(probe *image.Gray) (search.SweepReport, error)
	InitializeSession(reference image.Image) error
}

// ProbePreparer converts a raw capture into the form the detector matches on.
type ProbePreparer interface {
	Prepare(img image.Image) *image.Gray
}

// DetectionFSM exposes the minimal tracking operations used by the presenter.
type DetectionFSM interface {
	EventMatchAt(x, y int)
	EventMiss()
	EventReferenceReplaced()
}

// DetectionView describes the surface updated with each sweep.
type DetectionView interface {
	UpdateDetection(rep search.SweepReport, sequence uint64)
}

type detectionTaskKind int

const (
	detectionTaskSearch detectionTaskKind = iota + 1
	detectionTaskReference
)

type detectionTask struct {
	kind      detectionTaskKind
	snapshot  capture.FrameSnapshot
	reference image.Image
}

type detectionResult struct {
	kind     detectionTaskKind
	sequence uint64
	report   search.SweepReport
	err      error
}

// DetectionPresenter drives detection from captured frames. ProcessFrame is
// called from a single ticking goroutine; the detector itself runs on one
// worker goroutine and never sees two probes at once. Frames that arrive
// while the worker is busy are dropped in favour of the next fresh one.
// Reference replacements run on the same worker, between searches.
type DetectionPresenter struct {
	Enabled  func() bool
	Source   FrameSource
	Detector Detector
	Preparer ProbePreparer
	FSM      DetectionFSM
	View     DetectionView
	Model    *model.DetectionModel
	logger   *slog.Logger

	workerOnce sync.Once
	closeOnce  sync.Once
	workerWG   sync.WaitGroup
	done       chan struct{}
	workCh     chan detectionTask
	refCh      chan detectionTask
	resultCh   chan detectionResult
	busy       atomic.Bool
	refPending atomic.Bool

	lastSeq        uint64
	lastSearchTime time.Time
	searchDelay    time.Duration
}

// NewDetectionPresenter constructs a detection presenter. A non-positive
// searchDelay selects DefaultSearchDelay.
func NewDetectionPresenter(enabled func() bool, source FrameSource, detector Detector, preparer ProbePreparer, fsm DetectionFSM, view DetectionView, m *model.DetectionModel, searchDelay time.Duration, logger *slog.Logger) *DetectionPresenter {
	if searchDelay <= 0 {
		searchDelay = DefaultSearchDelay
	}
	return &DetectionPresenter{
		Enabled:     enabled,
		Source:      source,
		Detector:    detector,
		Preparer:    preparer,
		FSM:         fsm,
		View:        view,
		Model:       m,
		logger:      logger,
		done:        make(chan struct{}),
		workCh:      make(chan detectionTask, 1),
		refCh:       make(chan detectionTask, 1),
		resultCh:    make(chan detectionResult, 1),
		searchDelay: searchDelay,
	}
}

// ProcessFrame handles finished sweeps and schedules the latest frame when
// the worker is free.
func (p *DetectionPresenter) ProcessFrame() {
	if p == nil || p.Enabled == nil || p.Source == nil || p.Detector == nil {
		return
	}

	p.ensureWorker()
	p.drainResults()

	if !p.Enabled() {
		return
	}
	snapshot := p.Source.LatestFrame()
	if snapshot.Image == nil || snapshot.Sequence == 0 || snapshot.Sequence == p.lastSeq {
		return
	}
	if !p.lastSearchTime.IsZero() && time.Since(p.lastSearchTime) < p.searchDelay {
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		if p.Model != nil {
			p.Model.RecordDropped()
		}
		return
	}
	p.lastSeq = snapshot.Sequence
	p.lastSearchTime = time.Now()
	// busy guarantees the buffered slot is free.
	p.workCh <- detectionTask{kind: detectionTaskSearch, snapshot: snapshot}
}

// ReplaceReference queues a new reference for the detector. Only the most
// recent pending replacement is kept.
func (p *DetectionPresenter) ReplaceReference(ref image.Image) {
	if p == nil || p.Detector == nil || ref == nil {
		return
	}
	p.ensureWorker()
	p.refPending.Store(true)
	task := detectionTask{kind: detectionTaskReference, reference: ref}
	select {
	case p.refCh <- task:
	default:
		select {
		case <-p.refCh:
		default:
		}
		select {
		case p.refCh <- task:
		default:
		}
	}
}

// Drained reports whether the latest frame has been searched and its result
// handled.
func (p *DetectionPresenter) Drained() bool {
	if p == nil {
		return true
	}
	if p.busy.Load() || p.refPending.Load() || len(p.resultCh) > 0 {
		return false
	}
	if p.Source == nil {
		return true
	}
	snap := p.Source.LatestFrame()
	return snap.Image == nil || snap.Sequence == p.lastSeq
}

// Close stops the worker and waits for an in-flight search to finish.
// Pending results are discarded.
func (p *DetectionPresenter) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() { close(p.done) })
	p.workerWG.Wait()
}

func (p *DetectionPresenter) ensureWorker() {
	p.workerOnce.Do(func() {
		p.workerWG.Add(1)
		go p.runWorker()
	})
}

func (p *DetectionPresenter) drainResults() {
	for {
		select {
		case res := <-p.resultCh:
			p.handleResult(res)
		default:
			return
		}
	}
}

func (p *DetectionPresenter) runWorker() {
	defer p.workerWG.Done()
	for {
		select {
		case <-p.done:
			return
		case task := <-p.refCh:
			if !p.deliver(p.executeTask(task)) {
				return
			}
		case task := <-p.workCh:
			if !p.deliver(p.executeTask(task)) {
				return
			}
			p.busy.Store(false)
		}
	}
}

func (p *DetectionPresenter) deliver(res detectionResult) bool {
	select {
	case p.resultCh <- res:
		return true
	case <-p.done:
		return false
	}
}

func (p *DetectionPresenter) executeTask(task detectionTask) (res detectionResult) {
	res.kind = task.kind
	res.sequence = task.snapshot.Sequence
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("detect panic: %v", r)
		}
	}()
	if task.kind == detectionTaskReference {
		res.err = p.Detector.InitializeSession(task.reference)
		return res
	}
	frame := task.snapshot.Image
	if frame == nil {
		res.err = errors.New("nil frame")
		return res
	}
	var probe *image.Gray
	if p.Preparer != nil {
		probe = p.Preparer.Prepare(frame)
	}
	if probe == nil {
		res.err = errors.New("probe preparation failed")
		return res
	}
	res.report, res.err = p.Detector.DetectDetailed(probe)
	return res
}

func (p *DetectionPresenter) handleResult(res detectionResult) {
	if res.kind == detectionTaskReference {
		p.handleReference(res)
		return
	}
	if res.err != nil {
		if p.Model != nil {
			p.Model.RecordError()
		}
		if p.logger != nil {
			p.logger.Error("detection", "sequence", res.sequence, "error", res.err)
		}
		return
	}
	rep := res.report
	if p.Model != nil {
		p.Model.Record(rep)
	}
	if p.FSM != nil {
		if rep.Found {
			p.FSM.EventMatchAt(rep.Candidate.X, rep.Candidate.Y)
		} else {
			p.FSM.EventMiss()
		}
	}
	if p.View != nil {
		p.View.UpdateDetection(rep, res.sequence)
	}
}

func (p *DetectionPresenter) handleReference(res detectionResult) {
	if len(p.refCh) == 0 {
		p.refPending.Store(false)
	}
	if res.err != nil {
		if p.Model != nil {
			p.Model.RecordError()
		}
		if p.logger != nil {
			p.logger.Error("reference replace", "error", res.err)
		}
		return
	}
	// Search the current frame again against the new reference.
	p.lastSeq = 0
	p.lastSearchTime = time.Time{}
	if p.FSM != nil {
		p.FSM.EventReferenceReplaced()
	}
	if p.logger != nil {
		p.logger.Info("reference replaced")
	}
}
