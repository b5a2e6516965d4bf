package presenter

// CaptureModel provides enabled state access.
type CaptureModel interface {
	Enabled() bool
	SetEnabled(bool)
}

// LifecycleContract narrows what presenter needs from the capture layer.
type LifecycleContract interface {
	Start()
	Stop()
}

// CaptureFSM exposes the start and halt events of the tracking FSM.
type CaptureFSM interface {
	EventStart()
	EventHalt()
}

// CaptureView is told when capture is switched on or off.
// State label updates are owned solely by FSMPresenter.
type CaptureView interface {
	CaptureEnabled(bool)
}

// CapturePresenter owns presentation logic for toggling capture state.
type CapturePresenter struct {
	model   CaptureModel
	service LifecycleContract
	fsm     CaptureFSM
	view    CaptureView
}

func NewCapturePresenter(model CaptureModel, service LifecycleContract, fsm CaptureFSM, view CaptureView) *CapturePresenter {
	return &CapturePresenter{model: model, service: service, fsm: fsm, view: view}
}

// Enable starts the capture service and moves the FSM to searching. Idempotent.
func (c *CapturePresenter) Enable() {
	if c == nil || c.model == nil || c.service == nil || c.view == nil || c.fsm == nil {
		return
	}
	if c.model.Enabled() { // already enabled
		return
	}
	c.service.Start()
	c.model.SetEnabled(true)
	c.fsm.EventStart()
	c.view.CaptureEnabled(true)
}

// Disable stops the capture service and halts the FSM. Idempotent.
func (c *CapturePresenter) Disable() {
	if c == nil || c.model == nil || c.service == nil || c.view == nil || c.fsm == nil {
		return
	}
	if !c.model.Enabled() { // already disabled
		return
	}
	c.service.Stop()
	c.model.SetEnabled(false)
	c.fsm.EventHalt()
	c.view.CaptureEnabled(false)
}

// Toggle flips enabled state delegating to Enable/Disable.
func (c *CapturePresenter) Toggle() {
	if c == nil || c.model == nil || c.service == nil || c.view == nil || c.fsm == nil {
		return
	}
	if c.model.Enabled() {
		c.Disable()
		return
	}
	c.Enable()
}
