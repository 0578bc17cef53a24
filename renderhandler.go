package stagehand

import (
	"errors"
	"math"
)

// RenderHandlerName is the behavior name of render handlers. Any behavior
// whose name starts with it takes part in primary/secondary arbitration.
const RenderHandlerName = "handler-render"

// ErrAlreadyAttached is returned when a render handler is attached twice.
var ErrAlreadyAttached = errors.New("stagehand: render handler already attached")

// RenderLoad is delivered to a newly attached child with MsgRenderLoad so
// it can add its display nodes.
type RenderLoad struct {
	Stage  *Stage
	Canvas *Canvas
	Screen *Screen
}

// PauseRequest is the optional payload of MsgPause and MsgUnpause.
// Duration is in milliseconds.
type PauseRequest struct {
	Duration float64
}

// Option configures a RenderHandler.
type Option func(*RenderHandler)

// WithTelemetry sets the sink that receives the per-tick phase timings.
func WithTelemetry(sink TelemetrySink) Option {
	return func(h *RenderHandler) { h.telemetry = sink }
}

// WithPostCommit appends hooks that run after every committed frame.
func WithPostCommit(hooks ...PostCommitHook) Option {
	return func(h *RenderHandler) { h.hooks = append(h.hooks, hooks...) }
}

// WithScreen attaches the handler's canvas to s instead of a private screen.
func WithScreen(s *Screen) Option {
	return func(h *RenderHandler) { h.screen = s }
}

// WithDevicePixelRatio sets the screen's device pixel ratio on attach.
func WithDevicePixelRatio(r float64) Option {
	return func(h *RenderHandler) { h.dpr = r }
}

// RenderHandler is the behavior that owns one canvas and its stage. It
// drives the per-tick render pass over the owner's children, culls and sorts
// the stage's display nodes, and turns raw pointer input into pick events.
type RenderHandler struct {
	cfg   RenderConfig
	owner *Entity

	screen *Screen
	canvas *Canvas
	stage  *Stage
	dpr    float64

	// camera is the world-space viewport of the last camera update.
	camera         Rect
	scaleX, scaleY float64

	// paused is 0 (running), -1 (paused) or a countdown in ms.
	paused  float64
	primary bool
	frame   uint64

	pending map[string]extraValue
	ready   map[string]any
	msg     RenderMessage
	// fields is reused for the addition payload of a secondary handler.
	fields   map[string]any
	addition RenderAddition
	merged   []string
	// secondaries are stages of secondary handlers committed by the primary.
	secondaries []*Stage

	telemetry TelemetrySink
	hooks     []PostCommitHook

	listeners   []ListenerHandle
	additionSub ListenerHandle
	pointerSubs []CallbackHandle
	following   bool
	lastRaw     RawPointerEvent
}

// NewRenderHandler creates a render handler. It does nothing until it is
// attached with Entity.AddBehavior.
func NewRenderHandler(cfg RenderConfig, opts ...Option) *RenderHandler {
	h := &RenderHandler{
		cfg:     cfg,
		scaleX:  1,
		scaleY:  1,
		pending: make(map[string]extraValue),
		ready:   make(map[string]any),
		fields:  make(map[string]any),
		msg:     RenderMessage{Extra: make(map[string]any)},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.telemetry == nil {
		h.telemetry = NewTelemetry()
	}
	return h
}

// Name implements Behavior.
func (h *RenderHandler) Name() string {
	return RenderHandlerName
}

// Attach implements Behavior. It creates the canvas on the screen, builds the
// stage, subscribes to the owner's messages and re-runs arbitration.
func (h *RenderHandler) Attach(owner *Entity) error {
	if h.owner != nil {
		return ErrAlreadyAttached
	}
	if h.screen == nil {
		h.screen = NewScreen(0, 0)
	}
	if h.dpr > 0 {
		h.screen.SetDevicePixelRatio(h.dpr)
	}
	canvas := NewCanvas(h.cfg.Canvas)
	if err := h.screen.Attach(canvas); err != nil {
		return err
	}
	h.owner = owner
	h.canvas = canvas
	h.stage = NewStage(canvas)
	h.stage.AutoClear = h.cfg.AutoClear

	// Until the first camera update the viewport is the canvas itself.
	cw, ch := canvas.ClientSize()
	h.applyCamera(&CameraUpdate{Viewport: Rect{Width: cw, Height: ch}})

	h.listeners = append(h.listeners,
		owner.On(MsgChildAdded, h.handleChildAdded),
		owner.On(MsgTick, h.handleTick),
		owner.On(MsgCameraUpdate, h.handleCameraUpdate),
		owner.On(MsgPause, h.handlePause),
		owner.On(MsgUnpause, h.handleUnpause),
	)
	if h.cfg.Input.Enabled() {
		h.pointerSubs = append(h.pointerSubs,
			h.stage.OnPointerDown(h.handlePointerDown),
			h.stage.OnPointerUp(h.handlePointerUp),
			h.stage.OnPointerMove(h.handlePointerMove),
		)
	}

	arbitrate(owner)
	Logger().Debug("render handler attached",
		"owner", owner.ID, "canvas", canvas.ID, "primary", h.primary)
	return nil
}

// Destroy implements Behavior. It detaches every listener, disposes the stage
// and removes the canvas from its screen. Later messages are no-ops.
func (h *RenderHandler) Destroy() {
	if h.stage == nil {
		return
	}
	for _, l := range h.listeners {
		l.Remove()
	}
	h.listeners = nil
	h.additionSub.Remove()
	h.additionSub = ListenerHandle{}
	for _, p := range h.pointerSubs {
		p.Remove()
	}
	h.pointerSubs = nil
	h.following = false

	h.stage.Dispose()
	h.stage = nil
	h.canvas.Detach()
	clear(h.pending)
	clear(h.ready)
	clear(h.msg.Extra)
	h.secondaries = nil
	h.primary = false

	if h.owner != nil {
		arbitrate(h.owner)
		Logger().Debug("render handler destroyed", "owner", h.owner.ID, "canvas", h.canvas.ID)
	}
}

// Stage returns the handler's stage, or nil before attach and after destroy.
func (h *RenderHandler) Stage() *Stage {
	return h.stage
}

// Canvas returns the handler's canvas.
func (h *RenderHandler) Canvas() *Canvas {
	return h.canvas
}

// Screen returns the screen the canvas is attached to.
func (h *RenderHandler) Screen() *Screen {
	return h.screen
}

// Config returns the configuration the handler was created with.
func (h *RenderHandler) Config() RenderConfig {
	return h.cfg
}

// Primary reports whether this handler dispatches render messages and
// commits frames.
func (h *RenderHandler) Primary() bool {
	return h.primary
}

// Camera returns the world-space viewport of the last camera update.
func (h *RenderHandler) Camera() Rect {
	return h.camera
}

// PauseState returns 0 when running, -1 when paused indefinitely, or the
// remaining pause countdown in milliseconds.
func (h *RenderHandler) PauseState() float64 {
	return h.paused
}

// Paused reports whether the handler currently pauses its display nodes.
func (h *RenderHandler) Paused() bool {
	return h.paused != 0
}

// handleChildAdded gives a new child the stage it should draw into.
func (h *RenderHandler) handleChildAdded(payload any) {
	child, ok := payload.(*Entity)
	if !ok || child == nil || h.stage == nil {
		return
	}
	child.Trigger(MsgRenderLoad, &RenderLoad{Stage: h.stage, Canvas: h.canvas, Screen: h.screen})
}

// handlePause pauses indefinitely, or for Duration ms when given.
func (h *RenderHandler) handlePause(payload any) {
	if req, ok := payload.(*PauseRequest); ok && req != nil && req.Duration > 0 {
		h.paused = req.Duration
		return
	}
	h.paused = -1
}

// handleUnpause resumes immediately. With a Duration while paused, the
// pause instead ends after Duration ms.
func (h *RenderHandler) handleUnpause(payload any) {
	if req, ok := payload.(*PauseRequest); ok && req != nil && req.Duration > 0 && h.paused != 0 {
		h.paused = req.Duration
		return
	}
	h.paused = 0
}

// sanitizeScale treats zero or non-finite scales as 1.
func sanitizeScale(s float64) float64 {
	if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}
