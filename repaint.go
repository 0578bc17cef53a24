package stagehand

// PostCommitHook runs after a primary render handler has committed a frame.
type PostCommitHook interface {
	AfterCommit(h *RenderHandler)
}

// PostCommitFunc adapts a function to PostCommitHook.
type PostCommitFunc func(h *RenderHandler)

// AfterCommit calls f(h).
func (f PostCommitFunc) AfterCommit(h *RenderHandler) {
	f(h)
}

// Scheduler runs deferred work on a later turn of the game loop.
type Scheduler interface {
	Defer(fn func())
}

// repaintEpsilon is the opacity drop used to force a repaint.
const repaintEpsilon = 0.001

// RepaintHook lowers the canvas opacity by a negligible amount after each
// auto-cleared commit and restores it on the scheduler's next turn. Some
// compositors show a stale double image of auto-cleared surfaces until the
// surface changes; the opacity toggle forces a fresh composite without a
// visible flash.
//
// The hook is opt-in. No platform detection is done here; install it only
// on targets that need it.
type RepaintHook struct {
	Scheduler Scheduler
}

// AfterCommit implements PostCommitHook.
func (r RepaintHook) AfterCommit(h *RenderHandler) {
	c := h.Canvas()
	if r.Scheduler == nil || c == nil || !h.Config().AutoClear {
		return
	}
	c.Opacity = 1 - repaintEpsilon
	r.Scheduler.Defer(func() {
		c.Opacity = 1
	})
}
