package stagehand

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Stage is the scene-graph root drawn into one canvas. It owns the root
// display node, the presentation transform, and the stage-level pointer
// listeners.
type Stage struct {
	root   *Node
	canvas *Canvas

	// transform maps world coordinates to canvas pixels.
	transform [6]float64

	// ScaleX and ScaleY are the per-axis world scale of the current camera.
	ScaleX, ScaleY float64
	// AutoClear clears the canvas before each Update draws into it.
	AutoClear bool
	// ScreenshotDir is where Screenshot writes its PNG files.
	ScreenshotDir string

	// Input state
	handlers     handlerRegistry
	pointers     [maxPointers]pointerState
	hitBuf       []*Node
	touchMap     [maxPointers]ebiten.TouchID
	touchUsed    [maxPointers]bool
	prevTouchIDs []ebiten.TouchID
	injectQueue  []syntheticPointerEvent
	testRunner   *TestRunner

	screenshotQueue []string

	disposed bool
}

// NewStage creates a stage drawing into canvas. canvas may be nil, in which
// case Update advances nodes without drawing.
func NewStage(canvas *Canvas) *Stage {
	root := NewContainer("stage")
	root.Interactable = true
	s := &Stage{
		root:      root,
		canvas:    canvas,
		transform: identityTransform,
		ScaleX:    1,
		ScaleY:    1,
		AutoClear: true,

		ScreenshotDir: DefaultScreenshotDir,
	}
	if canvas != nil {
		canvas.stage = s
	}
	return s
}

// Root returns the stage's root container node.
func (s *Stage) Root() *Node {
	return s.root
}

// Canvas returns the canvas the stage draws into.
func (s *Stage) Canvas() *Canvas {
	return s.canvas
}

// AddChild adds a display node to the stage.
func (s *Stage) AddChild(n *Node) {
	s.root.AddChild(n)
}

// RemoveChild removes a display node from the stage.
func (s *Stage) RemoveChild(n *Node) {
	s.root.RemoveChild(n)
}

// Children returns the top-level display nodes in draw order.
// The returned slice MUST NOT be mutated.
func (s *Stage) Children() []*Node {
	return s.root.children
}

// SortDirty reports whether a top-level node was added, removed or changed
// depth since the last SortChildren.
func (s *Stage) SortDirty() bool {
	return s.root.orderDirty
}

// MarkSortDirty requests a re-sort of the top-level nodes.
func (s *Stage) MarkSortDirty() {
	s.root.orderDirty = true
}

// SortChildren stably sorts the top-level nodes by ascending Z.
func (s *Stage) SortChildren() {
	s.root.SortChildren()
}

// SetTransform sets the presentation transform (world → canvas pixels).
func (s *Stage) SetTransform(m [6]float64) {
	s.transform = m
}

// Transform returns the presentation transform.
func (s *Stage) Transform() [6]float64 {
	return s.transform
}

// RefreshTransforms recomputes world transforms of dirty nodes so bounds and
// hit tests see this frame's positions.
func (s *Stage) RefreshTransforms() {
	updateWorldTransform(s.root, identityTransform, 1.0, false)
}

// Update commits a frame: it advances OnUpdate callbacks of nodes that are
// not paused and draws the tree into the canvas. delta is in milliseconds.
func (s *Stage) Update(delta float64) {
	if s.disposed {
		return
	}
	s.RefreshTransforms()
	advanceNodes(s.root, delta)

	if s.canvas == nil {
		return
	}
	target := s.canvas.Image()
	if target == nil {
		return
	}
	if s.AutoClear {
		target.Clear()
	}
	s.draw(target)
	s.flushScreenshots(target)
}

// advanceNodes calls OnUpdate and advances playing tweens depth-first,
// skipping paused subtrees.
func advanceNodes(n *Node, delta float64) {
	if n.Paused {
		return
	}
	if n.OnUpdate != nil {
		n.OnUpdate(delta)
	}
	if len(n.tweens) > 0 {
		n.advanceTweens(delta)
	}
	for _, child := range n.children {
		advanceNodes(child, delta)
	}
}

// Dispose detaches every stage-level listener and drops the canvas link.
// Display nodes are left to their owners. Later Updates are no-ops.
func (s *Stage) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.handlers = handlerRegistry{}
	s.injectQueue = nil
	s.testRunner = nil
	s.screenshotQueue = nil
	if s.canvas != nil && s.canvas.stage == s {
		s.canvas.stage = nil
	}
	s.canvas = nil
}

// IsDisposed reports whether Dispose has been called.
func (s *Stage) IsDisposed() bool {
	return s.disposed
}
