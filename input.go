package stagehand

import (
	"github.com/hajimehoshi/ebiten/v2"
)

const maxPointers = 10 // pointer 0 = mouse, 1-9 = touch

// --- Built-in HitShape types ---

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// HitPolygon is a convex polygon hit area in local coordinates.
// Points must define a convex polygon in either winding order.
type HitPolygon struct {
	Points []Vec2
}

// Contains reports whether (x, y) lies inside a convex polygon using cross-product sign test.
func (p HitPolygon) Contains(x, y float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	var positive, negative bool
	for i := 0; i < n; i++ {
		x1, y1 := p.Points[i].X, p.Points[i].Y
		j := (i + 1) % n
		x2, y2 := p.Points[j].X, p.Points[j].Y

		cross := (x2-x1)*(y-y1) - (y2-y1)*(x-x1)
		if cross > 0 {
			positive = true
		} else if cross < 0 {
			negative = true
		}
		if positive && negative {
			return false
		}
	}
	return true
}

// --- Raw pointer events ---

// RawPointerEvent is a pointer event as the stage sees it: coordinates are
// device pixels relative to the canvas origin, before any camera mapping.
type RawPointerEvent struct {
	Phase     PointerPhase
	StageX    float64
	StageY    float64
	PointerID int
	Touch     bool
	Button    MouseButton
	Modifiers KeyModifiers
	// Pressed reports whether the pointer is engaged after this event.
	Pressed bool
}

type pointerState struct {
	down   bool
	lastX  float64
	lastY  float64
	button MouseButton // button captured at press time
}

// --- Handler registry ---

type pointerHandler struct {
	id uint32
	fn func(RawPointerEvent)
}

type handlerRegistry struct {
	down   []pointerHandler
	up     []pointerHandler
	move   []pointerHandler
	nextID uint32
}

// CallbackHandle allows removing a registered stage-level listener.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	phase PointerPhase
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.phase {
	case PointerDown:
		h.reg.down = removePointerHandler(h.reg.down, h.id)
	case PointerUp:
		h.reg.up = removePointerHandler(h.reg.up, h.id)
	case PointerMove:
		h.reg.move = removePointerHandler(h.reg.move, h.id)
	}
}

func removePointerHandler(s []pointerHandler, id uint32) []pointerHandler {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = pointerHandler{}
			return s[:len(s)-1]
		}
	}
	return s
}

func (s *Stage) register(phase PointerPhase, fn func(RawPointerEvent)) CallbackHandle {
	s.handlers.nextID++
	id := s.handlers.nextID
	h := pointerHandler{id: id, fn: fn}
	switch phase {
	case PointerDown:
		s.handlers.down = append(s.handlers.down, h)
	case PointerUp:
		s.handlers.up = append(s.handlers.up, h)
	case PointerMove:
		s.handlers.move = append(s.handlers.move, h)
	}
	return CallbackHandle{id: id, reg: &s.handlers, phase: phase}
}

// OnPointerDown registers a stage-level listener for presses.
func (s *Stage) OnPointerDown(fn func(RawPointerEvent)) CallbackHandle {
	return s.register(PointerDown, fn)
}

// OnPointerUp registers a stage-level listener for releases.
func (s *Stage) OnPointerUp(fn func(RawPointerEvent)) CallbackHandle {
	return s.register(PointerUp, fn)
}

// OnPointerMove registers a stage-level listener for movement, pressed or not.
func (s *Stage) OnPointerMove(fn func(RawPointerEvent)) CallbackHandle {
	return s.register(PointerMove, fn)
}

// DispatchPointer delivers ev to the stage listeners of its phase.
func (s *Stage) DispatchPointer(ev RawPointerEvent) {
	if s.disposed {
		return
	}
	var hs []pointerHandler
	switch ev.Phase {
	case PointerDown:
		hs = s.handlers.down
	case PointerUp:
		hs = s.handlers.up
	case PointerMove:
		hs = s.handlers.move
	}
	for _, h := range hs {
		h.fn(ev)
	}
}

// --- Hit testing ---

// nodeContainsLocal tests whether (lx, ly) falls inside a node's hit region.
// Uses HitShape if set; otherwise the node's size.
func nodeContainsLocal(n *Node, lx, ly float64) bool {
	if n.HitShape != nil {
		return n.HitShape.Contains(lx, ly)
	}
	w, h := n.Size()
	if w == 0 && h == 0 {
		return false
	}
	return lx >= 0 && lx <= w && ly >= 0 && ly <= h
}

// collectInteractable walks the tree in draw order, appending interactable
// nodes to buf. Skips invisible, hidden or non-interactable subtrees.
func collectInteractable(n *Node, buf []*Node) []*Node {
	if !n.Visible || n.Hidden || !n.Interactable {
		return buf
	}
	buf = append(buf, n)
	for _, child := range n.children {
		buf = collectInteractable(child, buf)
	}
	return buf
}

// HitTest returns the topmost interactable node containing the world point,
// or nil. World transforms must be current.
func (s *Stage) HitTest(wx, wy float64) *Node {
	s.hitBuf = collectInteractable(s.root, s.hitBuf[:0])
	// Reverse draw order: topmost node first. Index 0 is the root itself.
	for i := len(s.hitBuf) - 1; i >= 1; i-- {
		n := s.hitBuf[i]
		lx, ly := n.WorldToLocal(wx, wy)
		if nodeContainsLocal(n, lx, ly) {
			return n
		}
	}
	return nil
}

// --- Input polling ---

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// canvasOrigin returns the canvas offset on the screen image in device pixels.
func (s *Stage) canvasOrigin() (float64, float64) {
	if s.canvas == nil || s.canvas.screen == nil {
		return 0, 0
	}
	dpr := s.canvas.screen.dpr
	return s.canvas.X * dpr, s.canvas.Y * dpr
}

// ProcessInput polls mouse and touch state once and dispatches the resulting
// raw events. A queued synthetic event replaces real input for the frame.
func (s *Stage) ProcessInput() {
	if s.disposed {
		return
	}
	mods := readModifiers()
	if s.testRunner != nil {
		s.testRunner.step(s)
	}
	if s.processInjectedInput(mods) {
		return
	}
	s.processMousePointer(mods)
	s.processTouchPointers(mods)
}

// processMousePointer handles mouse input (pointer 0).
func (s *Stage) processMousePointer(mods KeyModifiers) {
	mx, my := ebiten.CursorPosition()
	ox, oy := s.canvasOrigin()

	var pressed bool
	var button MouseButton
	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		pressed, button = true, MouseButtonLeft
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight):
		pressed, button = true, MouseButtonRight
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle):
		pressed, button = true, MouseButtonMiddle
	}
	s.processPointer(0, float64(mx)-ox, float64(my)-oy, pressed, false, button, mods)
}

// processTouchPointers handles touch input (pointers 1-9).
func (s *Stage) processTouchPointers(mods KeyModifiers) {
	touchIDs := ebiten.AppendTouchIDs(s.prevTouchIDs[:0])
	s.prevTouchIDs = touchIDs
	ox, oy := s.canvasOrigin()

	var activeSlots [maxPointers]bool
	for _, tid := range touchIDs {
		slot := s.touchSlot(tid)
		if slot < 0 {
			continue
		}
		activeSlots[slot] = true
		tx, ty := ebiten.TouchPosition(tid)
		s.processPointer(slot, float64(tx)-ox, float64(ty)-oy, true, true, MouseButtonLeft, mods)
	}

	for i := 1; i < maxPointers; i++ {
		if s.touchUsed[i] && !activeSlots[i] {
			ps := &s.pointers[i]
			if ps.down {
				s.processPointer(i, ps.lastX, ps.lastY, false, true, MouseButtonLeft, mods)
			}
			s.touchUsed[i] = false
			s.touchMap[i] = 0
		}
	}
}

// touchSlot maps an ebiten.TouchID to a pointer slot (1-9).
// Returns the existing slot or allocates a new one. Returns -1 if full.
func (s *Stage) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxPointers; i++ {
		if s.touchUsed[i] && s.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !s.touchUsed[i] {
			s.touchUsed[i] = true
			s.touchMap[i] = tid
			return i
		}
	}
	return -1
}

// processPointer turns one pointer's polled state into raw events.
func (s *Stage) processPointer(pointerID int, sx, sy float64, pressed, touch bool, button MouseButton, mods KeyModifiers) {
	ps := &s.pointers[pointerID]
	ev := RawPointerEvent{
		StageX:    sx,
		StageY:    sy,
		PointerID: pointerID,
		Touch:     touch,
		Button:    button,
		Modifiers: mods,
		Pressed:   pressed,
	}

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.button = button
		ev.Phase = PointerDown
	case !pressed && ps.down:
		ps.down = false
		ev.Phase = PointerUp
		ev.Button = ps.button
	default:
		if sx == ps.lastX && sy == ps.lastY {
			return
		}
		if ps.down {
			ev.Button = ps.button
		}
		ev.Phase = PointerMove
	}
	ps.lastX, ps.lastY = sx, sy
	s.DispatchPointer(ev)
}
