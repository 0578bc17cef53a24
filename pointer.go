package stagehand

// PickEvent is the payload of MsgPointerDown, MsgPointerUp and
// MsgPointerMove. X and Y are world coordinates. Node is the topmost
// interactable display node under the pointer, or nil.
type PickEvent struct {
	Raw   RawPointerEvent
	X, Y  float64
	Owner *Entity
	Node  *Node
}

// accepts reports whether the configured input flags admit ev's device.
func (h *RenderHandler) accepts(ev RawPointerEvent) bool {
	if ev.Touch {
		return h.cfg.Input.Touch
	}
	return h.cfg.Input.Click
}

func (h *RenderHandler) handlePointerDown(ev RawPointerEvent) {
	if h.stage == nil || !h.accepts(ev) {
		return
	}
	if h.cfg.Input.Camera {
		h.following = true
		h.lastRaw = ev
	}
	h.emit(MsgPointerDown, ev)
}

func (h *RenderHandler) handlePointerUp(ev RawPointerEvent) {
	if h.stage == nil || !h.accepts(ev) {
		return
	}
	h.following = false
	h.emit(MsgPointerUp, ev)
}

// handlePointerMove forwards a move when hover tracking is on or the
// pointer is engaged.
func (h *RenderHandler) handlePointerMove(ev RawPointerEvent) {
	if h.stage == nil {
		return
	}
	engaged := ev.Pressed && h.accepts(ev)
	if !h.cfg.Input.Hover && !engaged {
		return
	}
	if h.following && ev.Pressed {
		h.lastRaw = ev
	}
	h.emit(MsgPointerMove, ev)
}

// emit converts ev to world coordinates and triggers msg on the owner, then
// on the entity of the node under the pointer when that is another entity.
func (h *RenderHandler) emit(msg string, ev RawPointerEvent) {
	wx, wy := h.WorldPoint(ev.StageX, ev.StageY)
	h.stage.RefreshTransforms()
	pe := &PickEvent{
		Raw:   ev,
		X:     wx,
		Y:     wy,
		Owner: h.owner,
		Node:  h.stage.HitTest(wx, wy),
	}
	h.owner.Trigger(msg, pe)
	if pe.Node != nil && pe.Node.Entity != nil && pe.Node.Entity != h.owner && h.stage != nil {
		pe.Node.Entity.Trigger(msg, pe)
	}
}
