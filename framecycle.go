package stagehand

import "time"

// RenderMessage is broadcast to the owner's children with MsgRender every
// tick. The same value is reused each tick. Extra holds the content merged
// from secondary handlers for this tick only; it is empty again once the
// broadcast returns.
type RenderMessage struct {
	Delta float64
	Frame uint64
	Stage *Stage
	Extra map[string]any
}

// RenderAddition is triggered on the owner by a secondary handler in place
// of a render broadcast. The primary merges Fields into the render message
// of its next tick and commits Stage along with its own.
type RenderAddition struct {
	Frame  uint64
	Delta  float64
	Stage  *Stage
	Fields map[string]any
}

// extraValue is a pending extra-content entry stamped with the frame it
// arrived on. It is merged only on a later frame.
type extraValue struct {
	value any
	frame uint64
}

// queueExtra records key for a later frame. An entry from an earlier frame
// that is displaced before it was merged becomes ready, so a value written
// every frame still reaches the render message one frame late.
func (h *RenderHandler) queueExtra(key string, value any, frame uint64) {
	if old, ok := h.pending[key]; ok && old.frame < frame {
		h.ready[key] = old.value
	}
	h.pending[key] = extraValue{value: value, frame: frame}
}

// Contribute queues a field for the render message. On a primary handler it
// appears in the next tick's broadcast; on a secondary it is forwarded to
// the primary and appears the tick after. A later write to the same key
// replaces an earlier one.
func (h *RenderHandler) Contribute(key string, value any) {
	if h.stage == nil {
		return
	}
	h.queueExtra(key, value, h.frame)
}

// handleAddition merges a secondary handler's content into pending extras.
func (h *RenderHandler) handleAddition(payload any) {
	add, ok := payload.(*RenderAddition)
	if !ok || add == nil || h.stage == nil {
		return
	}
	for k, v := range add.Fields {
		h.queueExtra(k, v, add.Frame)
	}
	if add.Stage != nil && add.Stage != h.stage {
		h.trackSecondary(add.Stage)
	}
}

func (h *RenderHandler) trackSecondary(s *Stage) {
	live := h.secondaries[:0]
	found := false
	for _, have := range h.secondaries {
		if have.IsDisposed() {
			continue
		}
		if have == s {
			found = true
		}
		live = append(live, have)
	}
	if !found {
		live = append(live, s)
	}
	h.secondaries = live
}

// handleTick runs one frame: pause bookkeeping, extra-content merge,
// dispatch, cleanup, culling, pause propagation, conditional sort, commit
// and post-commit hooks, in that order.
func (h *RenderHandler) handleTick(payload any) {
	if h.stage == nil {
		return
	}
	var delta float64
	var frame uint64
	if t, ok := payload.(*Tick); ok && t != nil {
		delta, frame = t.Delta, t.Frame
	}
	if frame == 0 {
		// Shared by every handler on the owner, so additions and merges
		// agree on the frame number.
		frame = h.owner.Ticks()
		if frame <= h.frame {
			frame = h.frame + 1
		}
	}
	h.frame = frame
	start := time.Now()

	// 1. pause countdown
	if h.paused > 0 {
		h.paused -= delta
		if h.paused < 0 {
			h.paused = 0
		}
	}

	// 2. merge content that arrived on an earlier frame
	for k, ev := range h.pending {
		if ev.frame < frame {
			h.ready[k] = ev.value
			delete(h.pending, k)
		}
	}
	h.merged = h.merged[:0]
	for k, v := range h.ready {
		h.msg.Extra[k] = v
		h.merged = append(h.merged, k)
	}

	// 3. dispatch
	h.msg.Delta = delta
	h.msg.Frame = frame
	h.msg.Stage = h.stage
	if h.primary {
		h.owner.Broadcast(MsgRender, &h.msg)
	} else {
		h.forwardAddition()
	}

	// 4. cleanup
	for _, k := range h.merged {
		delete(h.ready, k)
	}
	clear(h.msg.Extra)
	if h.stage == nil {
		// destroyed by a listener during dispatch
		return
	}

	// 5. visibility
	h.stage.RefreshTransforms()
	nodes, culled := h.cull()

	// 6. pause propagation
	h.propagatePause()

	// 7. sort
	if h.stage.SortDirty() {
		h.stage.SortChildren()
	}
	prep := time.Since(start)
	h.telemetry.Record(PhaseRenderPrep, prep)

	if !h.primary {
		// The primary commits this stage with its own.
		return
	}

	// 8. commit
	start = time.Now()
	h.stage.Update(delta)
	for _, s := range h.secondaries {
		s.Update(delta)
	}
	render := time.Since(start)
	h.telemetry.Record(PhaseRender, render)
	debugLogFrame(h.canvas.ID, frameStats{prepTime: prep, renderTime: render, nodeCount: nodes, culled: culled})

	// 9. post-commit hooks
	for _, hook := range h.hooks {
		hook.AfterCommit(h)
	}
}

// forwardAddition hands this tick's message to the primary as an addition.
func (h *RenderHandler) forwardAddition() {
	clear(h.fields)
	for k, v := range h.msg.Extra {
		h.fields[k] = v
	}
	h.fields[StageKey(h.canvas.ID)] = h.stage
	h.addition = RenderAddition{
		Frame:  h.msg.Frame,
		Delta:  h.msg.Delta,
		Stage:  h.stage,
		Fields: h.fields,
	}
	h.owner.Trigger(MsgRenderAddition, &h.addition)
}

// cull sets Visible on each top-level display node from its bounds and the
// camera viewport, iterating in reverse. Hidden nodes are never visible;
// nodes named ManagedName are left alone; nodes without bounds are visible.
// Visible is written only when it changes.
func (h *RenderHandler) cull() (nodes, culled int) {
	children := h.stage.Children()
	for i := len(children) - 1; i >= 0; i-- {
		n := children[i]
		nodes++
		if n.Hidden {
			if n.Visible {
				n.Visible = false
			}
			culled++
			continue
		}
		if n.Name == ManagedName {
			continue
		}
		visible := true
		if b, ok := n.Bounds(); ok {
			visible = b.Intersects(h.camera)
		}
		if n.Visible != visible {
			n.Visible = visible
		}
		if !visible {
			culled++
		}
	}
	return nodes, culled
}

// propagatePause copies the handler's pause state to visible nodes only.
func (h *RenderHandler) propagatePause() {
	running := h.paused == 0
	for _, n := range h.stage.Children() {
		if !n.Visible {
			continue
		}
		if running {
			if n.Paused {
				n.Paused = false
			}
		} else if !n.Paused {
			n.Paused = true
		}
	}
}
