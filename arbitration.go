package stagehand

import "strings"

// renderRole is implemented by behaviors that take part in arbitration.
type renderRole interface {
	Behavior
	setPrimary(primary bool)
	active() bool
}

// arbitrate makes the last active render handler on owner primary and
// demotes every other one to secondary.
func arbitrate(owner *Entity) {
	var roles []renderRole
	for _, b := range owner.Behaviors() {
		if !strings.HasPrefix(b.Name(), RenderHandlerName) {
			continue
		}
		r, ok := b.(renderRole)
		if !ok || !r.active() {
			continue
		}
		roles = append(roles, r)
	}
	for i, r := range roles {
		r.setPrimary(i == len(roles)-1)
	}
}

// StageKey is the extra-content key under which a secondary handler
// forwards its stage to the primary.
func StageKey(canvasID string) string {
	return "stage:" + canvasID
}

func (h *RenderHandler) active() bool {
	return h.stage != nil
}

func (h *RenderHandler) setPrimary(primary bool) {
	if primary == h.primary {
		return
	}
	h.primary = primary
	if primary {
		h.additionSub = h.owner.On(MsgRenderAddition, h.handleAddition)
	} else {
		h.additionSub.Remove()
		h.additionSub = ListenerHandle{}
		h.secondaries = nil
	}
	Logger().Debug("render handler role changed", "canvas", h.canvas.ID, "primary", primary)
}
