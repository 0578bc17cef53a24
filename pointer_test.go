package stagehand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordPicks(e *Entity, msg string) *[]*PickEvent {
	var picks []*PickEvent
	e.On(msg, func(payload any) { picks = append(picks, payload.(*PickEvent)) })
	return &picks
}

func inputConfig(in Input) RenderConfig {
	cfg := canvasConfig("main")
	cfg.Input = in
	return cfg
}

func TestPointer_PressWithDevicePixelRatio(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true}),
		WithScreen(NewScreen(200, 100)), WithDevicePixelRatio(2))
	picks := recordPicks(owner, MsgPointerDown)

	raw := RawPointerEvent{Phase: PointerDown, StageX: 100, StageY: 50, Pressed: true}
	h.Stage().DispatchPointer(raw)

	require.Len(t, *picks, 1)
	pe := (*picks)[0]
	assert.Equal(t, 50.0, pe.X)
	assert.Equal(t, 25.0, pe.Y)
	assert.Same(t, owner, pe.Owner)
	assert.Equal(t, raw, pe.Raw)
}

func TestPointer_MatchesWorldPoint(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true}), WithDevicePixelRatio(1.25))
	owner.Trigger(MsgCameraUpdate, &CameraUpdate{Viewport: Rect{X: 33, Y: -7, Width: 90, Height: 60}, ScaleX: 3, ScaleY: 1.5})
	picks := recordPicks(owner, MsgPointerDown)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, StageX: 71, StageY: 13, Pressed: true})
	require.Len(t, *picks, 1)
	wx, wy := h.WorldPoint(71, 13)
	assert.Equal(t, wx, (*picks)[0].X)
	assert.Equal(t, wy, (*picks)[0].Y)
}

func TestPointer_DeviceFlags(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		touch bool
		want  int
	}{
		{"mouse with click", Input{Click: true}, false, 1},
		{"mouse without click", Input{Touch: true}, false, 0},
		{"touch with touch", Input{Touch: true}, true, 1},
		{"touch without touch", Input{Click: true}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner := NewEntity("owner")
			h := attachHandler(t, owner, inputConfig(tt.in))
			downs := recordPicks(owner, MsgPointerDown)
			ups := recordPicks(owner, MsgPointerUp)

			h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, Touch: tt.touch, Pressed: true})
			h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerUp, Touch: tt.touch})
			assert.Len(t, *downs, tt.want)
			assert.Len(t, *ups, tt.want)
		})
	}
}

func TestPointer_MoveRequiresHoverOrEngaged(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true}))
	moves := recordPicks(owner, MsgPointerMove)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerMove, StageX: 1})
	assert.Empty(t, *moves, "idle hover is not forwarded")

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerMove, StageX: 2, Pressed: true})
	assert.Len(t, *moves, 1)
}

func TestPointer_HoverForwardsIdleMoves(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Hover: true}))
	moves := recordPicks(owner, MsgPointerMove)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerMove, StageX: 4, StageY: 5})
	require.Len(t, *moves, 1)
	assert.Equal(t, 4.0, (*moves)[0].X)
}

func TestPointer_NoInputNoListeners(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	picks := recordPicks(owner, MsgPointerDown)

	assert.Empty(t, h.Stage().handlers.down)
	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, Pressed: true})
	assert.Empty(t, *picks)
}

func TestPointer_CameraFollow(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true, Camera: true}))
	moves := recordPicks(owner, MsgPointerMove)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, StageX: 10, StageY: 10, Pressed: true})
	sendCamera(owner, Rect{X: 100, Y: 0, Width: 50, Height: 50})
	require.Len(t, *moves, 1)
	assert.Equal(t, 110.0, (*moves)[0].X)
	assert.Equal(t, PointerMove, (*moves)[0].Raw.Phase)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerMove, StageX: 20, StageY: 10, Pressed: true})
	sendCamera(owner, Rect{X: 200, Y: 0, Width: 50, Height: 50})
	require.Len(t, *moves, 3)
	assert.Equal(t, 220.0, (*moves)[2].X, "follow uses the last raw event")

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerUp, StageX: 20, StageY: 10})
	sendCamera(owner, Rect{X: 300, Y: 0, Width: 50, Height: 50})
	assert.Len(t, *moves, 3, "release disarms follow")
}

func TestPointer_NoFollowWithoutCameraFlag(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true}))
	moves := recordPicks(owner, MsgPointerMove)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, Pressed: true})
	sendCamera(owner, Rect{X: 100, Width: 50, Height: 50})
	assert.Empty(t, *moves)
}

func TestPointer_ForwardsToHitEntity(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true}), WithScreen(NewScreen(100, 100)))

	button := NewEntity("button")
	owner.AddChild(button)
	n := NewRect("button", 40, 20, ColorWhite)
	n.X, n.Y = 10, 10
	n.Interactable = true
	n.Entity = button
	h.Stage().AddChild(n)

	ownerPicks := recordPicks(owner, MsgPointerDown)
	buttonPicks := recordPicks(button, MsgPointerDown)

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, StageX: 20, StageY: 15, Pressed: true})
	require.Len(t, *ownerPicks, 1)
	assert.Same(t, n, (*ownerPicks)[0].Node)
	require.Len(t, *buttonPicks, 1)
	assert.Same(t, (*ownerPicks)[0], (*buttonPicks)[0])

	h.Stage().DispatchPointer(RawPointerEvent{Phase: PointerDown, StageX: 90, StageY: 90, Pressed: true})
	assert.Len(t, *ownerPicks, 2)
	assert.Nil(t, (*ownerPicks)[1].Node)
	assert.Len(t, *buttonPicks, 1)
}

func TestPointer_InjectedClickReachesOwner(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, inputConfig(Input{Click: true}), WithDevicePixelRatio(2))
	downs := recordPicks(owner, MsgPointerDown)
	ups := recordPicks(owner, MsgPointerUp)

	h.Stage().InjectClick(100, 50)
	h.Stage().processInjectedInput(0)
	h.Stage().processInjectedInput(0)

	require.Len(t, *downs, 1)
	require.Len(t, *ups, 1)
	assert.Equal(t, 50.0, (*downs)[0].X)
	assert.Equal(t, 25.0, (*downs)[0].Y)
}
