package stagehand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachHandler(t *testing.T, owner *Entity, cfg RenderConfig, opts ...Option) *RenderHandler {
	t.Helper()
	h := NewRenderHandler(cfg, opts...)
	require.NoError(t, owner.AddBehavior(h))
	return h
}

func canvasConfig(id string) RenderConfig {
	cfg := DefaultRenderConfig()
	cfg.Canvas = id
	return cfg
}

func sendTick(owner *Entity, frame uint64, delta float64) {
	owner.Trigger(MsgTick, &Tick{Delta: delta, Frame: frame})
}

func sendCamera(owner *Entity, vp Rect) {
	owner.Trigger(MsgCameraUpdate, &CameraUpdate{Viewport: vp, ScaleX: 1, ScaleY: 1})
}

// renderChild attaches a child entity that records every render message.
func renderChild(owner *Entity) (*Entity, *[]map[string]any) {
	child := NewEntity("child")
	var seen []map[string]any
	child.On(MsgRender, func(payload any) {
		msg := payload.(*RenderMessage)
		snap := make(map[string]any, len(msg.Extra))
		for k, v := range msg.Extra {
			snap[k] = v
		}
		seen = append(seen, snap)
	})
	owner.AddChild(child)
	return child, &seen
}

func TestRenderHandler_Attach(t *testing.T) {
	owner := NewEntity("owner")
	screen := NewScreen(320, 240)
	h := attachHandler(t, owner, canvasConfig("main"), WithScreen(screen), WithDevicePixelRatio(2))

	require.NotNil(t, h.Stage())
	assert.Same(t, h.Canvas(), screen.Canvas("main"))
	assert.True(t, h.Primary())
	assert.Equal(t, 2.0, screen.DevicePixelRatio())
	assert.Equal(t, Rect{Width: 320, Height: 240}, h.Camera())

	w, hh := h.Canvas().PixelSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, hh)
}

func TestRenderHandler_AttachErrors(t *testing.T) {
	owner := NewEntity("owner")
	screen := NewScreen(10, 10)
	attachHandler(t, owner, canvasConfig("main"), WithScreen(screen))

	dup := NewRenderHandler(canvasConfig("main"), WithScreen(screen))
	err := owner.AddBehavior(dup)
	assert.ErrorIs(t, err, ErrCanvasExists)
	assert.Len(t, owner.Behaviors(), 1)

	empty := NewRenderHandler(RenderConfig{})
	assert.ErrorIs(t, NewEntity("o").AddBehavior(empty), ErrEmptyCanvasID)
}

func TestRenderHandler_RenderLoadOnChildAdded(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	child := NewEntity("child")
	var load *RenderLoad
	child.On(MsgRenderLoad, func(payload any) { load = payload.(*RenderLoad) })
	owner.AddChild(child)

	require.NotNil(t, load)
	assert.Same(t, h.Stage(), load.Stage)
	assert.Same(t, h.Canvas(), load.Canvas)
	assert.Same(t, h.Screen(), load.Screen)
}

func TestRenderHandler_BroadcastEvictsNonHandlers(t *testing.T) {
	owner := NewEntity("owner")
	attachHandler(t, owner, canvasConfig("main"))

	_, seen := renderChild(owner)
	silent := NewEntity("silent")
	owner.AddChild(silent)

	sendTick(owner, 1, 16)
	assert.Len(t, *seen, 1)
	_, evicted := silent.unhandled[MsgRender]
	assert.True(t, evicted, "child without a render listener should be dropped")

	// A render listener added later is ignored until the child is re-attached.
	var late int
	silent.On(MsgRender, func(any) { late++ })
	sendTick(owner, 2, 16)
	assert.Equal(t, 0, late)

	owner.AddChild(silent)
	sendTick(owner, 3, 16)
	assert.Equal(t, 1, late)
}

func TestRenderHandler_PanickingChildDoesNotStopFrame(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	bad := NewEntity("bad")
	bad.On(MsgRender, func(any) { panic("boom") })
	owner.AddChild(bad)
	_, seen := renderChild(owner)

	n := NewRect("late-sort", 1, 1, ColorWhite)
	h.Stage().AddChild(n)

	sendTick(owner, 1, 16)
	assert.Len(t, *seen, 1)
	assert.False(t, h.Stage().SortDirty(), "frame should complete after a child panic")
}

func TestRenderHandler_CullingScenario(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	n := NewRect("box", 10, 10, ColorWhite)
	n.X = 150
	h.Stage().AddChild(n)

	sendCamera(owner, Rect{X: 0, Y: 0, Width: 100, Height: 100})
	sendTick(owner, 1, 16)
	assert.False(t, n.Visible)

	sendCamera(owner, Rect{X: 60, Y: 0, Width: 100, Height: 100})
	sendTick(owner, 2, 16)
	assert.True(t, n.Visible, "touching edge counts as overlap")
}

func TestRenderHandler_HiddenNeverVisible(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	n := NewRect("box", 10, 10, ColorWhite)
	n.Hidden = true
	h.Stage().AddChild(n)

	sendCamera(owner, Rect{Width: 100, Height: 100})
	sendTick(owner, 1, 16)
	assert.False(t, n.Visible)

	n.Name = ManagedName
	n.Visible = true
	sendTick(owner, 2, 16)
	assert.False(t, n.Visible, "hidden wins over the managed name")
}

func TestRenderHandler_ManagedNodeNotCulled(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	offscreen := NewRect(ManagedName, 10, 10, ColorWhite)
	offscreen.X = 1000
	onscreen := NewRect(ManagedName, 10, 10, ColorWhite)
	onscreen.Visible = false
	h.Stage().AddChild(offscreen)
	h.Stage().AddChild(onscreen)

	sendCamera(owner, Rect{Width: 100, Height: 100})
	sendTick(owner, 1, 16)
	assert.True(t, offscreen.Visible)
	assert.False(t, onscreen.Visible)
}

func TestRenderHandler_NoBoundsAlwaysVisible(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	empty := NewContainer("empty")
	empty.X = 5000
	empty.Visible = false
	h.Stage().AddChild(empty)

	sendCamera(owner, Rect{Width: 100, Height: 100})
	sendTick(owner, 1, 16)
	assert.True(t, empty.Visible)
}

func TestRenderHandler_CullIdempotent(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	in := NewRect("in", 10, 10, ColorWhite)
	out := NewRect("out", 10, 10, ColorWhite)
	out.X = 500
	h.Stage().AddChild(in)
	h.Stage().AddChild(out)
	sendCamera(owner, Rect{Width: 100, Height: 100})
	h.Stage().RefreshTransforms()

	nodes, culled := h.cull()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, culled)
	first := []bool{in.Visible, out.Visible}

	h.cull()
	assert.Equal(t, first, []bool{in.Visible, out.Visible})
}

func TestRenderHandler_SortOnlyWhenDirty(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	st := h.Stage()

	a := NewContainer("a")
	a.Z = 2
	b := NewContainer("b")
	b.Z = 1
	st.AddChild(a)
	st.AddChild(b)
	require.True(t, st.SortDirty())

	sendTick(owner, 1, 16)
	assert.Equal(t, []*Node{b, a}, st.Children())
	assert.False(t, st.SortDirty())

	// Writing Z directly does not mark the order dirty, so no re-sort.
	b.Z = 3
	sendTick(owner, 2, 16)
	assert.Equal(t, []*Node{b, a}, st.Children())

	b.SetZ(4)
	sendTick(owner, 3, 16)
	assert.Equal(t, []*Node{a, b}, st.Children())
}

func TestRenderHandler_SortStable(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	st := h.Stage()

	var same []*Node
	for _, name := range []string{"a", "b", "c", "d"} {
		n := NewContainer(name)
		n.Z = 1
		st.AddChild(n)
		same = append(same, n)
	}
	front := NewContainer("front")
	front.Z = 0
	st.AddChild(front)

	sendTick(owner, 1, 16)
	assert.Equal(t, append([]*Node{front}, same...), st.Children())
}

func TestRenderHandler_ExtraContentDoesNotLeak(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	_, seen := renderChild(owner)

	h.Contribute("score", 10)
	sendTick(owner, 1, 16)
	require.Len(t, *seen, 1)
	assert.Equal(t, 10, (*seen)[0]["score"])
	assert.Empty(t, h.msg.Extra)

	sendTick(owner, 2, 16)
	require.Len(t, *seen, 2)
	assert.NotContains(t, (*seen)[1], "score")
	assert.Empty(t, h.msg.Extra)
}

func TestRenderHandler_ContributeAppearsNextTick(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	child, seen := renderChild(owner)

	// Contributed during dispatch of frame 1: must wait for frame 2.
	child.On(MsgRender, func(any) {
		if len(*seen) == 1 {
			h.Contribute("late", true)
		}
	})
	sendTick(owner, 1, 16)
	sendTick(owner, 2, 16)
	require.Len(t, *seen, 2)
	assert.NotContains(t, (*seen)[0], "late")
	assert.Equal(t, true, (*seen)[1]["late"])
}

func TestRenderHandler_PauseCountdown(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	n := NewRect("box", 10, 10, ColorWhite)
	h.Stage().AddChild(n)

	owner.Trigger(MsgPause, &PauseRequest{Duration: 40})
	assert.Equal(t, 40.0, h.PauseState())

	sendTick(owner, 1, 16)
	assert.Equal(t, 24.0, h.PauseState())
	assert.True(t, n.Paused)

	sendTick(owner, 2, 24)
	assert.Equal(t, 0.0, h.PauseState(), "reaching zero unpauses on the same tick")
	assert.False(t, n.Paused)

	owner.Trigger(MsgPause, &PauseRequest{Duration: 10})
	sendTick(owner, 3, 50)
	assert.Equal(t, 0.0, h.PauseState(), "countdown never goes negative")
	assert.False(t, n.Paused)
}

func TestRenderHandler_PauseIndefinite(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	owner.Trigger(MsgPause, nil)
	sendTick(owner, 1, 1000)
	assert.Equal(t, -1.0, h.PauseState())

	owner.Trigger(MsgUnpause, &PauseRequest{Duration: 30})
	assert.Equal(t, 30.0, h.PauseState())

	owner.Trigger(MsgUnpause, nil)
	assert.False(t, h.Paused())

	// A delayed unpause while running does not pause.
	owner.Trigger(MsgUnpause, &PauseRequest{Duration: 30})
	assert.False(t, h.Paused())
}

func TestRenderHandler_PauseSkipsInvisibleNodes(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	on := NewRect("on", 10, 10, ColorWhite)
	off := NewRect("off", 10, 10, ColorWhite)
	off.X = 500
	h.Stage().AddChild(on)
	h.Stage().AddChild(off)
	sendCamera(owner, Rect{Width: 100, Height: 100})

	owner.Trigger(MsgPause, nil)
	sendTick(owner, 1, 16)
	assert.True(t, on.Paused)
	assert.False(t, off.Paused, "off-screen nodes are left untouched")
}

func TestRenderHandler_PausedNodesSkipUpdate(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	var ticks int
	n := NewRect("box", 10, 10, ColorWhite)
	n.OnUpdate = func(float64) { ticks++ }
	h.Stage().AddChild(n)

	sendTick(owner, 1, 16)
	owner.Trigger(MsgPause, nil)
	sendTick(owner, 2, 16)
	sendTick(owner, 3, 16)
	assert.Equal(t, 1, ticks)
}

func TestRenderHandler_CameraStateIsLatest(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	vps := []Rect{{X: 1, Y: 2, Width: 3, Height: 4}, {X: -10, Y: 5, Width: 200, Height: 100}}
	for i, vp := range vps {
		sendCamera(owner, vp)
		owner.AddChild(NewEntity("c"))
		sendTick(owner, uint64(i+1), 16)
		assert.Equal(t, vp, h.Camera())
	}
}

func TestRenderHandler_TelemetryPhases(t *testing.T) {
	owner := NewEntity("owner")
	tel := NewTelemetry()
	attachHandler(t, owner, canvasConfig("main"), WithTelemetry(tel))

	sendTick(owner, 1, 16)
	sendTick(owner, 2, 16)

	prep, ok := tel.Phase(PhaseRenderPrep)
	require.True(t, ok)
	assert.Equal(t, 2, prep.Samples)
	render, ok := tel.Phase(PhaseRender)
	require.True(t, ok)
	assert.Equal(t, 2, render.Samples)
}

func TestRenderHandler_PostCommitHooks(t *testing.T) {
	owner := NewEntity("owner")
	var calls []string
	hook := PostCommitFunc(func(h *RenderHandler) { calls = append(calls, h.Canvas().ID) })
	attachHandler(t, owner, canvasConfig("main"), WithPostCommit(hook))

	sendTick(owner, 1, 16)
	assert.Equal(t, []string{"main"}, calls)
}

func TestRenderHandler_DestroyIsTotal(t *testing.T) {
	owner := NewEntity("owner")
	screen := NewScreen(100, 100)
	h := attachHandler(t, owner, RenderConfig{Canvas: "main", Input: Input{Click: true}}, WithScreen(screen))
	st := h.Stage()
	_, seen := renderChild(owner)

	var picks int
	owner.On(MsgPointerDown, func(any) { picks++ })

	require.True(t, owner.RemoveBehavior(h))
	assert.Nil(t, h.Stage())
	assert.True(t, st.IsDisposed())
	assert.Nil(t, screen.Canvas("main"))

	sendTick(owner, 1, 16)
	sendCamera(owner, Rect{Width: 5, Height: 5})
	st.DispatchPointer(RawPointerEvent{Phase: PointerDown})
	assert.Empty(t, *seen)
	assert.Equal(t, 0, picks)
	assert.NotEqual(t, Rect{Width: 5, Height: 5}, h.Camera())

	h.Destroy() // idempotent
}

func TestRenderHandler_DestroyDuringTick(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))

	child := NewEntity("child")
	child.On(MsgRender, func(any) { owner.RemoveBehavior(h) })
	owner.AddChild(child)

	assert.NotPanics(t, func() { sendTick(owner, 1, 16) })
	assert.Nil(t, h.Stage())
}

func TestRenderHandler_EntityDestroy(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	owner.Destroy()
	assert.Nil(t, h.Stage())
}

func TestRepaintHook(t *testing.T) {
	owner := NewEntity("owner")
	var deferred []func()
	sched := schedulerFunc(func(fn func()) { deferred = append(deferred, fn) })
	h := attachHandler(t, owner, canvasConfig("main"), WithPostCommit(RepaintHook{Scheduler: sched}))

	sendTick(owner, 1, 16)
	require.Len(t, deferred, 1)
	assert.InDelta(t, 1-repaintEpsilon, h.Canvas().Opacity, 1e-12)

	deferred[0]()
	assert.Equal(t, 1.0, h.Canvas().Opacity)
}

func TestRepaintHook_SkipsWithoutAutoClear(t *testing.T) {
	owner := NewEntity("owner")
	var deferred int
	sched := schedulerFunc(func(func()) { deferred++ })
	cfg := canvasConfig("main")
	cfg.AutoClear = false
	h := attachHandler(t, owner, cfg, WithPostCommit(RepaintHook{Scheduler: sched}))

	sendTick(owner, 1, 16)
	assert.Equal(t, 0, deferred)
	assert.Equal(t, 1.0, h.Canvas().Opacity)
}

type schedulerFunc func(fn func())

func (f schedulerFunc) Defer(fn func()) { f(fn) }

func TestTickWithoutFrameCounter(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	_, seen := renderChild(owner)

	h.Contribute("k", 1)
	owner.Trigger(MsgTick, &Tick{Delta: 16})
	owner.Trigger(MsgTick, &Tick{Delta: 16})
	require.Len(t, *seen, 2)
	assert.Equal(t, 1, (*seen)[0]["k"])
	assert.Equal(t, uint64(2), h.frame)
}

func TestExtraWrittenDuringDispatchDoesNotCarryOver(t *testing.T) {
	owner := NewEntity("owner")
	h := attachHandler(t, owner, canvasConfig("main"))
	_, seen := renderChild(owner)
	writer := NewEntity("writer")
	writer.On(MsgRender, func(payload any) {
		msg := payload.(*RenderMessage)
		if msg.Frame == 1 {
			msg.Extra["stray"] = true
		}
	})
	owner.AddChild(writer)

	sendTick(owner, 1, 16)
	assert.Empty(t, h.msg.Extra)
	sendTick(owner, 2, 16)

	require.Len(t, *seen, 2)
	assert.NotContains(t, (*seen)[1], "stray")
}
