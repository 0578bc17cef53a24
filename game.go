package stagehand

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Game drives an entity tree from the ebiten loop. Each Update runs work
// deferred on the previous turn, polls pointer input for every canvas, and
// sends a tick to Root. Draw composites the screen's canvases.
//
// Game implements both ebiten.Game and Scheduler, so it can back a
// RepaintHook directly.
type Game struct {
	Root   *Entity
	Screen *Screen
	// Camera, when set, is resized with the window in Layout.
	Camera *CameraBehavior

	frame    uint64
	deferred []func()
	running  []func()
}

// NewGame creates a game loop for root presenting onto screen.
func NewGame(root *Entity, screen *Screen) *Game {
	return &Game{Root: root, Screen: screen}
}

// Defer queues fn to run at the start of the next Update.
func (g *Game) Defer(fn func()) {
	if fn != nil {
		g.deferred = append(g.deferred, fn)
	}
}

// Frame returns the number of ticks sent so far.
func (g *Game) Frame() uint64 {
	return g.frame
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	g.runDeferred()
	if g.Screen != nil {
		g.Screen.ProcessInput()
	}
	g.Step(1000 / float64(ebiten.TPS()))
	return nil
}

// Step sends one tick of delta milliseconds to Root without polling input.
func (g *Game) Step(delta float64) {
	if g.Root == nil || g.Root.IsDestroyed() {
		return
	}
	g.frame++
	g.Root.Trigger(MsgTick, &Tick{Delta: delta, Frame: g.frame})
}

// runDeferred runs the functions queued before this call. Functions queued
// while running wait for the next turn.
func (g *Game) runDeferred() {
	if len(g.deferred) == 0 {
		return
	}
	g.running, g.deferred = g.deferred, g.running[:0]
	for i, fn := range g.running {
		fn()
		g.running[i] = nil
	}
}

// Draw implements ebiten.Game.
func (g *Game) Draw(dst *ebiten.Image) {
	if g.Screen != nil {
		g.Screen.Draw(dst)
	}
}

// Layout implements ebiten.Game. The outside size is the logical screen
// size; the returned size is in device pixels.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	dpr := 1.0
	if m := ebiten.Monitor(); m != nil {
		dpr = m.DeviceScaleFactor()
	}
	return g.resize(float64(outsideWidth), float64(outsideHeight), dpr)
}

func (g *Game) resize(w, h, dpr float64) (int, int) {
	if g.Screen != nil {
		if sw, sh := g.Screen.Size(); sw != w || sh != h || g.Screen.DevicePixelRatio() != dpr {
			g.Screen.SetDevicePixelRatio(dpr)
			g.Screen.Resize(w, h)
			if g.Camera != nil {
				g.Camera.SetSize(w, h)
			}
		}
		dpr = g.Screen.DevicePixelRatio()
	}
	return int(math.Round(w * dpr)), int(math.Round(h * dpr))
}
