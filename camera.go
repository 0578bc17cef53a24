package stagehand

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// CameraName is the behavior name of CameraBehavior.
const CameraName = "camera"

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// CameraBehavior moves the view over the world and announces every change to
// its owner with MsgCameraUpdate, once per tick at most. Attach it before the
// render handlers so they cull against this tick's viewport.
type CameraBehavior struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	Zoom float64
	// Rotation is the camera orientation in radians.
	Rotation float64
	// Width and Height are the size of the view in logical canvas units.
	Width, Height float64

	followTarget  *Node
	followOffsetX float64
	followOffsetY float64
	followLerp    float64

	// BoundsEnabled clamps the camera position so the visible area stays
	// within Bounds.
	BoundsEnabled bool
	// Bounds is the world-space rectangle the camera is clamped to when
	// BoundsEnabled is true.
	Bounds Rect

	owner    *Entity
	tickSub  ListenerHandle
	update   CameraUpdate
	dirty    bool
	lastSent CameraUpdate

	scrollTween *scrollAnim
}

// NewCameraBehavior creates a camera showing a w x h view centered on
// (w/2, h/2), so the world origin starts at the top-left corner.
func NewCameraBehavior(w, h float64) *CameraBehavior {
	return &CameraBehavior{
		X:      w / 2,
		Y:      h / 2,
		Zoom:   1,
		Width:  w,
		Height: h,
		dirty:  true,
	}
}

// Name implements Behavior.
func (c *CameraBehavior) Name() string {
	return CameraName
}

// Attach implements Behavior.
func (c *CameraBehavior) Attach(owner *Entity) error {
	c.owner = owner
	c.tickSub = owner.On(MsgTick, c.handleTick)
	c.dirty = true
	return nil
}

// Destroy implements Behavior.
func (c *CameraBehavior) Destroy() {
	c.tickSub.Remove()
	c.owner = nil
	c.followTarget = nil
	c.scrollTween = nil
}

// Follow makes the camera track a target node with the given offset and lerp factor.
// A lerp of 1.0 snaps immediately; lower values give smoother following.
func (c *CameraBehavior) Follow(node *Node, offsetX, offsetY, lerp float64) {
	c.followTarget = node
	c.followOffsetX = offsetX
	c.followOffsetY = offsetY
	c.followLerp = lerp
}

// Unfollow stops tracking the current target node.
func (c *CameraBehavior) Unfollow() {
	c.followTarget = nil
}

// ScrollTo animates the camera to the given world position over duration seconds.
func (c *CameraBehavior) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	if easeFn == nil {
		easeFn = ease.Linear
	}
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// Scrolling reports whether a ScrollTo animation is running.
func (c *CameraBehavior) Scrolling() bool {
	return c.scrollTween != nil
}

// SetBounds enables camera bounds clamping.
func (c *CameraBehavior) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
	c.dirty = true
}

// ClearBounds disables camera bounds clamping.
func (c *CameraBehavior) ClearBounds() {
	c.BoundsEnabled = false
}

// SetSize changes the view size, e.g. after the window was resized.
func (c *CameraBehavior) SetSize(w, h float64) {
	c.Width, c.Height = w, h
	c.dirty = true
}

// MarkDirty forces a camera update on the next tick.
func (c *CameraBehavior) MarkDirty() {
	c.dirty = true
}

// Viewport returns the visible world rectangle, ignoring rotation.
func (c *CameraBehavior) Viewport() Rect {
	z := c.zoom()
	w, h := c.Width/z, c.Height/z
	return Rect{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}

func (c *CameraBehavior) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// handleTick advances follow, scroll and bounds clamping, then emits
// MsgCameraUpdate if anything changed since the last one.
func (c *CameraBehavior) handleTick(payload any) {
	if c.owner == nil {
		return
	}
	var dt float64
	if t, ok := payload.(*Tick); ok && t != nil {
		dt = t.Delta
	}
	c.advance(float32(dt / 1000))

	c.update = CameraUpdate{
		Viewport:    c.Viewport(),
		ScaleX:      c.zoom(),
		ScaleY:      c.zoom(),
		Orientation: c.Rotation,
	}
	if !c.dirty && c.update == c.lastSent {
		return
	}
	c.dirty = false
	c.lastSent = c.update
	c.owner.Trigger(MsgCameraUpdate, &c.update)
}

// advance moves the camera by dt seconds.
func (c *CameraBehavior) advance(dt float32) {
	// Follow target
	if c.followTarget != nil && !c.followTarget.IsDisposed() {
		tx, ty := c.followTarget.WorldPosition()
		targetX := tx + c.followOffsetX
		targetY := ty + c.followOffsetY
		c.X += (targetX - c.X) * c.followLerp
		c.Y += (targetY - c.Y) * c.followLerp
	}

	// Scroll animation
	if c.scrollTween != nil {
		if !c.scrollTween.doneX {
			val, done := c.scrollTween.tweenX.Update(dt)
			c.X = float64(val)
			c.scrollTween.doneX = done
		}
		if !c.scrollTween.doneY {
			val, done := c.scrollTween.tweenY.Update(dt)
			c.Y = float64(val)
			c.scrollTween.doneY = done
		}
		if c.scrollTween.doneX && c.scrollTween.doneY {
			c.scrollTween = nil
		}
	}

	if c.BoundsEnabled {
		c.clampToBounds()
	}
}

// clampToBounds restricts camera position so the visible area stays within Bounds.
func (c *CameraBehavior) clampToBounds() {
	halfW := c.Width / (2 * c.zoom())
	halfH := c.Height / (2 * c.zoom())

	minX := c.Bounds.X + halfW
	maxX := c.Bounds.X + c.Bounds.Width - halfW
	minY := c.Bounds.Y + halfH
	maxY := c.Bounds.Y + c.Bounds.Height - halfH

	// If bounds are smaller than visible area, center the camera.
	if minX > maxX {
		c.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}
