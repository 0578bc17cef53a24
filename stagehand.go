package stagehand

import "image/color"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// RGBA converts c to a premultiplied color.RGBA.
func (c Color) RGBA() color.RGBA {
	clamp := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{
		R: clamp(c.R * c.A),
		G: clamp(c.G * c.A),
		B: clamp(c.B * c.A),
		A: clamp(c.A),
	}
}

// Vec2 is a 2D vector used for positions, offsets and polygon points.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft   MouseButton = iota // primary (left) mouse button
	MouseButtonRight                     // secondary (right) mouse button
	MouseButtonMiddle                    // middle mouse button (scroll wheel click)
)

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// PointerPhase identifies what a raw pointer event reports.
type PointerPhase uint8

const (
	PointerDown PointerPhase = iota // a button or touch was pressed
	PointerUp                       // a button or touch was released
	PointerMove                     // the pointer moved
)

// String returns the phase name.
func (p PointerPhase) String() string {
	switch p {
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	case PointerMove:
		return "move"
	default:
		return "unknown"
	}
}
