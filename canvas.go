package stagehand

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
)

var (
	// ErrEmptyCanvasID is returned when a canvas is attached without an id.
	ErrEmptyCanvasID = errors.New("stagehand: canvas id is empty")
	// ErrCanvasExists is returned when a screen already holds a canvas with the same id.
	ErrCanvasExists = errors.New("stagehand: canvas id already attached")
)

// Canvas is a presentation surface: an offscreen image sized in device
// pixels that the Screen composites each frame.
type Canvas struct {
	ID string

	// X and Y place the canvas on the screen, in logical units.
	X, Y float64
	// Opacity scales the canvas alpha when composited. 1 is opaque.
	Opacity float64

	image         *ebiten.Image
	width, height int
	clientW       float64
	clientH       float64
	followsScreen bool
	screen        *Screen
	stage         *Stage
}

// NewCanvas creates a canvas that fills the screen it is attached to.
func NewCanvas(id string) *Canvas {
	return &Canvas{ID: id, Opacity: 1, followsScreen: true}
}

// SetClientSize fixes the on-screen size of the canvas in logical units.
// The canvas no longer follows the screen size afterwards.
func (c *Canvas) SetClientSize(w, h float64) {
	c.clientW, c.clientH = w, h
	c.followsScreen = false
}

// ClientSize returns the on-screen size in logical units.
func (c *Canvas) ClientSize() (w, h float64) {
	return c.clientW, c.clientH
}

// Resize sets the backing pixel size. Resizing to the current size is a
// no-op; otherwise the old image is released and a new one is allocated on
// next use.
func (c *Canvas) Resize(w, h int) {
	if w == c.width && h == c.height {
		return
	}
	c.width, c.height = w, h
	if c.image != nil {
		c.image.Deallocate()
		c.image = nil
	}
}

// PixelSize returns the backing size in device pixels.
func (c *Canvas) PixelSize() (w, h int) {
	return c.width, c.height
}

// Image returns the backing image, allocating it on first use.
// Returns nil while the canvas has no pixel size.
func (c *Canvas) Image() *ebiten.Image {
	if c.image == nil && c.width > 0 && c.height > 0 {
		c.image = ebiten.NewImage(c.width, c.height)
	}
	return c.image
}

// Screen returns the screen the canvas is attached to, or nil.
func (c *Canvas) Screen() *Screen {
	return c.screen
}

// Detach removes the canvas from its screen and releases the backing image.
func (c *Canvas) Detach() {
	if c.screen != nil {
		c.screen.remove(c)
		c.screen = nil
	}
	if c.image != nil {
		c.image.Deallocate()
		c.image = nil
	}
	c.width, c.height = 0, 0
}

// Screen is the container that holds canvases and composites them onto the
// ebiten screen image, in attachment order.
type Screen struct {
	canvases []*Canvas
	width    float64
	height   float64
	dpr      float64
}

// NewScreen creates a screen of the given logical size with a device pixel
// ratio of 1.
func NewScreen(w, h float64) *Screen {
	return &Screen{width: w, height: h, dpr: 1}
}

// Attach adds c to the screen. Canvases that follow the screen take its size.
func (s *Screen) Attach(c *Canvas) error {
	if c.ID == "" {
		return ErrEmptyCanvasID
	}
	if s.Canvas(c.ID) != nil {
		return ErrCanvasExists
	}
	if c.screen != nil {
		c.screen.remove(c)
	}
	c.screen = s
	if c.followsScreen {
		c.clientW, c.clientH = s.width, s.height
	}
	s.canvases = append(s.canvases, c)
	return nil
}

func (s *Screen) remove(c *Canvas) {
	for i, have := range s.canvases {
		if have == c {
			copy(s.canvases[i:], s.canvases[i+1:])
			s.canvases[len(s.canvases)-1] = nil
			s.canvases = s.canvases[:len(s.canvases)-1]
			return
		}
	}
}

// Canvas returns the attached canvas with the given id, or nil.
func (s *Screen) Canvas(id string) *Canvas {
	for _, c := range s.canvases {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Canvases returns the attached canvases. The returned slice MUST NOT be mutated.
func (s *Screen) Canvases() []*Canvas {
	return s.canvases
}

// Resize sets the logical screen size. Canvases that follow the screen are
// resized with it; their pixel size catches up on the next camera update.
func (s *Screen) Resize(w, h float64) {
	s.width, s.height = w, h
	for _, c := range s.canvases {
		if c.followsScreen {
			c.clientW, c.clientH = w, h
		}
	}
}

// Size returns the logical screen size.
func (s *Screen) Size() (w, h float64) {
	return s.width, s.height
}

// SetDevicePixelRatio sets the number of device pixels per logical unit.
// Values <= 0 are ignored.
func (s *Screen) SetDevicePixelRatio(r float64) {
	if r > 0 {
		s.dpr = r
	}
}

// DevicePixelRatio returns the number of device pixels per logical unit.
func (s *Screen) DevicePixelRatio() float64 {
	return s.dpr
}

// ProcessInput polls pointer input for every canvas that has a stage.
func (s *Screen) ProcessInput() {
	for _, c := range s.canvases {
		if c.stage != nil {
			c.stage.ProcessInput()
		}
	}
}

// Draw composites the canvases onto dst, which is in device pixels.
func (s *Screen) Draw(dst *ebiten.Image) {
	for _, c := range s.canvases {
		if c.image == nil || c.Opacity <= 0 {
			continue
		}
		var op ebiten.DrawImageOptions
		op.GeoM.Translate(c.X*s.dpr, c.Y*s.dpr)
		op.ColorScale.ScaleAlpha(float32(c.Opacity))
		dst.DrawImage(c.image, &op)
	}
}
