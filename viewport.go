package stagehand

import "math"

// CameraUpdate is the payload of MsgCameraUpdate. Viewport is the visible
// world rectangle; ScaleX and ScaleY map world units to logical canvas units
// (0 means 1); Orientation is in radians.
type CameraUpdate struct {
	Viewport       Rect
	ScaleX, ScaleY float64
	Orientation    float64
}

// viewportTransform maps world coordinates to canvas pixels for a camera
// showing vp at the given scale and orientation, rotating about the viewport
// center:
//
//	T(halfW·sx·dpr, halfH·sy·dpr) · R(orientation) · S(sx·dpr, sy·dpr) · T(-(x+halfW), -(y+halfH))
func viewportTransform(vp Rect, sx, sy, orientation, dpr float64) [6]float64 {
	halfW, halfH := vp.Width/2, vp.Height/2
	m := translateAffine(-(vp.X + halfW), -(vp.Y + halfH))
	m = multiplyAffine(scaleAffine(sx*dpr, sy*dpr), m)
	m = multiplyAffine(rotateAffine(orientation), m)
	return multiplyAffine(translateAffine(halfW*sx*dpr, halfH*sy*dpr), m)
}

// handleCameraUpdate stores the new viewport, resizes the canvas and updates
// the stage transform. A held pointer is re-sent as a move so drags track
// the world through camera motion.
func (h *RenderHandler) handleCameraUpdate(payload any) {
	cu, ok := payload.(*CameraUpdate)
	if !ok || cu == nil || h.stage == nil {
		return
	}
	h.applyCamera(cu)
	if h.following {
		ev := h.lastRaw
		ev.Phase = PointerMove
		h.emit(MsgPointerMove, ev)
	}
}

func (h *RenderHandler) applyCamera(cu *CameraUpdate) {
	h.camera = cu.Viewport
	h.scaleX = sanitizeScale(cu.ScaleX)
	h.scaleY = sanitizeScale(cu.ScaleY)

	// Resize first: the transform is computed for the new pixel size.
	dpr := h.screen.DevicePixelRatio()
	cw, ch := h.canvas.ClientSize()
	h.canvas.Resize(int(math.Round(cw*dpr)), int(math.Round(ch*dpr)))

	h.stage.SetTransform(viewportTransform(cu.Viewport, h.scaleX, h.scaleY, cu.Orientation, dpr))
	h.stage.ScaleX, h.stage.ScaleY = h.scaleX, h.scaleY
}

// WorldPoint converts a point in canvas pixels to world coordinates:
// world = (pixel / dpr) / stageScale + cameraOrigin, per axis.
// Pick events use the same conversion.
func (h *RenderHandler) WorldPoint(px, py float64) (wx, wy float64) {
	dpr := h.devicePixelRatio()
	return px/dpr/h.scaleX + h.camera.X, py/dpr/h.scaleY + h.camera.Y
}

// ScreenPoint is the inverse of WorldPoint.
func (h *RenderHandler) ScreenPoint(wx, wy float64) (px, py float64) {
	dpr := h.devicePixelRatio()
	return (wx - h.camera.X) * h.scaleX * dpr, (wy - h.camera.Y) * h.scaleY * dpr
}

func (h *RenderHandler) devicePixelRatio() float64 {
	if h.screen == nil {
		return 1
	}
	return h.screen.DevicePixelRatio()
}
