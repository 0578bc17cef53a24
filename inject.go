package stagehand

// syntheticPointerEvent represents a single injected pointer event.
// Coordinates are stage pixels, identical to what real mouse input
// produces after the canvas offset is removed.
type syntheticPointerEvent struct {
	stageX, stageY float64
	pressed        bool
	button         MouseButton
}

// InjectPress queues a pointer press event at the given stage coordinates
// (left button). The event is consumed on the next ProcessInput call.
func (s *Stage) InjectPress(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{
		stageX: x, stageY: y,
		pressed: true,
		button:  MouseButtonLeft,
	})
}

// InjectMove queues a pointer move event with the button held down.
// Use this between InjectPress and InjectRelease to simulate a drag.
func (s *Stage) InjectMove(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{
		stageX: x, stageY: y,
		pressed: true,
		button:  MouseButtonLeft,
	})
}

// InjectHover queues a pointer move event with no button held.
func (s *Stage) InjectHover(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{
		stageX: x, stageY: y,
		button: MouseButtonLeft,
	})
}

// InjectRelease queues a pointer release event at the given stage coordinates.
func (s *Stage) InjectRelease(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{
		stageX: x, stageY: y,
		pressed: false,
		button:  MouseButtonLeft,
	})
}

// InjectClick queues a press followed by a release at the same
// coordinates. Consumes two frames.
func (s *Stage) InjectClick(x, y float64) {
	s.InjectPress(x, y)
	s.InjectRelease(x, y)
}

// InjectDrag queues a full drag sequence: press at (fromX, fromY),
// linearly interpolated moves over frames-2 intermediate frames, and
// release at (toX, toY). Minimum frames is 2 (press + release).
func (s *Stage) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	s.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		s.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	s.InjectRelease(toX, toY)
}

// PendingInjections returns the number of queued synthetic events.
func (s *Stage) PendingInjections() int {
	return len(s.injectQueue)
}

// processInjectedInput pops one event from the inject queue and feeds it
// through processPointer as pointer 0. Returns true if an event was
// consumed, in which case real input is skipped for the frame.
func (s *Stage) processInjectedInput(mods KeyModifiers) bool {
	if len(s.injectQueue) == 0 {
		return false
	}
	evt := s.injectQueue[0]
	copy(s.injectQueue, s.injectQueue[1:])
	s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]

	s.processPointer(0, evt.stageX, evt.stageY, evt.pressed, false, evt.button, mods)
	return true
}
