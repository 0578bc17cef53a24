package stagehand

import (
	"fmt"
)

// Message names exchanged between entities, the container and render handlers.
const (
	MsgChildAdded     = "child-entity-added"   // payload *Entity, sent to the parent
	MsgChildRemoved   = "child-entity-removed" // payload *Entity, sent to the parent
	MsgTick           = "tick"                 // payload *Tick
	MsgCameraUpdate   = "camera-update"        // payload *CameraUpdate
	MsgPause          = "pause-render"         // payload *PauseRequest or nil
	MsgUnpause        = "unpause-render"       // payload *PauseRequest or nil
	MsgRenderLoad     = "render-load"          // payload *RenderLoad, sent to a new child
	MsgRender         = "render"               // payload *RenderMessage, broadcast to children
	MsgRenderAddition = "render-addition"      // payload *RenderAddition, secondary to primary
	MsgPointerDown    = "pointer-down"         // payload *PickEvent
	MsgPointerUp      = "pointer-up"           // payload *PickEvent
	MsgPointerMove    = "pointer-move"         // payload *PickEvent
)

// Tick is the per-frame payload delivered to the root entity and relayed to
// the entities that drive rendering.
type Tick struct {
	Delta float64 // elapsed milliseconds since the previous tick
	Frame uint64  // monotonically increasing frame counter
}

// Behavior is a capability attached to an entity. Attach is called once when
// the behavior is added; Destroy is called when it is removed or the entity
// is destroyed.
type Behavior interface {
	Name() string
	Attach(owner *Entity) error
	Destroy()
}

// entityIDCounter is a plain counter; entities live on the game loop goroutine.
var entityIDCounter uint32

type listener struct {
	id uint32
	fn func(payload any)
}

// ListenerHandle allows removing a registered message listener.
type ListenerHandle struct {
	id     uint32
	entity *Entity
	msg    string
}

// Remove unregisters the listener so it no longer fires. Safe to call more
// than once and from inside the listener itself.
func (h ListenerHandle) Remove() {
	if h.entity == nil {
		return
	}
	ls := h.entity.listeners[h.msg]
	for i := range ls {
		if ls[i].id == h.id {
			next := make([]listener, 0, len(ls)-1)
			next = append(next, ls[:i]...)
			next = append(next, ls[i+1:]...)
			if len(next) == 0 {
				delete(h.entity.listeners, h.msg)
			} else {
				h.entity.listeners[h.msg] = next
			}
			return
		}
	}
}

// Entity is a node in the entity container: it carries behaviors, message
// listeners and child entities.
type Entity struct {
	ID   uint32
	Type string

	Parent    *Entity
	children  []*Entity
	behaviors []Behavior

	listeners map[string][]listener
	nextID    uint32

	// unhandled records messages this entity ignored during a parent
	// broadcast. Cleared when the entity is attached again.
	unhandled map[string]struct{}
	destroyed bool
	ticks     uint64
}

// NewEntity creates an entity of the given type.
func NewEntity(typ string) *Entity {
	entityIDCounter++
	return &Entity{
		ID:        entityIDCounter,
		Type:      typ,
		listeners: make(map[string][]listener),
	}
}

// On registers fn for msg. Listeners fire in registration order.
func (e *Entity) On(msg string, fn func(payload any)) ListenerHandle {
	e.nextID++
	id := e.nextID
	e.listeners[msg] = append(e.listeners[msg], listener{id: id, fn: fn})
	return ListenerHandle{id: id, entity: e, msg: msg}
}

// Handles reports whether the entity has at least one listener for msg.
func (e *Entity) Handles(msg string) bool {
	return len(e.listeners[msg]) > 0
}

// Trigger delivers payload to every listener of msg on this entity and
// returns how many listeners ran.
func (e *Entity) Trigger(msg string, payload any) int {
	if msg == MsgTick {
		e.ticks++
	}
	// The slice is replaced, never mutated in place, on Remove, so ranging
	// over the current header is safe while listeners unregister themselves.
	ls := e.listeners[msg]
	for _, l := range ls {
		l.fn(payload)
	}
	return len(ls)
}

// Ticks returns how many MsgTick messages this entity has received. Every
// listener of one tick sees the same count.
func (e *Entity) Ticks() uint64 {
	return e.ticks
}

// Broadcast triggers msg on every child. A child that has no listener for
// msg is skipped on every later broadcast of msg until it is attached again.
// A panic inside one child's listener is recovered and logged so the
// remaining children still receive the message.
func (e *Entity) Broadcast(msg string, payload any) {
	children := e.children
	for i := 0; i < len(children); i++ {
		child := children[i]
		if _, skip := child.unhandled[msg]; skip {
			continue
		}
		if deliver(child, msg, payload) == 0 {
			if child.unhandled == nil {
				child.unhandled = make(map[string]struct{})
			}
			child.unhandled[msg] = struct{}{}
		}
	}
}

// deliver triggers msg on child, converting a panic into a logged warning.
// A panicking child still counts as handling the message.
func deliver(child *Entity, msg string, payload any) (handled int) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("stagehand: listener panicked",
				"entity", child.ID, "type", child.Type, "msg", msg, "panic", fmt.Sprint(r))
			handled = 1
		}
	}()
	return child.Trigger(msg, payload)
}

// --- Children ---

// AddChild attaches child, detaching it from any previous parent, and
// notifies this entity with MsgChildAdded.
func (e *Entity) AddChild(child *Entity) {
	if child == nil {
		panic("stagehand: cannot add nil entity")
	}
	if child == e {
		panic("stagehand: entity cannot be its own child")
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = e
	child.unhandled = nil
	e.children = append(e.children, child)
	e.Trigger(MsgChildAdded, child)
}

// RemoveChild detaches child and notifies this entity with MsgChildRemoved.
// Returns false if child is not attached to e.
func (e *Entity) RemoveChild(child *Entity) bool {
	for i, c := range e.children {
		if c == child {
			next := make([]*Entity, 0, len(e.children)-1)
			next = append(next, e.children[:i]...)
			e.children = append(next, e.children[i+1:]...)
			child.Parent = nil
			e.Trigger(MsgChildRemoved, child)
			return true
		}
	}
	return false
}

// Children returns the child list. The returned slice MUST NOT be mutated.
func (e *Entity) Children() []*Entity {
	return e.children
}

// --- Behaviors ---

// AddBehavior appends b and attaches it. b is visible in Behaviors while its
// Attach runs. If Attach fails, b is removed again.
func (e *Entity) AddBehavior(b Behavior) error {
	e.behaviors = append(e.behaviors, b)
	if err := b.Attach(e); err != nil {
		e.dropBehavior(b)
		return fmt.Errorf("attach %s: %w", b.Name(), err)
	}
	return nil
}

// RemoveBehavior destroys and removes b. Returns false if b is not attached.
func (e *Entity) RemoveBehavior(b Behavior) bool {
	if !e.dropBehavior(b) {
		return false
	}
	b.Destroy()
	return true
}

func (e *Entity) dropBehavior(b Behavior) bool {
	for i, have := range e.behaviors {
		if have == b {
			next := make([]Behavior, 0, len(e.behaviors)-1)
			next = append(next, e.behaviors[:i]...)
			e.behaviors = append(next, e.behaviors[i+1:]...)
			return true
		}
	}
	return false
}

// Behaviors returns the attached behaviors in attachment order.
// The returned slice MUST NOT be mutated.
func (e *Entity) Behaviors() []Behavior {
	return e.behaviors
}

// Destroy destroys behaviors in reverse attachment order, detaches the
// entity from its parent and drops all listeners. Idempotent.
func (e *Entity) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	for i := len(e.behaviors) - 1; i >= 0; i-- {
		e.behaviors[i].Destroy()
	}
	e.behaviors = nil
	if e.Parent != nil {
		e.Parent.RemoveChild(e)
	}
	e.listeners = make(map[string][]listener)
}

// IsDestroyed reports whether Destroy has been called.
func (e *Entity) IsDestroyed() bool {
	return e.destroyed
}
