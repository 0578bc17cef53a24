package ecs

import (
	"time"

	"github.com/phanxgames/stagehand"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// Pick is a pointer pick translated for ECS systems.
type Pick struct {
	// Kind is the stagehand message name: MsgPointerDown, MsgPointerUp or
	// MsgPointerMove.
	Kind      string
	X, Y      float64
	PointerID int
	Touch     bool
	Button    stagehand.MouseButton
	Modifiers stagehand.KeyModifiers
	// OwnerID is the ID of the entity whose render handler produced the pick.
	OwnerID uint32
	// NodeID is the ID of the hit display node, or 0 when nothing was hit.
	NodeID uint32
	// Target is the ECS entity linked to the hit node, or donburi.Null.
	Target donburi.Entity
}

// PhaseSample is one telemetry measurement.
type PhaseSample struct {
	Phase   string
	Elapsed time.Duration
}

// PickEventType is the Donburi event type for pointer picks.
var PickEventType = events.NewEventType[Pick]()

// TelemetryEventType is the Donburi event type for render phase timings.
var TelemetryEventType = events.NewEventType[PhaseSample]()

// Bridge publishes pick events from stagehand entities into a world and
// resolves hit nodes to linked ECS entities.
type Bridge struct {
	world donburi.World
	links map[*stagehand.Node]donburi.Entity
}

// NewBridge creates a bridge publishing into world.
func NewBridge(world donburi.World) *Bridge {
	return &Bridge{world: world, links: make(map[*stagehand.Node]donburi.Entity)}
}

// Link associates a display node with an ECS entity. Picks that hit the
// node carry e as their Target.
func (b *Bridge) Link(node *stagehand.Node, e donburi.Entity) {
	if node == nil {
		return
	}
	b.links[node] = e
}

// Unlink drops the association for node. It works on disposed nodes too.
func (b *Bridge) Unlink(node *stagehand.Node) {
	if node == nil {
		return
	}
	delete(b.links, node)
}

// Listen subscribes to the pointer messages of owner and publishes each
// pick as a Pick event. The returned function unsubscribes.
func (b *Bridge) Listen(owner *stagehand.Entity) (stop func()) {
	msgs := [...]string{stagehand.MsgPointerDown, stagehand.MsgPointerUp, stagehand.MsgPointerMove}
	var handles [len(msgs)]stagehand.ListenerHandle
	for i, msg := range msgs {
		handles[i] = owner.On(msg, func(payload any) {
			if pe, ok := payload.(*stagehand.PickEvent); ok && pe != nil {
				b.publish(msg, pe)
			}
		})
	}
	return func() {
		for _, h := range handles {
			h.Remove()
		}
	}
}

func (b *Bridge) publish(kind string, pe *stagehand.PickEvent) {
	p := Pick{
		Kind:      kind,
		X:         pe.X,
		Y:         pe.Y,
		PointerID: pe.Raw.PointerID,
		Touch:     pe.Raw.Touch,
		Button:    pe.Raw.Button,
		Modifiers: pe.Raw.Modifiers,
		Target:    donburi.Null,
	}
	if pe.Owner != nil {
		p.OwnerID = pe.Owner.ID
	}
	if pe.Node != nil {
		p.NodeID = pe.Node.ID
		if e, ok := b.links[pe.Node]; ok && b.world.Valid(e) {
			p.Target = e
		}
	}
	PickEventType.Publish(b.world, p)
}

type telemetrySink struct {
	world donburi.World
}

// NewTelemetrySink returns a TelemetrySink that publishes every sample to
// TelemetryEventType.
func NewTelemetrySink(world donburi.World) stagehand.TelemetrySink {
	return &telemetrySink{world: world}
}

func (s *telemetrySink) Record(phase string, elapsed time.Duration) {
	TelemetryEventType.Publish(s.world, PhaseSample{Phase: phase, Elapsed: elapsed})
}
