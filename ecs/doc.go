// Package ecs bridges stagehand pick events and render telemetry into a
// [Donburi] world as typed events.
//
// Usage:
//
//	bridge := ecs.NewBridge(world)
//	stop := bridge.Listen(root)
//	defer stop()
//	bridge.Link(sprite, entry.Entity())
//	h := stagehand.NewRenderHandler(cfg, stagehand.WithTelemetry(ecs.NewTelemetrySink(world)))
//
// Subscribe to [PickEventType] and [TelemetryEventType] in your systems and
// drain them with ProcessEvents once per frame.
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
