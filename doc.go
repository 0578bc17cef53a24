// Package stagehand is the render side of an entity tree for [Ebitengine].
//
// A [RenderHandler] is a behavior attached to an [Entity]. It owns a
// [Canvas] on a [Screen] and a [Stage] drawn into it. Child entities hand
// their display nodes to the handler when they are added; every tick the
// handler broadcasts [MsgRender] to its children, culls the stage against
// the camera viewport, sorts it by depth and commits the frame.
//
// # Quick start
//
//	root := stagehand.NewEntity("scene")
//	screen := stagehand.NewScreen(640, 480)
//	cam := stagehand.NewCameraBehavior(640, 480)
//	root.AddBehavior(cam)
//	h := stagehand.NewRenderHandler(stagehand.DefaultRenderConfig(), stagehand.WithScreen(screen))
//	root.AddBehavior(h)
//
//	game := stagehand.NewGame(root, screen)
//	game.Camera = cam
//	ebiten.RunGame(game)
//
// Attach the camera before the render handlers so they cull against the
// viewport of the same tick.
//
// # Display nodes
//
// Every visual element is a [Node]. Nodes form a tree rooted at
// [Stage.Root]. Children inherit their parent's transform and alpha.
// Entities reach their stage through [RenderLoad] or, in [MsgRender]
// listeners, through [RenderMessage.Stage]:
//
//	child.On(stagehand.MsgRenderLoad, func(p any) {
//		p.(*stagehand.RenderLoad).Stage.AddChild(sprite)
//	})
//
// A node named [ManagedName] is never culled; hide it with [Node.Hidden].
//
// # Several handlers
//
// More than one render handler may sit on the same entity, each with its
// own canvas. The last one attached is the primary: it commits the frame
// for all of them and receives the extra content the secondaries forward
// with [MsgRenderAddition]. Secondaries find their stage in
// [RenderAddition.Fields] under [StageKey].
//
// # Input
//
// With [Input.Enabled], pointer presses, releases and moves on the stage are
// converted to world coordinates and delivered as [PickEvent] payloads on
// [MsgPointerDown], [MsgPointerUp] and [MsgPointerMove]. Use
// [RenderHandler.WorldPoint] for the same conversion elsewhere.
//
// Tweens (via [gween]) and ECS integration (via the [Donburi] adapter in
// stagehand/ecs) are included.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package stagehand
