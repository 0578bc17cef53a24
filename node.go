package stagehand

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// ManagedName is the node name that exempts a display node from automatic
// visibility culling. Entities that manage their own visibility use it.
const ManagedName = "entity-managed"

// HitShape is used for custom hit testing regions in local coordinates.
type HitShape interface {
	Contains(x, y float64) bool
}

// nodeIDCounter is a plain counter; the scene graph is single-threaded.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Node is a display node: an item in a stage's drawing list. A single flat
// struct is used for containers and sprites alike.
type Node struct {
	// Identity
	ID   uint32
	Name string

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local)
	X, Y     float64
	ScaleX   float64
	ScaleY   float64
	Rotation float64
	PivotX   float64
	PivotY   float64

	worldTransform [6]float64
	worldAlpha     float64
	transformDirty bool

	Alpha float64
	Color Color

	// Hidden is the explicit force-hide flag owned by game logic. A hidden
	// node is never made visible by culling.
	Hidden bool
	// Visible is computed every frame by the render handler's cull pass.
	Visible bool
	// Paused is written by the render handler. Paused nodes skip OnUpdate
	// and their tweens stop advancing.
	Paused       bool
	Interactable bool

	// Z is the depth key. Lower values are drawn first.
	Z float64

	// Width and Height give the local size used for bounds and hit testing.
	// When both are zero the image size is used instead.
	Width, Height float64
	Image         *ebiten.Image

	HitShape HitShape

	// Entity is the entity this node belongs to. Pick events that hit this
	// node are forwarded to it.
	Entity   *Entity
	UserData any

	// OnUpdate is called once per commit with the elapsed milliseconds,
	// unless the node is paused.
	OnUpdate func(dt float64)

	tweens     []*Tween
	disposed   bool
	orderDirty bool
}

func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Alpha = 1
	n.Color = ColorWhite
	n.Visible = true
	n.transformDirty = true
}

// NewContainer creates a node with no visual representation of its own.
func NewContainer(name string) *Node {
	n := &Node{Name: name}
	nodeDefaults(n)
	return n
}

// NewSprite creates a node that draws img. img may be nil, in which case the
// node draws a solid rectangle of Width x Height in Color.
func NewSprite(name string, img *ebiten.Image) *Node {
	n := &Node{Name: name, Image: img}
	nodeDefaults(n)
	return n
}

// NewRect creates a solid-color rectangle node.
func NewRect(name string, w, h float64, c Color) *Node {
	n := &Node{Name: name, Width: w, Height: h}
	nodeDefaults(n)
	n.Color = c
	return n
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("stagehand: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, n) {
		panic("stagehand: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	n.orderDirty = true
	markSubtreeDirty(child)
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if globalDebug {
		debugCheckDisposed(n, "RemoveChild (parent)")
	}
	if child.Parent != n {
		panic("stagehand: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	n.orderDirty = true
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// RemoveChildren detaches all children from this node.
// Children are NOT disposed.
func (n *Node) RemoveChildren() {
	for _, child := range n.children {
		child.Parent = nil
		markSubtreeDirty(child)
	}
	n.children = n.children[:0]
	n.orderDirty = true
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// SetZ sets the node's depth key and marks the parent's children as unsorted.
func (n *Node) SetZ(z float64) {
	if n.Z == z {
		return
	}
	n.Z = z
	if n.Parent != nil {
		n.Parent.orderDirty = true
	}
}

// OrderDirty reports whether the children need re-sorting by depth key.
func (n *Node) OrderDirty() bool {
	return n.orderDirty
}

// SortChildren stably reorders the children by ascending Z and clears the
// order flag. Children with equal Z keep their insertion order.
// Insertion sort: zero allocations and O(n) when already sorted.
func (n *Node) SortChildren() {
	c := n.children
	for i := 1; i < len(c); i++ {
		key := c[i]
		j := i - 1
		for j >= 0 && c[j].Z > key.Z {
			c[j+1] = c[j]
			j--
		}
		c[j+1] = key
	}
	n.orderDirty = false
}

// --- Bounds ---

// Size returns the local width and height used for bounds and hit testing.
func (n *Node) Size() (w, h float64) {
	if n.Width != 0 || n.Height != 0 {
		return n.Width, n.Height
	}
	if n.Image != nil {
		b := n.Image.Bounds()
		return float64(b.Dx()), float64(b.Dy())
	}
	return 0, 0
}

// Bounds returns the world-space axis-aligned bounds of the node and its
// subtree. ok is false when neither the node nor any descendant has a size.
// World transforms must be current (see Stage.RefreshTransforms).
func (n *Node) Bounds() (r Rect, ok bool) {
	if w, h := n.Size(); w != 0 || h != 0 {
		r = worldAABB(n.worldTransform, w, h)
		ok = true
	}
	for _, child := range n.children {
		cb, cok := child.Bounds()
		if !cok {
			continue
		}
		if !ok {
			r, ok = cb, true
			continue
		}
		r = unionRect(r, cb)
	}
	return r, ok
}

func unionRect(a, b Rect) Rect {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	maxX := max(a.X+a.Width, b.X+b.Width)
	maxY := max(a.Y+a.Height, b.Y+b.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.HitShape = nil
	n.Image = nil
	n.Entity = nil
	n.UserData = nil
	n.OnUpdate = nil
	for _, tw := range n.tweens {
		tw.finish(false)
	}
	n.tweens = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
