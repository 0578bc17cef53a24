package stagehand

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const maxTweenFields = 4

// Tween animates up to four float64 fields of a display node at once.
// Durations are in seconds; Update takes the same millisecond delta the
// frame cycle delivers. A tween holds still while its node or any ancestor
// is paused, and stops for good once the node is disposed.
type Tween struct {
	tweens [maxTweenFields]*gween.Tween
	fields [maxTweenFields]*float64
	count  int
	target *Node
	Done   bool

	// OnComplete runs once when the last field reaches its target.
	OnComplete func()

	playing bool
}

func newTween(node *Node, duration float32, fn ease.TweenFunc, pairs ...tweenPair) *Tween {
	if fn == nil {
		fn = ease.Linear
	}
	tw := &Tween{target: node}
	for _, p := range pairs {
		tw.tweens[tw.count] = gween.New(float32(*p.field), float32(p.to), duration, fn)
		tw.fields[tw.count] = p.field
		tw.count++
	}
	return tw
}

type tweenPair struct {
	field *float64
	to    float64
}

// Update advances the tween by dt milliseconds.
func (tw *Tween) Update(dt float64) {
	if tw.Done {
		return
	}
	if tw.target != nil {
		if tw.target.IsDisposed() {
			tw.finish(false)
			return
		}
		if pausedInTree(tw.target) {
			return
		}
	}

	allDone := true
	for i := 0; i < tw.count; i++ {
		val, finished := tw.tweens[i].Update(float32(dt / 1000))
		*tw.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	if tw.target != nil {
		tw.target.MarkDirty()
	}
	if allDone {
		tw.finish(true)
	}
}

// Play attaches the tween to its node so the stage advances it with every
// committed frame, after the node's OnUpdate. It is dropped once done.
func (tw *Tween) Play() *Tween {
	if tw.playing || tw.Done || tw.target == nil {
		return tw
	}
	tw.playing = true
	tw.target.tweens = append(tw.target.tweens, tw)
	return tw
}

// Stop marks the tween done without calling OnComplete. A playing tween is
// dropped from its node on the next frame.
func (tw *Tween) Stop() {
	tw.finish(false)
}

func (tw *Tween) finish(completed bool) {
	if tw.Done {
		return
	}
	tw.Done = true
	if completed && tw.OnComplete != nil {
		tw.OnComplete()
	}
}

// advanceTweens updates the playing tweens of n and drops finished ones.
// Tweens started during the pass begin on the next frame.
func (n *Node) advanceTweens(dt float64) {
	count := len(n.tweens)
	for i := 0; i < count; i++ {
		n.tweens[i].Update(dt)
	}
	kept := n.tweens[:0]
	for _, tw := range n.tweens {
		if tw.Done {
			tw.playing = false
			continue
		}
		kept = append(kept, tw)
	}
	clear(n.tweens[len(kept):])
	n.tweens = kept
}

// pausedInTree reports whether n or one of its ancestors is paused.
func pausedInTree(n *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Paused {
			return true
		}
	}
	return false
}

// TweenPosition animates node.X and node.Y.
func TweenPosition(node *Node, toX, toY float64, duration float32, fn ease.TweenFunc) *Tween {
	return newTween(node, duration, fn, tweenPair{&node.X, toX}, tweenPair{&node.Y, toY})
}

// TweenScale animates node.ScaleX and node.ScaleY.
func TweenScale(node *Node, toSX, toSY float64, duration float32, fn ease.TweenFunc) *Tween {
	return newTween(node, duration, fn, tweenPair{&node.ScaleX, toSX}, tweenPair{&node.ScaleY, toSY})
}

// TweenColor animates all four components of node.Color.
func TweenColor(node *Node, to Color, duration float32, fn ease.TweenFunc) *Tween {
	return newTween(node, duration, fn,
		tweenPair{&node.Color.R, to.R},
		tweenPair{&node.Color.G, to.G},
		tweenPair{&node.Color.B, to.B},
		tweenPair{&node.Color.A, to.A},
	)
}

// TweenAlpha animates node.Alpha.
func TweenAlpha(node *Node, to float64, duration float32, fn ease.TweenFunc) *Tween {
	return newTween(node, duration, fn, tweenPair{&node.Alpha, to})
}

// TweenRotation animates node.Rotation.
func TweenRotation(node *Node, to float64, duration float32, fn ease.TweenFunc) *Tween {
	return newTween(node, duration, fn, tweenPair{&node.Rotation, to})
}
