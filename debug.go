package stagehand

import (
	"fmt"
	"time"
)

// globalDebug enables tree-operation checks. Toggled by SetDebugMode.
var globalDebug bool

// SetDebugMode enables or disables debug checks. In debug mode tree
// operations on disposed nodes panic, deep or wide trees log warnings, and
// render handlers log per-frame timing at debug level.
func SetDebugMode(enabled bool) {
	globalDebug = enabled
}

// DebugMode reports whether debug checks are enabled.
func DebugMode() bool {
	return globalDebug
}

// frameStats holds per-frame timing of one render handler tick.
type frameStats struct {
	prepTime   time.Duration
	renderTime time.Duration
	nodeCount  int
	culled     int
}

// debugLogFrame logs frame stats when debug mode is on.
func debugLogFrame(canvasID string, stats frameStats) {
	if !globalDebug {
		return
	}
	Logger().Debug("frame",
		"canvas", canvasID,
		"prep", stats.prepTime,
		"render", stats.renderTime,
		"total", stats.prepTime+stats.renderTime,
		"nodes", stats.nodeCount,
		"culled", stats.culled,
	)
}

// debugCheckDisposed panics when a disposed node is used in a tree operation.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("stagehand debug: %s on disposed node %q (ID was %d)", op, n.Name, n.ID))
	}
}

const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns if tree depth exceeds debugMaxTreeDepth.
func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		Logger().Warn("tree depth exceeds threshold",
			"depth", depth, "threshold", debugMaxTreeDepth, "node", n.Name)
	}
}

const debugMaxChildCount = 1000

// debugCheckChildCount warns if a node has more than debugMaxChildCount children.
func debugCheckChildCount(n *Node) {
	if len(n.children) > debugMaxChildCount {
		Logger().Warn("child count exceeds threshold",
			"node", n.Name, "children", len(n.children), "threshold", debugMaxChildCount)
	}
}
