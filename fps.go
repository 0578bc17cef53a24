package stagehand

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// NewTelemetryWidget creates a node that displays FPS, TPS and the render
// phase timings recorded in t. The text is refreshed every ~500ms.
// The node is named ManagedName so culling never hides it.
func NewTelemetryWidget(t *Telemetry) *Node {
	// 180x64 is enough for four lines of debug text.
	img := ebiten.NewImage(180, 64)

	node := NewSprite(ManagedName, img)
	node.Z = math.MaxFloat64 // draw on top

	var sinceRefresh float64
	refresh := func() {
		img.Clear()
		// Semi-transparent background for readability
		img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(img, telemetryText(t, ebiten.ActualFPS(), ebiten.ActualTPS()))
	}

	node.OnUpdate = func(dt float64) {
		sinceRefresh += dt
		if sinceRefresh < 500 {
			return
		}
		sinceRefresh = 0
		refresh()
	}

	return node
}

// telemetryText formats the widget body.
func telemetryText(t *Telemetry, fps, tps float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FPS: %.1f\nTPS: %.1f", fps, tps)
	if t == nil {
		return b.String()
	}
	for _, p := range t.Snapshot() {
		fmt.Fprintf(&b, "\n%s: %.2fms", p.Phase, float64(p.Average().Microseconds())/1000)
	}
	return b.String()
}
