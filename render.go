package stagehand

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// whitePixel is a 1x1 white image used to draw solid rectangles.
// Allocated on first use so importing the package does not touch the GPU.
var whitePixel *ebiten.Image

func solidImage() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(ColorWhite.RGBA())
	}
	return whitePixel
}

// draw walks the tree depth-first and draws every visible node into target.
// Top-level order is whatever the render handler's sort left in place;
// nested children are re-sorted lazily when their order is dirty.
func (s *Stage) draw(target *ebiten.Image) {
	for _, child := range s.root.children {
		s.drawNode(target, child)
	}
}

func (s *Stage) drawNode(target *ebiten.Image, n *Node) {
	if !n.Visible || n.Hidden {
		return
	}

	img := n.Image
	w, h := n.Size()
	if img != nil || w != 0 || h != 0 {
		var op ebiten.DrawImageOptions
		if img == nil {
			img = solidImage()
			op.GeoM.Scale(w, h)
		} else if b := img.Bounds(); n.Width != 0 || n.Height != 0 {
			op.GeoM.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
		}
		m := multiplyAffine(s.transform, n.worldTransform)
		var g ebiten.GeoM
		g.SetElement(0, 0, m[0])
		g.SetElement(1, 0, m[1])
		g.SetElement(0, 1, m[2])
		g.SetElement(1, 1, m[3])
		g.SetElement(0, 2, m[4])
		g.SetElement(1, 2, m[5])
		op.GeoM.Concat(g)

		a := float32(n.Color.A * n.worldAlpha)
		op.ColorScale.Scale(float32(n.Color.R)*a, float32(n.Color.G)*a, float32(n.Color.B)*a, a)
		target.DrawImage(img, &op)
	}

	if len(n.children) == 0 {
		return
	}
	if n.orderDirty {
		n.SortChildren()
	}
	for _, child := range n.children {
		s.drawNode(target, child)
	}
}
