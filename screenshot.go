package stagehand

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// DefaultScreenshotDir is the directory a new stage writes screenshots to.
const DefaultScreenshotDir = "screenshots"

// Screenshot queues a labeled capture of the stage's canvas. The capture is
// taken right after the next committed draw and written to ScreenshotDir as
// a timestamped PNG. Captures wait while the canvas has no pixel size.
func (s *Stage) Screenshot(label string) {
	if s.disposed {
		return
	}
	s.screenshotQueue = append(s.screenshotQueue, label)
}

// PendingScreenshots returns the number of queued captures.
func (s *Stage) PendingScreenshots() int {
	return len(s.screenshotQueue)
}

// flushScreenshots writes every queued capture of img. Failures are logged
// and drop the queue.
func (s *Stage) flushScreenshots(img *ebiten.Image) {
	if len(s.screenshotQueue) == 0 {
		return
	}
	defer func() { s.screenshotQueue = s.screenshotQueue[:0] }()

	if err := os.MkdirAll(s.ScreenshotDir, 0o755); err != nil {
		Logger().Warn("screenshot directory unavailable", "dir", s.ScreenshotDir, "error", err)
		return
	}

	b := img.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	img.ReadPixels(pixels)
	out := unpremultiply(pixels, b.Dx(), b.Dy())

	stamp := time.Now().Format("20060102_150405")
	for _, label := range s.screenshotQueue {
		path := filepath.Join(s.ScreenshotDir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, out); err != nil {
			Logger().Warn("screenshot failed", "label", label, "error", err)
			continue
		}
		Logger().Info("screenshot written", "path", path)
	}
}

// unpremultiply converts premultiplied RGBA pixels to a straight-alpha image.
func unpremultiply(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i+3 < len(pixels) && i+3 < len(img.Pix); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return img
}

// writePNG encodes img to a PNG file at path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
