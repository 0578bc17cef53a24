package stagehand

import (
	"encoding/json"
	"fmt"
	"io/fs"
)

// Input selects which raw pointer events a render handler translates.
type Input struct {
	// Touch accepts touch events.
	Touch bool `json:"touch"`
	// Click accepts mouse events.
	Click bool `json:"click"`
	// Camera re-fires pointer-move while a pointer is held and the camera moves.
	Camera bool `json:"camera"`
	// Hover forwards moves even when no pointer is engaged.
	Hover bool `json:"hover"`
}

// Enabled reports whether any input flag is set.
func (in Input) Enabled() bool {
	return in.Touch || in.Click || in.Camera || in.Hover
}

// RenderConfig is the declarative configuration of a render handler.
type RenderConfig struct {
	// Canvas is the id of the presentation surface the handler creates.
	Canvas string `json:"canvas"`
	// AutoClear clears the canvas before every draw. Defaults to true.
	AutoClear bool `json:"autoClear"`
	// Input configures pointer translation. No listeners are registered
	// when every flag is false.
	Input Input `json:"input"`
}

// DefaultRenderConfig returns the configuration used for fields a config
// file leaves out.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Canvas:    "canvas",
		AutoClear: true,
	}
}

// ParseRenderConfig decodes a JSON render config on top of the defaults.
func ParseRenderConfig(data []byte) (RenderConfig, error) {
	cfg := DefaultRenderConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RenderConfig{}, fmt.Errorf("failed to parse render config: %w", err)
	}
	if cfg.Canvas == "" {
		return RenderConfig{}, fmt.Errorf("failed to parse render config: %w", ErrEmptyCanvasID)
	}
	return cfg, nil
}

// LoadRenderConfig reads and parses name from fsys.
func LoadRenderConfig(fsys fs.FS, name string) (RenderConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return RenderConfig{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	cfg, err := ParseRenderConfig(data)
	if err != nil {
		return RenderConfig{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}
