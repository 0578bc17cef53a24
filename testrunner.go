package stagehand

import (
	"encoding/json"
	"errors"
	"fmt"
)

// scriptStep represents a single action in an input script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

type inputScript struct {
	Steps []scriptStep `json:"steps"`
}

// ErrEmptyScript is returned when an input script has no steps.
var ErrEmptyScript = errors.New("stagehand: input script has no steps")

// TestRunner sequences injected input events across frames for automated
// testing. Attach to a Stage via SetTestRunner.
//
// Supported actions: "click", "hover", "drag", "wait", "mark" and
// "screenshot". A mark step logs its label so a captured log can be lined up
// with the script; a screenshot step queues a capture of the stage's canvas.
type TestRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadTestScript parses a JSON input script and returns a TestRunner.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script inputScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse input script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, ErrEmptyScript
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "click", "hover", "drag", "wait", "mark", "screenshot":
		default:
			return nil, fmt.Errorf("parse input script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// SetTestRunner attaches a TestRunner to the stage. The runner is stepped
// at the start of every ProcessInput call. Pass nil to detach.
func (s *Stage) SetTestRunner(runner *TestRunner) {
	s.testRunner = runner
}

// Done reports whether all steps in the script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

func (r *TestRunner) step(s *Stage) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(s.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		s.InjectClick(st.X, st.Y)
	case "hover":
		s.InjectHover(st.X, st.Y)
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "mark":
		Logger().Info("input script mark", "label", st.Label, "step", r.cursor-1)
	case "screenshot":
		s.Screenshot(st.Label)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}
