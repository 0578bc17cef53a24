package stagehand

import (
	"sort"
	"time"
)

// Phase names reported by render handlers every tick.
const (
	PhaseRenderPrep = "Render-Prep"
	PhaseRender     = "Render"
)

// TelemetrySink receives per-phase timing samples.
type TelemetrySink interface {
	Record(phase string, elapsed time.Duration)
}

// TelemetryFunc adapts a function to TelemetrySink.
type TelemetryFunc func(phase string, elapsed time.Duration)

// Record calls f(phase, elapsed).
func (f TelemetryFunc) Record(phase string, elapsed time.Duration) {
	f(phase, elapsed)
}

// PhaseStats summarizes the samples recorded for one phase.
type PhaseStats struct {
	Phase   string
	Last    time.Duration
	Max     time.Duration
	Total   time.Duration
	Samples int
}

// Average returns the mean sample duration, or 0 without samples.
func (p PhaseStats) Average() time.Duration {
	if p.Samples == 0 {
		return 0
	}
	return p.Total / time.Duration(p.Samples)
}

// Telemetry is an in-memory TelemetrySink that keeps running totals per
// phase. Several handlers may share one Telemetry.
type Telemetry struct {
	phases map[string]*PhaseStats
}

// NewTelemetry creates an empty aggregator.
func NewTelemetry() *Telemetry {
	return &Telemetry{phases: make(map[string]*PhaseStats)}
}

// Record adds a sample for phase.
func (t *Telemetry) Record(phase string, elapsed time.Duration) {
	p := t.phases[phase]
	if p == nil {
		p = &PhaseStats{Phase: phase}
		t.phases[phase] = p
	}
	p.Last = elapsed
	p.Total += elapsed
	p.Samples++
	if elapsed > p.Max {
		p.Max = elapsed
	}
}

// Phase returns the stats for phase. ok is false if nothing was recorded.
func (t *Telemetry) Phase(phase string) (stats PhaseStats, ok bool) {
	p := t.phases[phase]
	if p == nil {
		return PhaseStats{Phase: phase}, false
	}
	return *p, true
}

// Snapshot returns the stats of every phase sorted by phase name.
func (t *Telemetry) Snapshot() []PhaseStats {
	out := make([]PhaseStats, 0, len(t.phases))
	for _, p := range t.phases {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phase < out[j].Phase })
	return out
}

// Reset drops all recorded samples.
func (t *Telemetry) Reset() {
	clear(t.phases)
}

// multiSink fans a sample out to several sinks.
type multiSink []TelemetrySink

func (m multiSink) Record(phase string, elapsed time.Duration) {
	for _, s := range m {
		s.Record(phase, elapsed)
	}
}

// MultiTelemetry returns a sink that records to every non-nil sink given.
func MultiTelemetry(sinks ...TelemetrySink) TelemetrySink {
	var m multiSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}
