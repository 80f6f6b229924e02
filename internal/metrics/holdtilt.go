package metrics

import "github.com/san-kum/braketilt/internal/sim"

// HoldActivations counts inactive-to-active hold-tilt transitions.
type HoldActivations struct {
	active bool
	count  int
}

func NewHoldActivations() *HoldActivations { return &HoldActivations{} }

func (h *HoldActivations) Name() string { return "hold_activations" }

func (h *HoldActivations) Observe(s sim.Step) {
	if s.State.HoldTiltActive && !h.active {
		h.count++
	}
	h.active = s.State.HoldTiltActive
}

func (h *HoldActivations) Value() float64 { return float64(h.count) }

func (h *HoldActivations) Reset() {
	h.active = false
	h.count = 0
}

// Counter counts cycles matching a predicate.
type Counter struct {
	name  string
	match func(sim.Step) bool
	count int
}

func NewSuppressedCycles() *Counter {
	return &Counter{name: "suppressed_cycles", match: func(s sim.Step) bool { return s.Suppressed }}
}

func NewHoldCycles() *Counter {
	return &Counter{name: "hold_cycles", match: func(s sim.Step) bool { return s.State.HoldTiltActive }}
}

func (c *Counter) Name() string { return c.name }

func (c *Counter) Observe(s sim.Step) {
	if c.match(s) {
		c.count++
	}
}

func (c *Counter) Value() float64 { return float64(c.count) }

func (c *Counter) Reset() { c.count = 0 }

// Default is the metric set attached to every run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewHoldActivations(),
		NewHoldCycles(),
		NewSuppressedCycles(),
		NewPeakSetpoint(),
		NewMeanSetpoint(),
		NewSetpointStdDev(),
		NewMaxStep(),
	}
}
