package metrics

import (
	"math"

	"github.com/san-kum/braketilt/internal/sim"
	"gonum.org/v1/gonum/stat"
)

// Setpoint summarises the setpoint trace. Which summary is reported is
// selected at construction.
type Setpoint struct {
	name    string
	summary func([]float64) float64
	samples []float64
}

func NewPeakSetpoint() *Setpoint {
	return &Setpoint{name: "peak_setpoint", summary: maxAbs}
}

func NewMeanSetpoint() *Setpoint {
	return &Setpoint{name: "mean_setpoint", summary: func(x []float64) float64 { return stat.Mean(x, nil) }}
}

func NewSetpointStdDev() *Setpoint {
	return &Setpoint{name: "setpoint_std", summary: func(x []float64) float64 { return stat.StdDev(x, nil) }}
}

func (s *Setpoint) Name() string { return s.name }

func (s *Setpoint) Observe(st sim.Step) {
	s.samples = append(s.samples, float64(st.State.Setpoint))
}

func (s *Setpoint) Value() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	v := s.summary(s.samples)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (s *Setpoint) Reset() {
	s.samples = s.samples[:0]
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// MaxStep is the largest single-cycle setpoint change while the rate limiter
// is in charge. Cycles touched by hold-tilt, winddown or a reset are skipped.
type MaxStep struct {
	prev     float32
	prevHold bool
	started  bool
	max      float64
}

func NewMaxStep() *MaxStep { return &MaxStep{} }

func (m *MaxStep) Name() string { return "max_step" }

func (m *MaxStep) Observe(st sim.Step) {
	sp := st.State.Setpoint
	limited := !st.State.HoldTiltActive && !m.prevHold && !st.Winddown && !st.Reset
	if m.started && limited {
		m.max = math.Max(m.max, math.Abs(float64(sp-m.prev)))
	}
	m.prev = sp
	m.prevHold = st.State.HoldTiltActive
	m.started = true
}

func (m *MaxStep) Value() float64 { return m.max }

func (m *MaxStep) Reset() {
	m.prev = 0
	m.prevHold = false
	m.started = false
	m.max = 0
}
