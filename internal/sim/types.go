package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/braketilt/internal/braketilt"
)

// Step records one control cycle: the inputs handed to the controller and the
// state it was left in.
type Step struct {
	Time          float64
	Phase         string
	ERPM          float32
	Braking       bool
	AccelDiff     float32
	BalanceOffset float32
	Pitch         float32
	BalancePitch  float32
	HasIMU        bool
	WheelSlip     bool
	Winddown      bool
	Reset         bool
	// Suppressed is set when the slip/incline override fired this cycle.
	Suppressed bool
	State      braketilt.State
}

func (s Step) IsValid() bool {
	for _, v := range []float32{s.State.Target, s.State.Setpoint, s.State.PitchTimer} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

type Metric interface {
	Name() string
	Observe(s Step)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Step)
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.00125,
		Duration:      4,
		ValidateState: true,
	}
}

type Result struct {
	Steps   []Step
	Metrics map[string]float64
	Errors  []error
}

// Setpoints returns the setpoint trace as float64 for plotting.
func (r *Result) Setpoints() []float64 {
	out := make([]float64, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = float64(s.State.Setpoint)
	}
	return out
}

func (r *Result) Targets() []float64 {
	out := make([]float64, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = float64(s.State.Target)
	}
	return out
}

type StepError struct {
	Time    float64
	Step    int
	Message string
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
