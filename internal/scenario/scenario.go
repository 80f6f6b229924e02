package scenario

import (
	"errors"
	"fmt"
)

var (
	ErrNoPhases      = errors.New("scenario: no phases")
	ErrPhaseDuration = errors.New("scenario: phase duration must be positive")
)

// Scenario is a scripted ride: a sequence of phases played back at the
// control-loop rate.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Phases      []Phase `yaml:"phases"`
}

// Phase holds the external signals for a stretch of the ride. ERPM and pitch
// are ramped linearly from their start to end values over the phase.
type Phase struct {
	Name          string  `yaml:"name"`
	Duration      float64 `yaml:"duration"`
	ERPMStart     float64 `yaml:"erpm_start"`
	ERPMEnd       float64 `yaml:"erpm_end"`
	Braking       bool    `yaml:"braking"`
	BalanceOffset float64 `yaml:"balance_offset"`
	AccelDiff     float64 `yaml:"accel_diff"`
	PitchStart    float64 `yaml:"pitch_start"`
	PitchEnd      float64 `yaml:"pitch_end"`
	BalancePitch  float64 `yaml:"balance_pitch"`
	WheelSlip     bool    `yaml:"wheel_slip"`
	// NoIMU drives the controller through the legacy call without IMU data.
	NoIMU bool `yaml:"no_imu,omitempty"`
	// Reset clears the controller on the first cycle, as on mode re-entry.
	Reset bool `yaml:"reset,omitempty"`
	// Winddown retires the correction instead of updating it.
	Winddown bool `yaml:"winddown,omitempty"`
}

// Response holds the step sizes the incline estimator hands to brake-tilt,
// in degrees per cycle.
type Response struct {
	OnStepSize  float64 `yaml:"on_step_size"`
	OffStepSize float64 `yaml:"off_step_size"`
}

// Noise is the standard deviation of Gaussian noise added to sensor signals.
type Noise struct {
	Pitch     float64 `yaml:"pitch"`
	AccelDiff float64 `yaml:"accel_diff"`
}

func (s *Scenario) Duration() float64 {
	total := 0.0
	for _, p := range s.Phases {
		total += p.Duration
	}
	return total
}

// PhaseAt returns the index of the phase active at time t and the fraction of
// that phase already elapsed. ok is false once t is past the end.
func (s *Scenario) PhaseAt(t float64) (idx int, frac float64, ok bool) {
	start := 0.0
	for i, p := range s.Phases {
		end := start + p.Duration
		if t < end {
			return i, (t - start) / p.Duration, true
		}
		start = end
	}
	return 0, 0, false
}

func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return ErrNoPhases
	}
	for i, p := range s.Phases {
		if p.Duration <= 0 {
			return fmt.Errorf("phase %d (%s): %w", i+1, p.Name, ErrPhaseDuration)
		}
	}
	return nil
}

// Names lists phase names in order.
func (s *Scenario) Names() []string {
	names := make([]string, len(s.Phases))
	for i, p := range s.Phases {
		names[i] = p.Name
	}
	return names
}
