package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/braketilt/internal/braketilt"
	"github.com/san-kum/braketilt/internal/scenario"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt                = 0.00125 // 800 Hz control loop
	DefaultStrength          = 10.0
	DefaultLingering         = 2.0
	DefaultInclineThreshold  = 4.0
	DefaultHoldTiltMinTarget = 1.0
	DefaultHoldTiltWindow    = 0.1
	DefaultHoldTiltDelta     = 2.0
	DefaultHoldTiltAngle     = 3.0
	DefaultHoldTiltTimeout   = 400
	DefaultOnStepSize        = 0.0125 // 10 deg/s at 800 Hz
	DefaultOffStepSize       = 0.00625
)

var (
	ErrParameterBounds = errors.New("config: parameter out of valid bounds")
	ErrEmptyScenario   = errors.New("config: scenario has no phases")
	ErrUnknownParam    = errors.New("config: unknown tuning parameter")
)

type Config struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Dt          float64           `yaml:"dt"`
	Duration    float64           `yaml:"duration,omitempty"`
	Seed        int64             `yaml:"seed,omitempty"`
	Noise       scenario.Noise    `yaml:"noise"`
	BrakeTilt   BrakeTiltConfig   `yaml:"brake_tilt"`
	Response    scenario.Response `yaml:"response"`
	Phases      []scenario.Phase  `yaml:"phases"`
}

type BrakeTiltConfig struct {
	Strength          float64 `yaml:"strength"`
	Lingering         float64 `yaml:"lingering"`
	InclineThreshold  float64 `yaml:"incline_threshold"`
	HoldTiltMinTarget float64 `yaml:"hold_tilt_min_target"`
	HoldTiltWindow    float64 `yaml:"hold_tilt_window"`
	HoldTiltDelta     float64 `yaml:"hold_tilt_pitch_delta"`
	HoldTiltAngle     float64 `yaml:"hold_tilt_angle"`
	HoldTiltTimeout   int     `yaml:"hold_tilt_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "flat-stop",
		Dt:   DefaultDt,
		BrakeTilt: BrakeTiltConfig{
			Strength:          DefaultStrength,
			Lingering:         DefaultLingering,
			InclineThreshold:  DefaultInclineThreshold,
			HoldTiltMinTarget: DefaultHoldTiltMinTarget,
			HoldTiltWindow:    DefaultHoldTiltWindow,
			HoldTiltDelta:     DefaultHoldTiltDelta,
			HoldTiltAngle:     DefaultHoldTiltAngle,
			HoldTiltTimeout:   DefaultHoldTiltTimeout,
		},
		Response: scenario.Response{
			OnStepSize:  DefaultOnStepSize,
			OffStepSize: DefaultOffStepSize,
		},
		Phases: flatStop(),
	}
}

// Load reads a YAML file on top of DefaultConfig. Phases in the file replace
// the default phases entirely.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Phases = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Phases) == 0 {
		cfg.Phases = flatStop()
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	bt := c.BrakeTilt
	switch {
	case c.Dt <= 0:
		return fmt.Errorf("dt %v: %w", c.Dt, ErrParameterBounds)
	case c.Duration < 0:
		return fmt.Errorf("duration %v: %w", c.Duration, ErrParameterBounds)
	case bt.Strength < 0 || bt.Strength > braketilt.MaxStrength:
		return fmt.Errorf("brake_tilt.strength %v not in [0, %d]: %w", bt.Strength, braketilt.MaxStrength, ErrParameterBounds)
	case bt.Lingering <= 0:
		return fmt.Errorf("brake_tilt.lingering %v: %w", bt.Lingering, ErrParameterBounds)
	case bt.InclineThreshold < 0:
		return fmt.Errorf("brake_tilt.incline_threshold %v: %w", bt.InclineThreshold, ErrParameterBounds)
	case bt.HoldTiltWindow < 0:
		return fmt.Errorf("brake_tilt.hold_tilt_window %v: %w", bt.HoldTiltWindow, ErrParameterBounds)
	case bt.HoldTiltTimeout < 0:
		return fmt.Errorf("brake_tilt.hold_tilt_timeout %v: %w", bt.HoldTiltTimeout, ErrParameterBounds)
	case c.Noise.Pitch < 0 || c.Noise.AccelDiff < 0:
		return fmt.Errorf("noise must be non-negative: %w", ErrParameterBounds)
	case len(c.Phases) == 0:
		return ErrEmptyScenario
	}
	sc := c.Scenario()
	return sc.Validate()
}

// Tuning converts the brake-tilt section to the controller's snapshot.
func (c *Config) Tuning() braketilt.Config {
	bt := c.BrakeTilt
	return braketilt.Config{
		Strength:                    float32(bt.Strength),
		InclineThresholdDefault:     float32(bt.InclineThreshold),
		HoldTiltMinTarget:           float32(bt.HoldTiltMinTarget),
		HoldTiltTimeWindow:          float32(bt.HoldTiltWindow),
		HoldTiltPitchDeltaThreshold: float32(bt.HoldTiltDelta),
		HoldTiltAngle:               float32(bt.HoldTiltAngle),
		HoldTiltTimeout:             bt.HoldTiltTimeout,
		Lingering:                   float32(bt.Lingering),
	}
}

func (c *Config) Scenario() scenario.Scenario {
	return scenario.Scenario{
		Name:        c.Name,
		Description: c.Description,
		Phases:      c.Phases,
	}
}

// RunDuration is the configured duration, or the scenario length when unset.
func (c *Config) RunDuration() float64 {
	if c.Duration > 0 {
		return c.Duration
	}
	sc := c.Scenario()
	return sc.Duration()
}

// TuningParams lists the brake-tilt keys accepted by Set, in YAML naming.
var TuningParams = []string{
	"strength", "lingering", "incline_threshold", "hold_tilt_min_target",
	"hold_tilt_window", "hold_tilt_pitch_delta", "hold_tilt_angle", "hold_tilt_timeout",
}

// Set assigns one brake-tilt parameter by its YAML key. It does not validate.
func (c *Config) Set(name string, v float64) error {
	bt := &c.BrakeTilt
	switch name {
	case "strength":
		bt.Strength = v
	case "lingering":
		bt.Lingering = v
	case "incline_threshold":
		bt.InclineThreshold = v
	case "hold_tilt_min_target":
		bt.HoldTiltMinTarget = v
	case "hold_tilt_window":
		bt.HoldTiltWindow = v
	case "hold_tilt_pitch_delta":
		bt.HoldTiltDelta = v
	case "hold_tilt_angle":
		bt.HoldTiltAngle = v
	case "hold_tilt_timeout":
		bt.HoldTiltTimeout = int(v)
	default:
		return fmt.Errorf("%q: %w", name, ErrUnknownParam)
	}
	return nil
}

// Clone returns a deep copy so presets can be modified safely.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Phases = make([]scenario.Phase, len(c.Phases))
	copy(cp.Phases, c.Phases)
	return &cp
}
