package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/braketilt/internal/braketilt"
	"github.com/san-kum/braketilt/internal/scenario"
)

// Simulator plays a scenario through a fresh brake-tilt controller at a fixed
// control-loop rate.
type Simulator struct {
	tuning    braketilt.Config
	scenario  scenario.Scenario
	response  scenario.Response
	noise     scenario.Noise
	metrics   []Metric
	observers []Observer
}

func New(tuning braketilt.Config, sc scenario.Scenario, resp scenario.Response, noise scenario.Noise) *Simulator {
	return &Simulator{
		tuning:    tuning,
		scenario:  sc,
		response:  resp,
		noise:     noise,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Tuning() braketilt.Config { return s.tuning }

// Clone returns a simulator with the same setup and no metrics or observers.
func (s *Simulator) Clone() *Simulator {
	return New(s.tuning, s.scenario, s.response, s.noise)
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	sess := s.NewSession(cfg)
	result := &Result{
		Steps:   make([]Step, 0, sess.steps),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		step, ok := sess.Next()
		if !ok {
			break
		}

		if cfg.ValidateState && !step.IsValid() {
			result.Errors = append(result.Errors, StepError{Time: step.Time, Step: sess.Index() - 1, Message: "non-finite controller state"})
			break
		}

		for _, m := range s.metrics {
			m.Observe(step)
		}
		for _, obs := range s.observers {
			obs.OnStep(step)
		}
		result.Steps = append(result.Steps, step)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback runs the scenario, stopping early when callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Step) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	sess := s.NewSession(cfg)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		step, ok := sess.Next()
		if !ok || !callback(step) {
			return nil
		}
		if cfg.ValidateState && !step.IsValid() {
			return fmt.Errorf("invalid controller state at t=%.4f", step.Time)
		}
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %f", cfg.Duration)
	}
	if err := s.scenario.Validate(); err != nil {
		return err
	}
	return nil
}

// Session steps a single run one cycle at a time. It owns its controller.
type Session struct {
	sim    *Simulator
	seed   int64
	ctrl   *braketilt.Controller
	tuning braketilt.Config
	src    *scenario.Source
	dt     float64
	steps  int
	i      int
}

// NewSession starts a run without validating cfg. A zero cfg.Duration plays
// the whole scenario.
func (s *Simulator) NewSession(cfg Config) *Session {
	duration := cfg.Duration
	if total := s.scenario.Duration(); duration <= 0 || duration > total {
		duration = total
	}

	ctrl := braketilt.New()
	ctrl.Configure(&s.tuning)

	return &Session{
		sim:    s,
		seed:   cfg.Seed,
		ctrl:   ctrl,
		tuning: s.tuning,
		src:    scenario.NewSource(s.scenario, s.response, s.noise, cfg.Seed),
		dt:     cfg.Dt,
		steps:  int(math.Round(duration / cfg.Dt)),
		i:      0,
	}
}

// Next advances one control cycle.
func (ss *Session) Next() (Step, bool) {
	if ss.i >= ss.steps {
		return Step{}, false
	}
	t := float64(ss.i) * ss.dt
	in, ok := ss.src.At(t)
	if !ok {
		return Step{}, false
	}
	ss.i++

	if in.Reset {
		ss.ctrl.Reset()
	}

	threshold := ss.tuning.InclineThresholdDefault
	suppressed := false
	switch {
	case in.Winddown:
		ss.ctrl.Winddown()
	case in.IMU == nil:
		ss.ctrl.UpdateLegacy(&in.Motor, &in.Incline, &ss.tuning, in.BalanceOffset)
		suppressed = in.Incline.AccelDiff > threshold || in.Incline.AccelDiff < -threshold
	default:
		ss.ctrl.Update(&in.Motor, &in.Incline, &ss.tuning, in.BalanceOffset, in.IMU, float32(ss.dt), in.WheelSlip)
		suppressed = in.WheelSlip || in.Incline.AccelDiff > threshold || in.Incline.AccelDiff < -threshold
	}

	step := Step{
		Time:          t,
		Phase:         in.Phase,
		ERPM:          in.Motor.ERPM,
		Braking:       in.Motor.Braking,
		AccelDiff:     in.Incline.AccelDiff,
		BalanceOffset: in.BalanceOffset,
		HasIMU:        in.IMU != nil,
		WheelSlip:     in.WheelSlip,
		Winddown:      in.Winddown,
		Reset:         in.Reset,
		Suppressed:    suppressed,
		State:         ss.ctrl.Snapshot(),
	}
	if in.IMU != nil {
		step.Pitch = in.IMU.Pitch
		step.BalancePitch = in.IMU.BalancePitch
	}
	return step, true
}

func (ss *Session) Index() int { return ss.i }
func (ss *Session) Steps() int { return ss.steps }

// Restart rewinds to the first cycle with a fresh controller and the same seed.
func (ss *Session) Restart() {
	ss.ctrl = braketilt.New()
	ss.ctrl.Configure(&ss.tuning)
	ss.src = scenario.NewSource(ss.sim.scenario, ss.sim.response, ss.sim.noise, ss.seed)
	ss.i = 0
}
