package metrics

import (
	"context"
	"testing"

	"github.com/san-kum/braketilt/internal/braketilt"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(setpoint float32, hold bool) sim.Step {
	return sim.Step{State: braketilt.State{Setpoint: setpoint, HoldTiltActive: hold}}
}

func TestSetpointSummaries(t *testing.T) {
	peak, mean, std := NewPeakSetpoint(), NewMeanSetpoint(), NewSetpointStdDev()
	for _, sp := range []float32{1, -3, 2, 4} {
		for _, m := range []sim.Metric{peak, mean, std} {
			m.Observe(step(sp, false))
		}
	}

	assert.Equal(t, 4.0, peak.Value())
	assert.InDelta(t, 1.0, mean.Value(), 1e-9)
	// sample standard deviation of {1, -3, 2, 4}
	assert.InDelta(t, 2.943920288775949, std.Value(), 1e-9)

	mean.Reset()
	assert.Zero(t, mean.Value())
}

func TestSetpointEmpty(t *testing.T) {
	assert.Zero(t, NewSetpointStdDev().Value())
	assert.Zero(t, NewPeakSetpoint().Value())
}

func TestMaxStepSkipsHold(t *testing.T) {
	m := NewMaxStep()
	m.Observe(step(0, false))
	m.Observe(step(0.1, false))
	m.Observe(step(3, true))
	m.Observe(step(3.5, true))
	m.Observe(step(3, false))
	m.Observe(step(2.8, false))

	assert.InDelta(t, 0.2, m.Value(), 1e-6)

	m.Reset()
	m.Observe(step(5, false))
	assert.Zero(t, m.Value(), "first cycle has no predecessor")
}

func TestHoldActivations(t *testing.T) {
	h := NewHoldActivations()
	for _, active := range []bool{false, true, true, false, true, false} {
		h.Observe(step(0, active))
	}
	assert.Equal(t, 2.0, h.Value())

	h.Reset()
	assert.Zero(t, h.Value())
}

func TestCounters(t *testing.T) {
	sup, hold := NewSuppressedCycles(), NewHoldCycles()
	steps := []sim.Step{
		{Suppressed: true},
		{Suppressed: true, State: braketilt.State{HoldTiltActive: true}},
		{State: braketilt.State{HoldTiltActive: true}},
		{},
	}
	for _, s := range steps {
		sup.Observe(s)
		hold.Observe(s)
	}
	assert.Equal(t, 2.0, sup.Value())
	assert.Equal(t, 2.0, hold.Value())
}

func TestDefaultNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Default() {
		require.False(t, seen[m.Name()], "duplicate metric %s", m.Name())
		seen[m.Name()] = true
	}
}

func runPreset(t *testing.T, name string) *sim.Result {
	t.Helper()
	cfg := config.GetPreset(name)
	require.NotNil(t, cfg)

	s := sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise)
	for _, m := range Default() {
		s.AddMetric(m)
	}
	res, err := s.Run(context.Background(), sim.Config{Dt: cfg.Dt, ValidateState: true})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	return res
}

func TestPresetRateLimitBound(t *testing.T) {
	cfg := config.DefaultConfig()
	bound := cfg.Response.OnStepSize * 1.5

	for _, name := range config.ListPresets() {
		res := runPreset(t, name)
		assert.LessOrEqual(t, res.Metrics["max_step"], bound+1e-6, "preset %s", name)
	}
}

func TestPresetBehaviour(t *testing.T) {
	flat := runPreset(t, "flat-stop")
	assert.Zero(t, flat.Metrics["hold_activations"])
	assert.Greater(t, flat.Metrics["peak_setpoint"], 1.0)

	dive := runPreset(t, "panic-stop")
	assert.Equal(t, 1.0, dive.Metrics["hold_activations"])
	// the activation cycle already counts down
	assert.Equal(t, float64(config.DefaultHoldTiltTimeout-1), dive.Metrics["hold_cycles"])

	incline := runPreset(t, "incline-stop")
	assert.Zero(t, incline.Metrics["peak_setpoint"])
	assert.Positive(t, incline.Metrics["suppressed_cycles"])

	slip := runPreset(t, "slip-stop")
	assert.InDelta(t, 0.2/config.DefaultDt, slip.Metrics["suppressed_cycles"], 1)

	legacy := runPreset(t, "legacy-stop")
	assert.Zero(t, legacy.Metrics["hold_activations"])
	assert.InDelta(t, flat.Metrics["peak_setpoint"], legacy.Metrics["peak_setpoint"], 1e-6)
}

func TestSummarize(t *testing.T) {
	results := []*sim.Result{
		{Metrics: map[string]float64{"a": 1, "b": 10}},
		{Metrics: map[string]float64{"a": 3, "b": 10}},
		{Metrics: map[string]float64{"a": 5}},
	}

	got := Summarize(results)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].Name)
	assert.InDelta(t, 3.0, got[0].Mean, 1e-12)
	assert.InDelta(t, 2.0, got[0].Std, 1e-12)
	assert.Equal(t, 1.0, got[0].Min)
	assert.Equal(t, 5.0, got[0].Max)

	assert.Equal(t, "b", got[1].Name)
	assert.Zero(t, got[1].Std)

	single := Summarize(results[2:])
	require.Len(t, single, 1)
	assert.Zero(t, single[0].Std)
	assert.Empty(t, Summarize(nil))
}
