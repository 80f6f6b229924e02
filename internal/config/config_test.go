package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "flat-stop" {
		t.Errorf("expected name flat-stop, got %s", cfg.Name)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if len(cfg.Phases) == 0 {
		t.Error("default config should carry a scenario")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, ErrParameterBounds},
		{"negative duration", func(c *Config) { c.Duration = -1 }, ErrParameterBounds},
		{"strength above range", func(c *Config) { c.BrakeTilt.Strength = 21 }, ErrParameterBounds},
		{"negative strength", func(c *Config) { c.BrakeTilt.Strength = -1 }, ErrParameterBounds},
		{"zero lingering", func(c *Config) { c.BrakeTilt.Lingering = 0 }, ErrParameterBounds},
		{"negative timeout", func(c *Config) { c.BrakeTilt.HoldTiltTimeout = -1 }, ErrParameterBounds},
		{"negative noise", func(c *Config) { c.Noise.Pitch = -0.1 }, ErrParameterBounds},
		{"no phases", func(c *Config) { c.Phases = nil }, ErrEmptyScenario},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStrengthBoundsAccepted(t *testing.T) {
	for _, s := range []float64{0, 20} {
		cfg := DefaultConfig()
		cfg.BrakeTilt.Strength = s
		if err := cfg.Validate(); err != nil {
			t.Errorf("strength %v rejected: %v", s, err)
		}
	}
}

func TestTuning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BrakeTilt.Strength = 12
	cfg.BrakeTilt.HoldTiltTimeout = 250

	tn := cfg.Tuning()
	if tn.Strength != 12 {
		t.Errorf("expected strength 12, got %v", tn.Strength)
	}
	if tn.HoldTiltTimeout != 250 {
		t.Errorf("expected timeout 250, got %d", tn.HoldTiltTimeout)
	}
	if tn.Lingering != DefaultLingering || tn.InclineThresholdDefault != DefaultInclineThreshold {
		t.Errorf("unexpected tuning: %+v", tn)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("panic-stop")
	cfg.Seed = 7
	cfg.BrakeTilt.Strength = 15
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Seed != 7 || loaded.BrakeTilt.Strength != 15 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if len(loaded.Phases) != len(cfg.Phases) {
		t.Errorf("expected %d phases, got %d", len(cfg.Phases), len(loaded.Phases))
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("name: custom\nbrake_tilt:\n  strength: 5\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.BrakeTilt.Strength != 5 {
		t.Errorf("expected strength 5, got %v", cfg.BrakeTilt.Strength)
	}
	if cfg.BrakeTilt.Lingering != DefaultLingering {
		t.Errorf("expected default lingering, got %v", cfg.BrakeTilt.Lingering)
	}
	if cfg.Dt != DefaultDt {
		t.Errorf("expected default dt, got %v", cfg.Dt)
	}
	if len(cfg.Phases) != len(flatStop()) {
		t.Errorf("expected default phases, got %d", len(cfg.Phases))
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("panic-stop")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Name != "panic-stop" {
		t.Errorf("expected name panic-stop, got %s", cfg.Name)
	}

	cfg.Phases[0].Duration = 99
	if Presets["panic-stop"].Phases[0].Duration == 99 {
		t.Error("GetPreset returned shared phases")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i, name := range names {
		if i > 0 && names[i-1] > name {
			t.Errorf("presets not sorted: %v", names)
		}
		if err := Presets[name].Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestRunDuration(t *testing.T) {
	cfg := DefaultConfig()
	if d := cfg.RunDuration(); d != 4 {
		t.Errorf("expected scenario length 4, got %v", d)
	}
	cfg.Duration = 1.5
	if d := cfg.RunDuration(); d != 1.5 {
		t.Errorf("expected explicit duration 1.5, got %v", d)
	}
}

func TestSet(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range TuningParams {
		if err := cfg.Set(name, 7); err != nil {
			t.Errorf("Set(%q): %v", name, err)
		}
	}
	if cfg.BrakeTilt.Strength != 7 || cfg.BrakeTilt.HoldTiltTimeout != 7 {
		t.Errorf("values not applied: %+v", cfg.BrakeTilt)
	}

	if err := cfg.Set("gain", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}
