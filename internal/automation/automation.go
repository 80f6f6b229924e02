package automation

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/metrics"
	"github.com/san-kum/braketilt/internal/sim"
	"github.com/san-kum/braketilt/internal/storage"
	"gopkg.in/yaml.v3"
)

// Batch is a scripted sequence of scenario runs.
type Batch struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Runs        []BatchRun `yaml:"runs"`
}

// BatchRun picks a scenario from a preset or a config file and overrides
// tuning parameters by their YAML key.
type BatchRun struct {
	Preset string             `yaml:"preset,omitempty"`
	Config string             `yaml:"config,omitempty"`
	Seed   int64              `yaml:"seed,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty"`
	Save   bool               `yaml:"save,omitempty"`
}

// Outcome is one finished batch entry. RunID is empty when it was not saved.
type Outcome struct {
	Scenario string
	RunID    string
	Result   *sim.Result
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	if len(batch.Runs) == 0 {
		return nil, fmt.Errorf("batch %s: no runs", path)
	}

	return &batch, nil
}

// Resolve builds the validated config for a run.
func (r BatchRun) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case r.Config != "":
		loaded, err := config.Load(r.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case r.Preset != "":
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", r.Preset)
		}
	default:
		return nil, fmt.Errorf("run needs a preset or a config")
	}

	if r.Seed != 0 {
		cfg.Seed = r.Seed
	}
	for k, v := range r.Params {
		if err := cfg.Set(k, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunBatch executes every run in order and stops at the first failure. Runs
// marked save are written to st, which may be nil if none are.
func RunBatch(ctx context.Context, batch *Batch, st *storage.Store, progress io.Writer) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(batch.Runs))

	for i, run := range batch.Runs {
		cfg, err := run.Resolve()
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}
		if progress != nil {
			fmt.Fprintf(progress, "running %d/%d: %s\n", i+1, len(batch.Runs), cfg.Name)
		}

		s := sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise)
		for _, m := range metrics.Default() {
			s.AddMetric(m)
		}

		result, err := s.Run(ctx, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, Seed: cfg.Seed, ValidateState: true})
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}

		out := Outcome{Scenario: cfg.Name, Result: result}
		if run.Save {
			if st == nil {
				return outcomes, fmt.Errorf("run %d: save requested without a store", i+1)
			}
			if out.RunID, err = st.Save(cfg, result); err != nil {
				return outcomes, fmt.Errorf("run %d save: %w", i+1, err)
			}
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}
