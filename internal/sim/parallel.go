package sim

import (
	"context"
	"sync"
)

// Ensemble runs the same scenario under consecutive noise seeds. Every run
// gets its own controller and its own metrics from newMetrics.
type Ensemble struct {
	base       *Simulator
	numRuns    int
	seedStart  int64
	newMetrics func() []Metric
}

func NewEnsemble(s *Simulator, numRuns int, seedStart int64, newMetrics func() []Metric) *Ensemble {
	return &Ensemble{base: s, numRuns: numRuns, seedStart: seedStart, newMetrics: newMetrics}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			s := e.base.Clone()
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}

			results[idx], errs[idx] = s.Run(ctx, cfgCopy)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
