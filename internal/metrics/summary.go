package metrics

import (
	"sort"

	"github.com/san-kum/braketilt/internal/sim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one metric across an ensemble.
type Summary struct {
	Name string
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Summarize aggregates every metric reported by results, sorted by name.
func Summarize(results []*sim.Result) []Summary {
	values := make(map[string][]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	out := make([]Summary, 0, len(values))
	for name, xs := range values {
		s := Summary{
			Name: name,
			Mean: stat.Mean(xs, nil),
			Min:  floats.Min(xs),
			Max:  floats.Max(xs),
		}
		if len(xs) > 1 {
			s.Std = stat.StdDev(xs, nil)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
