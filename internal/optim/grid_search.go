package optim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/san-kum/braketilt/internal/sim"
	"gonum.org/v1/gonum/floats"
)

var ErrNoPoints = errors.New("optim: empty parameter grid")

// Point is one evaluated parameter combination.
type Point struct {
	Params  map[string]float64
	Value   float64
	Metrics map[string]float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.NumCPU()}
}

// SetWorkers bounds how many simulations run at once.
func (g *GridSearch) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	g.workers = n
}

// BuildFunc turns a parameter set into a ready-to-run simulator, metrics
// attached.
type BuildFunc func(params map[string]float64) (*sim.Simulator, error)

// Search evaluates every combination and returns the points ranked by
// metricName, smallest first unless maximize is set.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, cfg sim.Config, metricName string, maximize bool) ([]Point, error) {
	combos := make([]map[string]float64, 0)
	g.expand(0, make(map[string]float64), &combos)
	if len(combos) == 0 {
		return nil, ErrNoPoints
	}

	points := make([]Point, len(combos))
	errs := make([]error, len(combos))
	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup

	for i, params := range combos {
		wg.Add(1)
		go func(idx int, params map[string]float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s, err := build(params)
			if err != nil {
				errs[idx] = err
				return
			}
			result, err := s.Run(ctx, cfg)
			if err != nil {
				errs[idx] = err
				return
			}
			points[idx] = Point{Params: params, Value: result.Metrics[metricName], Metrics: result.Metrics}
		}(i, params)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		if maximize {
			return points[i].Value > points[j].Value
		}
		return points[i].Value < points[j].Value
	})
	return points, nil
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		if depth > 0 {
			*out = append(*out, current)
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.expand(depth+1, newParams, out)
	}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// ParseRange reads "lo:hi:n" or a single value.
func ParseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		return []float64{v}, nil
	case 3:
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("range %q: need at least one point", s)
		}
		return Linspace(lo, hi, n), nil
	}
	return nil, fmt.Errorf("range %q: want lo:hi:n", s)
}
