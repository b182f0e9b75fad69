// Package multistart runs independent optimizations from several starting
// points in parallel and keeps the best one.
package multistart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/simplexopt/internal/optimization"
	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
)

var ErrNoStarts = errors.New("no starting points")

// Solution is what a single run reports back.
type Solution struct {
	Point     optimization.Point
	Calls     int
	Converged bool
	// Detail is the engine-specific result (*neldermead.Result or
	// *penalty.Result).
	Detail interface{}
}

// SolveFunc runs one optimization from start. Implementations must not
// share mutable state between calls.
type SolveFunc func(ctx context.Context, start []float64) (Solution, error)

// Outcome is the result of the run for one starting point.
type Outcome struct {
	Index    int
	Start    []float64
	Solution Solution
	Err      error
}

// Report collects the outcomes in the order of the starting points.
type Report struct {
	Outcomes []Outcome
	// Best is the index of the lowest-valued successful outcome, or -1.
	Best int
	// Calls is the total number of objective evaluations of successful runs.
	Calls int
}

// BestOutcome returns the best successful outcome, if any.
func (r *Report) BestOutcome() (Outcome, bool) {
	if r.Best < 0 {
		return Outcome{}, false
	}
	return r.Outcomes[r.Best], true
}

// Runner fans out runs over at most Workers goroutines.
type Runner struct {
	// Workers bounds concurrency; values below 1 mean one worker.
	Workers int
	Logger  *zap.Logger
}

// Run solves from every start. A failing run does not stop the others;
// its error is kept in its Outcome. Once ctx is done no further runs are
// started and the remaining outcomes carry ctx.Err().
func (r *Runner) Run(ctx context.Context, starts [][]float64, solve SolveFunc) (*Report, error) {
	if len(starts) == 0 {
		return nil, ErrNoStarts
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	outcomes := make([]Outcome, len(starts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, start := range starts {
		outcomes[i] = Outcome{Index: i, Start: append([]float64(nil), start...)}
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}

		select {
		case <-ctx.Done():
			outcomes[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(o *Outcome) {
			defer wg.Done()
			defer func() { <-sem }()

			sol, err := solve(ctx, o.Start)
			if err != nil {
				o.Err = err
				logger.Warn("run failed", zap.Int("start", o.Index), zap.Error(err))
				return
			}
			o.Solution = sol
			logger.Debug("run finished",
				zap.Int("start", o.Index),
				zap.Float64("value", sol.Point.Value),
				zap.Int("calls", sol.Calls),
				zap.Bool("converged", sol.Converged),
			)
		}(&outcomes[i])
	}
	wg.Wait()

	report := &Report{Outcomes: outcomes, Best: -1}
	for i, o := range outcomes {
		if o.Err != nil {
			continue
		}
		report.Calls += o.Solution.Calls
		if report.Best < 0 || o.Solution.Point.Value < outcomes[report.Best].Solution.Point.Value {
			report.Best = i
		}
	}
	return report, nil
}

// Simplex returns a SolveFunc running the simplex search on f.
func Simplex(m *neldermead.Method, settings neldermead.Settings, f optimization.ObjectiveFunction) SolveFunc {
	return func(ctx context.Context, start []float64) (Solution, error) {
		res, err := m.Minimize(optimization.WithContext(ctx, f), start, settings)
		if err != nil {
			return Solution{}, err
		}
		return Solution{
			Point:     res.Best(),
			Calls:     res.Calls,
			Converged: res.Converged,
			Detail:    res,
		}, nil
	}
}

// Penalty returns a SolveFunc running the penalty method on f subject to
// constraints. Solution.Point.Value is the base objective at the final
// point, which costs one extra evaluation counted in Calls.
func Penalty(o *penalty.Optimizer, f optimization.ObjectiveFunction, constraints *penalty.ConstraintSet) SolveFunc {
	return func(ctx context.Context, start []float64) (Solution, error) {
		bounded := optimization.WithContext(ctx, f)
		res, err := o.Optimize(bounded, constraints, start)
		if err != nil {
			return Solution{}, err
		}
		final, err := optimization.Evaluate(bounded, res.Point.Coords)
		if err != nil {
			return Solution{}, err
		}
		return Solution{
			Point:     final,
			Calls:     res.Calls + 1,
			Converged: res.Converged,
			Detail:    res,
		}, nil
	}
}
