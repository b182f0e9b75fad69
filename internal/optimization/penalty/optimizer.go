// Package penalty minimizes a function subject to equality and inequality
// constraints by solving a sequence of unconstrained quadratic-penalty
// problems with the simplex search.
package penalty

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/simplexopt/internal/optimization"
	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
)

const (
	DefaultInitialWeight      = 4.0
	DefaultMaxOuterIterations = 100
	DefaultTolerance          = 0.001
)

const component = "penalty"

// Optimizer drives the outer penalty loop. Zero fields take the defaults.
type Optimizer struct {
	// Method is the inner simplex search.
	Method neldermead.Method
	// Inner controls each inner search. A zero Tolerance means
	// DefaultTolerance.
	Inner neldermead.Settings

	// InitialWeight is the first penalty weight r.
	InitialWeight float64
	// MaxOuterIterations caps the number of inner searches.
	MaxOuterIterations int
	// Tolerance on the distance between successive candidates.
	Tolerance float64
	// Policy decides when r is halved.
	Policy ShrinkPolicy

	Logger *zap.Logger
}

// Iteration records one outer iteration.
type Iteration struct {
	Iteration int `json:"iteration"`
	// Weight is the penalty weight the inner search ran with.
	Weight float64 `json:"weight"`
	// Candidate is the best vertex of the inner search; its Value is the
	// surrogate value at Weight.
	Candidate optimization.Point `json:"candidate"`
	// Penalty is the constraint penalty at the candidate.
	Penalty float64 `json:"penalty"`
	// Step is the distance from the previous point.
	Step            float64 `json:"step"`
	Calls           int     `json:"calls"`
	InnerIterations int     `json:"inner_iterations"`
	InnerConverged  bool    `json:"inner_converged"`
}

// Result is the outcome of a constrained optimization.
type Result struct {
	// Point is the final candidate.
	Point optimization.Point
	// Calls is the total number of objective evaluations over all inner
	// searches.
	Calls int
	// Iterations is the number of outer iterations performed.
	Iterations int
	// Converged is false when MaxOuterIterations was reached first.
	Converged bool
	// Weight is the penalty weight after the last update.
	Weight float64
	// Penalty is the constraint penalty at Point. A value that stays large
	// suggests an empty feasible region.
	Penalty float64
	History []Iteration
}

// OptimizeConstrained runs the penalty method with default inner settings.
func OptimizeConstrained(f optimization.ObjectiveFunction, constraints *ConstraintSet, x0 []float64,
	initialWeight float64, maxOuterIterations int, tolerance float64) (*Result, error) {
	o := &Optimizer{
		InitialWeight:      initialWeight,
		MaxOuterIterations: maxOuterIterations,
		Tolerance:          tolerance,
	}
	return o.Optimize(f, constraints, x0)
}

// Optimize minimizes f subject to constraints starting from x0.
// Non-convergence is reported through Result.Converged, not as an error.
func (o *Optimizer) Optimize(f optimization.ObjectiveFunction, constraints *ConstraintSet, x0 []float64) (*Result, error) {
	cfg, err := o.withDefaults()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, optimization.WrapError(optimization.ErrNilObjective, "invalid input").
			WithOperation("optimize").WithComponent(component)
	}
	if len(x0) == 0 {
		return nil, optimization.WrapError(optimization.ErrInvalidDimension, "invalid input").
			WithOperation("optimize").WithComponent(component)
	}

	current := append([]float64(nil), x0...)
	weight := cfg.InitialWeight
	res := &Result{
		History: make([]Iteration, 0, cfg.MaxOuterIterations),
	}

	for i := 1; i <= cfg.MaxOuterIterations; i++ {
		surrogate := Surrogate{Objective: f, Constraints: constraints, Weight: weight}

		inner, err := cfg.Method.Minimize(surrogate.Evaluate, current, cfg.Inner)
		if err != nil {
			return nil, optimization.WrapErrorf(err, "outer iteration %d (r=%g)", i, weight).
				WithOperation("optimize").WithComponent(component)
		}
		res.Calls += inner.Calls

		candidate := inner.Best()
		pen, err := constraints.Penalty(candidate.Coords)
		if err != nil {
			return nil, optimization.WrapErrorf(err, "outer iteration %d (r=%g)", i, weight).
				WithOperation("optimize").WithComponent(component)
		}
		step := optimization.Distance(candidate.Coords, current)

		res.History = append(res.History, Iteration{
			Iteration:       i,
			Weight:          weight,
			Candidate:       candidate,
			Penalty:         pen,
			Step:            step,
			Calls:           inner.Calls,
			InnerIterations: inner.Iterations,
			InnerConverged:  inner.Converged,
		})

		cfg.Logger.Debug("penalty iteration",
			zap.Int("iteration", i),
			zap.Float64("weight", weight),
			zap.Float64("surrogate", candidate.Value),
			zap.Float64("penalty", pen),
			zap.Float64("step", step),
			zap.Int("calls", inner.Calls),
			zap.Bool("inner_converged", inner.Converged),
		)

		if cfg.Policy.shouldShrink(inner.Converged) {
			weight /= 2
		}

		res.Point = candidate
		res.Penalty = pen
		res.Iterations = i
		res.Weight = weight

		if step <= cfg.Tolerance {
			res.Converged = true
			break
		}
		current = candidate.Coords
	}

	fields := []zap.Field{
		zap.Int("iterations", res.Iterations),
		zap.Int("calls", res.Calls),
		zap.Float64("weight", res.Weight),
		zap.Float64("penalty", res.Penalty),
		zap.Float64s("point", res.Point.Coords),
	}
	if res.Converged {
		cfg.Logger.Info("penalty method converged", fields...)
	} else {
		cfg.Logger.Warn("penalty method reached the outer iteration cap", fields...)
	}
	return res, nil
}

func (o *Optimizer) withDefaults() (Optimizer, error) {
	out := *o
	if out.InitialWeight == 0 {
		out.InitialWeight = DefaultInitialWeight
	}
	if !(out.InitialWeight > 0) {
		return out, optimization.WrapErrorf(optimization.ErrInvalidWeight, "initial weight %v", out.InitialWeight).
			WithOperation("optimize").WithComponent(component)
	}
	if out.MaxOuterIterations == 0 {
		out.MaxOuterIterations = DefaultMaxOuterIterations
	}
	if out.MaxOuterIterations < 0 {
		return out, optimization.WrapErrorf(optimization.ErrInvalidIterations, "max outer iterations %d", out.MaxOuterIterations).
			WithOperation("optimize").WithComponent(component)
	}
	if out.Tolerance == 0 {
		out.Tolerance = DefaultTolerance
	}
	if !(out.Tolerance > 0) {
		return out, optimization.WrapErrorf(optimization.ErrInvalidTolerance, "tolerance %v", out.Tolerance).
			WithOperation("optimize").WithComponent(component)
	}
	if out.Inner.Tolerance == 0 {
		out.Inner.Tolerance = DefaultTolerance
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	if out.Method.Logger == nil {
		out.Method.Logger = out.Logger.Named("neldermead")
	}
	return out, nil
}
