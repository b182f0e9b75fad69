// Package neldermead implements the derivative-free Nelder–Mead simplex
// search.
package neldermead

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/simplexopt/internal/optimization"
)

const (
	DefaultReflection    = 1.0
	DefaultExpansion     = 2.0
	DefaultContraction   = 0.5
	DefaultShrink        = 0.5
	DefaultEdgeLength    = 0.5
	DefaultMaxIterations = 1000
)

const component = "neldermead"

// Method holds the simplex coefficients. Zero fields take the defaults,
// so the zero value is ready to use.
type Method struct {
	// Reflection coefficient applied through the centroid.
	Reflection float64
	// Expansion coefficient tried when the reflection beats the best vertex.
	Expansion float64
	// Contraction coefficient; inside contraction uses its negation.
	Contraction float64
	// Shrink factor toward the best vertex.
	Shrink float64
	// EdgeLength of the regular initial simplex.
	EdgeLength float64

	Logger *zap.Logger
}

// Settings controls termination of one run.
type Settings struct {
	// Tolerance on the distance between the worst and best vertex.
	Tolerance float64
	// MaxIterations caps the number of iterations. Zero means
	// DefaultMaxIterations.
	MaxIterations int
	// RecordTrace keeps a snapshot of the simplex after every iteration.
	RecordTrace bool
}

// Result is the outcome of one run.
type Result struct {
	// Simplex is the final simplex.
	Simplex optimization.Simplex
	// Trace is empty unless Settings.RecordTrace was set.
	Trace Trace
	// Start is the evaluated starting vertex.
	Start optimization.Point
	// Calls is the number of objective evaluations, including the
	// construction of the initial simplex.
	Calls int
	// Iterations performed.
	Iterations int
	// Converged is false when MaxIterations was reached first.
	Converged bool
	// Operations counts the applied transformations.
	Operations map[Operation]int
}

// Best returns the lowest-valued vertex of the final simplex.
func (r *Result) Best() optimization.Point {
	return r.Simplex.Best()
}

// Minimize runs the search with default coefficients and a recorded trace.
func Minimize(f optimization.ObjectiveFunction, x0 []float64, tolerance float64, maxIterations int) (*Result, error) {
	m := &Method{}
	return m.Minimize(f, x0, Settings{
		Tolerance:     tolerance,
		MaxIterations: maxIterations,
		RecordTrace:   true,
	})
}

// Minimize searches for a local minimizer of f starting from x0.
// Reaching the iteration cap is not an error; check Result.Converged.
// Evaluation failures abort the run and are returned as is.
func (m *Method) Minimize(f optimization.ObjectiveFunction, x0 []float64, settings Settings) (*Result, error) {
	if f == nil {
		return nil, optimization.WrapError(optimization.ErrNilObjective, "invalid input").
			WithOperation("minimize").WithComponent(component)
	}
	if len(x0) == 0 {
		return nil, optimization.WrapError(optimization.ErrInvalidDimension, "invalid input").
			WithOperation("minimize").WithComponent(component)
	}
	if !(settings.Tolerance > 0) {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidTolerance, "tolerance %v", settings.Tolerance).
			WithOperation("minimize").WithComponent(component)
	}
	if settings.MaxIterations < 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidIterations, "max iterations %d", settings.MaxIterations).
			WithOperation("minimize").WithComponent(component)
	}
	if settings.MaxIterations == 0 {
		settings.MaxIterations = DefaultMaxIterations
	}

	r := run{
		Method:   m.withDefaults(),
		settings: settings,
		f:        f,
		result:   &Result{Operations: make(map[Operation]int)},
	}
	if err := r.construct(x0); err != nil {
		return nil, err
	}
	if err := r.loop(); err != nil {
		return nil, err
	}

	best := r.result.Best()
	r.Logger.Info("simplex search finished",
		zap.Int("iterations", r.result.Iterations),
		zap.Int("calls", r.result.Calls),
		zap.Bool("converged", r.result.Converged),
		zap.Float64("best", best.Value),
	)
	return r.result, nil
}

func (m *Method) withDefaults() Method {
	out := *m
	if out.Reflection == 0 {
		out.Reflection = DefaultReflection
	}
	if out.Expansion == 0 {
		out.Expansion = DefaultExpansion
	}
	if out.Contraction == 0 {
		out.Contraction = DefaultContraction
	}
	if out.Shrink == 0 {
		out.Shrink = DefaultShrink
	}
	if !(out.EdgeLength > 0) {
		out.EdgeLength = DefaultEdgeLength
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// run is the state of a single Minimize call. Nothing in it is shared
// between calls.
type run struct {
	Method
	settings Settings
	f        optimization.ObjectiveFunction
	simplex  optimization.Simplex
	result   *Result
}

func (r *run) evaluate(x []float64) (optimization.Point, error) {
	r.result.Calls++
	p, err := optimization.Evaluate(r.f, x)
	if err != nil {
		if oe, ok := err.(*optimization.Error); ok {
			oe.WithComponent(component)
		}
		return optimization.Point{}, err
	}
	return p, nil
}

func (r *run) construct(x0 []float64) error {
	vertices := RegularSimplex(x0, r.EdgeLength)
	r.simplex = make(optimization.Simplex, len(vertices))
	for i, v := range vertices {
		p, err := r.evaluate(v)
		if err != nil {
			return err
		}
		r.simplex[i] = p
	}
	r.result.Start = r.simplex[0]
	return nil
}

func (r *run) loop() error {
	for r.result.Iterations < r.settings.MaxIterations {
		op, err := r.iterate()
		if err != nil {
			return err
		}
		r.result.Iterations++
		r.result.Operations[op]++

		if r.settings.RecordTrace {
			r.result.Trace = append(r.result.Trace, Snapshot{
				Iteration: r.result.Iterations,
				Operation: op,
				Simplex:   r.simplex.Clone(),
			})
		}

		spread := r.simplex.Spread()
		if ce := r.Logger.Check(zap.DebugLevel, "simplex iteration"); ce != nil {
			ce.Write(
				zap.Int("iteration", r.result.Iterations),
				zap.Stringer("operation", op),
				zap.Float64("best", r.simplex.Best().Value),
				zap.Float64("spread", spread),
			)
		}

		if spread <= r.settings.Tolerance {
			r.result.Converged = true
			break
		}
	}
	r.result.Simplex = r.simplex
	return nil
}

// iterate applies one transformation and returns which one it was.
func (r *run) iterate() (Operation, error) {
	s := r.simplex
	worst := s.WorstIndex()
	best := s.BestIndex()
	second := s.SecondWorstIndex(worst)
	centroid := optimization.Centroid(s, worst)

	reflected, err := r.evaluate(optimization.Step(centroid, s[worst].Coords, r.Reflection))
	if err != nil {
		return 0, err
	}

	op := classify(reflected.Value, s[best].Value, s[second].Value, s[worst].Value)
	switch op {
	case Expand:
		expanded, err := r.evaluate(optimization.Step(centroid, s[worst].Coords, r.Expansion))
		if err != nil {
			return 0, err
		}
		if expanded.Value <= s[best].Value {
			s[worst] = expanded
			return Expand, nil
		}
		s[worst] = reflected
		return Reflect, nil

	case Reflect:
		s[worst] = reflected
		return Reflect, nil

	case InsideContract, OutsideContract:
		coef := r.Contraction
		if op == InsideContract {
			coef = -coef
		}
		contracted, err := r.evaluate(optimization.Step(centroid, s[worst].Coords, coef))
		if err != nil {
			return 0, err
		}
		if contracted.Value < s[worst].Value {
			s[worst] = contracted
			return op, nil
		}
		return Shrink, r.shrink(best)
	}
	return op, nil
}

// shrink moves every vertex except best toward it.
func (r *run) shrink(best int) error {
	anchor := r.simplex[best].Coords
	for i := range r.simplex {
		if i == best {
			continue
		}
		p, err := r.evaluate(optimization.Toward(anchor, r.simplex[i].Coords, r.Shrink))
		if err != nil {
			return err
		}
		r.simplex[i] = p
	}
	return nil
}
