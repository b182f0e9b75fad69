// Package problems provides named test problems for the optimizers.
package problems

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/copyleftdev/simplexopt/internal/optimization"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
)

var (
	ErrProblemExists   = errors.New("problem already registered")
	ErrProblemNotFound = errors.New("problem not found")
)

// Problem is a named objective with optional constraints.
type Problem struct {
	Name        string
	Description string
	Dimension   int
	Objective   optimization.ObjectiveFunction
	// Constraints is nil for unconstrained problems.
	Constraints *penalty.ConstraintSet
	// Starts are the default starting points.
	Starts [][]float64
	// Minimizer and Optimum describe the known local solution.
	Minimizer []float64
	Optimum   float64
}

// Constrained reports whether the problem carries constraints.
func (p *Problem) Constrained() bool {
	return p.Constraints.Len() > 0
}

// CheckStart returns ErrDimensionMismatch if x does not fit the problem.
func (p *Problem) CheckStart(x []float64) error {
	if len(x) != p.Dimension {
		return fmt.Errorf("%w: problem %s wants %d coordinates, got %d",
			optimization.ErrDimensionMismatch, p.Name, p.Dimension, len(x))
	}
	return nil
}

// Registry is a concurrency-safe set of problems keyed by name.
type Registry struct {
	mu       sync.RWMutex
	problems map[string]*Problem
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{problems: make(map[string]*Problem)}
}

// Register adds p. Names must be unique.
func (r *Registry) Register(p *Problem) error {
	if p == nil || p.Name == "" {
		return errors.New("problem name is required")
	}
	if p.Objective == nil {
		return fmt.Errorf("problem %s: %w", p.Name, optimization.ErrNilObjective)
	}
	for _, s := range p.Starts {
		if err := p.CheckStart(s); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.problems[p.Name]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, p.Name)
	}
	r.problems[p.Name] = p
	return nil
}

// Get looks a problem up by name.
func (r *Registry) Get(name string) (*Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProblemNotFound, name)
	}
	return p, nil
}

// List returns all problems sorted by name.
func (r *Registry) List() []*Problem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Problem, 0, len(r.problems))
	for _, p := range r.problems {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns a registry holding the built-in problems.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range []*Problem{Quadratic(), Rosenbrock(), Triangle(), Box()} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Quadratic is the convex bowl (x1-1)² + 2(x2+2)².
func Quadratic() *Problem {
	return &Problem{
		Name:        "quadratic",
		Description: "convex bowl (x1-1)^2 + 2(x2+2)^2",
		Dimension:   2,
		Objective: func(x []float64) (float64, error) {
			a, b := x[0]-1, x[1]+2
			return a*a + 2*b*b, nil
		},
		Starts:    [][]float64{{0, 0}, {5, 5}},
		Minimizer: []float64{1, -2},
		Optimum:   0,
	}
}

// Rosenbrock is the banana valley 100(x2-x1²)² + (1-x1)².
func Rosenbrock() *Problem {
	return &Problem{
		Name:        "rosenbrock",
		Description: "Rosenbrock valley 100(x2-x1^2)^2 + (1-x1)^2",
		Dimension:   2,
		Objective: func(x []float64) (float64, error) {
			a, b := x[1]-x[0]*x[0], 1-x[0]
			return 100*a*a + b*b, nil
		},
		Starts:    [][]float64{{-1.2, 1}},
		Minimizer: []float64{1, 1},
		Optimum:   0,
	}
}

// Triangle is -x1·x2·(1-x1-x2)/8, whose local minimum sits at (1/3, 1/3).
func Triangle() *Problem {
	return &Problem{
		Name:        "triangle",
		Description: "-0.125 x1 x2 (1 - x1 - x2)",
		Dimension:   2,
		Objective: func(x []float64) (float64, error) {
			return -0.125 * x[0] * x[1] * (1 - x[0] - x[1]), nil
		},
		Starts:    [][]float64{{0, 0}, {1, 1}, {0, 0.6}},
		Minimizer: []float64{1.0 / 3, 1.0 / 3},
		Optimum:   -1.0 / 216,
	}
}

// Box maximises the volume of a box with unit surface area:
// minimise -xyz subject to 2(xy+yz+xz) = 1 and x, y, z >= 0.
func Box() *Problem {
	side := 1 / math.Sqrt(6)
	nonNegative := func(i int) penalty.Constraint {
		return func(x []float64) (float64, error) { return -x[i], nil }
	}
	return &Problem{
		Name:        "box",
		Description: "-xyz s.t. 2(xy+yz+xz)=1, x,y,z>=0",
		Dimension:   3,
		Objective: func(x []float64) (float64, error) {
			return -x[0] * x[1] * x[2], nil
		},
		Constraints: penalty.NewConstraintSet(
			[]penalty.Constraint{func(x []float64) (float64, error) {
				return 2*(x[0]*x[1]+x[1]*x[2]+x[0]*x[2]) - 1, nil
			}},
			[]penalty.Constraint{nonNegative(0), nonNegative(1), nonNegative(2)},
		),
		Starts:    [][]float64{{0, 0, 0}, {1, 1, 1}, {0.3, 0, 0.6}},
		Minimizer: []float64{side, side, side},
		Optimum:   -side * side * side,
	}
}
