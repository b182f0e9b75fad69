package penalty

import (
	"github.com/copyleftdev/simplexopt/internal/optimization"
)

// Surrogate is the unconstrained objective minimized for one penalty
// weight: f(x) + (1/Weight)·penalty(x).
type Surrogate struct {
	Objective   optimization.ObjectiveFunction
	Constraints *ConstraintSet
	Weight      float64
}

// Evaluate returns the surrogate value at x.
func (s Surrogate) Evaluate(x []float64) (float64, error) {
	f, err := s.Objective(x)
	if err != nil {
		return 0, err
	}
	p, err := s.Constraints.Penalty(x)
	if err != nil {
		return 0, err
	}
	return f + p/s.Weight, nil
}
