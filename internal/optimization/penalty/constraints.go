package penalty

import (
	"math"

	"github.com/copyleftdev/simplexopt/internal/optimization"
)

// Constraint maps a point to a scalar. Equality constraints are satisfied
// at 0, inequality constraints when the value is <= 0.
type Constraint = optimization.ObjectiveFunction

// ConstraintSet is an immutable, ordered pair of equality and inequality
// constraint lists.
type ConstraintSet struct {
	equality   []Constraint
	inequality []Constraint
}

// NewConstraintSet copies the given lists into a new set. Nil entries are
// dropped.
func NewConstraintSet(equality, inequality []Constraint) *ConstraintSet {
	return &ConstraintSet{
		equality:   compact(equality),
		inequality: compact(inequality),
	}
}

func compact(in []Constraint) []Constraint {
	out := make([]Constraint, 0, len(in))
	for _, c := range in {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Equality returns a copy of the equality constraints in order.
func (c *ConstraintSet) Equality() []Constraint {
	if c == nil {
		return nil
	}
	return append([]Constraint(nil), c.equality...)
}

// Inequality returns a copy of the inequality constraints in order.
func (c *ConstraintSet) Inequality() []Constraint {
	if c == nil {
		return nil
	}
	return append([]Constraint(nil), c.inequality...)
}

// Len returns the total number of constraints.
func (c *ConstraintSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.equality) + len(c.inequality)
}

// Penalty returns Σ g(x)² over equality constraints plus
// Σ max(0, h(x))² over inequality constraints. A nil set has no penalty.
func (c *ConstraintSet) Penalty(x []float64) (float64, error) {
	if c == nil {
		return 0, nil
	}
	sum := 0.0
	for i, g := range c.equality {
		v, err := g(x)
		if err != nil {
			return 0, optimization.WrapErrorf(err, "equality constraint %d", i).WithOperation("penalty")
		}
		sum += v * v
	}
	for i, h := range c.inequality {
		v, err := h(x)
		if err != nil {
			return 0, optimization.WrapErrorf(err, "inequality constraint %d", i).WithOperation("penalty")
		}
		if v > 0 {
			sum += v * v
		}
	}
	return sum, nil
}

// Violations returns the largest |g(x)| over equality constraints and the
// largest positive h(x) over inequality constraints (0 when all hold).
func (c *ConstraintSet) Violations(x []float64) (equality, inequality float64, err error) {
	if c == nil {
		return 0, 0, nil
	}
	for i, g := range c.equality {
		v, err := g(x)
		if err != nil {
			return 0, 0, optimization.WrapErrorf(err, "equality constraint %d", i).WithOperation("violations")
		}
		equality = math.Max(equality, math.Abs(v))
	}
	for i, h := range c.inequality {
		v, err := h(x)
		if err != nil {
			return 0, 0, optimization.WrapErrorf(err, "inequality constraint %d", i).WithOperation("violations")
		}
		inequality = math.Max(inequality, v)
	}
	return equality, inequality, nil
}
