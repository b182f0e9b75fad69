// Package optimization holds the types shared by the simplex search engine
// and the penalty-based constrained optimizer.
package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ObjectiveFunction defines the function to be minimized.
// The argument must not be retained by the function.
type ObjectiveFunction func([]float64) (float64, error)

// Point is an evaluated location in the search space.
// A Point is never mutated after creation; when a vertex changes it is
// replaced by a freshly evaluated Point.
type Point struct {
	Coords []float64 `json:"coords"`
	Value  float64   `json:"value"`
}

// Dim returns the number of coordinates of p.
func (p Point) Dim() int {
	return len(p.Coords)
}

// Evaluate calls f at x and returns the resulting Point.
// The Point takes ownership of x; f receives its own copy.
// NaN results are reported as ErrNonFiniteValue since they cannot be ordered.
func Evaluate(f ObjectiveFunction, x []float64) (Point, error) {
	arg := make([]float64, len(x))
	copy(arg, x)

	v, err := f(arg)
	if err != nil {
		return Point{}, WrapError(err, "objective evaluation failed").WithOperation("evaluate")
	}
	if math.IsNaN(v) {
		return Point{}, WrapErrorf(ErrNonFiniteValue, "f(%v) = NaN", x).WithOperation("evaluate")
	}
	return Point{Coords: x, Value: v}, nil
}

// Simplex is an ordered set of n+1 points in n-dimensional space.
type Simplex []Point

// Dim returns the dimension of the space the simplex lives in.
func (s Simplex) Dim() int {
	return len(s) - 1
}

// BestIndex returns the index of the lowest-valued vertex.
// Ties resolve to the first index.
func (s Simplex) BestIndex() int {
	best := 0
	for i := 1; i < len(s); i++ {
		if s[i].Value < s[best].Value {
			best = i
		}
	}
	return best
}

// WorstIndex returns the index of the highest-valued vertex.
// Ties resolve to the first index.
func (s Simplex) WorstIndex() int {
	worst := 0
	for i := 1; i < len(s); i++ {
		if s[i].Value > s[worst].Value {
			worst = i
		}
	}
	return worst
}

// SecondWorstIndex returns the index of the highest-valued vertex other
// than worst. Ties resolve to the first index.
func (s Simplex) SecondWorstIndex(worst int) int {
	second := -1
	for i := range s {
		if i == worst {
			continue
		}
		if second < 0 || s[i].Value > s[second].Value {
			second = i
		}
	}
	return second
}

// Best returns the lowest-valued vertex.
func (s Simplex) Best() Point {
	return s[s.BestIndex()]
}

// Spread is the Euclidean distance between the worst and the best vertex.
// When every value ties, worst and best are the same index, so the
// distance to the farthest vertex is used instead.
func (s Simplex) Spread() float64 {
	best, worst := s.BestIndex(), s.WorstIndex()
	if worst != best {
		return Distance(s[worst].Coords, s[best].Coords)
	}
	spread := 0.0
	for i := range s {
		spread = math.Max(spread, Distance(s[i].Coords, s[best].Coords))
	}
	return spread
}

// Clone returns a copy of s. Coordinates are shared because points are
// immutable.
func (s Simplex) Clone() Simplex {
	out := make(Simplex, len(s))
	copy(out, s)
	return out
}

// Values returns the cached objective values in vertex order.
func (s Simplex) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Matrix returns the vertex coordinates as an (n+1)×n matrix, one vertex
// per row.
func (s Simplex) Matrix() *mat.Dense {
	if len(s) == 0 {
		return nil
	}
	n := s[0].Dim()
	data := make([]float64, 0, len(s)*n)
	for _, p := range s {
		data = append(data, p.Coords...)
	}
	return mat.NewDense(len(s), n, data)
}
