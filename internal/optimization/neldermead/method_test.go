package neldermead

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/simplexopt/internal/optimization"
)

func TestMinimizeConvexQuadratic(t *testing.T) {
	tests := []struct {
		name    string
		center  []float64
		weights []float64
		start   []float64
	}{
		{"one dimension", []float64{3}, []float64{1}, []float64{0}},
		{"two dimensions", []float64{1, -2}, []float64{1, 2}, []float64{0, 0}},
		{"three dimensions", []float64{0, 1, 2}, []float64{1, 1, 1}, []float64{5, 5, 5}},
		// Reaches a simplex straddling the minimum with equal values.
		{"symmetric one dimension", []float64{0}, []float64{1}, []float64{10}},
	}

	for _, tt := range tests {
		for _, tol := range []float64{1e-3, 1e-4, 1e-6} {
			t.Run(fmt.Sprintf("%s tol=%g", tt.name, tol), func(t *testing.T) {
				res, err := Minimize(bowl(tt.center, tt.weights), tt.start, tol, 0)
				require.NoError(t, err)
				require.True(t, res.Converged, "should converge within the iteration cap")
				assert.LessOrEqual(t, res.Simplex.Spread(), tol)

				best := res.Best()
				assert.LessOrEqual(t, best.Value, 10*tol*tol, "best value should be tolerance²-close to 0")
				for i := range tt.center {
					assert.InDelta(t, tt.center[i], best.Coords[i], 10*tol)
				}
			})
		}
	}
}

func TestMinimizeTiedValuesDoNotStop(t *testing.T) {
	const tol = 1e-12
	res, err := Minimize(bowl([]float64{0}, []float64{1}), []float64{10}, tol, 0)
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.LessOrEqual(t, res.Simplex.Spread(), tol)
	assert.Greater(t, res.Iterations, 5)

	best := res.Best()
	assert.LessOrEqual(t, best.Value, 10*tol*tol)
	assert.InDelta(t, 0, best.Coords[0], 10*tol)
	for _, p := range res.Simplex {
		assert.InDelta(t, best.Coords[0], p.Coords[0], tol)
	}
}

func TestMinimizeTriangleScenario(t *testing.T) {
	res, err := Minimize(triangle, []float64{1, 1}, 0.001, 0)
	require.NoError(t, err)
	require.True(t, res.Converged)

	best := res.Best()
	assert.InDelta(t, 1.0/3, best.Coords[0], 2e-3)
	assert.InDelta(t, 1.0/3, best.Coords[1], 2e-3)
	assert.InDelta(t, -1.0/216, best.Value, 1e-6)
}

func TestMinimizeIsDeterministic(t *testing.T) {
	first, err := Minimize(rosenbrock, []float64{-1.2, 1}, 1e-6, 500)
	require.NoError(t, err)
	second, err := Minimize(rosenbrock, []float64{-1.2, 1}, 1e-6, 500)
	require.NoError(t, err)

	assert.Equal(t, first.Calls, second.Calls)
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.Equal(t, first.Simplex, second.Simplex)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestMinimizeCallCount(t *testing.T) {
	tests := []struct {
		name  string
		f     optimization.ObjectiveFunction
		start []float64
		iters int
	}{
		{"quadratic", bowl([]float64{1, -2}, []float64{1, 2}), []float64{0, 0}, 0},
		{"triangle", triangle, []float64{0, 0.6}, 0},
		{"rosenbrock capped", rosenbrock, []float64{-1.2, 1}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := &counting{f: tt.f}
			res, err := Minimize(proxy.eval, tt.start, 1e-6, tt.iters)
			require.NoError(t, err)
			assert.Equal(t, proxy.calls, res.Calls)

			// construction plus at least one evaluation per iteration
			n := len(tt.start)
			assert.GreaterOrEqual(t, res.Calls, n+1+res.Iterations)
		})
	}
}

func TestMinimizeShrink(t *testing.T) {
	start := []float64{0, 0}
	initial := RegularSimplex(start, DefaultEdgeLength)

	// Zero at the start vertex, one at the other initial vertices and a
	// plateau everywhere else, so every candidate is rejected.
	plateau := func(x []float64) (float64, error) {
		for i, v := range initial {
			if sameCoords(x, v) {
				if i == 0 {
					return 0, nil
				}
				return 1, nil
			}
		}
		return 1000, nil
	}

	proxy := &counting{f: plateau}
	res, err := (&Method{}).Minimize(proxy.eval, start, Settings{
		Tolerance:     1e-3,
		MaxIterations: 1,
		RecordTrace:   true,
	})
	require.NoError(t, err)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, Shrink, res.Trace[0].Operation)
	assert.Equal(t, 1, res.Operations[Shrink])
	assert.False(t, res.Converged)

	// n+1 construction, reflection, inside contraction, n shrink evaluations
	assert.Equal(t, 3+1+1+2, res.Calls)
	assert.Equal(t, proxy.calls, res.Calls)

	best := res.Simplex.BestIndex()
	assert.Equal(t, 0, best)
	for i := range res.Simplex {
		if i == best {
			assert.Equal(t, initial[0], res.Simplex[i].Coords)
			continue
		}
		before := optimization.Distance(initial[i], initial[best])
		after := optimization.Distance(res.Simplex[i].Coords, res.Simplex[best].Coords)
		assert.Less(t, after, before, "vertex %d should move toward the best vertex", i)
		assert.InDelta(t, before*DefaultShrink, after, 1e-12)
	}
}

func TestMinimizeNonConvergence(t *testing.T) {
	res, err := Minimize(rosenbrock, []float64{-1.2, 1}, 1e-12, 3)
	require.NoError(t, err, "hitting the cap is not an error")
	assert.False(t, res.Converged)
	assert.Equal(t, 3, res.Iterations)
	assert.Len(t, res.Trace, 3)
	assert.Len(t, res.Simplex, 3)
}

func TestMinimizeTrace(t *testing.T) {
	f := bowl([]float64{1, 1}, []float64{1, 1})

	res, err := Minimize(f, []float64{0, 0}, 1e-4, 0)
	require.NoError(t, err)
	require.Len(t, res.Trace, res.Iterations)
	for i, snap := range res.Trace {
		assert.Equal(t, i+1, snap.Iteration)
		assert.Len(t, snap.Simplex, 3)
	}
	assert.Equal(t, res.Simplex, res.Trace[len(res.Trace)-1].Simplex)

	total := 0
	for _, c := range res.Operations {
		total += c
	}
	assert.Equal(t, res.Iterations, total)

	quiet, err := (&Method{}).Minimize(f, []float64{0, 0}, Settings{Tolerance: 1e-4})
	require.NoError(t, err)
	assert.Empty(t, quiet.Trace)
	assert.Equal(t, res.Simplex, quiet.Simplex)
}

func TestMinimizeStartVertex(t *testing.T) {
	res, err := Minimize(triangle, []float64{1, 1}, 1e-3, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, res.Start.Coords)
	assert.InDelta(t, 0.125, res.Start.Value, 1e-15)
}

func TestMinimizeInvalidInput(t *testing.T) {
	f := bowl([]float64{0}, []float64{1})

	tests := []struct {
		name     string
		f        optimization.ObjectiveFunction
		x0       []float64
		settings Settings
		want     error
	}{
		{"nil objective", nil, []float64{0}, Settings{Tolerance: 1}, optimization.ErrNilObjective},
		{"empty start", f, nil, Settings{Tolerance: 1}, optimization.ErrInvalidDimension},
		{"zero tolerance", f, []float64{0}, Settings{}, optimization.ErrInvalidTolerance},
		{"negative tolerance", f, []float64{0}, Settings{Tolerance: -1}, optimization.ErrInvalidTolerance},
		{"NaN tolerance", f, []float64{0}, Settings{Tolerance: math.NaN()}, optimization.ErrInvalidTolerance},
		{"negative iterations", f, []float64{0}, Settings{Tolerance: 1, MaxIterations: -1}, optimization.ErrInvalidIterations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&Method{}).Minimize(tt.f, tt.x0, tt.settings)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)

			oe, ok := optimization.IsOptimizationError(err)
			require.True(t, ok)
			assert.Equal(t, "neldermead", oe.Component)
		})
	}
}

func TestMinimizePropagatesEvaluationErrors(t *testing.T) {
	boom := errors.New("undefined at probe point")

	t.Run("during construction", func(t *testing.T) {
		calls := 0
		f := func(x []float64) (float64, error) {
			calls++
			if calls == 2 {
				return 0, boom
			}
			return x[0] * x[0], nil
		}
		_, err := Minimize(f, []float64{1, 1}, 1e-3, 0)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 2, calls, "no evaluation after the failure")
	})

	t.Run("during iteration", func(t *testing.T) {
		calls := 0
		f := func(x []float64) (float64, error) {
			calls++
			if calls > 10 {
				return 0, boom
			}
			return x[0]*x[0] + x[1]*x[1], nil
		}
		_, err := Minimize(f, []float64{1, 1}, 1e-9, 0)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 11, calls)
	})

	t.Run("NaN value", func(t *testing.T) {
		f := func(x []float64) (float64, error) {
			if x[0] < 0.5 {
				return math.NaN(), nil
			}
			return x[0] * x[0], nil
		}
		_, err := Minimize(f, []float64{1}, 1e-6, 0)
		assert.ErrorIs(t, err, optimization.ErrNonFiniteValue)
	})
}

func TestMinimizeAgreesWithGonum(t *testing.T) {
	tests := []struct {
		name  string
		f     optimization.ObjectiveFunction
		start []float64
	}{
		{"anisotropic bowl", bowl([]float64{-1, 4}, []float64{3, 0.5}), []float64{2, 2}},
		{"rosenbrock", rosenbrock, []float64{-1.2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&Method{Logger: zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))}).
				Minimize(tt.f, tt.start, Settings{Tolerance: 1e-8, MaxIterations: 5000})
			require.NoError(t, err)
			require.True(t, res.Converged)

			problem := optimize.Problem{
				Func: func(x []float64) float64 {
					v, _ := tt.f(x)
					return v
				},
			}
			ref, err := optimize.Minimize(problem, tt.start, nil, &optimize.NelderMead{})
			require.NoError(t, err)

			best := res.Best()
			for i := range ref.X {
				assert.InDelta(t, ref.X[i], best.Coords[i], 1e-3)
			}
			assert.InDelta(t, ref.F, best.Value, 1e-6)
		})
	}
}

func BenchmarkMinimizeRosenbrock(b *testing.B) {
	m := &Method{}
	for i := 0; i < b.N; i++ {
		_, _ = m.Minimize(rosenbrock, []float64{-1.2, 1}, Settings{Tolerance: 1e-8, MaxIterations: 5000})
	}
}
