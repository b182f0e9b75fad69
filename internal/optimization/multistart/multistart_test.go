package multistart

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/simplexopt/internal/optimization"
	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
	"github.com/copyleftdev/simplexopt/internal/optimization/problems"
)

// fixed reports the first coordinate of the start as the value.
func fixed(_ context.Context, start []float64) (Solution, error) {
	return Solution{
		Point:     optimization.Point{Coords: start, Value: start[0]},
		Calls:     1,
		Converged: true,
	}, nil
}

func TestRunKeepsInputOrder(t *testing.T) {
	starts := [][]float64{{3}, {-1}, {2}, {-1}, {7}}
	r := &Runner{Workers: 3, Logger: zaptest.NewLogger(t)}

	report, err := r.Run(context.Background(), starts, fixed)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, len(starts))

	for i, o := range report.Outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, starts[i], o.Start)
		assert.NoError(t, o.Err)
		assert.Equal(t, starts[i][0], o.Solution.Point.Value)
	}
	assert.Equal(t, 1, report.Best, "ties go to the first start")
	assert.Equal(t, 5, report.Calls)

	best, ok := report.BestOutcome()
	require.True(t, ok)
	assert.Equal(t, -1.0, best.Solution.Point.Value)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var active, peak int32
	solve := func(ctx context.Context, start []float64) (Solution, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return fixed(ctx, start)
	}

	starts := make([][]float64, 12)
	for i := range starts {
		starts[i] = []float64{float64(i)}
	}

	report, err := (&Runner{Workers: 2}).Run(context.Background(), starts, solve)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Best)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunKeepsFailures(t *testing.T) {
	boom := errors.New("diverged")
	solve := func(ctx context.Context, start []float64) (Solution, error) {
		if start[0] < 0 {
			return Solution{}, boom
		}
		return fixed(ctx, start)
	}

	report, err := (&Runner{Workers: 4}).Run(context.Background(), [][]float64{{-5}, {4}, {-2}, {1}}, solve)
	require.NoError(t, err)
	assert.ErrorIs(t, report.Outcomes[0].Err, boom)
	assert.ErrorIs(t, report.Outcomes[2].Err, boom)
	assert.Equal(t, 3, report.Best)
	assert.Equal(t, 2, report.Calls)

	all, err := (&Runner{}).Run(context.Background(), [][]float64{{-1}}, solve)
	require.NoError(t, err)
	assert.Equal(t, -1, all.Best)
	_, ok := all.BestOutcome()
	assert.False(t, ok)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	solve := func(ctx context.Context, start []float64) (Solution, error) {
		atomic.AddInt32(&calls, 1)
		return fixed(ctx, start)
	}

	report, err := (&Runner{Workers: 2}).Run(ctx, [][]float64{{1}, {2}, {3}}, solve)
	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, -1, report.Best)
	for _, o := range report.Outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRunWithoutStarts(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), nil, fixed)
	assert.ErrorIs(t, err, ErrNoStarts)
}

func TestSimplexQuadratic(t *testing.T) {
	p := problems.Quadratic()
	solve := Simplex(&neldermead.Method{}, neldermead.Settings{Tolerance: 1e-6}, p.Objective)

	report, err := (&Runner{Workers: 2}).Run(context.Background(), p.Starts, solve)
	require.NoError(t, err)

	for _, o := range report.Outcomes {
		require.NoError(t, o.Err)
		assert.True(t, o.Solution.Converged)
		assert.IsType(t, &neldermead.Result{}, o.Solution.Detail)
		for i := range p.Minimizer {
			assert.InDelta(t, p.Minimizer[i], o.Solution.Point.Coords[i], 1e-4)
		}
	}
	assert.GreaterOrEqual(t, report.Best, 0)
}

func TestSimplexStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	f := func(x []float64) (float64, error) {
		calls++
		if calls == 20 {
			cancel()
		}
		return x[0] * x[0], nil
	}

	_, err := Simplex(&neldermead.Method{}, neldermead.Settings{Tolerance: 1e-12}, f)(ctx, []float64{10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 20, calls)
}

func TestPenaltyBox(t *testing.T) {
	p := problems.Box()
	solve := Penalty(&penalty.Optimizer{}, p.Objective, p.Constraints)

	report, err := (&Runner{Workers: 3}).Run(context.Background(), p.Starts, solve)
	require.NoError(t, err)

	best, ok := report.BestOutcome()
	require.True(t, ok)
	assert.True(t, best.Solution.Converged)
	assert.InDelta(t, p.Optimum, best.Solution.Point.Value, 1e-2)

	res, ok := best.Solution.Detail.(*penalty.Result)
	require.True(t, ok)
	assert.Equal(t, res.Calls+1, best.Solution.Calls)
}
