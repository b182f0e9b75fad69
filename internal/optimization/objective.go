package optimization

import "context"

// WithContext wraps f so that every evaluation first checks ctx. Once ctx
// is done the wrapped function fails with ctx.Err(), which aborts any run
// using it at its next evaluation.
func WithContext(ctx context.Context, f ObjectiveFunction) ObjectiveFunction {
	return func(x []float64) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return f(x)
	}
}
