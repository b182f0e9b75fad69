package neldermead

import (
	"math"

	"github.com/copyleftdev/simplexopt/internal/optimization"
)

// counting wraps f and counts every invocation independently of the engine.
type counting struct {
	f     optimization.ObjectiveFunction
	calls int
}

func (c *counting) eval(x []float64) (float64, error) {
	c.calls++
	return c.f(x)
}

func bowl(center []float64, weights []float64) optimization.ObjectiveFunction {
	return func(x []float64) (float64, error) {
		sum := 0.0
		for i := range x {
			d := x[i] - center[i]
			sum += weights[i] * d * d
		}
		return sum, nil
	}
}

func triangle(x []float64) (float64, error) {
	return -0.125 * x[0] * x[1] * (1 - x[0] - x[1]), nil
}

func rosenbrock(x []float64) (float64, error) {
	a := x[1] - x[0]*x[0]
	b := 1 - x[0]
	return 100*a*a + b*b, nil
}

func sameCoords(a, b []float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			return false
		}
	}
	return true
}
