package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentroid(t *testing.T) {
	s := Simplex{
		{Coords: []float64{0, 0}},
		{Coords: []float64{2, 0}},
		{Coords: []float64{0, 4}},
	}
	assertFloat64SlicesEqual(t, Centroid(s, 2), []float64{1, 0}, 1e-12)
	assertFloat64SlicesEqual(t, Centroid(s, 0), []float64{1, 2}, 1e-12)
}

func TestStep(t *testing.T) {
	centroid := []float64{1, 1}
	worst := []float64{0, 0}

	tests := []struct {
		name string
		coef float64
		want []float64
	}{
		{"reflect", 1, []float64{2, 2}},
		{"expand", 2, []float64{3, 3}},
		{"outside contract", 0.5, []float64{1.5, 1.5}},
		{"inside contract", -0.5, []float64{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloat64SlicesEqual(t, Step(centroid, worst, tt.coef), tt.want, 1e-12)
		})
	}

	assert.Equal(t, []float64{1, 1}, centroid, "inputs must not be modified")
}

func TestToward(t *testing.T) {
	got := Toward([]float64{0, 0}, []float64{2, -4}, 0.5)
	assertFloat64SlicesEqual(t, got, []float64{1, -2}, 1e-12)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance([]float64{0, 0}, []float64{3, 4}), 1e-12)
	assert.InDelta(t, math.Sqrt(3), Distance([]float64{1, 1, 1}, []float64{0, 0, 0}), 1e-12)
}
