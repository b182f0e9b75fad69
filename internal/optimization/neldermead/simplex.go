package neldermead

import (
	"math"

	"github.com/copyleftdev/simplexopt/internal/optimization"
)

// RegularSimplex returns the n+1 vertices of a regular simplex with edge
// length edge whose first vertex is x0. Vertex i+1 is x0 shifted by
// (sqrt(n+1)+n-1)/(n·sqrt2)·edge along axis i and by
// (sqrt(n+1)-1)/(n·sqrt2)·edge along every other axis.
func RegularSimplex(x0 []float64, edge float64) [][]float64 {
	n := len(x0)
	nf := float64(n)
	along := (math.Sqrt(nf+1) + nf - 1) / (nf * math.Sqrt2) * edge
	across := (math.Sqrt(nf+1) - 1) / (nf * math.Sqrt2) * edge

	vertices := make([][]float64, 0, n+1)
	vertices = append(vertices, append([]float64(nil), x0...))
	for i := 0; i < n; i++ {
		v := make([]float64, n)
		for j := range v {
			if i == j {
				v[j] = x0[j] + along
			} else {
				v[j] = x0[j] + across
			}
		}
		vertices = append(vertices, v)
	}
	return vertices
}

// Snapshot is the state of the simplex after one iteration.
type Snapshot struct {
	Iteration int                  `json:"iteration"`
	Operation Operation            `json:"operation"`
	Simplex   optimization.Simplex `json:"simplex"`
}

// Trace is the ordered, append-only record of snapshots of one run.
// It is diagnostic output only.
type Trace []Snapshot
