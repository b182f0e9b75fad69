package optimization

import "gonum.org/v1/gonum/floats"

// Centroid returns the mean of all vertices of s except the one at skip.
func Centroid(s Simplex, skip int) []float64 {
	n := s.Dim()
	c := make([]float64, n)
	for i, p := range s {
		if i == skip {
			continue
		}
		floats.Add(c, p.Coords)
	}
	floats.Scale(1/float64(n), c)
	return c
}

// Step returns origin + coef·(origin - away).
// With origin the centroid and away the worst vertex this covers
// reflection (1), expansion (2), outside (0.5) and inside (-0.5) contraction.
func Step(origin, away []float64, coef float64) []float64 {
	d := floats.SubTo(make([]float64, len(origin)), origin, away)
	return floats.AddScaledTo(make([]float64, len(origin)), origin, coef, d)
}

// Toward returns anchor + coef·(x - anchor).
func Toward(anchor, x []float64, coef float64) []float64 {
	d := floats.SubTo(make([]float64, len(x)), x, anchor)
	return floats.AddScaledTo(make([]float64, len(x)), anchor, coef, d)
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
