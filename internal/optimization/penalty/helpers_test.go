package penalty

// The box problem: maximise the volume x·y·z of a box with surface area
// 1, i.e. minimise -xyz s.t. 2(xy+yz+xz) = 1 and x, y, z >= 0.
func boxVolume(x []float64) (float64, error) {
	return -x[0] * x[1] * x[2], nil
}

func boxSurface(x []float64) (float64, error) {
	return 2*(x[0]*x[1]+x[1]*x[2]+x[0]*x[2]) - 1, nil
}

func nonNegative(i int) Constraint {
	return func(x []float64) (float64, error) {
		return -x[i], nil
	}
}

func boxConstraints() *ConstraintSet {
	return NewConstraintSet(
		[]Constraint{boxSurface},
		[]Constraint{nonNegative(0), nonNegative(1), nonNegative(2)},
	)
}

func constant(v float64) Constraint {
	return func([]float64) (float64, error) { return v, nil }
}
