package neldermead

// Operation is the simplex transformation applied in one iteration.
type Operation int

const (
	Expand Operation = iota
	Reflect
	InsideContract
	OutsideContract
	Shrink
)

func (op Operation) String() string {
	switch op {
	case Expand:
		return "expand"
	case Reflect:
		return "reflect"
	case InsideContract:
		return "inside-contract"
	case OutsideContract:
		return "outside-contract"
	case Shrink:
		return "shrink"
	default:
		return "unknown"
	}
}

// MarshalText lets operations appear by name in JSON traces.
func (op Operation) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// classify picks the move for a reflected value r given the best,
// second-worst and worst vertex values. The order of the cases matters.
func classify(r, best, secondWorst, worst float64) Operation {
	switch {
	case r <= best:
		return Expand
	case r <= secondWorst:
		return Reflect
	case r >= worst:
		return InsideContract
	default:
		return OutsideContract
	}
}
