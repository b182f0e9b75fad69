package penalty

import (
	"fmt"
	"strings"
)

// ShrinkPolicy decides when the penalty weight is halved between outer
// iterations.
type ShrinkPolicy int

const (
	// ShrinkAlways halves the weight after every outer iteration.
	ShrinkAlways ShrinkPolicy = iota
	// ShrinkOnConvergence halves the weight only when the inner simplex
	// search converged. Otherwise the next outer iteration resumes from
	// the candidate at the same weight.
	ShrinkOnConvergence
)

func (p ShrinkPolicy) String() string {
	switch p {
	case ShrinkAlways:
		return "always"
	case ShrinkOnConvergence:
		return "on-convergence"
	default:
		return fmt.Sprintf("ShrinkPolicy(%d)", int(p))
	}
}

// ParseShrinkPolicy accepts "always" and "on-convergence"; the empty
// string means ShrinkAlways.
func ParseShrinkPolicy(s string) (ShrinkPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return ShrinkAlways, nil
	case "on-convergence", "on_convergence":
		return ShrinkOnConvergence, nil
	default:
		return 0, fmt.Errorf("unknown shrink policy %q", s)
	}
}

func (p ShrinkPolicy) shouldShrink(innerConverged bool) bool {
	if p == ShrinkOnConvergence {
		return innerConverged
	}
	return true
}
