package server

import (
	"time"

	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
	"github.com/copyleftdev/simplexopt/internal/optimization/problems"
)

// Solution is the best point found by a job.
type Solution struct {
	// Start is the index of the starting point that produced it.
	Start     int       `json:"start"`
	Coords    []float64 `json:"coords"`
	Value     float64   `json:"value"`
	Converged bool      `json:"converged"`
}

// RunStatus summarizes the run from one starting point.
type RunStatus struct {
	Start      []float64 `json:"start"`
	Coords     []float64 `json:"coords,omitempty"`
	Value      float64   `json:"value"`
	Calls      int       `json:"calls"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	// Penalty is set for constrained problems.
	Penalty *float64 `json:"penalty,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// StatusResponse describes a job.
type StatusResponse struct {
	OptimizationID string     `json:"optimization_id"`
	Problem        string     `json:"problem"`
	Status         Status     `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	LastUpdated    time.Time  `json:"last_update"`
	// Calls is the number of objective evaluations so far.
	Calls int64       `json:"calls"`
	Error string      `json:"error,omitempty"`
	Best  *Solution   `json:"best_solution,omitempty"`
	Runs  []RunStatus `json:"runs,omitempty"`
}

func (s *Server) status(id string) (*StatusResponse, error) {
	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	resp := &StatusResponse{
		OptimizationID: state.ID,
		Problem:        state.Problem,
		Status:         state.Status,
		StartTime:      state.StartTime,
		EndTime:        state.EndTime,
		LastUpdated:    state.LastUpdated,
		Calls:          state.calls.Load(),
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	if state.Report == nil {
		return resp, nil
	}

	for _, o := range state.Report.Outcomes {
		run := RunStatus{Start: o.Start}
		if o.Err != nil {
			run.Error = o.Err.Error()
			resp.Runs = append(resp.Runs, run)
			continue
		}
		run.Coords = o.Solution.Point.Coords
		run.Value = o.Solution.Point.Value
		run.Calls = o.Solution.Calls
		run.Converged = o.Solution.Converged
		switch d := o.Solution.Detail.(type) {
		case *neldermead.Result:
			run.Iterations = d.Iterations
		case *penalty.Result:
			run.Iterations = d.Iterations
			pen := d.Penalty
			run.Penalty = &pen
		}
		resp.Runs = append(resp.Runs, run)
	}

	if best, ok := state.Report.BestOutcome(); ok {
		resp.Best = &Solution{
			Start:     best.Index,
			Coords:    best.Solution.Point.Coords,
			Value:     best.Solution.Point.Value,
			Converged: best.Solution.Converged,
		}
	}
	return resp, nil
}

// ProblemInfo describes a built-in problem.
type ProblemInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Dimension   int         `json:"dimension"`
	Constrained bool        `json:"constrained"`
	Equality    int         `json:"equality_constraints"`
	Inequality  int         `json:"inequality_constraints"`
	Starts      [][]float64 `json:"starts"`
	Minimizer   []float64   `json:"minimizer,omitempty"`
	Optimum     float64     `json:"optimum"`
}

func (s *Server) listProblems() []ProblemInfo {
	list := s.problems.List()
	out := make([]ProblemInfo, 0, len(list))
	for _, p := range list {
		out = append(out, describe(p))
	}
	return out
}

func describe(p *problems.Problem) ProblemInfo {
	return ProblemInfo{
		Name:        p.Name,
		Description: p.Description,
		Dimension:   p.Dimension,
		Constrained: p.Constrained(),
		Equality:    len(p.Constraints.Equality()),
		Inequality:  len(p.Constraints.Inequality()),
		Starts:      p.Starts,
		Minimizer:   p.Minimizer,
		Optimum:     p.Optimum,
	}
}
