package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apierrors "github.com/copyleftdev/simplexopt/internal/errors"
	"github.com/copyleftdev/simplexopt/internal/optimization/multistart"
	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
	"github.com/copyleftdev/simplexopt/internal/optimization/problems"
)

// StartRequest are the parameters of optimization.start and
// POST /api/v1/optimize. Zero values take the configured defaults.
type StartRequest struct {
	Problem string `json:"problem"`
	// Starts replaces the problem's default starting points.
	Starts        [][]float64 `json:"starts,omitempty"`
	Tolerance     float64     `json:"tolerance,omitempty"`
	MaxIterations int         `json:"max_iterations,omitempty"`
	// Penalty settings, used for constrained problems only.
	InitialWeight float64 `json:"initial_weight,omitempty"`
	Policy        string  `json:"policy,omitempty"`
}

// StartResponse acknowledges a started job.
type StartResponse struct {
	OptimizationID string `json:"optimization_id"`
	Status         Status `json:"status"`
}

// plan is a validated StartRequest.
type plan struct {
	problem *problems.Problem
	starts  [][]float64
	inner   neldermead.Settings
	method  neldermead.Method
	outer   penalty.Optimizer
}

func (s *Server) plan(req StartRequest) (*plan, error) {
	if req.Problem == "" {
		return nil, apierrors.New(apierrors.KindInvalidInput, "problem is required")
	}
	p, err := s.problems.Get(req.Problem)
	if err != nil {
		return nil, apierrors.Wrap(err, apierrors.KindInvalidInput, "unknown problem")
	}

	starts := req.Starts
	if len(starts) == 0 {
		starts = p.Starts
	}
	if len(starts) == 0 {
		return nil, apierrors.Errorf(apierrors.KindInvalidInput, "problem %s has no default starting points", p.Name)
	}
	for _, x := range starts {
		if err := p.CheckStart(x); err != nil {
			return nil, apierrors.Wrap(err, apierrors.KindInvalidInput, "invalid start")
		}
	}

	opt := s.cfg.Optimization
	tol := opt.Tolerance
	if req.Tolerance != 0 {
		tol = req.Tolerance
	}
	if !(tol > 0) {
		return nil, apierrors.Errorf(apierrors.KindInvalidInput, "tolerance must be positive, got %v", req.Tolerance)
	}
	maxIter := opt.MaxIterations
	if req.MaxIterations != 0 {
		maxIter = req.MaxIterations
	}
	if maxIter < 1 {
		return nil, apierrors.Errorf(apierrors.KindInvalidInput, "max_iterations must be positive, got %d", req.MaxIterations)
	}
	weight := opt.InitialPenaltyWeight
	if req.InitialWeight != 0 {
		weight = req.InitialWeight
	}
	if !(weight > 0) {
		return nil, apierrors.Errorf(apierrors.KindInvalidInput, "initial_weight must be positive, got %v", req.InitialWeight)
	}
	policyName := opt.ShrinkPolicy
	if req.Policy != "" {
		policyName = req.Policy
	}
	policy, err := penalty.ParseShrinkPolicy(policyName)
	if err != nil {
		return nil, apierrors.Wrap(err, apierrors.KindInvalidInput, "invalid policy")
	}

	method := neldermead.Method{
		EdgeLength: opt.EdgeLength,
		Logger:     s.zlog.Named("neldermead"),
	}
	inner := neldermead.Settings{Tolerance: tol, MaxIterations: maxIter}

	return &plan{
		problem: p,
		starts:  starts,
		inner:   inner,
		method:  method,
		outer: penalty.Optimizer{
			Method:             method,
			Inner:              inner,
			InitialWeight:      weight,
			MaxOuterIterations: opt.MaxOuterIterations,
			Tolerance:          opt.ConvergenceTolerance,
			Policy:             policy,
			Logger:             s.zlog.Named("penalty"),
		},
	}, nil
}

// startOptimization validates req and launches the job in the background.
func (s *Server) startOptimization(req StartRequest) (*StartResponse, error) {
	pl, err := s.plan(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &OptimizationState{
		ID:          uuid.New().String(),
		Problem:     pl.problem.Name,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Request:     req,
		CancelFunc:  cancel,
		done:        make(chan struct{}),
	}

	s.optimizationsMu.Lock()
	s.optimizations[state.ID] = state
	s.optimizationsMu.Unlock()

	s.metrics.active.Inc()
	s.wg.Add(1)
	go s.runOptimization(ctx, state, pl)

	s.logger.Info("Optimization started", map[string]interface{}{
		"optimization_id": state.ID,
		"problem":         state.Problem,
		"starts":          len(pl.starts),
	})

	return &StartResponse{OptimizationID: state.ID, Status: StatusPending}, nil
}

// runOptimization executes a job. Every objective evaluation checks the
// job's context, so cancellation stops all of its runs at their next
// evaluation.
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, pl *plan) {
	defer s.wg.Done()
	defer close(state.done)
	defer state.CancelFunc()

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	counted := func(x []float64) (float64, error) {
		state.calls.Add(1)
		return pl.problem.Objective(x)
	}

	var solve multistart.SolveFunc
	if pl.problem.Constrained() {
		solve = multistart.Penalty(&pl.outer, counted, pl.problem.Constraints)
	} else {
		solve = multistart.Simplex(&pl.method, pl.inner, counted)
	}

	runner := &multistart.Runner{
		Workers: cap(s.slots),
		Logger:  s.zlog.With(zap.String("optimization_id", state.ID)),
	}
	started := time.Now()
	report, err := runner.Run(ctx, pl.starts, s.throttle(solve))
	elapsed := time.Since(started)

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	state.Report = report

	switch {
	case state.Status == StatusCancelled || ctx.Err() != nil:
		state.Status = StatusCancelled
	case err != nil:
		state.Status = StatusFailed
		state.Err = err
	case report.Best < 0:
		state.Status = StatusFailed
		state.Err = report.Outcomes[0].Err
	default:
		state.Status = StatusCompleted
	}

	s.metrics.active.Dec()
	s.metrics.runs.WithLabelValues(state.Problem, string(state.Status)).Inc()
	s.metrics.calls.WithLabelValues(state.Problem).Observe(float64(state.calls.Load()))
	s.metrics.duration.WithLabelValues(state.Problem).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"optimization_id": state.ID,
		"problem":         state.Problem,
		"status":          state.Status,
		"calls":           state.calls.Load(),
		"elapsed":         elapsed.String(),
	}
	if state.Err != nil {
		fields["error"] = state.Err.Error()
		s.logger.Error("Optimization failed", fields)
		return
	}
	if report != nil {
		if best, ok := report.BestOutcome(); ok {
			fields["best_value"] = best.Solution.Point.Value
		}
	}
	s.logger.Info("Optimization finished", fields)
}

// throttle makes solve wait for a free worker slot.
func (s *Server) throttle(solve multistart.SolveFunc) multistart.SolveFunc {
	return func(ctx context.Context, start []float64) (multistart.Solution, error) {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return multistart.Solution{}, ctx.Err()
		}
		defer func() { <-s.slots }()
		return solve(ctx, start)
	}
}

// cancelOptimization marks a job cancelled and stops its runs.
func (s *Server) cancelOptimization(id string) error {
	state, err := s.lookup(id)
	if err != nil {
		return err
	}

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	if state.Status.Terminal() {
		return apierrors.Errorf(apierrors.KindConflict, "cannot cancel optimization with status %s", state.Status)
	}
	state.CancelFunc()
	state.Status = StatusCancelled
	now := time.Now()
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return nil
}
