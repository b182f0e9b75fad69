package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/simplexopt/internal/optimization/multistart"
	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
	"github.com/copyleftdev/simplexopt/internal/trace"
)

type runOptions struct {
	problem   string
	starts    []string
	tolerance float64
	maxIter   int
	weight    float64
	outerIter int
	policy    string
	workers   int
	tracePath string
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Minimize a built-in problem from one or more starting points",
		Example: `  optctl run --problem triangle --start 1,1 --tol 1e-6
  optctl run --problem box --policy on-convergence --trace box.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.run(ctx, cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.problem, "problem", "", "Problem name (see 'optctl problems')")
	f.StringArrayVar(&o.starts, "start", nil, "Starting point as comma separated coordinates; repeatable")
	f.Float64Var(&o.tolerance, "tol", 0, "Simplex tolerance (default OPT_TOLERANCE)")
	f.IntVar(&o.maxIter, "max-iter", 0, "Simplex iteration cap (default OPT_MAX_ITERATIONS)")
	f.Float64Var(&o.weight, "weight", 0, "Initial penalty weight (default OPT_INITIAL_PENALTY_WEIGHT)")
	f.IntVar(&o.outerIter, "outer-iter", 0, "Penalty iteration cap (default OPT_MAX_OUTER_ITERATIONS)")
	f.StringVar(&o.policy, "policy", "", "Penalty weight policy: always, on-convergence (default OPT_SHRINK_POLICY)")
	f.IntVar(&o.workers, "workers", 0, "Starting points solved in parallel (default OPT_WORKER_COUNT)")
	f.StringVar(&o.tracePath, "trace", "", "Write a JSON lines trace to this file")
	_ = cmd.MarkFlagRequired("problem")

	return cmd
}

func parsePoint(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	x := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid start %q: %w", s, err)
		}
		x[i] = v
	}
	return x, nil
}

func (a *app) run(ctx context.Context, out io.Writer, o *runOptions) error {
	p, err := a.problems.Get(o.problem)
	if err != nil {
		return err
	}

	starts := p.Starts
	if len(o.starts) > 0 {
		starts = make([][]float64, len(o.starts))
		for i, s := range o.starts {
			x, err := parsePoint(s)
			if err != nil {
				return err
			}
			if err := p.CheckStart(x); err != nil {
				return err
			}
			starts[i] = x
		}
	}

	opt := a.cfg.Optimization
	inner := a.innerSettings(o, p.Constrained())
	policy, err := penalty.ParseShrinkPolicy(pickString(o.policy, opt.ShrinkPolicy))
	if err != nil {
		return err
	}
	method := neldermead.Method{EdgeLength: opt.EdgeLength, Logger: a.logger.Named("neldermead")}

	var solve multistart.SolveFunc
	if p.Constrained() {
		solve = multistart.Penalty(&penalty.Optimizer{
			Method:             method,
			Inner:              inner,
			InitialWeight:      pick(o.weight, opt.InitialPenaltyWeight),
			MaxOuterIterations: pickInt(o.outerIter, opt.MaxOuterIterations),
			Tolerance:          opt.ConvergenceTolerance,
			Policy:             policy,
			Logger:             a.logger.Named("penalty"),
		}, p.Objective, p.Constraints)
	} else {
		solve = multistart.Simplex(&method, inner, p.Objective)
	}

	runner := &multistart.Runner{
		Workers: pickInt(o.workers, opt.WorkerCount),
		Logger:  a.logger.Named("multistart"),
	}
	report, err := runner.Run(ctx, starts, solve)
	if err != nil {
		return err
	}

	if o.tracePath != "" {
		if err := writeTrace(o.tracePath, report); err != nil {
			return err
		}
		a.logger.Info("trace written", zap.String("path", o.tracePath))
	}

	for _, oc := range report.Outcomes {
		if oc.Err != nil {
			fmt.Fprintf(out, "start=%v error=%v\n", oc.Start, oc.Err)
			continue
		}
		sol := oc.Solution
		fmt.Fprintf(out, "start=%v point=%v value=%.10g calls=%d converged=%t",
			oc.Start, sol.Point.Coords, sol.Point.Value, sol.Calls, sol.Converged)
		if res, ok := sol.Detail.(*penalty.Result); ok {
			fmt.Fprintf(out, " penalty=%.3g weight=%g", res.Penalty, res.Weight)
		}
		fmt.Fprintln(out)
	}

	best, ok := report.BestOutcome()
	if !ok {
		return fmt.Errorf("no run from %d starting points succeeded", len(starts))
	}
	fmt.Fprintf(out, "best: point=%v value=%.10g (start %d, %d calls total)\n",
		best.Solution.Point.Coords, best.Solution.Point.Value, best.Index, report.Calls)
	return nil
}

// innerSettings builds the simplex settings for one search. Penalty runs
// trace their outer iterations only, so inner snapshots are not recorded.
func (a *app) innerSettings(o *runOptions, constrained bool) neldermead.Settings {
	opt := a.cfg.Optimization
	return neldermead.Settings{
		Tolerance:     pick(o.tolerance, opt.Tolerance),
		MaxIterations: pickInt(o.maxIter, opt.MaxIterations),
		RecordTrace:   o.tracePath != "" && !constrained,
	}
}

func writeTrace(path string, report *multistart.Report) error {
	w, err := trace.Create(path, false)
	if err != nil {
		return err
	}
	run := uuid.New().String()
	for _, oc := range report.Outcomes {
		if oc.Err != nil {
			continue
		}
		switch d := oc.Solution.Detail.(type) {
		case *neldermead.Result:
			err = w.WriteSimplex(run, oc.Index, d.Trace)
		case *penalty.Result:
			err = w.WritePenalty(run, oc.Index, d.History)
		}
		if err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

func pick(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func pickInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func pickString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
