package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/simplexopt/internal/trace"
)

// traceSummary is the last entry of one start within one run.
type traceSummary struct {
	run     string
	start   int
	entries int
	last    trace.Entry
}

func newTraceCmd() *cobra.Command {
	var vertices bool
	cmd := &cobra.Command{
		Use:   "trace FILE",
		Short: "Summarize a trace file written by 'optctl run --trace'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := trace.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := r.ReadAll()
			if err != nil {
				return err
			}
			return summarize(cmd.OutOrStdout(), entries, vertices)
		},
	}
	cmd.Flags().BoolVar(&vertices, "vertices", false, "Print the final simplex of each simplex trace")
	return cmd
}

func summarize(out io.Writer, entries []trace.Entry, vertices bool) error {
	// Group by run and start, keeping the order of first appearance.
	var order []*traceSummary
	index := make(map[string]*traceSummary)
	for _, e := range entries {
		key := fmt.Sprintf("%s/%d", e.Run, e.Start)
		s, ok := index[key]
		if !ok {
			s = &traceSummary{run: e.Run, start: e.Start}
			index[key] = s
			order = append(order, s)
		}
		s.entries++
		s.last = e
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTART\tKIND\tENTRIES\tLAST\tVALUE\tDETAIL")
	for _, s := range order {
		e := s.last
		switch {
		case e.Kind == trace.KindSimplex && len(e.Simplex) > 0:
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%.10g\toperation=%s spread=%.3g\n",
				s.run, s.start, e.Kind, s.entries, e.Iteration, e.Simplex.Best().Value, e.Operation, e.Simplex.Spread())
		case e.Kind == trace.KindPenalty && e.Outer != nil:
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%.10g\tweight=%g penalty=%.3g\n",
				s.run, s.start, e.Kind, s.entries, e.Iteration, e.Outer.Candidate.Value, e.Outer.Weight, e.Outer.Penalty)
		default:
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t-\t-\n", s.run, s.start, e.Kind, s.entries, e.Iteration)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !vertices {
		return nil
	}
	for _, s := range order {
		if s.last.Kind != trace.KindSimplex || len(s.last.Simplex) == 0 {
			continue
		}
		fmt.Fprintf(out, "\nstart %d, iteration %d:\n", s.start, s.last.Iteration)
		fmt.Fprintf(out, "%v\n", mat.Formatted(s.last.Simplex.Matrix(), mat.Prefix(""), mat.Squeeze()))
	}
	return nil
}
