package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProblemsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List the built-in problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDIM\tCONSTRAINTS\tSTARTS\tDESCRIPTION")
			for _, p := range a.problems.List() {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", p.Name, p.Dimension, p.Constraints.Len(), len(p.Starts), p.Description)
			}
			return tw.Flush()
		},
	}
}
