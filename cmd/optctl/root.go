package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/simplexopt/internal/config"
	"github.com/copyleftdev/simplexopt/internal/logging"
	"github.com/copyleftdev/simplexopt/internal/optimization/problems"
)

// app is the state shared by all subcommands.
type app struct {
	logLevel  string
	logFormat string

	cfg      *config.Config
	logger   *zap.Logger
	problems *problems.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{problems: problems.Default()}

	root := &cobra.Command{
		Use:   "optctl",
		Short: "Derivative-free minimization with the Nelder-Mead simplex search",
		Long: `optctl runs the Nelder-Mead simplex search on the built-in test problems.
Constrained problems are solved with a sequence of quadratic-penalty searches.
Defaults come from the OPT_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg

			base, err := logging.NewLogger(&logging.Config{
				Level:  a.logLevel,
				Format: a.logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			a.logger = logging.NewZapLogger(base)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(newProblemsCmd(a), newRunCmd(a), newTraceCmd())
	return root
}
