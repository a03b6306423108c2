package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perdasilva/depres/pkg/resolver"
)

func newResolveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <targets...>",
		Short: "Resolve targets into an ordered plan",
		Long: `Resolve every target against the configured catalogs and print one
decision per package, dependencies first.

Exits non-zero when any package is unsatisfiable; the full plan is still
printed.`,
		Example: `  depres resolve --catalog gentoo.yaml app-editors/vim
  depres resolve '>=dev-libs/openssl-3' 'ssl? ( net-misc/curl )'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.provider(ctx)
			if err != nil {
				return err
			}
			options, err := a.cfg.ResolverOptions(a.logger)
			if err != nil {
				return err
			}

			res, err := resolver.New(p, options...).Resolve(ctx, args...)
			var unsat *resolver.UnsatisfiableError
			if err != nil && !errors.As(err, &unsat) {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			if unsat != nil {
				w := cmd.ErrOrStderr()
				for _, failure := range unsat.Errors {
					color.New(color.FgRed).Fprintln(w, failure.Explain())
				}
				return err
			}
			return nil
		},
	}
}

var decisionColors = map[resolver.DecisionKind]*color.Color{
	resolver.Use:           color.New(color.FgGreen),
	resolver.Keep:          color.New(color.FgCyan),
	resolver.Unsatisfiable: color.New(color.FgRed, color.Bold),
	resolver.Skipped:       color.New(color.FgYellow),
}

func printResult(w io.Writer, res *resolver.Result) {
	for _, e := range res.Decisions {
		label := decisionColors[e.Decision.Kind].Sprintf("%-13s", e.Decision.Kind)
		switch e.Decision.Kind {
		case resolver.Use, resolver.Keep:
			fmt.Fprintf(w, "%s %s\n", label, e.Decision.Candidate.ID())
		default:
			fmt.Fprintf(w, "%s %s\n", label, e.Key)
		}
	}
	for _, cycle := range res.Cycles {
		color.New(color.FgYellow).Fprintf(w, "cycle: %s\n", cycle)
	}
	if res.Restarts > 0 {
		fmt.Fprintf(w, "restarts: %d\n", res.Restarts)
	}
}
