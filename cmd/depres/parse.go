package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perdasilva/depres/pkg/depspec"
)

func newParseCommand(a *app) *cobra.Command {
	var grammarName string
	cmd := &cobra.Command{
		Use:   "parse <dependency string>",
		Short: "Parse a dependency string and print its tree",
		Example: `  depres parse 'app-editors/vim || ( dev-libs/a dev-libs/b )'
  depres parse --grammar 0 'ssl? ( dev-libs/openssl )'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.grammar()
			if err != nil {
				return err
			}
			if grammarName != "" {
				if g, err = depspec.LookupGrammar(grammarName); err != nil {
					return err
				}
			}
			tree, err := depspec.Parse(strings.Join(args, " "), g)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), tree.Children, 0)
			return nil
		},
	}
	cmd.Flags().StringVar(&grammarName, "grammar", "", fmt.Sprintf("grammar to parse under, one of %s", strings.Join(depspec.GrammarNames(), ", ")))
	return cmd
}

func printTree(w io.Writer, nodes []depspec.Node, depth int) {
	groupColor := color.New(color.FgCyan)
	indent := strings.Repeat("  ", depth)
	for _, node := range nodes {
		switch n := node.(type) {
		case *depspec.Atom:
			fmt.Fprintf(w, "%s%s\n", indent, n)
			continue
		case *depspec.AllOf:
			groupColor.Fprintf(w, "%s(\n", indent)
		case *depspec.AnyOf:
			groupColor.Fprintf(w, "%s|| (\n", indent)
		case *depspec.Conditional:
			prefix := ""
			if n.Negated {
				prefix = "!"
			}
			groupColor.Fprintf(w, "%s%s%s? (\n", indent, prefix, n.Flag)
		}
		printTree(w, depspec.Children(node), depth+1)
		groupColor.Fprintf(w, "%s)\n", indent)
	}
}
