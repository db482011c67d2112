package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/lexer"
	"github.com/skiff-lang/skiff/internal/parser"
)

func newTokensCmd() *cobra.Command {
	var withTrivia bool
	cmd := &cobra.Command{
		Use:   "tokens FILE",
		Short: "Print the token stream of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, err := readSource(args[0])
			if err != nil {
				return err
			}
			diags := diagnostics.NewCollector()
			for _, tok := range lexer.Tokenize(src, diags) {
				if tok.IsTrivia() && !withTrivia {
					continue
				}
				fmt.Printf("%-18s %-8s %q\n", tok.Kind, tok.Span, tok.Text(src))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withTrivia, "trivia", false, "include whitespace and comment tokens")
	return cmd
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the parsed node arena",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, name, err := readSource(args[0])
			if err != nil {
				return err
			}
			res := parser.Parse(src, parser.WithName(name))
			fmt.Print(res.Arena.Dump(src))
			if res.Diags.Len() > 0 {
				fmt.Print(res.Diags.Render(res.Source))
			}
			return nil
		},
	}
}
