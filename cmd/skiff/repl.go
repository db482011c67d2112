package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/skiff-lang/skiff/internal/parser"
	"github.com/skiff-lang/skiff/internal/resolver"
	"github.com/skiff-lang/skiff/internal/snapshot"
)

func newReplCmd() *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively parse lines against an accumulating scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(snapshotPath)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "",
		"load declarations on start and save them on exit")
	return cmd
}

// runRepl reads lines, parses each against the declarations collected
// so far, and folds every line's top-level declarations back into the
// seed. Nothing is evaluated; the REPL shows trees and diagnostics.
func runRepl(snapshotPath string) error {
	var decls []resolver.Declaration
	if snapshotPath != "" {
		seed, err := snapshot.Load(snapshotPath)
		if err != nil {
			return err
		}
		decls = seed.Decls
	}

	rl, err := readline.New("skiff> ")
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	for lineNo := 1; ; lineNo++ {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == "exit" {
			break
		}

		res := parser.Parse([]byte(line),
			parser.WithName(fmt.Sprintf("repl:%d", lineNo)),
			parser.WithSeed(&resolver.Seed{Decls: decls}))

		if res.Diags.Len() > 0 {
			fmt.Print(res.Diags.Render(res.Source))
		} else {
			fmt.Print(res.Arena.Dump([]byte(line)))
		}
		// Later declarations of the same name shadow earlier ones
		// when the next line's table binds the seed in order.
		decls = append(decls, res.Bindings.TopLevel()...)
	}

	if snapshotPath != "" {
		if err := snapshot.Save(snapshotPath, decls); err != nil {
			return err
		}
		fmt.Printf("saved %d declaration(s) to %s\n", len(decls), snapshotPath)
	}
	return nil
}
