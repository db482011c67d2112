package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/parser"
	"github.com/skiff-lang/skiff/internal/snapshot"
)

func newCheckCmd() *cobra.Command {
	var (
		watch        bool
		snapshotPath string
	)
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Parse a script and report diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return watchAndCheck(args[0], snapshotPath)
			}
			errs, err := runCheck(args[0], snapshotPath)
			if err != nil {
				return err
			}
			if errs > 0 {
				return fmt.Errorf("%d error(s)", errs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-check whenever the file changes")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "seed declarations from a snapshot file")
	return cmd
}

// runCheck parses one file and prints its diagnostics with source
// context. It returns the number of error-severity diagnostics.
func runCheck(path, snapshotPath string) (int, error) {
	src, name, err := readSource(path)
	if err != nil {
		return 0, err
	}

	opts := []parser.Option{parser.WithName(name)}
	if snapshotPath != "" {
		seed, err := snapshot.Load(snapshotPath)
		if err != nil {
			return 0, err
		}
		opts = append(opts, parser.WithSeed(seed))
	}

	res := parser.Parse(src, opts...)
	if res.Diags.Len() == 0 {
		fmt.Printf("%s: ok\n", name)
		return 0, nil
	}
	fmt.Print(res.Diags.Render(res.Source))

	errs := 0
	for _, d := range res.Diags.All() {
		if d.Severity == diagnostics.SeverityError {
			errs++
		}
	}
	return errs, nil
}

// watchAndCheck re-runs the check every time the file is written.
// Editors that replace files on save generate Create events, so both
// kinds trigger.
func watchAndCheck(path, snapshotPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	if _, err := runCheck(path, snapshotPath); err != nil {
		return err
	}
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Re-add after replace-on-save; ignore failure while the
			// editor is mid-rename.
			_ = watcher.Add(path)
			if _, err := runCheck(path, snapshotPath); err != nil {
				fmt.Fprintln(os.Stderr, "skiff:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "skiff: watch:", err)
		case <-interrupt:
			return nil
		}
	}
}
