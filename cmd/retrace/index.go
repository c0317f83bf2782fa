// Index command persists a decoded trace into the SQLite trace index.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graphmorph/retrace/internal/graph"
)

var flagIndexName string

var indexCmd = &cobra.Command{
	Use:   "index <tracefile>",
	Short: "Index a tracefile into the SQLite trace index",
	Long: `Index replays a tracefile and writes its steps and graph
changes into a SQLite database under the data directory, so the trace
can be queried with SQL afterwards. The trace is fully replayed first,
so loop boundaries and rollback points are part of the index.

Example:
  retrace index program.trace
  retrace index --name nightly-run program.trace`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagIndexName, "name", "", "session name (default: tracefile basename)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	tracePath := args[0]

	runner, f, err := openSession(tracePath, graph.New())
	if err != nil {
		return err
	}
	defer f.Close()

	if err := runner.GoToEnd(); err != nil {
		return fmt.Errorf("replay trace: %w", err)
	}

	store, err := attachStore()
	if err != nil {
		return err
	}
	defer store.Close()

	name := flagIndexName
	if name == "" {
		name = filepath.Base(tracePath)
	}

	sessionID, err := store.CreateSession(name)
	if err != nil {
		return err
	}
	for i := 0; i < runner.StepCount(); i++ {
		if err := store.AddStep(sessionID, i, runner.Step(i)); err != nil {
			return fmt.Errorf("index step %d: %w", i, err)
		}
	}

	fmt.Printf("indexed %d steps as session %s\n", runner.StepCount(), sessionID)
	return nil
}
