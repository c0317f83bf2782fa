// Run command replays a tracefile against a host graph.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphmorph/retrace/internal/graph"
	"github.com/graphmorph/retrace/internal/highlight"
)

var (
	flagRunGraph   string
	flagRunSteps   int
	flagRunProgram string
)

var runCmd = &cobra.Command{
	Use:   "run <tracefile>",
	Short: "Replay a tracefile and print the resulting graph",
	Long: `Run replays a tracefile against a host graph and prints the
graph state at the stopping point. The host graph is loaded from the
--graph JSON file, or starts empty. --steps limits the replay to the
first N steps; by default the whole trace is replayed.

With --program, the replay also tracks the source position: the flag
names a JSON token file exported by the program editor's lexer, and the
source text under emphasis at the stopping point is reported.

Example:
  retrace run program.trace
  retrace run --graph host.json --steps 12 program.trace
  retrace run --steps 12 --program program.tokens.json program.trace
  retrace run --json program.trace > result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagRunGraph, "graph", "", "host graph JSON file (default: empty graph)")
	runCmd.Flags().IntVar(&flagRunSteps, "steps", 0, "stop after N steps (0 replays the whole trace)")
	runCmd.Flags().StringVar(&flagRunProgram, "program", "", "program token JSON file; report the source highlight at the stopping point")
}

func runRun(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(flagRunGraph)
	if err != nil {
		return err
	}

	runner, f, err := openSession(args[0], g)
	if err != nil {
		return err
	}
	defer f.Close()

	var hl *highlight.Highlighter
	if flagRunProgram != "" {
		tokens, err := loadTokens(flagRunProgram)
		if err != nil {
			return err
		}
		hl = highlight.New(tokens, configNamePrefix)
		runner.SetHighlighter(hl)
	}

	if flagRunSteps > 0 {
		for i := 0; i < flagRunSteps && runner.ForwardAvailable(); i++ {
			if err := runner.StepForward(); err != nil {
				return fmt.Errorf("step %d: %w", runner.Position(), err)
			}
		}
	} else if err := runner.GoToEnd(); err != nil {
		return fmt.Errorf("replay trace: %w", err)
	}

	if flagJSON {
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("replayed %d of %d steps\n", runner.Position(), runner.StepCount())
	if msg := runner.Message(); msg != "" {
		fmt.Println(msg)
	}
	if hl != nil {
		if tok, ok := hl.Highlighted(); ok {
			fmt.Printf("source: %q (chars %d-%d)\n", tok.Text, tok.Start, tok.End)
		}
	}
	printGraph(g)
	return nil
}

// printGraph renders the graph as text, one node or edge per line.
func printGraph(g *graph.Graph) {
	nodes := g.Nodes()
	edges := g.Edges()
	fmt.Printf("graph: %d nodes, %d edges\n", len(nodes), len(edges))

	for _, n := range nodes {
		line := fmt.Sprintf("  node %s [%s]", n.ID, n.Label.String())
		if mark := n.Label.Mark.String(); mark != "none" {
			line += " " + mark
		}
		if n.IsRoot {
			line += " (root)"
		}
		fmt.Println(line)
	}
	for _, e := range edges {
		line := fmt.Sprintf("  edge %s: %s -> %s [%s]", e.ID, e.From, e.To, e.Label.String())
		if mark := e.Label.Mark.String(); mark != "none" {
			line += " " + mark
		}
		fmt.Println(line)
	}
}
