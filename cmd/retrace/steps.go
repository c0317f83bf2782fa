// Steps command lists the decoded steps of a tracefile.
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphmorph/retrace/internal/graph"
	"github.com/graphmorph/retrace/pkg/trace"
)

var stepsCmd = &cobra.Command{
	Use:   "steps <tracefile>",
	Short: "List the decoded steps of a tracefile",
	Long: `Steps decodes a tracefile and lists every trace step: context
openings and closings, rule matches and applications, and the leaf
markers. The trace is replayed against a scratch graph so that loop
boundaries and rollback points are reported too.

Example:
  retrace steps program.trace
  retrace steps --json program.trace`,
	Args: cobra.ExactArgs(1),
	RunE: runSteps,
}

// stepJSON is the JSON shape of one listed step.
type stepJSON struct {
	Ordinal      int    `json:"ordinal"`
	Type         string `json:"type"`
	Name         string `json:"name,omitempty"`
	EndOfContext bool   `json:"endOfContext,omitempty"`
	LoopBoundary bool   `json:"loopBoundary,omitempty"`
	Rollback     bool   `json:"rollback,omitempty"`
	Changes      int    `json:"changes,omitempty"`
}

func runSteps(cmd *cobra.Command, args []string) error {
	runner, f, err := openSession(args[0], graph.New())
	if err != nil {
		return err
	}
	defer f.Close()

	if err := runner.GoToEnd(); err != nil {
		return fmt.Errorf("replay trace: %w", err)
	}

	if flagJSON {
		out := make([]stepJSON, runner.StepCount())
		for i := range out {
			step := runner.Step(i)
			out[i] = stepJSON{
				Ordinal:      i,
				Type:         step.Type.String(),
				Name:         displayName(step.ContextName),
				EndOfContext: step.EndOfContext,
				LoopBoundary: step.LoopBoundary,
				Rollback:     step.HasSnapshot,
				Changes:      len(step.Changes),
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for i := 0; i < runner.StepCount(); i++ {
		fmt.Println(formatStep(i, runner.Step(i)))
	}
	return nil
}

// formatStep renders one step as a text line.
func formatStep(ordinal int, step *trace.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d  ", ordinal)

	if step.EndOfContext {
		b.WriteString("end ")
	}
	b.WriteString(step.Type.String())

	if step.ContextName != "" {
		fmt.Fprintf(&b, " %s", displayName(step.ContextName))
	}
	if n := len(step.Changes); n > 0 {
		fmt.Fprintf(&b, " (%d changes)", n)
	}
	if step.LoopBoundary {
		b.WriteString(" [loop boundary]")
	}
	if step.HasSnapshot {
		b.WriteString(" [rollback]")
	}
	return b.String()
}
