// Package replay walks a decoded trace in either direction, applying or
// undoing graph mutations, keeping the context and snapshot stacks
// balanced, and recomputing source highlighting at every cursor move.
package replay

import (
	"fmt"

	"github.com/graphmorph/retrace/internal/decoder"
	"github.com/graphmorph/retrace/pkg/trace"
)

// Highlighter receives the step at the new cursor position after every
// navigation call, along with the direction travelled. A nil step means
// the end of the trace was reached.
type Highlighter interface {
	Update(step *trace.Step, dir trace.Direction)
}

// Runner is the bidirectional replay engine for one trace session. It
// owns the decoded step sequence (append-only, lazily grown one step
// ahead of the cursor) and is the sole mutator of the live graph for the
// session's lifetime.
type Runner struct {
	dec      *decoder.Decoder
	graph    trace.Graph
	contexts *contextManager

	steps []*trace.Step
	pos   int

	highlighter  Highlighter
	decodeFailed bool
	msg          string
}

// New creates a replay session over a decoder and a live graph, decoding
// the first step so the cursor always has a step to inspect.
func New(dec *decoder.Decoder, g trace.Graph) (*Runner, error) {
	r := &Runner{
		dec:      dec,
		graph:    g,
		contexts: newContextManager(g),
	}
	if err := r.parseAhead(); err != nil {
		return nil, err
	}
	return r, nil
}

// SetHighlighter attaches a source highlighter. Sessions replayed
// without program text run with none.
func (r *Runner) SetHighlighter(h Highlighter) {
	r.highlighter = h
}

// Graph returns the live graph of this session.
func (r *Runner) Graph() trace.Graph { return r.graph }

// Position returns the cursor: the index of the next step to execute
// forward, in [0, StepCount()].
func (r *Runner) Position() int { return r.pos }

// StepCount returns the number of steps decoded so far.
func (r *Runner) StepCount() int { return len(r.steps) }

// Step returns the decoded step at the given index.
func (r *Runner) Step(i int) *trace.Step { return r.steps[i] }

// Message returns a human-readable description of the most recent
// noteworthy replay event, for transient UI notifications.
func (r *Runner) Message() string { return r.msg }

// ContextDepth returns the number of currently-open lexical contexts.
func (r *Runner) ContextDepth() int { return r.contexts.Depth() }

// SnapshotDepth returns the number of rollback snapshots currently held.
func (r *Runner) SnapshotDepth() int { return r.contexts.SnapshotDepth() }

// ContextTypes returns the currently-open context types, outermost first.
func (r *Runner) ContextTypes() []trace.StepType { return r.contexts.Types() }

// ForwardAvailable reports whether a forward step is possible: false
// once the cursor sits past every decoded step with the stream
// exhausted, and permanently false after a decode failure.
func (r *Runner) ForwardAvailable() bool {
	return !r.decodeFailed && r.pos < len(r.steps)
}

// BackwardAvailable reports whether a backward step is possible.
func (r *Runner) BackwardAvailable() bool {
	return r.pos > 0
}

// FindMatchAvailable reports whether the step at the cursor is a rule
// match attempt (successful or failed).
func (r *Runner) FindMatchAvailable() bool {
	if r.pos >= len(r.steps) {
		return false
	}
	t := r.steps[r.pos].Type
	return t == trace.StepRuleMatch || t == trace.StepRuleMatchFailed
}

// MatchApplicationAvailable reports whether the step at the cursor is a
// rule application.
func (r *Runner) MatchApplicationAvailable() bool {
	return r.pos < len(r.steps) && r.steps[r.pos].Type == trace.StepRuleApplication
}

// StepForward executes the step at the cursor and advances. Rule
// applications mutate the graph; context markers drive the context and
// snapshot stacks; a rule closing straight after a failed match may roll
// the graph back to the enclosing iteration's entry state.
func (r *Runner) StepForward() error {
	if !r.ForwardAvailable() {
		return trace.ErrNoForwardStep
	}

	step := r.steps[r.pos]
	switch {
	case step.Type == trace.StepRuleApplication:
		r.applyChanges(step)

	case step.Type == trace.StepRuleMatchFailed:
		if name := r.enclosingRuleName(r.pos); name != "" {
			r.msg = fmt.Sprintf("no match found for rule %s", name)
		}

	case step.Type.IsContext():
		if step.EndOfContext {
			if step.Type == trace.StepRule && r.pos > 0 &&
				r.steps[r.pos-1].Type == trace.StepRuleMatchFailed {
				if r.contexts.DetectBacktrack(step) {
					r.msg = "graph reverted to a previous snapshot"
				}
			}
			r.contexts.ExitForward()
		} else {
			r.contexts.EnterForward(step)
		}
	}

	r.pos++

	if err := r.parseAhead(); err != nil {
		// The applied graph state and decoded steps stay intact; only
		// forward navigation is lost for the session.
		return err
	}

	r.updateHighlight(trace.Forward)
	return nil
}

// StepBackward moves the cursor back one step and applies that step's
// inverse: rule applications are undone change-by-change in reverse
// order, end-of-context markers become context entries and vice versa,
// and an attached backtrack snapshot is restored to undo the forward
// rollback.
func (r *Runner) StepBackward() error {
	if !r.BackwardAvailable() {
		return trace.ErrNoBackwardStep
	}

	r.pos--
	step := r.steps[r.pos]

	switch {
	case step.Type == trace.StepRuleApplication:
		r.revertChanges(step)

	case step.Type.IsContext():
		if step.EndOfContext {
			failed := step.Type == trace.StepLoopIteration && r.iterationFailedBefore(r.pos)
			r.contexts.EnterBackward(step, failed)
			if step.Type == trace.StepRule && step.HasSnapshot {
				r.contexts.UndoBacktrack(step)
				r.msg = "graph restored to its pre-rollback state"
			}
		} else {
			r.contexts.ExitBackward(step)
		}
	}

	r.updateHighlight(trace.Backward)
	return nil
}

// GoToEnd steps forward until the end of the trace or the first failure,
// keeping whatever progress was made.
func (r *Runner) GoToEnd() error {
	for r.ForwardAvailable() {
		if err := r.StepForward(); err != nil {
			return err
		}
	}
	return nil
}

// GoToStart steps backward to the start of the trace or the first
// failure, keeping whatever progress was made.
func (r *Runner) GoToStart() error {
	for r.BackwardAvailable() {
		if err := r.StepBackward(); err != nil {
			return err
		}
	}
	return nil
}

// parseAhead decodes one more step when the cursor has caught up with
// the decoded sequence and the stream is not exhausted.
func (r *Runner) parseAhead() error {
	for r.pos >= len(r.steps) && !r.dec.Complete() {
		step, err := r.dec.ParseStep()
		if err != nil {
			if r.dec.Complete() {
				// Clean end of trace, including truncation.
				return nil
			}
			r.decodeFailed = true
			return err
		}
		r.appendStep(step)
	}
	return nil
}

// appendStep adds a newly decoded step, computing loop boundaries: an
// iteration opening right after its loop opens is a boundary, and a
// closing loop retroactively marks its final iteration's close.
func (r *Runner) appendStep(step *trace.Step) {
	n := len(r.steps)
	if step.Type == trace.StepLoopIteration && !step.EndOfContext && n > 0 {
		prev := r.steps[n-1]
		if prev.Type == trace.StepLoop && !prev.EndOfContext {
			step.LoopBoundary = true
		}
	}
	if step.Type == trace.StepLoop && step.EndOfContext {
		r.markClosingIteration()
	}
	r.steps = append(r.steps, step)
}

// markClosingIteration scans backward for the nearest iteration close
// belonging to the loop that just closed, skipping over complete inner
// loops, and marks it as the loop's boundary.
func (r *Runner) markClosingIteration() {
	depth := 0
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		switch {
		case step.Type == trace.StepLoop && step.EndOfContext:
			depth++
		case step.Type == trace.StepLoop && !step.EndOfContext:
			if depth == 0 {
				return
			}
			depth--
		case step.Type == trace.StepLoopIteration && step.EndOfContext && depth == 0:
			if !step.LoopBoundary {
				step.LoopBoundary = true
			}
			return
		}
	}
}

// iterationFailedBefore reports whether the iteration closing at index
// idx failed: some rule close carrying a backtrack snapshot sits
// directly before it, possibly behind other context closes unwound by
// the same failure.
func (r *Runner) iterationFailedBefore(idx int) bool {
	for i := idx - 1; i >= 0; i-- {
		step := r.steps[i]
		if !step.EndOfContext {
			return false
		}
		if step.Type == trace.StepRule && step.HasSnapshot {
			return true
		}
		if step.Type == trace.StepLoopIteration {
			return false
		}
	}
	return false
}

// enclosingRuleName returns the name of the rule whose context encloses
// the step at idx, scanning backward with a nesting counter.
func (r *Runner) enclosingRuleName(idx int) string {
	depth := 0
	for i := idx - 1; i >= 0; i-- {
		step := r.steps[i]
		if step.Type != trace.StepRule {
			continue
		}
		if step.EndOfContext {
			depth++
			continue
		}
		if depth == 0 {
			return step.ContextName
		}
		depth--
	}
	return ""
}

// applyChanges applies a rule application's changes in forward order. A
// node's display position is captured into the change record before a
// delete, so backward replay can restore its placement exactly.
func (r *Runner) applyChanges(step *trace.Step) {
	for i := range step.Changes {
		change := &step.Changes[i]
		switch change.Type {
		case trace.ChangeAddEdge:
			r.graph.AddEdge(change.New.Edge)

		case trace.ChangeAddNode:
			r.graph.AddNode(change.New.Node)

		case trace.ChangeDeleteEdge:
			r.graph.RemoveEdge(change.Existing.Edge.ID)

		case trace.ChangeDeleteNode:
			id := change.Existing.Node.ID
			if node, ok := r.graph.Node(id); ok {
				change.Existing.Node.Pos = node.Pos
			}
			r.graph.RemoveNode(id)

		case trace.ChangeRelabelEdge:
			r.graph.SetEdgeLabel(change.New.Edge.ID, change.New.Edge.Label.Values)

		case trace.ChangeRelabelNode:
			r.graph.SetNodeLabel(change.New.Node.ID, change.New.Node.Label.Values)

		case trace.ChangeRemarkEdge:
			r.graph.SetEdgeMark(change.New.Edge.ID, change.New.Edge.Label.Mark)

		case trace.ChangeRemarkNode:
			r.graph.SetNodeMark(change.New.Node.ID, change.New.Node.Label.Mark)

		case trace.ChangeSetRoot, trace.ChangeRemoveRoot:
			r.graph.SetRoot(change.New.Node.ID, change.New.Node.IsRoot)
		}
	}
}

// revertChanges undoes a rule application by applying the inverse of
// each change in reverse order, mirroring structural dependencies
// between nodes and their edges.
func (r *Runner) revertChanges(step *trace.Step) {
	for i := len(step.Changes) - 1; i >= 0; i-- {
		change := step.Changes[i]
		switch change.Type {
		case trace.ChangeAddEdge:
			r.graph.RemoveEdge(change.New.Edge.ID)

		case trace.ChangeAddNode:
			r.graph.RemoveNode(change.New.Node.ID)

		case trace.ChangeDeleteEdge:
			r.graph.AddEdge(change.Existing.Edge)

		case trace.ChangeDeleteNode:
			r.graph.AddNode(change.Existing.Node)

		case trace.ChangeRelabelEdge:
			r.graph.SetEdgeLabel(change.Existing.Edge.ID, change.Existing.Edge.Label.Values)

		case trace.ChangeRelabelNode:
			r.graph.SetNodeLabel(change.Existing.Node.ID, change.Existing.Node.Label.Values)

		case trace.ChangeRemarkEdge:
			r.graph.SetEdgeMark(change.Existing.Edge.ID, change.Existing.Edge.Label.Mark)

		case trace.ChangeRemarkNode:
			r.graph.SetNodeMark(change.Existing.Node.ID, change.Existing.Node.Label.Mark)

		case trace.ChangeSetRoot, trace.ChangeRemoveRoot:
			r.graph.SetRoot(change.Existing.Node.ID, change.Existing.Node.IsRoot)
		}
	}
}

// updateHighlight recomputes the source highlight for the step now at
// the cursor, searching the program text in the direction travelled.
func (r *Runner) updateHighlight(dir trace.Direction) {
	if r.highlighter == nil {
		return
	}
	if r.pos < len(r.steps) {
		r.highlighter.Update(r.steps[r.pos], dir)
		return
	}
	r.highlighter.Update(nil, dir)
}
