package replay

import "github.com/graphmorph/retrace/pkg/trace"

// contextEntry is one open lexical context on the context stack.
type contextEntry struct {
	typ trace.StepType

	// hasSnapshot is true while a snapshot owned by this context sits on
	// the snapshot stack. Branch entry consumes the enclosing if/try
	// snapshot, and a backtrack consumes the loop iteration's.
	hasSnapshot bool

	// succeeded is the loop-iteration outcome flag: assumed true on
	// entry, cleared when a backtrack proves the iteration failed.
	succeeded bool
}

// contextManager tracks the stack of currently-open lexical contexts and
// the parallel stack of graph snapshots used to roll back speculative
// state. The snapshot stack and the rollback-eligible subset of the
// context stack stay in 1:1 correspondence during forward replay; that
// correspondence is what makes backward replay deterministic.
type contextManager struct {
	graph     trace.Graph
	stack     []contextEntry
	snapshots []trace.Snapshot
}

func newContextManager(g trace.Graph) *contextManager {
	return &contextManager{graph: g}
}

// speculative reports whether entering a context of this type forward
// requires a rollback snapshot.
func speculative(t trace.StepType) bool {
	switch t {
	case trace.StepIfContext, trace.StepTryContext, trace.StepLoopIteration:
		return true
	default:
		return false
	}
}

// Depth returns the number of open contexts.
func (m *contextManager) Depth() int { return len(m.stack) }

// SnapshotDepth returns the number of rollback snapshots held.
func (m *contextManager) SnapshotDepth() int { return len(m.snapshots) }

// Types returns the open context types, bottom first.
func (m *contextManager) Types() []trace.StepType {
	out := make([]trace.StepType, len(m.stack))
	for i, e := range m.stack {
		out[i] = e.typ
	}
	return out
}

// EnterForward opens the context of a context-entering step during
// forward replay. Speculative contexts get a rollback snapshot. Entering
// a branch consumes the enclosing if/try snapshot: an if discards the
// condition's effects (restore), a successful try keeps them (discard),
// and an else always restores. Each restore captures a reverse snapshot
// onto the step so a backward step can undo it exactly.
func (m *contextManager) EnterForward(step *trace.Step) {
	entry := contextEntry{typ: step.Type, succeeded: true}

	switch step.Type {
	case trace.StepIfContext, trace.StepTryContext, trace.StepLoopIteration:
		m.snapshots = append(m.snapshots, m.graph.Snapshot())
		entry.hasSnapshot = true

	case trace.StepThenBranch:
		if parent := m.topIndex(); parent >= 0 && m.stack[parent].hasSnapshot {
			snap := m.popSnapshot()
			m.stack[parent].hasSnapshot = false
			if m.stack[parent].typ == trace.StepIfContext {
				// The taken then-branch must start from the graph as it
				// was before the condition ran.
				attachReverse(step, m.graph)
				m.graph.Restore(snap)
			}
		}

	case trace.StepElseBranch:
		if parent := m.topIndex(); parent >= 0 && m.stack[parent].hasSnapshot {
			snap := m.popSnapshot()
			m.stack[parent].hasSnapshot = false
			// The branch not taken must never see the condition's effects.
			attachReverse(step, m.graph)
			m.graph.Restore(snap)
		}
	}

	m.stack = append(m.stack, entry)
}

// ExitForward closes the top context during forward replay, discarding
// its snapshot when one is still live. A successful loop iteration needs
// no rollback; a failed one already consumed its snapshot backtracking.
func (m *contextManager) ExitForward() {
	entry, ok := m.pop()
	if !ok {
		return
	}
	if entry.hasSnapshot {
		m.popSnapshot()
	}
}

// EnterBackward reopens a context when a backward step crosses its
// end-of-context marker. A successfully-completed loop iteration gets a
// fresh snapshot so the stacks stay balanced if replay turns forward
// again; a failed iteration's snapshot is re-created later by
// UndoBacktrack, at the exact point the forward rollback consumed it.
func (m *contextManager) EnterBackward(step *trace.Step, failedIteration bool) {
	entry := contextEntry{typ: step.Type, succeeded: !failedIteration}

	if step.Type == trace.StepLoopIteration && !failedIteration {
		m.snapshots = append(m.snapshots, m.graph.Snapshot())
		entry.hasSnapshot = true
	}

	m.stack = append(m.stack, entry)
}

// ExitBackward closes a context when a backward step crosses its opening
// marker. Crossing a branch entry backward re-creates the if/try
// snapshot the forward entry consumed, and undoes the restore the
// forward entry performed (when one happened).
func (m *contextManager) ExitBackward(step *trace.Step) {
	entry, ok := m.pop()
	if !ok {
		return
	}

	switch step.Type {
	case trace.StepThenBranch, trace.StepElseBranch:
		m.snapshots = append(m.snapshots, m.graph.Snapshot())
		if parent := m.topIndex(); parent >= 0 {
			m.stack[parent].hasSnapshot = true
		}
		if step.HasSnapshot {
			m.graph.Restore(*step.Snapshot)
		}

	default:
		if entry.hasSnapshot {
			m.popSnapshot()
		}
	}
}

// DetectBacktrack handles a rule that closed immediately after a failed
// match. Scanning from the top of the context stack: a branch condition
// means the failure only selects the other branch; a live if/try
// snapshot means the failure happened inside a condition; a live loop
// iteration snapshot means the iteration failed, so the graph rolls back
// to the iteration's entry state. The pre-rollback state is attached to
// the step so backward replay can restore it exactly. Reports whether a
// rollback happened.
func (m *contextManager) DetectBacktrack(step *trace.Step) bool {
	for i := len(m.stack) - 1; i >= 0; i-- {
		entry := &m.stack[i]
		if entry.typ == trace.StepBranchCondition {
			return false
		}
		if !entry.hasSnapshot {
			continue
		}
		if entry.typ != trace.StepLoopIteration {
			return false
		}

		attachReverse(step, m.graph)
		m.graph.Restore(m.popSnapshot())
		entry.hasSnapshot = false
		entry.succeeded = false
		return true
	}
	return false
}

// UndoBacktrack reverses a forward rollback while stepping backward over
// the step that carries it: the iteration snapshot consumed by the
// rollback is re-created (the graph holds exactly that state now), and
// the graph returns to its attached pre-rollback state.
func (m *contextManager) UndoBacktrack(step *trace.Step) {
	m.snapshots = append(m.snapshots, m.graph.Snapshot())
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].typ == trace.StepLoopIteration {
			m.stack[i].hasSnapshot = true
			m.stack[i].succeeded = true
			break
		}
	}
	if step.HasSnapshot {
		m.graph.Restore(*step.Snapshot)
	}
}

// attachReverse captures the current graph state onto a step, so that a
// later backward step can undo the restore about to happen.
func attachReverse(step *trace.Step, g trace.Graph) {
	snap := g.Snapshot()
	step.Snapshot = &snap
	step.HasSnapshot = true
}

// topIndex returns the index of the top entry, or -1 when empty.
func (m *contextManager) topIndex() int { return len(m.stack) - 1 }

// pop removes and returns the top context entry.
func (m *contextManager) pop() (contextEntry, bool) {
	if len(m.stack) == 0 {
		return contextEntry{}, false
	}
	entry := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return entry, true
}

// popSnapshot removes and returns the top snapshot. Callers check
// eligibility through the context entries first.
func (m *contextManager) popSnapshot() trace.Snapshot {
	if len(m.snapshots) == 0 {
		return trace.Snapshot{}
	}
	snap := m.snapshots[len(m.snapshots)-1]
	m.snapshots = m.snapshots[:len(m.snapshots)-1]
	return snap
}
