package trace

// StepType identifies the construct a trace step belongs to.
type StepType int

// Step types. Context-opening types get a matching step with
// EndOfContext set when the construct closes; skip, break and fail are
// leaf markers that never open a context.
const (
	StepUnknown StepType = iota
	StepRule
	StepRuleMatch
	StepRuleMatchFailed
	StepRuleApplication
	StepRuleSet
	StepLoop
	StepLoopIteration
	StepProcedure
	StepIfContext
	StepTryContext
	StepBranchCondition
	StepThenBranch
	StepElseBranch
	StepOrContext
	StepOrLeft
	StepOrRight
	StepSkip
	StepBreak
	StepFail
)

// stepNames maps step types to the tracefile element names that produce
// them. StepRuleMatchFailed shares the <match> element with StepRuleMatch;
// the success attribute decides between the two.
var stepNames = map[StepType]string{
	StepUnknown:         "unknown",
	StepRule:            "rule",
	StepRuleMatch:       "match",
	StepRuleMatchFailed: "match",
	StepRuleApplication: "apply",
	StepRuleSet:         "ruleset",
	StepLoop:            "loop",
	StepLoopIteration:   "iteration",
	StepProcedure:       "procedure",
	StepIfContext:       "if",
	StepTryContext:      "try",
	StepBranchCondition: "condition",
	StepThenBranch:      "then",
	StepElseBranch:      "else",
	StepOrContext:       "or",
	StepOrLeft:          "leftBranch",
	StepOrRight:         "rightBranch",
	StepSkip:            "skip",
	StepBreak:           "break",
	StepFail:            "fail",
}

// String returns the tracefile element name for the step type.
func (t StepType) String() string {
	if name, ok := stepNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsContext reports whether steps of this type open a lexical context
// that a later step closes. Match and apply elements are consumed whole
// by the decoder, and skip/break/fail are leaf markers, so none of them
// count as contexts.
func (t StepType) IsContext() bool {
	switch t {
	case StepRule, StepRuleSet, StepLoop, StepLoopIteration, StepProcedure,
		StepIfContext, StepTryContext, StepBranchCondition,
		StepThenBranch, StepElseBranch,
		StepOrContext, StepOrLeft, StepOrRight:
		return true
	default:
		return false
	}
}

// Step is the unit of replay: one decoded trace event. Steps are created
// by the decoder, appended to the replay engine's step sequence, and
// never mutated afterwards except to attach a backtrack snapshot or to
// set VirtualStep once a virtual construct is detected.
type Step struct {
	Type StepType

	// ContextName names the declared rule or procedure this step belongs
	// to. Present only for StepRule and StepProcedure.
	ContextName string

	// EndOfContext marks the synthesized closing step of a context.
	EndOfContext bool

	// LoopBoundary marks the iteration step that is simultaneously the
	// end of one iteration and the point the loop itself closes.
	LoopBoundary bool

	// VirtualStep marks a step with no corresponding source text, such
	// as a compiler-synthesized empty else branch.
	VirtualStep bool

	// Changes holds the graph mutations of a rule application, or the
	// morphism entries of a successful rule match.
	Changes []GraphChange

	// Snapshot is attached when forward replay discovers backtracking at
	// this step, so a backward step can restore the pre-rollback state.
	Snapshot    *Snapshot
	HasSnapshot bool
}

// Direction is the direction of travel through the trace.
type Direction int

// Directions.
const (
	Forward Direction = iota
	Backward
)

// String returns "forward" or "backward".
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}
