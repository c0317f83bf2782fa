package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmorph/retrace/pkg/program"
	"github.com/graphmorph/retrace/pkg/trace"
)

func tok(lexeme program.Lexeme, text string) *program.Token {
	return &program.Token{Lexeme: lexeme, Text: text}
}

func step(typ trace.StepType, name string, end bool) *trace.Step {
	return &trace.Step{Type: typ, ContextName: name, EndOfContext: end}
}

// lit returns the emphasised token, requiring exactly the expected one.
func lit(t *testing.T, h *Highlighter, want *program.Token) {
	t.Helper()
	got, ok := h.Highlighted()
	require.True(t, ok, "expected a highlighted token")
	assert.Same(t, want, got)
}

func TestNewClearsLeftoverEmphasis(t *testing.T) {
	stale := tok(program.LexemeIdentifier, "grow")
	stale.Emphasise = true

	h := New([]*program.Token{stale}, "")

	_, ok := h.Highlighted()
	assert.False(t, ok)
}

func TestRuleCallMovesHighlight(t *testing.T) {
	tokens := []*program.Token{
		tok(program.LexemeIdentifier, "grow"),
		tok(program.LexemeIdentifier, "shrink"),
	}
	h := New(tokens, "")

	// The compiler's name prefix is stripped before matching source text.
	h.Update(step(trace.StepRule, "Main_grow", false), trace.Forward)
	lit(t, h, tokens[0])

	// Match and apply are component parts of the same call.
	h.Update(step(trace.StepRuleMatch, "", false), trace.Forward)
	lit(t, h, tokens[0])
	h.Update(step(trace.StepRuleApplication, "", false), trace.Forward)
	lit(t, h, tokens[0])

	h.Update(step(trace.StepRule, "Main_grow", true), trace.Forward)
	lit(t, h, tokens[0])

	h.Update(step(trace.StepRule, "Main_shrink", false), trace.Forward)
	lit(t, h, tokens[1])
}

func TestEndOfTraceAndBackwardReentry(t *testing.T) {
	tokens := []*program.Token{
		tok(program.LexemeIdentifier, "grow"),
		tok(program.LexemeIdentifier, "shrink"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepRule, "Main_grow", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_grow", true), trace.Forward)
	h.Update(step(trace.StepRule, "Main_shrink", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_shrink", true), trace.Forward)

	h.Update(nil, trace.Forward)
	_, ok := h.Highlighted()
	assert.False(t, ok, "end of trace clears all emphasis")

	// Stepping backward over the final rule's close re-lights it.
	h.Update(step(trace.StepRule, "Main_shrink", true), trace.Backward)
	lit(t, h, tokens[1])
}

func TestProcedureCallAndReturn(t *testing.T) {
	// Main = P  /  P = r
	// The call site is lexed as a declaration too; the real declaration is
	// the one followed by the declaration operator.
	tokens := []*program.Token{
		tok(program.LexemeDeclaration, "Main"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeDeclaration, "P"),
		tok(program.LexemeDeclaration, "P"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeIdentifier, "r"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepProcedure, "P", false), trace.Forward)
	lit(t, h, tokens[2])

	// The first step inside the body jumps from the call site to the
	// declaration before its own search runs.
	h.Update(step(trace.StepRule, "Main_r", false), trace.Forward)
	lit(t, h, tokens[5])

	h.Update(step(trace.StepRule, "Main_r", true), trace.Forward)

	// Leaving the procedure returns the highlight to the call site.
	h.Update(step(trace.StepProcedure, "P", true), trace.Forward)
	lit(t, h, tokens[2])
}

func TestProcedureBackwardEntryUsesNextDeclaration(t *testing.T) {
	// Main = P  /  P = r  /  Q = s
	// Entering P backward through its end must land on the body's last
	// statement; the Q declaration bounds the body from behind.
	tokens := []*program.Token{
		tok(program.LexemeDeclaration, "Main"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeDeclaration, "P"),
		tok(program.LexemeDeclaration, "P"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeIdentifier, "r"),
		tok(program.LexemeDeclaration, "Q"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeIdentifier, "s"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepProcedure, "P", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_r", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_r", true), trace.Forward)
	h.Update(step(trace.StepProcedure, "P", true), trace.Forward)
	h.Update(nil, trace.Forward)

	h.Update(step(trace.StepProcedure, "P", true), trace.Backward)
	lit(t, h, tokens[2])

	// The first step inside the body finds the declaration after P's and
	// searches backward from it.
	h.Update(step(trace.StepRule, "Main_r", true), trace.Backward)
	lit(t, h, tokens[5])

	h.Update(step(trace.StepRule, "Main_r", false), trace.Backward)
	lit(t, h, tokens[5])

	// Leaving the procedure backward returns to the call site.
	h.Update(step(trace.StepProcedure, "P", false), trace.Backward)
	lit(t, h, tokens[2])
}

func TestProcedureBackwardEntryAtProgramEnd(t *testing.T) {
	// Main = P  /  P = r — no declaration follows P, so its body runs to
	// the end of the program and the backward entry searches from there.
	tokens := []*program.Token{
		tok(program.LexemeDeclaration, "Main"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeDeclaration, "P"),
		tok(program.LexemeDeclaration, "P"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeIdentifier, "r"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepProcedure, "P", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_r", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_r", true), trace.Forward)
	h.Update(step(trace.StepProcedure, "P", true), trace.Forward)
	h.Update(nil, trace.Forward)

	h.Update(step(trace.StepProcedure, "P", true), trace.Backward)
	lit(t, h, tokens[2])

	h.Update(step(trace.StepRule, "Main_r", true), trace.Backward)
	lit(t, h, tokens[5])

	h.Update(step(trace.StepRule, "Main_r", false), trace.Backward)
	h.Update(step(trace.StepProcedure, "P", false), trace.Backward)
	lit(t, h, tokens[2])
}

func TestRuleSetBraces(t *testing.T) {
	tokens := []*program.Token{
		tok(program.LexemeOpenBrace, "{"),
		tok(program.LexemeIdentifier, "a"),
		tok(program.LexemeCloseBrace, "}"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepRuleSet, "", false), trace.Forward)
	lit(t, h, tokens[0])

	h.Update(step(trace.StepRule, "Main_a", false), trace.Forward)
	lit(t, h, tokens[1])
	h.Update(step(trace.StepRule, "Main_a", true), trace.Forward)

	h.Update(step(trace.StepRuleSet, "", true), trace.Forward)
	lit(t, h, tokens[2])
}

func TestRealElseBranch(t *testing.T) {
	// if c then r1 else r2
	tokens := []*program.Token{
		tok(program.LexemeKeyword, "if"),
		tok(program.LexemeIdentifier, "c"),
		tok(program.LexemeKeyword, "then"),
		tok(program.LexemeIdentifier, "r1"),
		tok(program.LexemeKeyword, "else"),
		tok(program.LexemeIdentifier, "r2"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepIfContext, "", false), trace.Forward)
	lit(t, h, tokens[0])

	h.Update(step(trace.StepBranchCondition, "", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", false), trace.Forward)
	lit(t, h, tokens[1])
	h.Update(step(trace.StepRule, "Main_c", true), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", true), trace.Forward)

	elseOpen := step(trace.StepElseBranch, "", false)
	h.Update(elseOpen, trace.Forward)
	assert.False(t, elseOpen.VirtualStep)
	lit(t, h, tokens[4])

	h.Update(step(trace.StepRule, "Main_r2", false), trace.Forward)
	lit(t, h, tokens[5])
	h.Update(step(trace.StepRule, "Main_r2", true), trace.Forward)

	elseClose := step(trace.StepElseBranch, "", true)
	h.Update(elseClose, trace.Forward)
	assert.False(t, elseClose.VirtualStep)
}

func TestThenKeywordHighlight(t *testing.T) {
	tokens := []*program.Token{
		tok(program.LexemeKeyword, "if"),
		tok(program.LexemeIdentifier, "c"),
		tok(program.LexemeKeyword, "then"),
		tok(program.LexemeIdentifier, "r1"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepIfContext, "", false), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", true), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", true), trace.Forward)

	h.Update(step(trace.StepThenBranch, "", false), trace.Forward)
	lit(t, h, tokens[2])
}

func TestVirtualElsePropagation(t *testing.T) {
	// if c then r — the compiler synthesizes an empty else branch with no
	// source text; its steps and the skip inside it stay virtual and leave
	// the highlight alone.
	tokens := []*program.Token{
		tok(program.LexemeKeyword, "if"),
		tok(program.LexemeIdentifier, "c"),
		tok(program.LexemeKeyword, "then"),
		tok(program.LexemeIdentifier, "r"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepIfContext, "", false), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", true), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", true), trace.Forward)

	elseOpen := step(trace.StepElseBranch, "", false)
	h.Update(elseOpen, trace.Forward)
	assert.True(t, elseOpen.VirtualStep, "no else in the source text")
	lit(t, h, tokens[1])

	skip := step(trace.StepSkip, "", false)
	h.Update(skip, trace.Forward)
	assert.True(t, skip.VirtualStep, "the skip inherits the virtual mark")
	lit(t, h, tokens[1])

	elseClose := step(trace.StepElseBranch, "", true)
	h.Update(elseClose, trace.Forward)
	assert.True(t, elseClose.VirtualStep)
}

func TestElseSearchStopsAtDeclaration(t *testing.T) {
	// The enclosing if is the last statement of its procedure; an else
	// search must not wander into the next declaration's body.
	tokens := []*program.Token{
		tok(program.LexemeKeyword, "if"),
		tok(program.LexemeIdentifier, "c"),
		tok(program.LexemeDeclaration, "Q"),
		tok(program.LexemeDeclarationOperator, "="),
		tok(program.LexemeKeyword, "else"),
	}
	h := New(tokens, "")

	h.Update(step(trace.StepIfContext, "", false), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", false), trace.Forward)
	h.Update(step(trace.StepRule, "Main_c", true), trace.Forward)
	h.Update(step(trace.StepBranchCondition, "", true), trace.Forward)

	elseOpen := step(trace.StepElseBranch, "", false)
	h.Update(elseOpen, trace.Forward)
	assert.True(t, elseOpen.VirtualStep, "the else beyond the declaration belongs to Q")
	lit(t, h, tokens[1])
}

func TestOrKeywordSearchAsymmetry(t *testing.T) {
	// a or (b or c) — the forward search only accepts the keyword outside
	// parentheses; the backward search takes the nearest one regardless.
	tokens := []*program.Token{
		tok(program.LexemeIdentifier, "a"),
		tok(program.LexemeKeyword, "or"),
		tok(program.LexemeOpenParen, "("),
		tok(program.LexemeIdentifier, "b"),
		tok(program.LexemeKeyword, "or"),
		tok(program.LexemeIdentifier, "c"),
		tok(program.LexemeCloseParen, ")"),
	}

	forward := New(tokens, "")
	forward.Update(step(trace.StepOrContext, "", false), trace.Forward)
	lit(t, forward, tokens[1])

	backward := New(tokens, "")
	backward.Update(step(trace.StepOrContext, "", true), trace.Backward)
	lit(t, backward, tokens[4])
}

func TestSkipBreakFailKeywords(t *testing.T) {
	tests := []struct {
		name string
		typ  trace.StepType
	}{
		{name: "skip", typ: trace.StepSkip},
		{name: "break", typ: trace.StepBreak},
		{name: "fail", typ: trace.StepFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := []*program.Token{
				tok(program.LexemeIdentifier, "r"),
				tok(program.LexemeKeyword, tt.name),
			}
			h := New(tokens, "")

			h.Update(step(tt.typ, "", false), trace.Forward)
			lit(t, h, tokens[1])
		})
	}
}

func TestCustomNamePrefix(t *testing.T) {
	tokens := []*program.Token{tok(program.LexemeIdentifier, "grow")}
	h := New(tokens, "Prog_")

	h.Update(step(trace.StepRule, "Prog_grow", false), trace.Forward)
	lit(t, h, tokens[0])
}
