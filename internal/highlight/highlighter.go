// Package highlight moves a source-text emphasis along with the replay
// cursor. It keeps a stack of highlighted tokens so that leaving a
// procedure call or a nested branch restores the enclosing highlight,
// and searches the token sequence in the direction of travel for the
// lexical marker matching each step.
package highlight

import (
	"strings"

	"github.com/graphmorph/retrace/pkg/program"
	"github.com/graphmorph/retrace/pkg/trace"
)

// DefaultNamePrefix is the prefix the compiler adds to rule and
// procedure names in the trace; it does not appear in source text.
const DefaultNamePrefix = "Main_"

// tokenRef is a highlighted token together with its index in the token
// sequence, so searches can resume adjacent to it.
type tokenRef struct {
	token *program.Token
	index int
}

// Highlighter maintains the emphasis state of a program's token
// sequence during one trace session.
type Highlighter struct {
	tokens  []*program.Token
	stack   []tokenRef
	current *trace.Step
	prefix  string

	// virtualElse tracks open else branches: true entries are
	// compiler-synthesized branches with no source text.
	virtualElse []bool
}

// New creates a highlighter over the program's token sequence. Any
// emphasis left over from an earlier run is cleared: the tokens belong
// to the editor and outlive trace sessions. An empty prefix selects
// DefaultNamePrefix.
func New(tokens []*program.Token, prefix string) *Highlighter {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	h := &Highlighter{tokens: tokens, prefix: prefix}
	h.clearHighlights()
	return h
}

// Update moves the highlight to the token for the step now at the
// cursor, searching the program text in the direction travelled. A nil
// step means the end of the trace: everything is unhighlighted and the
// stack is left one position past the final token so a backward step
// searches from the right place.
func (h *Highlighter) Update(next *trace.Step, dir trace.Direction) {
	if h.current != nil && h.current.Type == trace.StepProcedure {
		h.leaveProcedureCall(dir)
	}

	if next == nil {
		h.clearHighlights()
		if n := len(h.stack); n > 0 {
			prev := h.stack[n-1]
			h.stack[n-1] = tokenRef{token: prev.token, index: prev.index + 1}
		}
		h.current = nil
		return
	}

	searchPos := h.searchStart(dir)

	switch next.Type {
	case trace.StepRuleMatch, trace.StepRuleMatchFailed, trace.StepRuleApplication:
		// Component parts of a rule call; the rule token stays lit.

	case trace.StepRule:
		// A rule call is a single token, so only its entering edge moves
		// the highlight.
		if entering(next, dir) {
			name := strings.TrimPrefix(next.ContextName, h.prefix)
			h.searchAndReplace(searchPos, dir, func(t *program.Token) bool {
				return t.Lexeme == program.LexemeIdentifier && t.Text == name
			})
		}

	case trace.StepRuleSet:
		want := program.LexemeOpenBrace
		if next.EndOfContext {
			want = program.LexemeCloseBrace
		}
		h.searchAndReplace(searchPos, dir, func(t *program.Token) bool {
			return t.Lexeme == want
		})

	case trace.StepLoop, trace.StepLoopIteration:
		// Loops have no token of their own; iterations re-light the loop
		// body through the steps inside them.

	case trace.StepProcedure:
		if !entering(next, dir) {
			// Leaving the declaration returns to the call site.
			h.popHighlight()
			break
		}
		name := strings.TrimPrefix(next.ContextName, h.prefix)
		h.searchAndReplace(searchPos, dir, func(t *program.Token) bool {
			return t.Lexeme == program.LexemeDeclaration && t.Text == name
		})

	case trace.StepIfContext, trace.StepTryContext:
		if entering(next, dir) {
			want := "if"
			if next.Type == trace.StepTryContext {
				want = "try"
			}
			h.searchAndReplace(searchPos, dir, func(t *program.Token) bool {
				return t.Lexeme == program.LexemeKeyword && t.Text == want
			})
		}

	case trace.StepBranchCondition:
		// The condition follows the if/try keyword directly.

	case trace.StepThenBranch:
		if entering(next, dir) && !next.VirtualStep {
			h.searchBalanced(searchPos, dir, "then")
		}

	case trace.StepElseBranch:
		h.updateElse(next, dir, searchPos)

	case trace.StepSkip, trace.StepBreak, trace.StepFail:
		h.updateLeaf(next, dir, searchPos)

	case trace.StepOrContext:
		if entering(next, dir) {
			h.searchOrKeyword(searchPos, dir)
		}

	case trace.StepOrLeft:
		// The left branch follows the current highlight directly.

	case trace.StepOrRight:
		if entering(next, dir) {
			h.searchOrKeyword(searchPos, dir)
		}
	}

	h.current = next
}

// entering reports whether the step crosses a context's entering edge in
// the given direction: its opening marker forward, or its closing marker
// backward.
func entering(step *trace.Step, dir trace.Direction) bool {
	if dir == trace.Forward {
		return !step.EndOfContext
	}
	return step.EndOfContext
}

// updateElse handles else branches, including the compiler-synthesized
// empty else that has no source text: such a step is marked virtual and
// leaves the highlight untouched, and the mark carries over to the
// branch's closing step.
func (h *Highlighter) updateElse(next *trace.Step, dir trace.Direction, searchPos int) {
	if entering(next, dir) {
		if next.VirtualStep {
			h.virtualElse = append(h.virtualElse, true)
			return
		}
		if h.searchBalanced(searchPos, dir, "else") {
			h.virtualElse = append(h.virtualElse, false)
			return
		}
		next.VirtualStep = true
		h.virtualElse = append(h.virtualElse, true)
		return
	}

	// Leaving the branch: propagate the virtual mark to the closing step.
	if n := len(h.virtualElse); n > 0 {
		if h.virtualElse[n-1] {
			next.VirtualStep = true
		}
		h.virtualElse = h.virtualElse[:n-1]
	}
}

// updateLeaf handles the skip, break and fail leaf markers. A skip
// inside a virtual else has no source text either, and inherits the
// virtual mark.
func (h *Highlighter) updateLeaf(next *trace.Step, dir trace.Direction, searchPos int) {
	if next.Type == trace.StepSkip {
		if n := len(h.virtualElse); n > 0 && h.virtualElse[n-1] {
			next.VirtualStep = true
		}
	}
	if next.VirtualStep {
		return
	}
	want := next.Type.String()
	h.searchAndReplace(searchPos, dir, func(t *program.Token) bool {
		return t.Lexeme == program.LexemeKeyword && t.Text == want
	})
}

// searchStart returns the index the next token search begins at: just
// past the current highlight in the travel direction, or at whichever
// end of the program matches the direction when nothing is highlighted.
func (h *Highlighter) searchStart(dir trace.Direction) int {
	if len(h.stack) == 0 {
		if dir == trace.Forward {
			return 0
		}
		return len(h.tokens) - 1
	}
	top := h.stack[len(h.stack)-1]
	if dir == trace.Forward {
		return top.index + 1
	}
	return top.index - 1
}

// searchAndReplace scans from pos in the given direction for the first
// token accepted by match, and moves the highlight there. Reports
// whether a token was found.
func (h *Highlighter) searchAndReplace(pos int, dir trace.Direction, match func(*program.Token) bool) bool {
	step := 1
	if dir == trace.Backward {
		step = -1
	}
	for ; pos >= 0 && pos < len(h.tokens); pos += step {
		if match(h.tokens[pos]) {
			h.replaceCurrentHighlight(tokenRef{token: h.tokens[pos], index: pos})
			return true
		}
	}
	return false
}

// searchBalanced scans for a keyword while tracking parenthesis depth,
// accepting a match only outside any parenthesized group. This skips
// over the untaken branch of a then/else when the search has to cross
// it. The scan gives up at a declaration token: past one, the keyword
// would belong to a different procedure. Reports whether a token was
// found.
func (h *Highlighter) searchBalanced(pos int, dir trace.Direction, keyword string) bool {
	step := 1
	if dir == trace.Backward {
		step = -1
	}
	depth := 0
	for ; pos >= 0 && pos < len(h.tokens); pos += step {
		token := h.tokens[pos]
		switch token.Lexeme {
		case program.LexemeOpenParen:
			depth += step
		case program.LexemeCloseParen:
			depth -= step
		case program.LexemeDeclaration:
			return false
		case program.LexemeKeyword:
			if depth == 0 && token.Text == keyword {
				h.replaceCurrentHighlight(tokenRef{token: token, index: pos})
				return true
			}
		}
	}
	return false
}

// searchOrKeyword locates the `or` separating the two branches of an or
// context. The forward scan only accepts the keyword at parenthesis
// depth zero; the backward scan takes the first `or` it meets without
// tracking parens at all. The asymmetry is deliberate: it reproduces the
// established behavior, since or branches are not guaranteed to be
// bracket-balanced in every surface syntax.
func (h *Highlighter) searchOrKeyword(pos int, dir trace.Direction) {
	if dir == trace.Backward {
		h.searchAndReplace(pos, dir, func(t *program.Token) bool {
			return t.Lexeme == program.LexemeKeyword && t.Text == "or"
		})
		return
	}

	depth := 0
	for ; pos < len(h.tokens); pos++ {
		token := h.tokens[pos]
		switch token.Lexeme {
		case program.LexemeOpenParen:
			depth++
		case program.LexemeCloseParen:
			depth--
		case program.LexemeKeyword:
			if depth == 0 && token.Text == "or" {
				h.replaceCurrentHighlight(tokenRef{token: token, index: pos})
				return
			}
		}
	}
}

// leaveProcedureCall moves the highlight from a procedure call to its
// declaration before the next search runs. Declarations can appear
// anywhere, so the scan always starts at the beginning of the program.
// Entering backward through a procedure's end instead finds the *next*
// declaration and enters the procedure body from behind it.
func (h *Highlighter) leaveProcedureCall(dir trace.Direction) {
	name := strings.TrimPrefix(h.current.ContextName, h.prefix)
	lookingForNext := false

	for pos := 0; pos < len(h.tokens); pos++ {
		token := h.tokens[pos]
		if token.Lexeme != program.LexemeDeclaration {
			continue
		}
		if token.Text != name && !lookingForNext {
			continue
		}
		// A procedure call is tagged as a declaration too; the real
		// declaration is followed by the declaration operator.
		if pos+1 >= len(h.tokens) || h.tokens[pos+1].Lexeme != program.LexemeDeclarationOperator {
			continue
		}

		found := tokenRef{token: token, index: pos}
		if (dir == trace.Forward && !h.current.EndOfContext) || lookingForNext {
			// The call site stays on the stack underneath, to return to
			// when the procedure ends.
			h.pushHighlight(found)
			return
		}
		if dir == trace.Backward && h.current.EndOfContext {
			// Entering the procedure at its end: the next declaration in
			// the program bounds this procedure's body, so searching
			// backward from it walks the body back to front.
			lookingForNext = true
		}
	}

	if lookingForNext && len(h.tokens) > 0 {
		// No later declaration exists; the procedure runs to the end of
		// the program.
		h.pushHighlight(tokenRef{token: h.tokens[len(h.tokens)-1], index: len(h.tokens)})
	}
}

// clearHighlights removes emphasis from every token.
func (h *Highlighter) clearHighlights() {
	for _, token := range h.tokens {
		token.Emphasise = false
	}
}

// replaceCurrentHighlight swaps the highlighted token at the top of the
// stack for a new one.
func (h *Highlighter) replaceCurrentHighlight(ref tokenRef) {
	if n := len(h.stack); n > 0 {
		h.stack[n-1].token.Emphasise = false
		h.stack = h.stack[:n-1]
	}
	ref.token.Emphasise = true
	h.stack = append(h.stack, ref)
}

// pushHighlight dims the current highlight without popping it and lights
// the new token on top, for contexts that will be returned to.
func (h *Highlighter) pushHighlight(ref tokenRef) {
	if n := len(h.stack); n > 0 {
		h.stack[n-1].token.Emphasise = false
	}
	ref.token.Emphasise = true
	h.stack = append(h.stack, ref)
}

// popHighlight unhighlights the top token and re-lights the one below.
func (h *Highlighter) popHighlight() {
	n := len(h.stack)
	if n == 0 {
		return
	}
	h.stack[n-1].token.Emphasise = false
	h.stack = h.stack[:n-1]
	if n > 1 {
		h.stack[n-2].token.Emphasise = true
	}
}

// Highlighted returns the currently-emphasised token, if any.
func (h *Highlighter) Highlighted() (*program.Token, bool) {
	for _, token := range h.tokens {
		if token.Emphasise {
			return token, true
		}
	}
	return nil, false
}
