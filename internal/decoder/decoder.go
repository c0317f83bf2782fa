// Package decoder incrementally parses a tracefile into trace steps.
// Each ParseStep call consumes exactly the stream tokens needed to
// produce one complete step, resolving match and apply payloads into
// graph changes and synthesizing the end-of-context steps the raw log
// closes implicitly.
package decoder

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/graphmorph/retrace/pkg/trace"
)

// stepTypes maps tracefile element names to step types. The <match>
// element maps to StepRuleMatch here; its success attribute may turn it
// into StepRuleMatchFailed during parsing.
var stepTypes = map[string]trace.StepType{
	"rule":        trace.StepRule,
	"match":       trace.StepRuleMatch,
	"apply":       trace.StepRuleApplication,
	"ruleset":     trace.StepRuleSet,
	"loop":        trace.StepLoop,
	"iteration":   trace.StepLoopIteration,
	"procedure":   trace.StepProcedure,
	"if":          trace.StepIfContext,
	"try":         trace.StepTryContext,
	"condition":   trace.StepBranchCondition,
	"then":        trace.StepThenBranch,
	"else":        trace.StepElseBranch,
	"or":          trace.StepOrContext,
	"leftBranch":  trace.StepOrLeft,
	"rightBranch": trace.StepOrRight,
	"skip":        trace.StepSkip,
	"break":       trace.StepBreak,
	"fail":        trace.StepFail,
}

// changeTypes maps the change element names allowed inside <apply> to
// change types.
var changeTypes = map[string]trace.ChangeType{
	"createEdge":  trace.ChangeAddEdge,
	"createNode":  trace.ChangeAddNode,
	"deleteEdge":  trace.ChangeDeleteEdge,
	"deleteNode":  trace.ChangeDeleteNode,
	"relabelEdge": trace.ChangeRelabelEdge,
	"relabelNode": trace.ChangeRelabelNode,
	"remarkEdge":  trace.ChangeRemarkEdge,
	"remarkNode":  trace.ChangeRemarkNode,
	"setRoot":     trace.ChangeSetRoot,
	"removeRoot":  trace.ChangeRemoveRoot,
}

// Decoder reads trace steps from a tracefile stream. The stream is
// forward-only; the decoder never rewinds or buffers past the step it is
// producing.
type Decoder struct {
	xml      *xml.Decoder
	complete bool

	// Unmatched context names, recorded when a named context opens and
	// recovered when it closes. Rules do not nest, procedures do; each
	// gets its own stack so interleaving cannot mispair names.
	ruleNames []string
	procNames []string
}

// New opens a decoder over a tracefile stream. The root element must be
// <trace>; anything else means this is not a tracefile.
func New(r io.Reader) (*Decoder, error) {
	d := &Decoder{xml: xml.NewDecoder(r)}
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: no <trace> root element", trace.ErrMalformedLog)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "trace" {
			return nil, fmt.Errorf("%w: root element is <%s>, want <trace>", trace.ErrMalformedLog, start.Name.Local)
		}
		return d, nil
	}
}

// Complete reports whether the whole stream has been consumed.
func (d *Decoder) Complete() bool {
	return d.complete
}

// ParseStep decodes the next trace step. It returns io.EOF at the end of
// the trace; a stream truncated mid-element is treated as a clean end,
// since killed or non-terminating programs produce such tracefiles.
func (d *Decoder) ParseStep() (*trace.Step, error) {
	for {
		if d.complete {
			return nil, io.EOF
		}

		tok, err := d.xml.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || truncated(err) {
				d.complete = true
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: %v", trace.ErrMalformedLog, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return d.parseStartElement(t)

		case xml.EndElement:
			step, ok, err := d.parseEndElement(t)
			if err != nil {
				return nil, err
			}
			if !ok {
				// A leaf marker's closing half, or an element we never
				// opened a context for. Not a step.
				continue
			}
			return step, nil

		default:
			// Character data, comments and directives carry no steps.
			continue
		}
	}
}

// parseStartElement produces the step for a context-opening element, or
// a complete match/apply step with its payload consumed through the
// matching close tag.
func (d *Decoder) parseStartElement(start xml.StartElement) (*trace.Step, error) {
	stepType, ok := stepTypes[start.Name.Local]
	if !ok {
		line, col := d.xml.InputPos()
		return nil, fmt.Errorf("%w: <%s> at line %d, column %d", trace.ErrUnknownElement, start.Name.Local, line, col)
	}

	step := &trace.Step{Type: stepType}

	switch stepType {
	case trace.StepRuleMatch:
		success := attr(start, "success") == "true"
		if !success {
			step.Type = trace.StepRuleMatchFailed
		}
		if err := d.parseMatchBody(step, success); err != nil {
			return nil, err
		}

	case trace.StepRuleApplication:
		if err := d.parseApplyBody(step); err != nil {
			return nil, err
		}

	case trace.StepRule, trace.StepProcedure:
		step.ContextName = attr(start, "name")
		if stepType == trace.StepRule {
			d.ruleNames = append(d.ruleNames, step.ContextName)
		} else {
			d.procNames = append(d.procNames, step.ContextName)
		}
	}

	return step, nil
}

// parseEndElement produces the synthesized end-of-context step for a
// closing element. Leaf markers (skip, break, fail) and unrecognized
// names produce no step: the stream represents them as open and close
// pairs, and no context was opened for them.
func (d *Decoder) parseEndElement(end xml.EndElement) (*trace.Step, bool, error) {
	if end.Name.Local == "trace" {
		d.complete = true
		return nil, false, nil
	}

	stepType, ok := stepTypes[end.Name.Local]
	if !ok {
		return nil, false, nil
	}
	switch stepType {
	case trace.StepSkip, trace.StepBreak, trace.StepFail:
		return nil, false, nil
	}

	step := &trace.Step{Type: stepType, EndOfContext: true}

	switch stepType {
	case trace.StepRule:
		name, err := pop(&d.ruleNames)
		if err != nil {
			return nil, false, fmt.Errorf("%w: </rule> without matching <rule>", trace.ErrMalformedLog)
		}
		step.ContextName = name
	case trace.StepProcedure:
		name, err := pop(&d.procNames)
		if err != nil {
			return nil, false, fmt.Errorf("%w: </procedure> without matching <procedure>", trace.ErrMalformedLog)
		}
		step.ContextName = name
	}

	return step, true, nil
}

// parseMatchBody consumes everything through the closing </match>,
// recording a morphism entry for each matched <node> and <edge> when the
// match succeeded. The body is consumed for failed matches too so the
// close tag is not later mistaken for an end-of-context.
func (d *Decoder) parseMatchBody(step *trace.Step, success bool) error {
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return fmt.Errorf("%w: inside <match>: %v", trace.ErrMalformedLog, err)
		}

		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "match" {
				return nil
			}

		case xml.StartElement:
			if !success {
				continue
			}
			// Matched ids are recorded on the existing side; morphism
			// entries only drive UI emphasis, never mutation.
			switch t.Name.Local {
			case "node":
				step.Changes = append(step.Changes, trace.GraphChange{
					Type:     trace.ChangeMorphism,
					Existing: trace.NodeItem(trace.Node{ID: attr(t, "id")}),
				})
			case "edge":
				step.Changes = append(step.Changes, trace.GraphChange{
					Type:     trace.ChangeMorphism,
					Existing: trace.EdgeItem(trace.Edge{ID: attr(t, "id")}),
				})
			}
		}
	}
}

// parseApplyBody consumes everything through the closing </apply>,
// mapping each recognized change element to a GraphChange. Unrecognized
// elements are skipped rather than fatal.
func (d *Decoder) parseApplyBody(step *trace.Step) error {
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return fmt.Errorf("%w: inside <apply>: %v", trace.ErrMalformedLog, err)
		}

		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "apply" {
				return nil
			}

		case xml.StartElement:
			if change, ok := parseChange(t); ok {
				step.Changes = append(step.Changes, change)
			}
		}
	}
}

// parseChange maps one change element to a GraphChange. Add and delete
// changes populate one side only; relabel, remark and root-flag changes
// populate both sides so either direction of replay can be applied.
func parseChange(start xml.StartElement) (trace.GraphChange, bool) {
	changeType, ok := changeTypes[start.Name.Local]
	if !ok {
		return trace.GraphChange{}, false
	}

	change := trace.GraphChange{Type: changeType}
	id := attr(start, "id")

	switch changeType {
	case trace.ChangeAddEdge:
		change.New = trace.EdgeItem(parseEdge(start))

	case trace.ChangeAddNode:
		change.New = trace.NodeItem(parseNode(start))

	case trace.ChangeDeleteEdge:
		change.Existing = trace.EdgeItem(parseEdge(start))

	case trace.ChangeDeleteNode:
		change.Existing = trace.NodeItem(parseNode(start))

	case trace.ChangeRelabelEdge:
		change.Existing = trace.EdgeItem(trace.Edge{ID: id, Label: trace.ParseLabel(attr(start, "old"), "")})
		change.New = trace.EdgeItem(trace.Edge{ID: id, Label: trace.ParseLabel(attr(start, "new"), "")})

	case trace.ChangeRelabelNode:
		change.Existing = trace.NodeItem(trace.Node{ID: id, Label: trace.ParseLabel(attr(start, "old"), "")})
		change.New = trace.NodeItem(trace.Node{ID: id, Label: trace.ParseLabel(attr(start, "new"), "")})

	case trace.ChangeRemarkEdge:
		change.Existing = trace.EdgeItem(trace.Edge{ID: id, Label: trace.Label{Mark: trace.ParseMark(attr(start, "old"))}})
		change.New = trace.EdgeItem(trace.Edge{ID: id, Label: trace.Label{Mark: trace.ParseMark(attr(start, "new"))}})

	case trace.ChangeRemarkNode:
		change.Existing = trace.NodeItem(trace.Node{ID: id, Label: trace.Label{Mark: trace.ParseMark(attr(start, "old"))}})
		change.New = trace.NodeItem(trace.Node{ID: id, Label: trace.Label{Mark: trace.ParseMark(attr(start, "new"))}})

	case trace.ChangeSetRoot:
		change.Existing = trace.NodeItem(trace.Node{ID: id, IsRoot: false})
		change.New = trace.NodeItem(trace.Node{ID: id, IsRoot: true})

	case trace.ChangeRemoveRoot:
		change.Existing = trace.NodeItem(trace.Node{ID: id, IsRoot: true})
		change.New = trace.NodeItem(trace.Node{ID: id, IsRoot: false})

	default:
		return trace.GraphChange{}, false
	}

	return change, true
}

// parseEdge reads a full edge record from a change element.
func parseEdge(start xml.StartElement) trace.Edge {
	return trace.Edge{
		ID:    attr(start, "id"),
		From:  attr(start, "source"),
		To:    attr(start, "target"),
		Label: trace.ParseLabel(attr(start, "label"), attr(start, "mark")),
	}
}

// parseNode reads a full node record from a change element.
func parseNode(start xml.StartElement) trace.Node {
	return trace.Node{
		ID:     attr(start, "id"),
		IsRoot: attr(start, "root") == "true",
		Label:  trace.ParseLabel(attr(start, "label"), attr(start, "mark")),
	}
}

// attr returns the value of the named attribute, or "" if absent.
func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// pop removes and returns the top of a name stack.
func pop(stack *[]string) (string, error) {
	s := *stack
	if len(s) == 0 {
		return "", errors.New("empty stack")
	}
	top := s[len(s)-1]
	*stack = s[:len(s)-1]
	return top, nil
}

// truncated reports whether the stream error means the tracefile was cut
// off mid-element, which models a traced program killed before its
// trailing close tags were written.
func truncated(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var syntaxErr *xml.SyntaxError
	return errors.As(err, &syntaxErr) && strings.Contains(syntaxErr.Msg, "unexpected EOF")
}
