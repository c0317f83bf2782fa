package trace

import "strings"

// Mark is the visual mark attached to a node or edge label.
type Mark int

// Mark values. The wire format encodes marks as integer strings; see
// ParseMark for the mapping.
const (
	MarkNone Mark = iota
	MarkRed
	MarkGreen
	MarkBlue
	MarkGrey
	MarkDashed
)

// markNames maps Mark values to their display names.
var markNames = map[Mark]string{
	MarkNone:   "none",
	MarkRed:    "red",
	MarkGreen:  "green",
	MarkBlue:   "blue",
	MarkGrey:   "grey",
	MarkDashed: "dashed",
}

// String returns the display name of the mark.
func (m Mark) String() string {
	if name, ok := markNames[m]; ok {
		return name
	}
	return "none"
}

// ParseMark converts a mark attribute value to a Mark. The tracefile
// encodes red, green, blue and dashed as "1" through "4"; any other
// value (including "0" and the empty string) means no mark.
func ParseMark(s string) Mark {
	switch s {
	case "1":
		return MarkRed
	case "2":
		return MarkGreen
	case "3":
		return MarkBlue
	case "4":
		return MarkDashed
	default:
		return MarkNone
	}
}

// Label is the value attached to a node or edge: an ordered sequence of
// atoms plus a mark. Atoms are literal substrings of the label attribute;
// no further decoding is applied to them.
type Label struct {
	Values []string
	Mark   Mark
}

// ParseLabel builds a Label from the label and mark attribute values.
// The label attribute holds one or more atoms joined by ':'.
func ParseLabel(label, mark string) Label {
	return Label{
		Values: strings.Split(label, ":"),
		Mark:   ParseMark(mark),
	}
}

// String returns the atoms joined by ':'.
func (l Label) String() string {
	return strings.Join(l.Values, ":")
}

// Equal reports whether two labels have the same atoms and mark.
func (l Label) Equal(other Label) bool {
	if l.Mark != other.Mark || len(l.Values) != len(other.Values) {
		return false
	}
	for i, v := range l.Values {
		if other.Values[i] != v {
			return false
		}
	}
	return true
}

// Copy returns a label with its own atom slice.
func (l Label) Copy() Label {
	out := Label{Mark: l.Mark}
	if l.Values != nil {
		out.Values = append([]string(nil), l.Values...)
	}
	return out
}
