package trace

// Point is a 2D display position. Positions are not carried by the
// tracefile; the replay engine records them before deleting a node so a
// backward step can restore the node's placement exactly.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node identifies a graph node. Identity is by ID; the label, root flag
// and position are values.
type Node struct {
	ID     string `json:"id"`
	Label  Label  `json:"label"`
	IsRoot bool   `json:"isRoot,omitempty"`
	Pos    Point  `json:"pos"`
}

// Edge identifies a graph edge between two nodes. Identity is by ID; an
// edge's ID never changes across a relabel or remark.
type Edge struct {
	ID    string `json:"id"`
	From  string `json:"source"`
	To    string `json:"target"`
	Label Label  `json:"label"`
}

// ItemKind discriminates the node and edge variants of Item.
type ItemKind int

// Item variants.
const (
	ItemNone ItemKind = iota
	ItemNode
	ItemEdge
)

// Item is a tagged sum of a node or an edge. A GraphChange carries one
// Item for the pre-state and one for the post-state; Kind tells which
// variant is populated.
type Item struct {
	Kind ItemKind
	Node Node
	Edge Edge
}

// NodeItem wraps a node in an Item.
func NodeItem(n Node) Item { return Item{Kind: ItemNode, Node: n} }

// EdgeItem wraps an edge in an Item.
func EdgeItem(e Edge) Item { return Item{Kind: ItemEdge, Edge: e} }

// ID returns the identity of the wrapped node or edge, or the empty
// string for an unpopulated Item.
func (it Item) ID() string {
	switch it.Kind {
	case ItemNode:
		return it.Node.ID
	case ItemEdge:
		return it.Edge.ID
	default:
		return ""
	}
}
