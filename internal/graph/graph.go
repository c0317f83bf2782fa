// Package graph provides the in-memory host graph mutated during trace
// replay. It implements the trace.Graph interface with stable insertion
// order, id lookup, and whole-graph snapshot and restore.
package graph

import (
	"encoding/json"

	"github.com/graphmorph/retrace/pkg/trace"
)

// Graph is a mutable host graph. Nodes and edges keep their insertion
// order so snapshots and JSON output are deterministic.
type Graph struct {
	nodes []trace.Node
	edges []trace.Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// FromSnapshot returns a graph populated from a snapshot.
func FromSnapshot(s trace.Snapshot) *Graph {
	g := New()
	g.Restore(s)
	return g
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (trace.Node, bool) {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			n := g.nodes[i]
			n.Label = n.Label.Copy()
			return n, true
		}
	}
	return trace.Node{}, false
}

// Edge returns a copy of the edge with the given id.
func (g *Graph) Edge(id string) (trace.Edge, bool) {
	for i := range g.edges {
		if g.edges[i].ID == id {
			e := g.edges[i]
			e.Label = e.Label.Copy()
			return e, true
		}
	}
	return trace.Edge{}, false
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []trace.Node {
	out := make([]trace.Node, len(g.nodes))
	for i, n := range g.nodes {
		n.Label = n.Label.Copy()
		out[i] = n
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []trace.Edge {
	out := make([]trace.Edge, len(g.edges))
	for i, e := range g.edges {
		e.Label = e.Label.Copy()
		out[i] = e
	}
	return out
}

// AddNode inserts a node, replacing any existing node with the same id.
func (g *Graph) AddNode(n trace.Node) {
	n.Label = n.Label.Copy()
	for i := range g.nodes {
		if g.nodes[i].ID == n.ID {
			g.nodes[i] = n
			return
		}
	}
	g.nodes = append(g.nodes, n)
}

// AddEdge inserts an edge, replacing any existing edge with the same id.
func (g *Graph) AddEdge(e trace.Edge) {
	e.Label = e.Label.Copy()
	for i := range g.edges {
		if g.edges[i].ID == e.ID {
			g.edges[i] = e
			return
		}
	}
	g.edges = append(g.edges, e)
}

// RemoveNode deletes the node with the given id, if present.
func (g *Graph) RemoveNode(id string) {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return
		}
	}
}

// RemoveEdge deletes the edge with the given id, if present.
func (g *Graph) RemoveEdge(id string) {
	for i := range g.edges {
		if g.edges[i].ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return
		}
	}
}

// SetNodeLabel replaces the label atoms of a node, leaving its mark.
func (g *Graph) SetNodeLabel(id string, values []string) {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			g.nodes[i].Label.Values = append([]string(nil), values...)
			return
		}
	}
}

// SetEdgeLabel replaces the label atoms of an edge, leaving its mark.
func (g *Graph) SetEdgeLabel(id string, values []string) {
	for i := range g.edges {
		if g.edges[i].ID == id {
			g.edges[i].Label.Values = append([]string(nil), values...)
			return
		}
	}
}

// SetNodeMark replaces the mark of a node, leaving its label atoms.
func (g *Graph) SetNodeMark(id string, mark trace.Mark) {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			g.nodes[i].Label.Mark = mark
			return
		}
	}
}

// SetEdgeMark replaces the mark of an edge, leaving its label atoms.
func (g *Graph) SetEdgeMark(id string, mark trace.Mark) {
	for i := range g.edges {
		if g.edges[i].ID == id {
			g.edges[i].Label.Mark = mark
			return
		}
	}
}

// SetRoot sets or clears the root flag of a node.
func (g *Graph) SetRoot(id string, root bool) {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			g.nodes[i].IsRoot = root
			return
		}
	}
}

// SetNodePos moves a node to the given display position.
func (g *Graph) SetNodePos(id string, pos trace.Point) {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			g.nodes[i].Pos = pos
			return
		}
	}
}

// Snapshot captures a full value-copy of the graph.
func (g *Graph) Snapshot() trace.Snapshot {
	return trace.Snapshot{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}
}

// Restore replaces the entire graph contents with the snapshot.
func (g *Graph) Restore(s trace.Snapshot) {
	g.nodes = make([]trace.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		n.Label = n.Label.Copy()
		g.nodes[i] = n
	}
	g.edges = make([]trace.Edge, len(s.Edges))
	for i, e := range s.Edges {
		e.Label = e.Label.Copy()
		g.edges[i] = e
	}
}

// jsonGraph is the JSON shape used by MarshalJSON and UnmarshalJSON.
type jsonGraph struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID     string   `json:"id"`
	Label  []string `json:"label"`
	Mark   string   `json:"mark,omitempty"`
	IsRoot bool     `json:"root,omitempty"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
}

type jsonEdge struct {
	ID    string   `json:"id"`
	From  string   `json:"source"`
	To    string   `json:"target"`
	Label []string `json:"label"`
	Mark  string   `json:"mark,omitempty"`
}

// MarshalJSON encodes the graph for CLI output.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := jsonGraph{
		Nodes: make([]jsonNode, len(g.nodes)),
		Edges: make([]jsonEdge, len(g.edges)),
	}
	for i, n := range g.nodes {
		jn := jsonNode{
			ID:     n.ID,
			Label:  n.Label.Values,
			IsRoot: n.IsRoot,
			X:      n.Pos.X,
			Y:      n.Pos.Y,
		}
		if n.Label.Mark != trace.MarkNone {
			jn.Mark = n.Label.Mark.String()
		}
		out.Nodes[i] = jn
	}
	for i, e := range g.edges {
		je := jsonEdge{
			ID:    e.ID,
			From:  e.From,
			To:    e.To,
			Label: e.Label.Values,
		}
		if e.Label.Mark != trace.MarkNone {
			je.Mark = e.Label.Mark.String()
		}
		out.Edges[i] = je
	}
	return json.Marshal(out)
}

// markValues maps display names back to Mark values for UnmarshalJSON.
var markValues = map[string]trace.Mark{
	"":       trace.MarkNone,
	"none":   trace.MarkNone,
	"red":    trace.MarkRed,
	"green":  trace.MarkGreen,
	"blue":   trace.MarkBlue,
	"grey":   trace.MarkGrey,
	"dashed": trace.MarkDashed,
}

// UnmarshalJSON decodes a graph written by MarshalJSON, used to load a
// host graph for the CLI run command.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in jsonGraph
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	g.nodes = nil
	g.edges = nil
	for _, jn := range in.Nodes {
		g.nodes = append(g.nodes, trace.Node{
			ID:     jn.ID,
			Label:  trace.Label{Values: jn.Label, Mark: markValues[jn.Mark]},
			IsRoot: jn.IsRoot,
			Pos:    trace.Point{X: jn.X, Y: jn.Y},
		})
	}
	for _, je := range in.Edges {
		g.edges = append(g.edges, trace.Edge{
			ID:    je.ID,
			From:  je.From,
			To:    je.To,
			Label: trace.Label{Values: je.Label, Mark: markValues[je.Mark]},
		})
	}
	return nil
}
