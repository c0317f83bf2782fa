package trace

// Snapshot is a full value-copy of every node and edge in the live graph
// at a point in time. Snapshots are opaque rollback targets: they are
// restored wholesale, never diffed.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Graph is the mutable host graph the replay engine drives. The engine is
// the sole mutator of the graph for the duration of a trace session.
// Lookup methods return a value copy; mutations go through the setters.
type Graph interface {
	// Node returns the node with the given id, if present.
	Node(id string) (Node, bool)

	// Edge returns the edge with the given id, if present.
	Edge(id string) (Edge, bool)

	// AddNode inserts a node. Replaces any node with the same id.
	AddNode(n Node)

	// AddEdge inserts an edge. Replaces any edge with the same id.
	AddEdge(e Edge)

	// RemoveNode deletes the node with the given id, if present.
	RemoveNode(id string)

	// RemoveEdge deletes the edge with the given id, if present.
	RemoveEdge(id string)

	// SetNodeLabel replaces the label atoms of a node, leaving its mark.
	SetNodeLabel(id string, values []string)

	// SetEdgeLabel replaces the label atoms of an edge, leaving its mark.
	SetEdgeLabel(id string, values []string)

	// SetNodeMark replaces the mark of a node, leaving its label atoms.
	SetNodeMark(id string, mark Mark)

	// SetEdgeMark replaces the mark of an edge, leaving its label atoms.
	SetEdgeMark(id string, mark Mark)

	// SetRoot sets or clears the root flag of a node.
	SetRoot(id string, root bool)

	// Snapshot captures the full current state of the graph.
	Snapshot() Snapshot

	// Restore replaces the entire graph contents with the snapshot.
	Restore(Snapshot)
}
