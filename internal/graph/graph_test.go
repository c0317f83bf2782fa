package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmorph/retrace/pkg/trace"
)

func testGraph() *Graph {
	g := New()
	g.AddNode(trace.Node{ID: "a", Label: trace.Label{Values: []string{"a"}}, IsRoot: true, Pos: trace.Point{X: 1, Y: 2}})
	g.AddNode(trace.Node{ID: "b", Label: trace.Label{Values: []string{"b", "0"}, Mark: trace.MarkRed}})
	g.AddEdge(trace.Edge{ID: "ab", From: "a", To: "b", Label: trace.Label{Values: []string{"w"}, Mark: trace.MarkGreen}})
	return g
}

func TestLookup(t *testing.T) {
	g := testGraph()

	a, ok := g.Node("a")
	require.True(t, ok)
	assert.True(t, a.IsRoot)
	assert.Equal(t, trace.Point{X: 1, Y: 2}, a.Pos)

	_, ok = g.Node("missing")
	assert.False(t, ok)

	ab, ok := g.Edge("ab")
	require.True(t, ok)
	assert.Equal(t, "a", ab.From)
	assert.Equal(t, "b", ab.To)

	_, ok = g.Edge("missing")
	assert.False(t, ok)
}

func TestLookupReturnsCopies(t *testing.T) {
	g := testGraph()

	b, _ := g.Node("b")
	b.Label.Values[0] = "mutated"

	again, _ := g.Node("b")
	assert.Equal(t, "b", again.Label.Values[0], "callers cannot reach the stored label")
}

func TestAddReplacesById(t *testing.T) {
	g := testGraph()

	g.AddNode(trace.Node{ID: "a", Label: trace.Label{Values: []string{"a2"}}})
	assert.Len(t, g.Nodes(), 2)
	a, _ := g.Node("a")
	assert.Equal(t, []string{"a2"}, a.Label.Values)
	assert.False(t, a.IsRoot, "replacement overwrites every field")

	g.AddEdge(trace.Edge{ID: "ab", From: "b", To: "a"})
	assert.Len(t, g.Edges(), 1)
	ab, _ := g.Edge("ab")
	assert.Equal(t, "b", ab.From)
}

func TestRemove(t *testing.T) {
	g := testGraph()

	g.RemoveNode("a")
	_, ok := g.Node("a")
	assert.False(t, ok)

	g.RemoveEdge("ab")
	assert.Empty(t, g.Edges())

	// Removing an absent id is a no-op.
	g.RemoveNode("a")
	g.RemoveEdge("ab")
}

func TestSettersLeaveTheOtherHalf(t *testing.T) {
	g := testGraph()

	g.SetNodeLabel("b", []string{"b2"})
	b, _ := g.Node("b")
	assert.Equal(t, []string{"b2"}, b.Label.Values)
	assert.Equal(t, trace.MarkRed, b.Label.Mark, "relabel leaves the mark")

	g.SetNodeMark("b", trace.MarkBlue)
	b, _ = g.Node("b")
	assert.Equal(t, []string{"b2"}, b.Label.Values, "remark leaves the atoms")
	assert.Equal(t, trace.MarkBlue, b.Label.Mark)

	g.SetEdgeLabel("ab", []string{"w2"})
	g.SetEdgeMark("ab", trace.MarkNone)
	ab, _ := g.Edge("ab")
	assert.Equal(t, []string{"w2"}, ab.Label.Values)
	assert.Equal(t, trace.MarkNone, ab.Label.Mark)

	g.SetRoot("a", false)
	a, _ := g.Node("a")
	assert.False(t, a.IsRoot)

	g.SetNodePos("a", trace.Point{X: 9, Y: 9})
	a, _ = g.Node("a")
	assert.Equal(t, trace.Point{X: 9, Y: 9}, a.Pos)
}

func TestSnapshotIsIndependent(t *testing.T) {
	g := testGraph()
	snap := g.Snapshot()

	g.RemoveNode("a")
	g.SetNodeLabel("b", []string{"changed"})
	g.RemoveEdge("ab")

	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
	assert.Equal(t, []string{"b", "0"}, snap.Nodes[1].Label.Values)
}

func TestRestoreReplacesEverything(t *testing.T) {
	g := testGraph()
	snap := g.Snapshot()

	g.AddNode(trace.Node{ID: "z"})
	g.RemoveEdge("ab")
	g.Restore(snap)

	assert.Len(t, g.Nodes(), 2)
	assert.Len(t, g.Edges(), 1)
	_, ok := g.Node("z")
	assert.False(t, ok)
}

func TestFromSnapshot(t *testing.T) {
	snap := testGraph().Snapshot()
	g := FromSnapshot(snap)

	assert.Equal(t, snap, g.Snapshot())
}

func TestJSONRoundTrip(t *testing.T) {
	g := testGraph()

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back Graph
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, g.Snapshot(), back.Snapshot())
}

func TestJSONShape(t *testing.T) {
	g := New()
	g.AddNode(trace.Node{ID: "n", Label: trace.Label{Values: []string{"n"}, Mark: trace.MarkRed}, IsRoot: true})

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	nodes := out["nodes"].([]any)
	require.Len(t, nodes, 1)
	node := nodes[0].(map[string]any)
	assert.Equal(t, "n", node["id"])
	assert.Equal(t, "red", node["mark"])
	assert.Equal(t, true, node["root"])
}
