package trace

// ChangeType discriminates the kinds of single graph mutation recorded
// inside a rule application, plus the morphism entries recorded inside a
// successful rule match.
type ChangeType int

// Change types.
const (
	ChangeInvalid ChangeType = iota
	ChangeMorphism
	ChangeAddEdge
	ChangeAddNode
	ChangeDeleteEdge
	ChangeDeleteNode
	ChangeRelabelEdge
	ChangeRelabelNode
	ChangeRemarkEdge
	ChangeRemarkNode
	ChangeSetRoot
	ChangeRemoveRoot
)

// changeNames maps ChangeType values to the tracefile element names that
// produce them. Morphism entries come from <node>/<edge> inside <match>.
var changeNames = map[ChangeType]string{
	ChangeInvalid:     "invalid",
	ChangeMorphism:    "morphism",
	ChangeAddEdge:     "createEdge",
	ChangeAddNode:     "createNode",
	ChangeDeleteEdge:  "deleteEdge",
	ChangeDeleteNode:  "deleteNode",
	ChangeRelabelEdge: "relabelEdge",
	ChangeRelabelNode: "relabelNode",
	ChangeRemarkEdge:  "remarkEdge",
	ChangeRemarkNode:  "remarkNode",
	ChangeSetRoot:     "setRoot",
	ChangeRemoveRoot:  "removeRoot",
}

// String returns the tracefile element name for the change type.
func (t ChangeType) String() string {
	if name, ok := changeNames[t]; ok {
		return name
	}
	return "invalid"
}

// GraphChange records a single node or edge mutation. Existing holds the
// pre-state (needed to undo) and New the post-state (needed to redo).
// Exactly one side is populated for add and delete changes, both for
// relabel, remark and root-flag changes. Morphism entries populate only
// Existing with the matched item's id; they never mutate the graph.
type GraphChange struct {
	Type     ChangeType
	Existing Item
	New      Item
}
