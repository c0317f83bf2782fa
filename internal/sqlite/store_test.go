package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmorph/retrace/pkg/trace"
)

// newTestStore attaches an in-memory store and closes it with the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore()
	require.NoError(t, s.Attach(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAttachLifecycle(t *testing.T) {
	s := NewStore()

	_, err := s.CreateSession("before attach")
	assert.ErrorIs(t, err, ErrStoreDetached)

	require.NoError(t, s.Attach(":memory:"))
	assert.ErrorIs(t, s.Attach(":memory:"), ErrAlreadyAttached)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Sessions()
	assert.ErrorIs(t, err, ErrStoreDetached)
}

func TestAttachOnDisk(t *testing.T) {
	path := t.TempDir() + "/index.db"

	s := NewStore()
	require.NoError(t, s.Attach(path))
	id, err := s.CreateSession("trace-1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reattaching keeps previously indexed sessions.
	again := NewStore()
	require.NoError(t, again.Attach(path))
	defer again.Close()

	sessions, err := again.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
}

func TestCreateSession(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateSession("trace-a")
	require.NoError(t, err)
	second, err := s.CreateSession("trace-b")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	sessions, err := s.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.NotEmpty(t, sess.ID)
		assert.Zero(t, sess.StepCount)
		assert.False(t, sess.CreatedAt.IsZero())
	}
}

func TestAddStep(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateSession("trace")
	require.NoError(t, err)

	steps := []*trace.Step{
		{Type: trace.StepLoop},
		{Type: trace.StepLoopIteration, LoopBoundary: true},
		{Type: trace.StepRule, ContextName: "Main_grow"},
		{
			Type: trace.StepRuleApplication,
			Changes: []trace.GraphChange{
				{
					Type: trace.ChangeAddNode,
					New:  trace.NodeItem(trace.Node{ID: "n1", Label: trace.Label{Values: []string{"1", "a"}}}),
				},
				{
					Type:     trace.ChangeRelabelNode,
					Existing: trace.NodeItem(trace.Node{ID: "n0", Label: trace.Label{Values: []string{"x"}}}),
					New:      trace.NodeItem(trace.Node{ID: "n0", Label: trace.Label{Values: []string{"y"}}}),
				},
			},
		},
		{Type: trace.StepRule, ContextName: "Main_grow", EndOfContext: true, HasSnapshot: true},
	}
	for i, step := range steps {
		require.NoError(t, s.AddStep(id, i, step))
	}

	got, err := s.Steps(id)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "loop", got[0].Type)
	assert.True(t, got[1].LoopBoundary)
	assert.Equal(t, "Main_grow", got[2].ContextName)
	assert.True(t, got[4].EndOfContext)
	assert.True(t, got[4].HasSnapshot)

	changes, err := s.Changes(id)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "createNode", changes[0].Type)
	assert.Equal(t, "node", changes[0].ItemKind)
	assert.Equal(t, "n1", changes[0].ItemID)
	assert.Equal(t, "label=1:a mark=none", changes[0].Detail)
	assert.Equal(t, "old=x new=y", changes[1].Detail)
	assert.Equal(t, 3, changes[1].StepOrdinal)

	sessions, err := s.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 5, sessions[0].StepCount)
}

func TestAddStepUnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.AddStep("no-such-session", 0, &trace.Step{Type: trace.StepSkip})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStepsUnknownSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Steps("no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Changes("no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
