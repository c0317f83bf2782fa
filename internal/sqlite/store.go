package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/graphmorph/retrace/pkg/trace"
)

// Store errors.
var (
	// ErrStoreDetached reports an operation on a store that is not
	// attached to a database.
	ErrStoreDetached = errors.New("store is not attached")

	// ErrAlreadyAttached reports a second Attach on a live store.
	ErrAlreadyAttached = errors.New("store is already attached")

	// ErrSessionNotFound reports a session id with no sessions row.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is one indexed trace.
type Session struct {
	ID        string
	Name      string
	StepCount int
	CreatedAt time.Time
}

// StepRecord is one indexed trace step.
type StepRecord struct {
	Ordinal      int
	Type         string
	ContextName  string
	EndOfContext bool
	LoopBoundary bool
	HasSnapshot  bool
}

// ChangeRecord is one indexed graph change.
type ChangeRecord struct {
	StepOrdinal int
	Ordinal     int
	Type        string
	ItemKind    string
	ItemID      string
	Detail      string
}

// Store is the SQLite-backed trace index. A store is created detached;
// Attach opens or creates the database file and applies the schema.
type Store struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
}

// NewStore creates a detached store.
func NewStore() *Store {
	return &Store{}
}

// Attach opens the database at path, creating the schema if it does not
// exist yet. ":memory:" attaches an in-memory database.
func (s *Store) Attach(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index database: %w", err)
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create indexes: %w", err)
		}
	}

	s.db = db
	s.attached = true
	return nil
}

// Close releases the database connection. Close is idempotent; after it
// returns, all operations report ErrStoreDetached.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.attached = false
	return err
}

// CreateSession records a new indexed trace and returns its id.
func (s *Store) CreateSession(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return "", ErrStoreDetached
	}

	id := generateID()
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, name, created_at) VALUES (?, ?, ?)`,
		id, name, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// AddStep indexes one decoded step, with its changes, at the given
// ordinal. The step and its changes are written in one transaction.
func (s *Store) AddStep(sessionID string, ordinal int, step *trace.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return ErrStoreDetached
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO steps (session_id, ordinal, step_type, context_name, end_of_context, loop_boundary, has_snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, ordinal, step.Type.String(), step.ContextName,
		boolInt(step.EndOfContext), boolInt(step.LoopBoundary), boolInt(step.HasSnapshot),
	)
	if err != nil {
		return fmt.Errorf("insert step %d: %w", ordinal, err)
	}

	for i, change := range step.Changes {
		item := change.New
		if item.Kind == trace.ItemNone {
			item = change.Existing
		}
		_, err = tx.Exec(
			`INSERT INTO changes (session_id, step_ordinal, ordinal, change_type, item_kind, item_id, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, ordinal, i, change.Type.String(), itemKindName(item.Kind), item.ID(), changeDetail(change),
		)
		if err != nil {
			return fmt.Errorf("insert change %d of step %d: %w", i, ordinal, err)
		}
	}

	res, err := tx.Exec(
		`UPDATE sessions SET step_count = step_count + 1 WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	return tx.Commit()
}

// Sessions lists all indexed traces, newest first.
func (s *Store) Sessions() ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, ErrStoreDetached
	}

	rows, err := s.db.Query(
		`SELECT session_id, name, step_count, created_at FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created string
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.StepCount, &created); err != nil {
			return nil, err
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Steps lists the indexed steps of a session in trace order.
func (s *Store) Steps(sessionID string) ([]StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, ErrStoreDetached
	}
	if err := s.sessionExists(sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT ordinal, step_type, context_name, end_of_context, loop_boundary, has_snapshot
		 FROM steps WHERE session_id = ? ORDER BY ordinal`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var rec StepRecord
		var name sql.NullString
		var end, boundary, snap int
		if err := rows.Scan(&rec.Ordinal, &rec.Type, &name, &end, &boundary, &snap); err != nil {
			return nil, err
		}
		rec.ContextName = name.String
		rec.EndOfContext = end != 0
		rec.LoopBoundary = boundary != 0
		rec.HasSnapshot = snap != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Changes lists the indexed graph changes of a session in trace order.
func (s *Store) Changes(sessionID string) ([]ChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, ErrStoreDetached
	}
	if err := s.sessionExists(sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT step_ordinal, ordinal, change_type, item_kind, item_id, detail
		 FROM changes WHERE session_id = ? ORDER BY step_ordinal, ordinal`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRecord
	for rows.Next() {
		var rec ChangeRecord
		var detail sql.NullString
		if err := rows.Scan(&rec.StepOrdinal, &rec.Ordinal, &rec.Type, &rec.ItemKind, &rec.ItemID, &detail); err != nil {
			return nil, err
		}
		rec.Detail = detail.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// sessionExists verifies a sessions row. Callers hold s.mu.
func (s *Store) sessionExists(sessionID string) error {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return err
}

// generateID generates a UUID v7 session id, falling back to v4 if the
// clock-based generation fails.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// boolInt converts a bool to the 0/1 SQLite convention.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// itemKindName names an item kind for the changes table.
func itemKindName(k trace.ItemKind) string {
	switch k {
	case trace.ItemNode:
		return "node"
	case trace.ItemEdge:
		return "edge"
	default:
		return "none"
	}
}

// changeDetail summarizes a change's payload for SQL inspection.
func changeDetail(c trace.GraphChange) string {
	label := func(item trace.Item) trace.Label {
		if item.Kind == trace.ItemEdge {
			return item.Edge.Label
		}
		return item.Node.Label
	}

	switch c.Type {
	case trace.ChangeAddNode:
		parts := []string{"label=" + c.New.Node.Label.String(), "mark=" + c.New.Node.Label.Mark.String()}
		if c.New.Node.IsRoot {
			parts = append(parts, "root=true")
		}
		return strings.Join(parts, " ")

	case trace.ChangeDeleteNode:
		return "label=" + c.Existing.Node.Label.String() + " mark=" + c.Existing.Node.Label.Mark.String()

	case trace.ChangeAddEdge:
		e := c.New.Edge
		return fmt.Sprintf("source=%s target=%s label=%s mark=%s", e.From, e.To, e.Label.String(), e.Label.Mark.String())

	case trace.ChangeDeleteEdge:
		e := c.Existing.Edge
		return fmt.Sprintf("source=%s target=%s label=%s mark=%s", e.From, e.To, e.Label.String(), e.Label.Mark.String())

	case trace.ChangeRelabelNode, trace.ChangeRelabelEdge:
		return "old=" + label(c.Existing).String() + " new=" + label(c.New).String()

	case trace.ChangeRemarkNode, trace.ChangeRemarkEdge:
		return "old=" + label(c.Existing).Mark.String() + " new=" + label(c.New).Mark.String()

	case trace.ChangeSetRoot:
		return "root=true"

	case trace.ChangeRemoveRoot:
		return "root=false"

	default:
		return ""
	}
}
