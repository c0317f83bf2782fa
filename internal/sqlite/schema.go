// Package sqlite persists decoded traces into a SQLite database, so a
// trace can be inspected with plain SQL after the fact: how often a rule
// fired, where matches failed, which steps carried rollbacks.
package sqlite

// Schema DDL. The index survives across runs, so creation is idempotent.
const (
	createSessions = `CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    step_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);`

	createSteps = `CREATE TABLE IF NOT EXISTS steps (
    session_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    step_type TEXT NOT NULL,
    context_name TEXT,
    end_of_context INTEGER NOT NULL DEFAULT 0,
    loop_boundary INTEGER NOT NULL DEFAULT 0,
    has_snapshot INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, ordinal),
    FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);`

	createChanges = `CREATE TABLE IF NOT EXISTS changes (
    session_id TEXT NOT NULL,
    step_ordinal INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,
    change_type TEXT NOT NULL,
    item_kind TEXT NOT NULL,
    item_id TEXT NOT NULL,
    detail TEXT,
    PRIMARY KEY (session_id, step_ordinal, ordinal),
    FOREIGN KEY (session_id, step_ordinal) REFERENCES steps(session_id, ordinal) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxStepsType       = `CREATE INDEX IF NOT EXISTS idx_steps_type ON steps(session_id, step_type);`
	idxStepsContext    = `CREATE INDEX IF NOT EXISTS idx_steps_context ON steps(session_id, context_name);`
	idxChangesType     = `CREATE INDEX IF NOT EXISTS idx_changes_type ON changes(session_id, change_type);`
	idxChangesItem     = `CREATE INDEX IF NOT EXISTS idx_changes_item ON changes(session_id, item_id);`
	idxSessionsCreated = `CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createSessions,
	createSteps,
	createChanges,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxStepsType,
	idxStepsContext,
	idxChangesType,
	idxChangesItem,
	idxSessionsCreated,
}
