// Package tracestore persists per-session ACP trace events (prompts
// received and values returned) to a SQLite database, so a session's
// history can be inspected after the process exits.
package tracestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection holding one append-only events table.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the trace database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tracestore: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS trace_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_trace_events_session ON trace_events(session_id);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracestore: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Kind enumerates the event categories recorded for a session.
type Kind string

const (
	KindPromptReceived Kind = "prompt_received"
	KindValueReturned  Kind = "value_returned"
	KindError          Kind = "error"
)

// Record appends one trace event for sessionID.
func (s *Store) Record(ctx context.Context, sessionID string, kind Kind, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trace_events (session_id, kind, content) VALUES (?, ?, ?)`,
		sessionID, string(kind), content)
	if err != nil {
		return fmt.Errorf("tracestore: record %s event: %w", kind, err)
	}
	return nil
}

// Event is one row read back from the trace table.
type Event struct {
	SessionID  string
	Kind       Kind
	Content    string
	RecordedAt string
}

// Events returns every recorded event for sessionID, oldest first.
func (s *Store) Events(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, kind, content, recorded_at FROM trace_events WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("tracestore: query events for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.SessionID, &kind, &e.Content, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
