package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agentic-research/lina/internal/tree"
	_ "modernc.org/sqlite"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	package_name TEXT NOT NULL,
	event_type TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL DEFAULT 0,
	tree JSON NOT NULL
);
`

// StreamEvents replays recorded events in insertion order, calling fn for
// each one. Only one parsed tree is alive at a time. A row whose tree does
// not parse is passed to skip (if non-nil) and replay continues.
func StreamEvents(dbPath string, fn func(id int64, ev Event) error, skip func(id int64, err error)) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT id, package_name, event_type, timestamp, tree FROM events ORDER BY id")
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var (
			id  int64
			ev  Event
			raw string
		)
		if err := rows.Scan(&id, &ev.PackageName, &ev.EventType, &ev.Timestamp, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		root, err := ParseSnapshot([]byte(raw), "$")
		if err != nil {
			if skip != nil {
				skip(id, err)
			}
			continue
		}
		ev.Root = root
		if err := fn(id, ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// EventLog appends raw events to an events database for later replay.
type EventLog struct {
	mu   sync.Mutex
	db   *sql.DB
	stmt *sql.Stmt
}

// NewEventLog opens (creating if needed) the events database at dbPath.
func NewEventLog(dbPath string) (*EventLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(eventsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	stmt, err := db.Prepare(`INSERT INTO events (package_name, event_type, timestamp, tree) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &EventLog{db: db, stmt: stmt}, nil
}

// Append records one event. tree is the raw JSON element tree.
func (l *EventLog) Append(packageName, eventType string, timestamp int64, tree []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.stmt.Exec(packageName, eventType, timestamp, string(tree)); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Record appends an event whose root is an in-memory Element.
func (l *EventLog) Record(ev Event) error {
	el, ok := ev.Root.(*tree.Element)
	if !ok || el == nil {
		return fmt.Errorf("record event: %w", ErrNoRoot)
	}
	raw, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return l.Append(ev.PackageName, ev.EventType, ev.Timestamp, raw)
}

func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.stmt.Close()
	return l.db.Close()
}
