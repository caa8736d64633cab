package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	delivered_at INTEGER NOT NULL,
	payload JSON NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_at ON deliveries(delivered_at);
`

// Archived is one recorded delivery.
type Archived struct {
	ID          int64
	DeliveredAt time.Time
	Body        []byte
}

// Archive records every payload the primary target accepted.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenArchive opens (creating if needed) the archive database at dbPath.
func OpenArchive(dbPath string, logger *slog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Archive{db: db, logger: logger, now: time.Now}, nil
}

// Record stores one delivered payload.
func (a *Archive) Record(ctx context.Context, body []byte) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO deliveries (delivered_at, payload) VALUES (?, ?)`,
		a.now().UnixMilli(), string(body))
	if err != nil {
		return fmt.Errorf("archive payload: %w", err)
	}
	return nil
}

// Forward implements Forwarder.
func (a *Archive) Forward(ctx context.Context, body []byte) {
	if err := a.Record(ctx, body); err != nil {
		a.logger.Error("archive failed", "error", err)
	}
}

// Recent returns up to limit deliveries, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Archived, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, delivered_at, payload FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []Archived
	for rows.Next() {
		var (
			rec  Archived
			ms   int64
			body string
		)
		if err := rows.Scan(&rec.ID, &ms, &body); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.DeliveredAt = time.UnixMilli(ms)
		rec.Body = []byte(body)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *Archive) Close() error { return a.db.Close() }

var _ Forwarder = (*Archive)(nil)
