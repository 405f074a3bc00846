// Package history persists relayed conversation events so a HUD that connects
// late can replay the recent transcript.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"jarvis-hud/internal/domain"
)

// SQLiteStore implements domain.HistoryStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ domain.HistoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// Pragmas are per connection; one connection keeps them applied and
	// serialises writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_events (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			received_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_events_received
			ON conversation_events(received_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append stores rec. A missing ID is filled with a new ULID and a zero
// ReceivedAt with the current time. Records are kept in append order.
func (s *SQLiteStore) Append(ctx context.Context, rec domain.HistoryRecord) error {
	if err := rec.Event.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversation_events (id, role, content, received_at) VALUES (?, ?, ?, ?)",
		rec.ID, string(rec.Event.Role), rec.Event.Content, rec.ReceivedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: append %s: %w", domain.ErrHistoryStore, rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, received_at FROM (
			SELECT seq, id, role, content, received_at
			FROM conversation_events ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent: %w", domain.ErrHistoryStore, err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var (
			rec  domain.HistoryRecord
			role string
			at   int64
		)
		if err := rows.Scan(&rec.ID, &role, &rec.Event.Content, &at); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrHistoryStore, err)
		}
		rec.Event.Role = domain.Role(role)
		rec.ReceivedAt = time.Unix(0, at).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneBefore deletes records received before cutoff and returns how many were removed.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_events WHERE received_at < ?", cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %w", domain.ErrHistoryStore, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversation_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrHistoryStore, err)
	}
	return n, nil
}
