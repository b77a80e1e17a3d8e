// Package store provides a SQLite-backed calendar writer.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"famcal/internal/model"
)

// Store writes routed events to a SQLite database.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Event is one stored row.
type Event struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location,omitempty"`
	Color      string    `json:"color,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	CreatedAt  time.Time `json:"created_at"`
}

// Open creates a Store with the given database path and creates tables if
// they don't exist. ":memory:" gives a private in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// All pooled connections must see the same in-memory database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL,
		title TEXT NOT NULL,
		location TEXT,
		color TEXT,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_calendar_start ON events(calendar_id, start_at);
	CREATE INDEX IF NOT EXISTS idx_events_end ON events(end_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// WriteEvent inserts one event row.
func (s *Store) WriteEvent(ctx context.Context, req model.WriteRequest) (model.Receipt, error) {
	if req.CalendarID == "" {
		return model.Receipt{}, errors.New("calendar ID is empty")
	}
	if !req.End.After(req.Start) {
		return model.Receipt{}, fmt.Errorf("event end %s is not after start %s", req.End, req.Start)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, calendar_id, title, location, color, start_at, end_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.CalendarID, req.Title, req.Location, req.ColorHint,
		req.Start.UTC(), req.End.UTC(), s.now().UTC(),
	)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("insert event: %w", err)
	}
	return model.Receipt{ID: id, Link: "sqlite:events/" + id}, nil
}

// Events returns a calendar's events ordered by start time.
func (s *Store) Events(ctx context.Context, calendarID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calendar_id, title, location, color, start_at, end_at, created_at
		FROM events
		WHERE calendar_id = ?
		ORDER BY start_at ASC`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var location, color sql.NullString
		if err := rows.Scan(&ev.ID, &ev.CalendarID, &ev.Title, &location, &color, &ev.Start, &ev.End, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Location = location.String
		ev.Color = color.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Prune deletes events that ended before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE end_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
