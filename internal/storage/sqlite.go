package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"monthcal/internal/model"
)

// SQLiteStore keeps events in a single table ordered by position.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			position INTEGER PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			is_recurring INTEGER NOT NULL DEFAULT 0,
			recurrence TEXT,
			original_event_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_original ON events(original_event_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, start_date, end_date, color,
		       is_recurring, recurrence, original_event_id
		FROM events ORDER BY position`)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	snap := model.Snapshot{Events: []model.Event{}}
	for rows.Next() {
		var (
			ev         model.Event
			start, end string
			rule       sql.NullString
			original   sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &start, &end, &ev.Color,
			&ev.IsRecurring, &rule, &original); err != nil {
			return model.Snapshot{}, fmt.Errorf("scan event: %w", err)
		}
		if ev.StartDate, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return model.Snapshot{}, fmt.Errorf("event %s start: %w", ev.ID, err)
		}
		if ev.EndDate, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return model.Snapshot{}, fmt.Errorf("event %s end: %w", ev.ID, err)
		}
		if rule.Valid {
			ev.Recurrence = &model.Recurrence{}
			if err := json.Unmarshal([]byte(rule.String), ev.Recurrence); err != nil {
				return model.Snapshot{}, fmt.Errorf("event %s recurrence: %w", ev.ID, err)
			}
		}
		ev.OriginalEventID = original.String
		snap.Events = append(snap.Events, ev)
	}
	return snap, rows.Err()
}

// Save replaces the table contents in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (position, id, title, description, start_date, end_date,
		                    color, is_recurring, recurrence, original_event_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, ev := range snap.Events {
		var rule sql.NullString
		if ev.Recurrence != nil {
			raw, err := json.Marshal(ev.Recurrence)
			if err != nil {
				return err
			}
			rule = sql.NullString{String: string(raw), Valid: true}
		}
		original := sql.NullString{String: ev.OriginalEventID, Valid: ev.OriginalEventID != ""}

		_, err := stmt.ExecContext(ctx, i, ev.ID, ev.Title, ev.Description,
			ev.StartDate.Format(time.RFC3339Nano), ev.EndDate.Format(time.RFC3339Nano),
			ev.Color, ev.IsRecurring, rule, original)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
