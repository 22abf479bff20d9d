// Package state keeps the history of finished and failed downloads in SQLite.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/djyunz/SBSample/internal/engine/types"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned by Get for unknown ids
var ErrNotFound = errors.New("download not found in history")

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 100

// Store is the download history database
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at dbPath
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or replaces the entry with the same id
func (s *Store) Record(ctx context.Context, e types.DownloadEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, url, dest_path, filename, status, error, progress, completed_at, time_taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			dest_path = excluded.dest_path,
			filename = excluded.filename,
			status = excluded.status,
			error = excluded.error,
			progress = excluded.progress,
			completed_at = excluded.completed_at,
			time_taken = excluded.time_taken`,
		e.ID, e.URL, e.DestPath, e.Filename, e.Status, e.Error, e.Progress, e.CompletedAt, e.TimeTaken,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, most recently completed first
func (s *Store) List(ctx context.Context, limit int) ([]types.DownloadEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, dest_path, filename, status, error, progress, completed_at, time_taken
		FROM downloads
		ORDER BY completed_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := make([]types.DownloadEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with id, or ErrNotFound
func (s *Store) Get(ctx context.Context, id string) (types.DownloadEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, dest_path, filename, status, error, progress, completed_at, time_taken
		FROM downloads WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DownloadEntry{}, ErrNotFound
	}
	return e, err
}

// Remove deletes the entry with id. Unknown ids are not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// Clear deletes every entry
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (types.DownloadEntry, error) {
	var e types.DownloadEntry
	err := row.Scan(&e.ID, &e.URL, &e.DestPath, &e.Filename, &e.Status, &e.Error, &e.Progress, &e.CompletedAt, &e.TimeTaken)
	return e, err
}
