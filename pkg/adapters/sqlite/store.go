package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/schema"

	_ "modernc.org/sqlite"
)

// Store implements ports.SequenceStore on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
// The special path ":memory:" keeps everything in process memory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create sequence database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sequence database: %w", err)
	}
	// One connection: ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS sequences (
	name TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	steps INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize sequence database: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the sequence payload.
func (s *Store) Save(ctx context.Context, seq domain.Sequence) error {
	if seq.Name == "" {
		return fmt.Errorf("sequence name cannot be empty")
	}
	payload, err := schema.Marshal(seq)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sequences (name, payload, steps, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		 payload = excluded.payload,
		 steps = excluded.steps,
		 updated_at = excluded.updated_at`,
		seq.Name,
		string(payload),
		len(seq.Steps),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save sequence %q: %w", seq.Name, err)
	}
	return nil
}

// Load returns the sequence with the given name.
func (s *Store) Load(ctx context.Context, name string) (domain.Sequence, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sequences WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sequence{}, domain.ErrSequenceNotFound
		}
		return domain.Sequence{}, fmt.Errorf("query sequence %q: %w", name, err)
	}

	seq, err := schema.Unmarshal([]byte(payload))
	if err != nil {
		return domain.Sequence{}, fmt.Errorf("stored sequence %q: %w", name, err)
	}
	seq.Name = name
	return seq, nil
}

// Delete removes the sequence if present.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sequences WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete sequence %q: %w", name, err)
	}
	return nil
}

// List returns all names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sequences ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sequence row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequence rows: %w", err)
	}
	return names, nil
}
