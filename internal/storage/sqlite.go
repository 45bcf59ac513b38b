package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/copyleftdev/tourfit/internal/errors"
)

// SQLiteStore keeps runs in a single table, indexed by creation time, with
// the record encoded as JSON.
type SQLiteStore struct {
	dsn string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(dsn string) *SQLiteStore {
	return &SQLiteStore{dsn: dsn}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dsn == "" {
		return errors.Wrap(errors.ErrInvalidInput, "sqlite dsn is required").WithOperation("Init").WithComponent("storage")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return errors.Wrap(err, "opening sqlite").WithOperation("Init").WithComponent("storage")
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "pinging sqlite").WithOperation("Init").WithComponent("storage")
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "creating tables").WithOperation("Init").WithComponent("storage")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	if run.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "run id is required").WithOperation("SaveRun").WithComponent("storage")
	}
	db, err := s.getDB("SaveRun")
	if err != nil {
		return err
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return errors.Wrapf(err, "encoding run %s", run.ID).WithOperation("SaveRun").WithComponent("storage")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, status, created_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, payload = excluded.payload
	`, run.ID, run.Status, run.CreatedAt.UnixNano(), payload)
	if err != nil {
		return errors.Wrapf(err, "saving run %s", run.ID).WithOperation("SaveRun").WithComponent("storage")
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (RunRecord, bool, error) {
	db, err := s.getDB("GetRun")
	if err != nil {
		return RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, errors.Wrapf(err, "loading run %s", id).WithOperation("GetRun").WithComponent("storage")
	}

	var run RunRecord
	if err := json.Unmarshal(payload, &run); err != nil {
		return RunRecord{}, false, errors.Wrapf(err, "decoding run %s", id).WithOperation("GetRun").WithComponent("storage")
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	db, err := s.getDB("ListRuns")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs").WithOperation("ListRuns").WithComponent("storage")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "scanning run").WithOperation("ListRuns").WithComponent("storage")
		}
		var run RunRecord
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, errors.Wrap(err, "decoding run").WithOperation("ListRuns").WithComponent("storage")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing runs").WithOperation("ListRuns").WithComponent("storage")
	}
	return runs, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB(op string) (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized(op)
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
	`)
	return err
}
