// Package database holds the drone's local state: the scan operation
// journal and the backlog of re-check requests. Backend level records live
// in the records API, not here.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zeepdrone/internal/database/migrations"
	"zeepdrone/internal/drone"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ScanOperation is one journaled scan run.
type ScanOperation struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Operation  string
	Parameters string
	Status     string
}

// Store provides access to the local SQLite database.
type Store struct {
	db    *sql.DB
	path  string
	clock drone.Clock
}

// NewStore opens the database at path and migrates it to the latest schema.
// path can be a file path or ":memory:" for an in-memory database.
func NewStore(path string) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{db: db, path: path, clock: drone.RealClock{}}, nil
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Scan operation tracking

// CreateScanOperation journals the start of a scan run.
func (s *Store) CreateScanOperation(ctx context.Context, operation, parameters string) (*ScanOperation, error) {
	op := ScanOperation{
		StartedAt:  s.clock.Now(),
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_operations (started_at, operation, parameters, status)
		 VALUES (?, ?, ?, ?)`,
		op.StartedAt, op.Operation, op.Parameters, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating scan operation: %w", err)
	}

	op.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading scan operation id: %w", err)
	}
	return &op, nil
}

// FinishScanOperation marks a journaled run as finished with the given status.
func (s *Store) FinishScanOperation(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scan_operations SET finished_at = ?, status = ? WHERE id = ?`,
		s.clock.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing scan operation: %w", err)
	}
	return nil
}

// ListScanOperations returns the most recent journaled runs, newest first.
func (s *Store) ListScanOperations(ctx context.Context, limit int) ([]*ScanOperation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, operation, parameters, status
		 FROM scan_operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan operations: %w", err)
	}
	defer rows.Close()

	var ops []*ScanOperation
	for rows.Next() {
		var op ScanOperation
		if err := rows.Scan(&op.ID, &op.StartedAt, &op.FinishedAt,
			&op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning scan operation row: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing scan operations: %w", err)
	}
	return ops, nil
}

// Request backlog

// AddRequest queues a re-check request.
func (s *Store) AddRequest(ctx context.Context, workshopID, hash, uid string) (*drone.Request, error) {
	req := drone.Request{
		WorkshopID: workshopID,
		Hash:       hash,
		UID:        uid,
		CreatedAt:  s.clock.Now(),
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (workshop_id, hash, uid, created_at) VALUES (?, ?, ?, ?)`,
		req.WorkshopID, req.Hash, req.UID, req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("adding request: %w", err)
	}

	req.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading request id: %w", err)
	}
	return &req, nil
}

// ListRequests returns all queued requests, oldest first.
func (s *Store) ListRequests(ctx context.Context) ([]drone.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workshop_id, hash, uid, created_at FROM requests ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []drone.Request
	for rows.Next() {
		var req drone.Request
		if err := rows.Scan(&req.ID, &req.WorkshopID, &req.Hash, &req.UID, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	return requests, nil
}

// DeleteRequest removes a request from the backlog.
func (s *Store) DeleteRequest(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *Store) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that Store implements drone.RequestStore
var _ drone.RequestStore = (*Store)(nil)
