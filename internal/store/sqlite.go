package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

const sqliteColumns = `id, company, contact_name, email,
    COALESCE(phone, ''), COALESCE(city, ''), COALESCE(requested_start, ''), COALESCE(message, ''),
    urgent, headcount, hours, hourly_rate, fee_amount, deposit_amount,
    platform_fee_rate, platform_fee_amount, claim_status,
    COALESCE(claimed_by, ''), COALESCE(claimed_by_name, ''), claimed_at,
    source, created_at, updated_at`

const timeLayout = time.RFC3339Nano

// SQLite is a single-file request gateway for local development and tests.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (and migrates) the database at path. Use ":memory:" for a
// throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	conn.SetMaxOpenConns(1)

	s := &SQLite{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.conn.Exec(`
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		company TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		city TEXT,
		requested_start TEXT,
		message TEXT,
		urgent INTEGER NOT NULL DEFAULT 0,
		headcount INTEGER NOT NULL,
		hours INTEGER NOT NULL,
		hourly_rate REAL NOT NULL,
		fee_amount INTEGER NOT NULL,
		deposit_amount INTEGER NOT NULL,
		platform_fee_rate REAL NOT NULL,
		platform_fee_amount INTEGER NOT NULL,
		claim_status TEXT NOT NULL DEFAULT 'open'
			CHECK (claim_status IN ('open', 'claimed', 'in_progress')),
		claimed_by TEXT,
		claimed_by_name TEXT,
		claimed_at TEXT,
		source TEXT NOT NULL DEFAULT 'website',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_claim_status ON requests(claim_status);
	`)
	return err
}

// Create inserts one request and returns the stored row.
func (s *SQLite) Create(ctx context.Context, r marketplace.NewRequest) (*marketplace.Request, error) {
	id := uuid.New().String()
	now := s.now().UTC().Format(timeLayout)
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO requests (
			id, company, contact_name, email, phone, city, requested_start, message, urgent,
			headcount, hours, hourly_rate, fee_amount, deposit_amount,
			platform_fee_rate, platform_fee_amount, claim_status, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'open', ?, ?, ?)`,
		id, r.Company, r.ContactName, r.Email,
		nullable(r.Phone), nullable(r.City), nullable(r.When), nullable(r.Message), r.Urgent,
		r.Headcount, r.Hours, r.HourlyRate, r.FeeAmount, r.DepositAmount,
		r.PlatformFeeRate, r.PlatformFeeAmount, r.Source, now, now,
	)
	if err != nil {
		return nil, &marketplace.PersistenceError{Op: "create request", Err: err}
	}
	return s.Get(ctx, id)
}

// Get loads a request by id.
func (s *SQLite) Get(ctx context.Context, id string) (*marketplace.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, marketplace.ErrNotFound
	}
	req, err := scanSQLite(s.conn.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM requests WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, marketplace.ErrNotFound
		}
		return nil, &marketplace.PersistenceError{Op: "get request", Err: err}
	}
	return req, nil
}

// UpdateClaim applies patch to one row; the last writer wins.
func (s *SQLite) UpdateClaim(ctx context.Context, id string, patch marketplace.ClaimPatch) (*marketplace.Request, error) {
	if patch.Status != "" && !patch.Status.Valid() {
		return nil, &marketplace.PersistenceError{Op: "update claim", Err: fmt.Errorf("invalid claim status %q", patch.Status)}
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, marketplace.ErrNotFound
	}

	var claimedAt *string
	if patch.ClaimedAt != nil {
		v := patch.ClaimedAt.UTC().Format(timeLayout)
		claimedAt = &v
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE requests SET
			claim_status = COALESCE(NULLIF(?, ''), claim_status),
			claimed_by = COALESCE(?, claimed_by),
			claimed_by_name = COALESCE(?, claimed_by_name),
			claimed_at = COALESCE(?, claimed_at),
			updated_at = ?
		WHERE id = ?`,
		string(patch.Status), patch.ClaimedBy, patch.ClaimedByName, claimedAt,
		s.now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return nil, &marketplace.PersistenceError{Op: "update claim", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, &marketplace.PersistenceError{Op: "update claim", Err: err}
	}
	if rows == 0 {
		return nil, marketplace.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Ping reports whether the database is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func scanSQLite(row *sql.Row) (*marketplace.Request, error) {
	var r marketplace.Request
	var status, createdAt, updatedAt string
	var claimedAt sql.NullString
	err := row.Scan(
		&r.ID, &r.Company, &r.ContactName, &r.Email,
		&r.Phone, &r.City, &r.When, &r.Message,
		&r.Urgent, &r.Headcount, &r.Hours, &r.HourlyRate, &r.FeeAmount, &r.DepositAmount,
		&r.PlatformFeeRate, &r.PlatformFeeAmount, &status,
		&r.ClaimedBy, &r.ClaimedByName, &claimedAt,
		&r.Source, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ClaimStatus = marketplace.ClaimStatus(status)
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if claimedAt.Valid && claimedAt.String != "" {
		t, err := time.Parse(timeLayout, claimedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse claimed_at: %w", err)
		}
		r.ClaimedAt = &t
	}
	return &r, nil
}
