package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

const pgColumns = `id::text, company, contact_name, email,
    COALESCE(phone, ''), COALESCE(city, ''), COALESCE(requested_start, ''), COALESCE(message, ''),
    urgent, headcount, hours, hourly_rate, fee_amount, deposit_amount,
    platform_fee_rate, platform_fee_amount, claim_status,
    COALESCE(claimed_by, ''), COALESCE(claimed_by_name, ''), claimed_at,
    source, created_at, updated_at`

// Postgres is the production request gateway.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Create inserts one request and returns the stored row.
func (s *Postgres) Create(ctx context.Context, r marketplace.NewRequest) (*marketplace.Request, error) {
	row := s.pool.QueryRow(ctx, `
        INSERT INTO requests (
            id, company, contact_name, email, phone, city, requested_start, message, urgent,
            headcount, hours, hourly_rate, fee_amount, deposit_amount,
            platform_fee_rate, platform_fee_amount, claim_status, source, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 'open', $17, NOW(), NOW())
        RETURNING `+pgColumns,
		uuid.New().String(), r.Company, r.ContactName, r.Email,
		nullable(r.Phone), nullable(r.City), nullable(r.When), nullable(r.Message), r.Urgent,
		r.Headcount, r.Hours, r.HourlyRate, r.FeeAmount, r.DepositAmount,
		r.PlatformFeeRate, r.PlatformFeeAmount, r.Source,
	)
	req, err := scanPG(row)
	if err != nil {
		return nil, &marketplace.PersistenceError{Op: "create request", Err: err}
	}
	return req, nil
}

// Get loads a request by id.
func (s *Postgres) Get(ctx context.Context, id string) (*marketplace.Request, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, marketplace.ErrNotFound
	}
	req, err := scanPG(s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM requests WHERE id = $1`, uid.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marketplace.ErrNotFound
		}
		return nil, &marketplace.PersistenceError{Op: "get request", Err: err}
	}
	return req, nil
}

// UpdateClaim applies patch in a single-row UPDATE. There is no version check.
func (s *Postgres) UpdateClaim(ctx context.Context, id string, patch marketplace.ClaimPatch) (*marketplace.Request, error) {
	if patch.Status != "" && !patch.Status.Valid() {
		return nil, &marketplace.PersistenceError{Op: "update claim", Err: fmt.Errorf("invalid claim status %q", patch.Status)}
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, marketplace.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
        UPDATE requests SET
            claim_status = COALESCE(NULLIF($2::text, ''), claim_status),
            claimed_by = COALESCE($3::text, claimed_by),
            claimed_by_name = COALESCE($4::text, claimed_by_name),
            claimed_at = COALESCE($5::timestamptz, claimed_at),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+pgColumns,
		uid.String(), string(patch.Status), patch.ClaimedBy, patch.ClaimedByName, patch.ClaimedAt,
	)
	req, err := scanPG(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marketplace.ErrNotFound
		}
		return nil, &marketplace.PersistenceError{Op: "update claim", Err: err}
	}
	return req, nil
}

// Ping reports whether the database is reachable.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanPG(row pgx.Row) (*marketplace.Request, error) {
	var r marketplace.Request
	var status string
	err := row.Scan(
		&r.ID, &r.Company, &r.ContactName, &r.Email,
		&r.Phone, &r.City, &r.When, &r.Message,
		&r.Urgent, &r.Headcount, &r.Hours, &r.HourlyRate, &r.FeeAmount, &r.DepositAmount,
		&r.PlatformFeeRate, &r.PlatformFeeAmount, &status,
		&r.ClaimedBy, &r.ClaimedByName, &r.ClaimedAt,
		&r.Source, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ClaimStatus = marketplace.ClaimStatus(status)
	return &r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
