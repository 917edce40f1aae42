package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// EnsureSchema creates or upgrades the requests table. Every step is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if err := ensureRequestsTable(ctx, pool); err != nil {
		return err
	}
	if err := ensureRequestsColumns(ctx, pool, logger); err != nil {
		return err
	}
	if err := ensureClaimStatusConstraint(ctx, pool); err != nil {
		return err
	}
	logger.Info("requests schema ensured")
	return nil
}

func ensureRequestsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS requests (
            id UUID PRIMARY KEY,
            company TEXT NOT NULL,
            contact_name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NULL,
            city TEXT NULL,
            requested_start TEXT NULL,
            message TEXT NULL,
            urgent BOOLEAN NOT NULL DEFAULT FALSE,
            headcount INTEGER NOT NULL,
            hours INTEGER NOT NULL,
            hourly_rate DOUBLE PRECISION NOT NULL,
            fee_amount BIGINT NOT NULL,
            deposit_amount BIGINT NOT NULL,
            platform_fee_rate DOUBLE PRECISION NOT NULL,
            platform_fee_amount BIGINT NOT NULL,
            claim_status TEXT NOT NULL DEFAULT 'open',
            claimed_by TEXT NULL,
            claimed_by_name TEXT NULL,
            claimed_at TIMESTAMP WITH TIME ZONE NULL,
            source TEXT NOT NULL DEFAULT 'website',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_requests_claim_status ON requests(claim_status);
        CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
    `)
	if err != nil {
		return fmt.Errorf("create requests table: %w", err)
	}
	return nil
}

// ensureRequestsColumns backfills columns added after the first deployment.
func ensureRequestsColumns(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	columns := []struct {
		name, ddl string
	}{
		{"urgent", `ALTER TABLE requests ADD COLUMN IF NOT EXISTS urgent BOOLEAN NOT NULL DEFAULT FALSE`},
		{"hourly_rate", `ALTER TABLE requests ADD COLUMN IF NOT EXISTS hourly_rate DOUBLE PRECISION NOT NULL DEFAULT 0`},
		{"source", `ALTER TABLE requests ADD COLUMN IF NOT EXISTS source TEXT NOT NULL DEFAULT 'website'`},
	}
	for _, col := range columns {
		var exists bool
		err := pool.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM information_schema.columns
                WHERE table_schema = 'public' AND table_name = 'requests' AND column_name = $1
            )`, col.name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("schema check %s: %w", col.name, err)
		}
		if exists {
			continue
		}
		if _, err := pool.Exec(ctx, col.ddl); err != nil {
			return fmt.Errorf("add requests.%s: %w", col.name, err)
		}
		logger.Info("column added", zap.String("column", "requests."+col.name))
	}
	return nil
}

// ensureClaimStatusConstraint replaces the status CHECK so it always matches
// the states the claim service writes.
func ensureClaimStatusConstraint(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `ALTER TABLE requests DROP CONSTRAINT IF EXISTS requests_claim_status_check`)
	if err != nil {
		return fmt.Errorf("drop claim status constraint: %w", err)
	}
	_, err = pool.Exec(ctx, `
        ALTER TABLE requests
        ADD CONSTRAINT requests_claim_status_check
        CHECK (claim_status IN ('open', 'claimed', 'in_progress'))`)
	if err != nil {
		return fmt.Errorf("add claim status constraint: %w", err)
	}
	return nil
}
