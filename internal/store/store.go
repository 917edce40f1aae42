// Package store persists requests. Postgres serves production; SQLite backs
// local runs and tests. Both satisfy marketplace.Repository.
package store

import (
	"context"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

// Store is a request gateway that can report its health.
type Store interface {
	marketplace.Repository
	Ping(ctx context.Context) error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)
