package worker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Resources provisions the backing resources a compute function may need.
// A Handle is acquired per task execution and released on every exit path;
// acquisition is safe from many worker processes concurrently.
type Resources struct {
	pool *pgxpool.Pool
}

// NewResources wraps a pgx pool. A nil pool is allowed for compute
// functions that need no data store (and for tests); their handles carry
// no connection.
func NewResources(pool *pgxpool.Pool) *Resources {
	return &Resources{pool: pool}
}

// Handle is a scoped data-store handle held for one task execution.
type Handle struct {
	conn *pgxpool.Conn
}

// Acquire checks a connection out of the pool for the duration of one
// task execution.
func (r *Resources) Acquire(ctx context.Context) (*Handle, error) {
	if r == nil || r.pool == nil {
		return &Handle{}, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire data store handle: %w", err)
	}
	return &Handle{conn: conn}, nil
}

// Conn returns the underlying connection, or nil when the handle carries
// none.
func (h *Handle) Conn() *pgxpool.Conn {
	if h == nil {
		return nil
	}
	return h.conn
}

// Release returns the connection to the pool. Safe to call on handles
// without a connection and safe to call more than once.
func (h *Handle) Release() {
	if h == nil || h.conn == nil {
		return
	}
	h.conn.Release()
	h.conn = nil
}
