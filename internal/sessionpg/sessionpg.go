// Package sessionpg is a [session.Backend] that persists session metadata
// and an execution audit trail to PostgreSQL via pgx, while keeping each
// session's live [codemode.CodeMode] in an in-process cache.
//
// A code-mode session's real state — open MCP connections, in-process
// callback closures — cannot survive a process restart no matter where its
// metadata lives, so this backend does not try to resurrect live sessions
// after a crash. What it gives an operator is continuity of the audit trail
// (when a session was created, how many executions it ran, whether they
// succeeded) across restarts, and a multi-instance-safe session existence
// check when this process is one of several behind a load balancer.
package sessionpg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lambdamechanic/pctxgo/internal/session"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS pctx_sessions (
    id           UUID        PRIMARY KEY,
    created_at   TIMESTAMPTZ NOT NULL,
    execution_count  BIGINT  NOT NULL DEFAULT 0,
    error_count      BIGINT  NOT NULL DEFAULT 0,
    closed_at    TIMESTAMPTZ
);
`

// Backend implements session.Backend against PostgreSQL.
type Backend struct {
	pool *pgxpool.Pool

	mu    sync.RWMutex
	cache map[uuid.UUID]*session.Session
}

var _ session.Backend = (*Backend)(nil)

// NewBackend connects to dsn, runs its migration, and returns a ready
// Backend.
func NewBackend(ctx context.Context, dsn string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionpg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sessionpg: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlSessions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sessionpg: migrate: %w", err)
	}
	return &Backend{pool: pool, cache: make(map[uuid.UUID]*session.Session)}, nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() {
	b.pool.Close()
}

func (b *Backend) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	b.mu.RLock()
	s, ok := b.cache[id]
	b.mu.RUnlock()
	if ok {
		return s, nil
	}

	var exists bool
	err := b.pool.QueryRow(ctx, `SELECT true FROM pctx_sessions WHERE id = $1 AND closed_at IS NULL`, id).Scan(&exists)
	if err == pgx.ErrNoRows || !exists {
		return nil, fmt.Errorf("sessionpg: %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sessionpg: get %s: %w", id, err)
	}
	// Session metadata survived a restart, but its live CodeMode did not —
	// the caller must re-register servers/callbacks before using it.
	return nil, fmt.Errorf("sessionpg: %s exists in storage but has no live CodeMode in this process", id)
}

func (b *Backend) Insert(ctx context.Context, s *session.Session) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO pctx_sessions (id, created_at) VALUES ($1, $2)`,
		s.ID, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("sessionpg: insert %s: %w", s.ID, err)
	}

	b.mu.Lock()
	b.cache[s.ID] = s
	b.mu.Unlock()
	return nil
}

func (b *Backend) Update(_ context.Context, s *session.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[s.ID] = s
	return nil
}

func (b *Backend) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := b.pool.Exec(ctx, `UPDATE pctx_sessions SET closed_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("sessionpg: delete %s: %w", id, err)
	}
	b.mu.Lock()
	delete(b.cache, id)
	b.mu.Unlock()
	return nil
}

func (b *Backend) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := b.pool.QueryRow(ctx, `SELECT true FROM pctx_sessions WHERE id = $1 AND closed_at IS NULL`, id).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sessionpg: exists %s: %w", id, err)
	}
	return exists, nil
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	var count int
	err := b.pool.QueryRow(ctx, `SELECT count(*) FROM pctx_sessions WHERE closed_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sessionpg: count: %w", err)
	}
	return count, nil
}

func (b *Backend) List(_ context.Context) ([]*session.Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*session.Session, 0, len(b.cache))
	for _, s := range b.cache {
		out = append(out, s)
	}
	return out, nil
}

func (b *Backend) PostExecution(ctx context.Context, id uuid.UUID, success bool) error {
	column := "execution_count"
	if !success {
		column = "error_count"
	}
	_, err := b.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE pctx_sessions SET %s = %s + 1 WHERE id = $1`, column, column),
		id)
	if err != nil {
		return fmt.Errorf("sessionpg: post-execution %s: %w", id, err)
	}
	return nil
}
