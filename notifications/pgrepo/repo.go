// Package pgrepo reads the notifications table from Postgres.
package pgrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/pkg/errors"
)

var _ notifications.Repo = (*Repo)(nil)

const DefaultTable = "notifications"

type Config struct {
	URL          string
	Table        string
	MaxConns     int32
	QueryTimeout time.Duration
}

type Repo struct {
	pool         *pgxpool.Pool
	table        string // sanitized identifier
	queryTimeout time.Duration
	owned        bool

	qList  string
	qCount string
}

// Open connects a pool to cfg.URL and checks it is reachable.
func Open(ctx context.Context, cfg Config) (*Repo, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse pool config")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(hctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping db")
	}

	r := New(pool, cfg.Table, cfg.QueryTimeout)
	r.owned = true
	return r, nil
}

// New reads table through an existing pool. table may be schema qualified.
func New(pool *pgxpool.Pool, table string, queryTimeout time.Duration) *Repo {
	ident := Identifier(table)
	return &Repo{
		pool:         pool,
		table:        ident,
		queryTimeout: queryTimeout,
		qList: fmt.Sprintf(`
SELECT id::text, user_uuid::text, COALESCE(event_type, ''), status, COALESCE(seen, false), created_at, COALESCE(data, '')
FROM %s
WHERE user_uuid::text = $1 AND status > 1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`, ident),
		qCount: fmt.Sprintf(`
SELECT count(*)
FROM %s
WHERE user_uuid::text = $1 AND status > 1;
`, ident),
	}
}

// Identifier quotes a possibly schema qualified table name.
func Identifier(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

// Close releases the pool if Open created it.
func (r *Repo) Close() error {
	if r.owned {
		r.pool.Close()
	}
	return nil
}

func (r *Repo) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func (r *Repo) List(ctx context.Context, userUUID string, rng notifications.Range) ([]notifications.Record, error) {
	if rng.Len() <= 0 {
		return nil, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, r.qList, userUUID, rng.Len(), rng.From)
	if err != nil {
		return nil, errors.Wrap(err, "query notifications")
	}
	defer rows.Close()

	out := make([]notifications.Record, 0, rng.Len())
	for rows.Next() {
		var (
			rec    notifications.Record
			status int32
		)
		if err := rows.Scan(&rec.ID, &rec.UserUUID, &rec.EventType, &status, &rec.Seen, &rec.CreatedAt, &rec.Data); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		rec.Status = notifications.Status(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, userUUID string) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := r.pool.QueryRow(ctx, r.qCount, userUUID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count notifications")
	}
	return int(n), nil
}
