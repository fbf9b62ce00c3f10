package pgrepo

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/pkg/errors"
)

// EnsureSchema creates the notifications table when it does not exist.
// Deployments normally own the table; this serves local databases.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         BIGSERIAL PRIMARY KEY,
	user_uuid  TEXT NOT NULL,
	event_type TEXT,
	status     INTEGER NOT NULL DEFAULT 1,
	seen       BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	data       TEXT
);`, r.table))
	return errors.Wrap(err, "create notifications table")
}

// Insert adds a row and fills in the generated id and timestamp.
func (r *Repo) Insert(ctx context.Context, rec *notifications.Record) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := fmt.Sprintf(`
INSERT INTO %s (user_uuid, event_type, status, seen, created_at, data)
VALUES ($1, $2, $3, $4, COALESCE($5, now()), $6)
RETURNING id::text, created_at;`, r.table)

	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}
	err := r.pool.QueryRow(ctx, q,
		rec.UserUUID,
		rec.EventType,
		int32(rec.Status),
		rec.Seen,
		createdAt,
		rec.Data,
	).Scan(&rec.ID, &rec.CreatedAt)
	return errors.Wrap(err, "insert notification")
}
