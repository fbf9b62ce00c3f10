package pgrealtime_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/jrsteele09/go-imagen-client/notifications/pgrealtime"
	"github.com/jrsteele09/go-imagen-client/notifications/pgrepo"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	rec, err := pgrealtime.DecodePayload(`{"type":"INSERT","table":"notifications","record":{"id":12,"user_uuid":"u-1","event_type":"video","status":2,"seen":false,"created_at":"2025-03-10T12:00:00.5+00:00","data":"U2Fs"}}`)
	require.NoError(t, err)
	require.Equal(t, "12", rec.ID)
	require.Equal(t, "u-1", rec.UserUUID)
	require.Equal(t, notifications.StatusSuccess, rec.Status)
	require.Equal(t, "U2Fs", rec.Data)

	_, err = pgrealtime.DecodePayload(`{"type":"UPDATE","table":"notifications","record":{"id":12}}`)
	require.ErrorIs(t, err, pgrealtime.ErrIgnored)

	_, err = pgrealtime.DecodePayload(`not json`)
	require.Error(t, err)
	require.NotErrorIs(t, err, pgrealtime.ErrIgnored)
}

func TestTriggerSQL(t *testing.T) {
	sql := pgrealtime.TriggerSQL("public.notifications", "it's")
	require.Contains(t, sql, `ON "public"."notifications"`)
	require.Contains(t, sql, `pg_notify('it''s'`)
	require.Contains(t, sql, `CREATE OR REPLACE FUNCTION "notifications_it's_notify"()`)
	require.Contains(t, pgrealtime.TriggerSQL("notifications", ""), "'notifications_changes'")
}

func TestDefaultBackoff(t *testing.T) {
	b := pgrealtime.DefaultBackoff()
	first := b.NextBackOff()
	require.GreaterOrEqual(t, first, 400*time.Millisecond)
	require.LessOrEqual(t, first, 600*time.Millisecond)

	for range 20 {
		require.LessOrEqual(t, b.NextBackOff(), 36*time.Second)
	}

	b.Reset()
	require.LessOrEqual(t, b.NextBackOff(), 600*time.Millisecond)
}

// scriptedConn replays payloads, then either drops or blocks until the
// context ends.
type scriptedConn struct {
	payloads []string
	drop     bool
	closed   atomic.Bool
}

func (c *scriptedConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("LISTEN"), nil
}

func (c *scriptedConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	if len(c.payloads) > 0 {
		p := c.payloads[0]
		c.payloads = c.payloads[1:]
		return &pgconn.Notification{Channel: pgrealtime.DefaultChannel, Payload: p}, nil
	}
	if c.drop {
		return nil, errors.New("connection reset by peer")
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *scriptedConn) Close(context.Context) error {
	c.closed.Store(true)
	return nil
}

func insertPayload(id, user string) string {
	return fmt.Sprintf(`{"type":"INSERT","table":"notifications","record":{"id":%q,"user_uuid":%q,"status":2}}`, id, user)
}

func TestSubscribeReconnects(t *testing.T) {
	conns := []*scriptedConn{
		{payloads: []string{insertPayload("1", "u-1")}, drop: true},
		{payloads: []string{insertPayload("2", "u-2"), insertPayload("3", "u-1")}},
	}
	var (
		mu        sync.Mutex
		dials     int
		got       []string
		reconnect []int // len(got) when the hook ran
	)
	sub := pgrealtime.New(pgrealtime.Config{
		Backoff: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) },
	}, pgrealtime.WithOnReconnect(func(context.Context) {
		mu.Lock()
		defer mu.Unlock()
		reconnect = append(reconnect, len(got))
	}))
	pgrealtime.SetDial(sub, func(context.Context, string) (pgrealtime.ListenConn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		if dials == 2 {
			return nil, errors.New("connection refused")
		}
		return conns[min(dials/2, 1)], nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sub.Subscribe(ctx, "u-1", func(rec notifications.Record) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, rec.ID)
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"1", "3"}, got)
	require.Equal(t, []int{1}, reconnect)
	require.Equal(t, 3, dials)
	require.True(t, conns[0].closed.Load())
}

func TestSubscribeGivesUp(t *testing.T) {
	sub := pgrealtime.New(pgrealtime.Config{
		Backoff: func() backoff.BackOff { return &backoff.StopBackOff{} },
	})
	pgrealtime.SetDial(sub, func(context.Context, string) (pgrealtime.ListenConn, error) {
		return nil, errors.New("connection refused")
	})

	err := sub.Subscribe(context.Background(), "u-1", func(notifications.Record) {})
	require.ErrorContains(t, err, "giving up after 1 attempts")
	require.ErrorContains(t, err, "connection refused")
}

// TestSubscribeReceivesInserts needs a database; set IMAGEN_TEST_DATABASE_URL to run it.
func TestSubscribeReceivesInserts(t *testing.T) {
	url := os.Getenv("IMAGEN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("IMAGEN_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := "notifications_rt_" + strings.ReplaceAll(time.Now().Format("150405.000"), ".", "")
	channel := table + "_changes"
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+pgrepo.Identifier(table))
	})

	repo := pgrepo.New(pool, table, 0)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, pgrealtime.Install(ctx, pool, table, channel))

	sub := pgrealtime.New(pgrealtime.Config{URL: url, Channel: channel})
	got := make(chan notifications.Record, 1)
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = sub.Subscribe(subCtx, "u-1", func(rec notifications.Record) {
			select {
			case got <- rec:
			default:
			}
		})
	}()

	// inserts before LISTEN is active are not delivered, so keep inserting until one arrives
	require.Eventually(t, func() bool {
		if err := repo.Insert(ctx, &notifications.Record{UserUUID: "u-2", Status: notifications.StatusSuccess}); err != nil {
			return false
		}
		if err := repo.Insert(ctx, &notifications.Record{UserUUID: "u-1", Status: notifications.StatusSuccess, Data: "x"}); err != nil {
			return false
		}
		select {
		case rec := <-got:
			return rec.UserUUID == "u-1" && rec.Data == "x"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
