// Package pgrealtime streams inserts into the notifications table over
// Postgres LISTEN/NOTIFY.
//
// A trigger (see Install) publishes every change as
// {"type": "INSERT", "table": "notifications", "record": {...}} on a
// channel. The subscriber holds one dedicated connection, reconnecting
// with backoff when it drops, and hands INSERTs for the subscribed user to
// the callback. Inserts made while the connection is down are not replayed;
// WithOnReconnect lets the caller reload instead.
package pgrealtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	imetrics "github.com/jrsteele09/go-imagen-client/internal/metrics"
	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var _ notifications.Subscriber = (*Subscriber)(nil)

const DefaultChannel = "notifications_changes"

// ErrIgnored is returned by DecodePayload for events other than inserts.
var ErrIgnored = errors.New("pgrealtime: event ignored")

// Payload is the message the trigger publishes.
type Payload struct {
	Type   string          `json:"type"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// DecodePayload parses a notification message. Only INSERT events produce
// a record; anything else yields ErrIgnored.
func DecodePayload(raw string) (notifications.Record, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return notifications.Record{}, fmt.Errorf("decode realtime payload: %w", err)
	}
	if p.Type != "INSERT" {
		return notifications.Record{}, ErrIgnored
	}
	var rec notifications.Record
	if err := json.Unmarshal(p.Record, &rec); err != nil {
		return notifications.Record{}, fmt.Errorf("decode realtime record: %w", err)
	}
	return rec, nil
}

type Config struct {
	URL     string
	Channel string
	// Backoff builds the retry policy for one Subscribe call. Defaults to
	// DefaultBackoff.
	Backoff func() backoff.BackOff
}

type Option func(*Subscriber)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Subscriber) {
		s.log = log
	}
}

func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Subscriber) {
		s.events = newEventCounter(reg)
	}
}

// WithOnReconnect calls fn each time LISTEN is re-established after the
// connection was lost. fn runs before any further insert is delivered.
func WithOnReconnect(fn func(ctx context.Context)) Option {
	return func(s *Subscriber) {
		s.onReconnect = fn
	}
}

// listenConn is the part of *pgx.Conn the subscriber uses.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type Subscriber struct {
	url         string
	channel     string
	newBackoff  func() backoff.BackOff
	log         zerolog.Logger
	events      *prometheus.CounterVec
	onReconnect func(ctx context.Context)
	dial        func(ctx context.Context, url string) (listenConn, error)
}

func New(cfg Config, opts ...Option) *Subscriber {
	s := &Subscriber{
		url:        cfg.URL,
		channel:    cfg.Channel,
		newBackoff: cfg.Backoff,
		log:        zerolog.Nop(),
		dial:       dialPgx,
	}
	if s.channel == "" {
		s.channel = DefaultChannel
	}
	if s.newBackoff == nil {
		s.newBackoff = DefaultBackoff
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = newEventCounter(nil)
	}
	return s
}

func newEventCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	return imetrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imagen_realtime_events_total",
		Help: "Realtime notification events received, by outcome.",
	}, []string{"outcome"}))
}

func dialPgx(ctx context.Context, url string) (listenConn, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Subscribe listens until ctx ends. Connection failures are retried with
// backoff; the returned error is ctx's unless the backoff gives up.
func (s *Subscriber) Subscribe(ctx context.Context, userUUID string, fn func(notifications.Record)) error {
	b := s.newBackoff()
	b.Reset()
	lost := false
	connected := func() {
		b.Reset()
		if lost && s.onReconnect != nil {
			s.onReconnect(ctx)
		}
	}
	for attempt := 1; ; attempt++ {
		err := s.listen(ctx, userUUID, fn, connected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lost = true
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("realtime: giving up after %d attempts: %w", attempt, err)
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("realtime connection lost")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// listen runs one connection. connected is called once LISTEN succeeds.
func (s *Subscriber) listen(ctx context.Context, userUUID string, fn func(notifications.Record), connected func()) error {
	conn, err := s.dial(ctx, s.url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", s.channel, err)
	}
	connected()
	s.log.Debug().Str("channel", s.channel).Msg("listening for notifications")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		rec, err := DecodePayload(n.Payload)
		switch {
		case errors.Is(err, ErrIgnored):
			s.events.WithLabelValues("ignored").Inc()
			continue
		case err != nil:
			s.events.WithLabelValues("invalid").Inc()
			s.log.Warn().Err(err).Msg("discarding realtime payload")
			continue
		}
		if rec.UserUUID != userUUID {
			s.events.WithLabelValues("other_user").Inc()
			continue
		}
		s.events.WithLabelValues("delivered").Inc()
		fn(rec)
	}
}
