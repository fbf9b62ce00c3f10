// Package redisstore persists client state in Redis so that several processes
// (for example a CLI and a background watcher) can share one session.
package redisstore

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jrsteele09/go-imagen-client/storage"
)

var _ storage.Repo = (*Repo)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Repo struct {
	client *redis.Client
	prefix string
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Repo, error) {
	const op = "storage.redis.Open"

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(client, opts.Prefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Repo {
	return &Repo{client: client, prefix: prefix}
}

func (r *Repo) Load(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.redis.Load"

	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (r *Repo) Save(ctx context.Context, key string, value []byte) error {
	const op = "storage.redis.Save"

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	const op = "storage.redis.Delete"

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repo) Close() error {
	return r.client.Close()
}

func (r *Repo) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}
