package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// pending is a request that hit an auth failure while a refresh was already
// in flight. It is replayed, or rejected, once that refresh settles.
type pending struct {
	ctx  context.Context
	at   *attempt
	done chan result // buffered so the drain never blocks on a departed waiter
}

type result struct {
	resp *Response
	err  error
}

// refreshAndReplay is the refresh state machine. The first caller to arrive
// while idle becomes the leader: it refreshes, takes the queue and returns
// the client to idle, then replays its own request followed by the queued
// ones. Callers arriving during the refresh are queued; an auth failure
// after the refresh settles starts a new one.
func (c *Client) refreshAndReplay(ctx context.Context, at *attempt) (*Response, error) {
	c.mu.Lock()
	if c.refreshing {
		p := &pending{ctx: ctx, at: at, done: make(chan result, 1)}
		c.queue = append(c.queue, p)
		c.metrics.pending.Inc()
		c.mu.Unlock()

		select {
		case r := <-p.done:
			return r.resp, r.err
		case <-ctx.Done():
			return nil, fmt.Errorf("%s %s: waiting for token refresh: %w", at.req.Method, at.req.Path, ctx.Err())
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	if err := c.refresh(ctx, at.sentToken); err != nil {
		refreshErr := fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		c.log.Warn().Err(err).Msg("token refresh failed, logging out")
		c.logout(ctx)
		c.rejectQueued(refreshErr)
		return nil, refreshErr
	}

	queued := c.settle()
	at.retried = true
	resp, err := c.execute(ctx, at)
	c.metrics.replays.WithLabelValues(outcome(err)).Inc()
	go c.drain(queued)
	return resp, err
}

// settle returns to idle and hands back the requests queued behind the
// refresh that just completed.
func (c *Client) settle() []*pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	queued := c.queue
	c.queue = nil
	c.refreshing = false
	return queued
}

// refresh obtains a new token pair unless the token that failed has already
// been replaced, in which case replaying with the current token is enough.
func (c *Client) refresh(ctx context.Context, staleToken string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	if c.lockPath != "" {
		unlock, err := c.lockRefresh(ctx)
		if err != nil {
			c.metrics.refreshes.WithLabelValues("failure").Inc()
			return err
		}
		defer unlock()
	}

	if current := c.tokens.AccessToken(); current != "" && current != staleToken {
		c.log.Debug().Msg("access token already rotated, skipping refresh")
		c.metrics.refreshes.WithLabelValues("skipped").Inc()
		return nil
	}

	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		c.metrics.refreshes.WithLabelValues("failure").Inc()
		return ErrNoRefreshToken
	}

	access, refresh, err := c.refreshFn(ctx, refreshToken)
	if err == nil && access == "" {
		err = errors.New("refresh returned an empty access token")
	}
	if err == nil {
		err = c.tokens.SetTokens(ctx, access, refresh)
	}
	c.metrics.refreshes.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return err
	}
	c.log.Debug().Msg("access token refreshed")
	return nil
}

// lockRefresh takes the cross-process refresh lock and reloads the store so
// that a refresh completed by another process is picked up.
func (c *Client) lockRefresh(ctx context.Context) (func(), error) {
	fl := flock.New(c.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("refresh lock %s: %w", c.lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("refresh lock %s: not acquired", c.lockPath)
	}
	unlock := func() {
		if err := fl.Unlock(); err != nil {
			c.log.Warn().Err(err).Str("path", c.lockPath).Msg("failed to release refresh lock")
		}
	}
	if r, ok := c.tokens.(reloader); ok {
		if err := r.Reload(ctx); err != nil {
			unlock()
			return nil, fmt.Errorf("reload session: %w", err)
		}
	}
	return unlock, nil
}

// drain replays queued requests one at a time in arrival order.
func (c *Client) drain(queued []*pending) {
	for _, p := range queued {
		c.metrics.pending.Dec()
		if err := p.ctx.Err(); err != nil {
			c.metrics.replays.WithLabelValues("canceled").Inc()
			p.done <- result{err: err}
			continue
		}
		p.at.retried = true
		resp, err := c.execute(p.ctx, p.at)
		c.metrics.replays.WithLabelValues(outcome(err)).Inc()
		p.done <- result{resp: resp, err: err}
	}
}

// rejectQueued fails every queued request with err and returns to idle.
func (c *Client) rejectQueued(err error) {
	c.mu.Lock()
	queued := c.queue
	c.queue = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, p := range queued {
		c.metrics.pending.Dec()
		p.done <- result{err: err}
	}
}
