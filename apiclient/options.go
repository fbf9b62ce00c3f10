package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// RefreshFunc exchanges a refresh token for a new token pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (access, refresh string, err error)

type Option func(*Client)

// WithHTTPClient sets the http.Client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithRefreshPath sets the endpoint that receives the refresh token as bearer.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithAuthFailureStatuses sets the statuses that mean "access token expired".
func WithAuthFailureStatuses(statuses ...int) Option {
	return func(c *Client) {
		if len(statuses) == 0 {
			return
		}
		c.authStatuses = make(map[int]struct{}, len(statuses))
		for _, s := range statuses {
			c.authStatuses[s] = struct{}{}
		}
	}
}

// WithPublicPaths replaces the endpoints that are called without a bearer
// token and whose auth failures skip the refresh coordinator.
func WithPublicPaths(paths ...string) Option {
	return func(c *Client) {
		c.publicPaths = pathSet(paths)
	}
}

// WithRefreshTimeout bounds a single refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithRefreshFunc replaces the default call to the refresh endpoint.
func WithRefreshFunc(fn RefreshFunc) Option {
	return func(c *Client) {
		c.refreshFn = fn
	}
}

// WithReporter sets where unhandled failures are surfaced.
func WithReporter(r Reporter) Option {
	return func(c *Client) {
		c.reporter = r
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newMetrics(reg)
	}
}

// WithRefreshLock serialises refreshes across processes sharing one
// persisted session by holding an exclusive lock on path.
func WithRefreshLock(path string) Option {
	return func(c *Client) {
		c.lockPath = path
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}
