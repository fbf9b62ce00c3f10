// Package apiclient is the authenticated HTTP client for the generation API.
//
// Every request carries the session's access token. When the server rejects
// a token as expired, the client refreshes it once, replays the request and
// replays every other request that failed while the refresh was in flight,
// in arrival order. If the refresh fails the session is cleared and all of
// those requests fail with the refresh error.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	DefaultRefreshPath    = "/refresh-token"
	DefaultRefreshTimeout = 15 * time.Second
	maxBodyBytes          = 32 << 20
)

// DefaultPublicPaths are the credential exchange endpoints. A rejection
// there means bad credentials, not an expired session.
var DefaultPublicPaths = []string{"/login-v2", "/signup", "/google-login-v2"}

// TokenStore is the session state the client reads tokens from and writes
// refreshed tokens to. *session.Store satisfies it.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// reloader is implemented by stores that can re-read persisted state, which
// the cross-process refresh lock relies on.
type reloader interface {
	Reload(ctx context.Context) error
}

type Client struct {
	baseURL        string
	tokens         TokenStore
	httpClient     *http.Client
	log            zerolog.Logger
	refreshPath    string
	authStatuses   map[int]struct{}
	publicPaths    map[string]struct{}
	refreshTimeout time.Duration
	refreshFn      RefreshFunc
	reporter       Reporter
	metrics        *metrics
	lockPath       string
	userAgent      string

	mu         sync.Mutex
	refreshing bool
	queue      []*pending
}

// New creates a client bound to baseURL.
func New(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("apiclient.New: empty base URL")
	}
	if tokens == nil {
		return nil, fmt.Errorf("apiclient.New: nil token store")
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokens:         tokens,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		log:            zerolog.Nop(),
		refreshPath:    DefaultRefreshPath,
		authStatuses:   map[int]struct{}{http.StatusUnauthorized: {}},
		publicPaths:    pathSet(DefaultPublicPaths),
		refreshTimeout: DefaultRefreshTimeout,
		userAgent:      "go-imagen-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.refreshFn == nil {
		c.refreshFn = c.defaultRefresh
	}
	if c.reporter == nil {
		c.reporter = logReporter{log: c.log}
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) RefreshPath() string {
	return c.refreshPath
}

// Do sends req, refreshing the session and replaying req when the access
// token has expired.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	at, err := newAttempt(req)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, at)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) execute(ctx context.Context, at *attempt) (*Response, error) {
	resp, err := c.send(ctx, at)
	if err == nil {
		return resp, nil
	}
	return c.handleError(ctx, at, err)
}

// send performs one HTTP round trip without any recovery.
func (c *Client) send(ctx context.Context, at *attempt) (*Response, error) {
	req := at.req
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if r := at.bodyReader(); r != nil {
		body = r
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build %s %s: %w", req.Method, req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if at.body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	at.sentToken = c.authorize(httpReq, req.Path)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(req.Method, 0)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	c.metrics.observeRequest(req.Method, httpResp.StatusCode)
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: read body: %w", ErrNetwork, req.Method, req.Path, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Bool("retried", at.retried).
		Msg("api request")

	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: httpResp.StatusCode,
			Message:    apimodel.ErrorMessage(data),
			Body:       data,
		}
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Data:       envelopeData(data),
	}, nil
}

// authorize sets the bearer header and returns the access token used, if any.
// The refresh endpoint gets the refresh token when one is present; public
// paths get no token.
func (c *Client) authorize(req *http.Request, path string) string {
	if c.isPublic(path) {
		return ""
	}
	if path == c.refreshPath {
		if refresh := c.tokens.RefreshToken(); refresh != "" {
			(&oauth2.Token{AccessToken: refresh, TokenType: "Bearer"}).SetAuthHeader(req)
			return ""
		}
	}
	access := c.tokens.AccessToken()
	if access != "" {
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	return access
}

func (c *Client) isAuthFailure(status int) bool {
	_, ok := c.authStatuses[status]
	return ok
}

func (c *Client) isPublic(path string) bool {
	_, ok := c.publicPaths[path]
	return ok
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// handleError routes a failed send. Auth failures on ordinary requests go to
// the refresh coordinator; auth failures on the refresh endpoint or on a
// request that was already replayed log the session out, and on public paths
// they are returned unchanged. Everything else is returned as is, and
// reported unless it is a 404 or a cancellation.
func (c *Client) handleError(ctx context.Context, at *attempt, err error) (*Response, error) {
	kind := c.Classify(err)
	if kind != KindAuthExpired {
		if kind != KindNotFound && kind != KindCanceled {
			c.reporter.Report(ctx, kind, err)
		}
		return nil, err
	}

	if c.isPublic(at.req.Path) {
		return nil, err
	}
	if at.req.Path == c.refreshPath || at.retried {
		c.log.Info().Str("path", at.req.Path).Bool("retried", at.retried).Msg("authentication rejected, logging out")
		c.logout(ctx)
		return nil, err
	}
	return c.refreshAndReplay(ctx, at)
}

func (c *Client) logout(ctx context.Context) {
	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.log.Error().Err(err).Msg("failed to clear session")
	}
}

// defaultRefresh calls the refresh endpoint with the refresh token as bearer.
func (c *Client) defaultRefresh(ctx context.Context, refreshToken string) (string, string, error) {
	at, err := newAttempt(&Request{Method: http.MethodPost, Path: c.refreshPath})
	if err != nil {
		return "", "", err
	}
	resp, err := c.send(ctx, at)
	if err != nil {
		return "", "", err
	}
	tr, err := apimodel.DecodeTokenResponse(resp.Body)
	if err != nil {
		return "", "", err
	}
	s := tr.Session(refreshToken)
	return s.AccessToken, s.RefreshToken, nil
}
