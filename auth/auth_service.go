package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/rs/zerolog"
)

// Paths are the backend auth endpoints.
type Paths struct {
	Login       string
	Signup      string
	GoogleLogin string
	Me          string
}

func DefaultPaths() Paths {
	return Paths{
		Login:       "/login-v2",
		Signup:      "/signup",
		GoogleLogin: "/google-login-v2",
		Me:          "/me",
	}
}

// Public lists the endpoints that exchange credentials for a session. Pass
// them to apiclient.WithPublicPaths.
func (p Paths) Public() []string {
	return []string{p.Login, p.Signup, p.GoogleLogin}
}

type ServiceOption func(*Service)

func WithPaths(p Paths) ServiceOption {
	return func(s *Service) {
		s.paths = p
	}
}

func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithGoogleValidation toggles the client side JWT shape check on Google
// credentials. Enabled by default.
func WithGoogleValidation(enabled bool) ServiceOption {
	return func(s *Service) {
		s.checkGoogle = enabled
	}
}

// Service logs users in and out and keeps the session store current.
type Service struct {
	client      *apiclient.Client
	store       *session.Store
	validator   *Validator
	paths       Paths
	log         zerolog.Logger
	checkGoogle bool
}

func NewService(client *apiclient.Client, store *session.Store, opts ...ServiceOption) *Service {
	s := &Service{
		client:      client,
		store:       store,
		validator:   NewValidator(),
		paths:       DefaultPaths(),
		log:         zerolog.Nop(),
		checkGoogle: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*session.User, error) {
	req := apimodel.LoginRequest{Email: email, Password: password}
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, s.paths.Login, req)
}

// Signup registers a new account and logs it in.
func (s *Service) Signup(ctx context.Context, req apimodel.SignupRequest, confirmPassword string) (*session.User, error) {
	if err := s.validator.ValidateSignup(req, confirmPassword); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, s.paths.Signup, req)
}

// GoogleLogin exchanges a Google Identity Services credential for a session.
func (s *Service) GoogleLogin(ctx context.Context, credential string) (*session.User, error) {
	if s.checkGoogle {
		if err := s.validator.ValidateGoogleCredential(credential); err != nil {
			return nil, err
		}
	}
	return s.authenticate(ctx, s.paths.GoogleLogin, apimodel.GoogleLoginRequest{Credential: credential})
}

func (s *Service) authenticate(ctx context.Context, path string, body any) (*session.User, error) {
	resp, err := s.client.Post(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("auth %s: %w", path, err)
	}
	tr, err := apimodel.DecodeTokenResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth %s: %w", path, err)
	}
	if err := s.store.SetSession(ctx, tr.Session("")); err != nil {
		return nil, err
	}
	if tr.User == nil {
		return s.FetchMe(ctx)
	}
	s.log.Info().Str("email", tr.User.Email).Msg("logged in")
	return s.store.User(), nil
}

// FetchMe reloads the current user from the backend.
func (s *Service) FetchMe(ctx context.Context) (*session.User, error) {
	if s.store.AccessToken() == "" {
		return nil, NotAuthenticatedErr
	}
	resp, err := s.client.Get(ctx, s.paths.Me, nil)
	if err != nil {
		return nil, fmt.Errorf("auth me: %w", err)
	}
	var u session.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	if u.Email == "" && u.UUID == "" {
		return nil, MissingUserErr
	}
	if err := s.store.SetUser(ctx, &u); err != nil {
		return nil, err
	}
	return s.store.User(), nil
}

// RefreshSession forces a token refresh through the refresh endpoint. An
// auth failure there logs the session out.
func (s *Service) RefreshSession(ctx context.Context) error {
	if s.store.RefreshToken() == "" {
		return NotAuthenticatedErr
	}
	previous := s.store.RefreshToken()
	resp, err := s.client.Post(ctx, s.client.RefreshPath(), nil)
	if err != nil {
		return fmt.Errorf("auth refresh: %w", err)
	}
	tr, err := apimodel.DecodeTokenResponse(resp.Body)
	if err != nil {
		return fmt.Errorf("auth refresh: %w", err)
	}
	sess := tr.Session(previous)
	return s.store.SetTokens(ctx, sess.AccessToken, sess.RefreshToken)
}

// Logout clears the local session.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Status describes the current session.
type Status struct {
	Authenticated bool
	User          *session.User
	ExpiresIn     time.Duration // zero when the access token expiry is unknown
}

func (s *Service) Status() Status {
	snap := s.store.Snapshot()
	st := Status{Authenticated: snap.Authenticated(), User: snap.User}
	if d, ok := snap.ExpiresIn(time.Now()); ok {
		st.ExpiresIn = d
	}
	return st
}
