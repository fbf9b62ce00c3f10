package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-imagen-client/storage"
	"github.com/rs/zerolog"
)

// StorageKey is the key the session is persisted under.
const StorageKey = "authStore"

// ClearHook runs after the session has been cleared. It is the point where
// a front end sends the user back to the login screen.
type ClearHook func()

type StoreOption func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// WithStorageKey overrides StorageKey, e.g. to keep several accounts apart.
func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		s.key = key
	}
}

// OnClear registers a hook invoked after every Clear.
func OnClear(hook ClearHook) StoreOption {
	return func(s *Store) {
		s.hooks = append(s.hooks, hook)
	}
}

// Store holds the session and keeps it persisted. All reads and writes are
// atomic with respect to each other; a reader never sees half of a token pair.
type Store struct {
	repo  storage.Repo
	key   string
	log   zerolog.Logger
	hooks []ClearHook

	mu      sync.RWMutex
	session Session
}

// NewStore creates a store and restores any persisted session.
func NewStore(ctx context.Context, repo storage.Repo, opts ...StoreOption) (*Store, error) {
	s := &Store{
		repo: repo,
		key:  StorageKey,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.RefreshToken
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.session.User)
}

// Snapshot returns a copy of the whole session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		AccessToken:  s.session.AccessToken,
		RefreshToken: s.session.RefreshToken,
		User:         copyUser(s.session.User),
	}
}

func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// SetTokens replaces both tokens together and persists the result.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.AccessToken = access
	s.session.RefreshToken = refresh
	return s.persistLocked(ctx)
}

// SetSession replaces the session after a login, signup or social login.
func (s *Store) SetSession(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		User:         copyUser(sess.User),
	}
	return s.persistLocked(ctx)
}

// SetUser replaces the stored user profile.
func (s *Store) SetUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.User = copyUser(u)
	return s.persistLocked(ctx)
}

// Clear resets the session, removes it from storage and runs the clear hooks.
// The in-memory session is cleared even if storage fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.session = Session{}
	err := s.repo.Delete(ctx, s.key)
	hooks := s.hooks
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to delete persisted session")
		err = fmt.Errorf("session.Clear: %w", err)
	}
	for _, hook := range hooks {
		hook()
	}
	return err
}

// Reload replaces the in-memory session with the persisted one. A missing
// or unreadable entry leaves an empty session.
func (s *Store) Reload(ctx context.Context) error {
	data, err := s.repo.Load(ctx, s.key)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.session = Session{}
		return nil
	case err != nil:
		return fmt.Errorf("session.Reload: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("discarding unreadable persisted session")
		s.session = Session{}
		return nil
	}
	s.session = sess
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.session)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.repo.Save(ctx, s.key, data); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to persist session")
		return fmt.Errorf("session persist: %w", err)
	}
	return nil
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
