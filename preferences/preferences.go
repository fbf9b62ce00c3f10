// Package preferences keeps the user's generation defaults, persisted
// locally and synchronised with the account.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
	"github.com/jrsteele09/go-imagen-client/storage"
	"github.com/rs/zerolog"
)

// StorageKey is the key preferences are persisted under.
const StorageKey = "userStore"

const (
	DefaultModel = "imagen-v2"

	preferencesPath = "/user/preferences"
	statsPath       = "/user/stats"
)

type NotificationSettings struct {
	EmailNotifications   bool `json:"email_notifications"`
	WebhookNotifications bool `json:"webhook_notifications"`
}

type Preferences struct {
	DefaultModel         string               `json:"default_model"`
	PreferredStyle       string               `json:"preferred_style"`
	DefaultDimensions    string               `json:"default_dimensions"`
	AutoSaveImages       bool                 `json:"auto_save_images"`
	NotificationSettings NotificationSettings `json:"notification_settings"`
}

// Model returns the default model, falling back to DefaultModel.
func (p Preferences) Model() string {
	if p.DefaultModel == "" {
		return DefaultModel
	}
	return p.DefaultModel
}

// Stats is the account's usage summary.
type Stats struct {
	ImagesGenerated  int    `json:"images_generated"`
	TotalCreditsUsed int    `json:"total_credits_used"`
	CreditsRemaining int    `json:"credits_remaining"`
	AccountCreatedAt string `json:"account_created_at,omitempty"`
	LastActivity     string `json:"last_activity,omitempty"`
}

type setter func(p *Preferences, value string) error

func boolSetter(field func(*Preferences) *bool) setter {
	return func(p *Preferences, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not a boolean", ierrors.ErrInvalidInput, value)
		}
		*field(p) = b
		return nil
	}
}

func stringSetter(field func(*Preferences) *string) setter {
	return func(p *Preferences, value string) error {
		*field(p) = value
		return nil
	}
}

var setters = map[string]setter{
	"default_model":      stringSetter(func(p *Preferences) *string { return &p.DefaultModel }),
	"preferred_style":    stringSetter(func(p *Preferences) *string { return &p.PreferredStyle }),
	"default_dimensions": stringSetter(func(p *Preferences) *string { return &p.DefaultDimensions }),
	"auto_save_images":   boolSetter(func(p *Preferences) *bool { return &p.AutoSaveImages }),
	"notification_settings.email_notifications": boolSetter(func(p *Preferences) *bool {
		return &p.NotificationSettings.EmailNotifications
	}),
	"notification_settings.webhook_notifications": boolSetter(func(p *Preferences) *bool {
		return &p.NotificationSettings.WebhookNotifications
	}),
}

// Keys lists the names Set accepts.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type Option func(*Store)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

type Store struct {
	repo storage.Repo
	log  zerolog.Logger

	mu    sync.RWMutex
	prefs Preferences
}

// NewStore restores persisted preferences. Unreadable state is discarded.
func NewStore(ctx context.Context, repo storage.Repo, opts ...Option) (*Store, error) {
	s := &Store{repo: repo, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := repo.Load(ctx, StorageKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if err := json.Unmarshal(raw, &s.prefs); err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable preferences")
		s.prefs = Preferences{}
	}
	return s, nil
}

func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Set assigns one preference by its JSON name, e.g. "auto_save_images".
func (s *Store) Set(ctx context.Context, name, value string) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: unknown preference %q", ierrors.ErrInvalidInput, name)
	}
	return s.Update(ctx, func(p *Preferences) error {
		return set(p, value)
	})
}

// Update applies fn to a copy of the preferences and persists the result.
// Nothing changes if fn or the write fails.
func (s *Store) Update(ctx context.Context, fn func(*Preferences) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}

// Reset forgets every preference.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete preferences: %w", err)
	}
	s.prefs = Preferences{}
	return nil
}

func (s *Store) persistLocked(ctx context.Context, p Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.repo.Save(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Push sends the local preferences to the account and stores what the
// server returns, which may fill in fields the client left empty.
func (s *Store) Push(ctx context.Context, client *apiclient.Client) error {
	resp, err := client.Put(ctx, preferencesPath, s.Get())
	if err != nil {
		return err
	}
	var server Preferences
	if err := resp.Decode(&server); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}
	return s.Update(ctx, func(p *Preferences) error {
		*p = server
		return nil
	})
}

// FetchStats reads the account's usage summary.
func FetchStats(ctx context.Context, client *apiclient.Client) (*Stats, error) {
	resp, err := client.Get(ctx, statsPath, nil)
	if err != nil {
		return nil, err
	}
	var st Stats
	if err := resp.Decode(&st); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}
