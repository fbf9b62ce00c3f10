package notifications

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// UserSource supplies the signed-in user. *session.Store satisfies it.
type UserSource interface {
	User() *session.User
}

type FeedOption func(*Feed)

// WithLimit sets the page size.
func WithLimit(limit int) FeedOption {
	return func(f *Feed) {
		if limit > 0 {
			f.limit = limit
		}
	}
}

func WithLogger(log zerolog.Logger) FeedOption {
	return func(f *Feed) {
		f.log = log
	}
}

// WithMarker sends read state to the server. Without one, read state is
// kept locally only.
func WithMarker(m Marker) FeedOption {
	return func(f *Feed) {
		f.marker = m
	}
}

// Feed is the signed-in user's notification list: a newest-first window
// over the history that grows page by page and absorbs realtime inserts.
type Feed struct {
	users  UserSource
	repo   Repo
	marker Marker
	limit  int
	log    zerolog.Logger

	mu       sync.Mutex
	items    []Notification
	total    int
	window   Range
	fetching bool
	gen      int // bumped by Reload so stale pages are dropped
}

func NewFeed(users UserSource, repo Repo, opts ...FeedOption) *Feed {
	f := &Feed{
		users: users,
		repo:  repo,
		limit: DefaultLimit,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.window = FirstPage(f.limit)
	return f
}

func (f *Feed) user() (*session.User, error) {
	u := f.users.User()
	if u == nil || u.UUID == "" {
		return nil, ierrors.ErrNotAuthenticated
	}
	return u, nil
}

// Reload discards the list and fetches the first page and the total count.
func (f *Feed) Reload(ctx context.Context) error {
	u, err := f.user()
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.gen++
	gen := f.gen
	window := FirstPage(f.limit)
	f.fetching = true
	f.mu.Unlock()

	var (
		recs  []Record
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = f.repo.List(gctx, u.UUID, window)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = f.repo.Count(gctx, u.UUID)
		return err
	})
	err = g.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return nil
	}
	f.fetching = false
	if err != nil {
		return fmt.Errorf("reload notifications: %w", err)
	}
	f.items = f.parseAll(recs, u.Email)
	f.total = total
	f.window = window
	return nil
}

// FetchMore appends the next page. It does nothing while another fetch is
// running or once every notification has been loaded.
func (f *Feed) FetchMore(ctx context.Context) error {
	u, err := f.user()
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.fetching || f.countedLocked() >= f.total {
		f.mu.Unlock()
		return nil
	}
	f.fetching = true
	gen := f.gen
	next := f.window.Next()
	f.mu.Unlock()

	recs, err := f.repo.List(ctx, u.UUID, next)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return nil
	}
	f.fetching = false
	if err != nil {
		return fmt.Errorf("fetch more notifications: %w", err)
	}
	for _, n := range f.parseAll(recs, u.Email) {
		if !slices.ContainsFunc(f.items, func(x Notification) bool { return x.ID == n.ID }) {
			f.items = append(f.items, n)
		}
	}
	f.window = next
	return nil
}

// Apply merges a realtime insert into the list and returns the effects it
// triggers. Rows for other users are ignored.
func (f *Feed) Apply(rec Record) []Effect {
	u, err := f.user()
	if err != nil || rec.UserUUID != u.UUID {
		return nil
	}
	n := f.parse(rec, u.Email)

	f.mu.Lock()
	wasCounted := false
	if i := slices.IndexFunc(f.items, func(x Notification) bool { return x.ID == n.ID }); i >= 0 {
		wasCounted = counted(f.items[i])
	}
	var replaced bool
	f.items, replaced = Merge(f.items, n)
	switch {
	case counted(n) && !wasCounted:
		f.total++
	case !counted(n) && wasCounted:
		f.total--
	}
	f.mu.Unlock()

	f.log.Debug().Str("id", n.ID).Str("type", n.Kind()).Stringer("status", n.Status).Bool("replaced", replaced).Msg("notification received")
	return EffectsFor(n)
}

// Watch applies inserts from sub until ctx ends, passing effects to h.
func (f *Feed) Watch(ctx context.Context, sub Subscriber, h EffectHandler) error {
	u, err := f.user()
	if err != nil {
		return err
	}
	err = sub.Subscribe(ctx, u.UUID, func(rec Record) {
		for _, e := range f.Apply(rec) {
			if h != nil {
				h.Handle(ctx, e)
			}
		}
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// MarkAsRead marks one notification seen locally, then on the server. The
// local change stands even if the server call fails.
func (f *Feed) MarkAsRead(ctx context.Context, id string) error {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Seen = true
		}
	}
	f.mu.Unlock()

	if f.marker == nil {
		return nil
	}
	if err := f.marker.MarkRead(ctx, id); err != nil {
		f.log.Warn().Err(err).Str("id", id).Msg("failed to mark notification as read")
		return err
	}
	return nil
}

func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	f.mu.Lock()
	for i := range f.items {
		f.items[i].Seen = true
	}
	f.mu.Unlock()

	if f.marker == nil {
		return nil
	}
	if err := f.marker.MarkAllRead(ctx); err != nil {
		f.log.Warn().Err(err).Msg("failed to mark all notifications as read")
		return err
	}
	return nil
}

// Open returns the effect that shows a notification's history entry and
// marks the notification read.
func (f *Feed) Open(ctx context.Context, id string) (Effect, error) {
	n, ok := f.Get(id)
	if !ok {
		return Effect{}, fmt.Errorf("notification %s: %w", id, ierrors.ErrNotFound)
	}
	e := Effect{Kind: EffectOpenDetail, HistoryUUID: n.DetailUUID()}
	return e, f.MarkAsRead(ctx, id)
}

func (f *Feed) Get(id string) (Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id {
			return n, true
		}
	}
	return Notification{}, false
}

// Items returns the list newest first.
func (f *Feed) Items() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// SortedItems returns the list ordered by SortByPriority.
func (f *Feed) SortedItems() []Notification {
	return SortByPriority(f.Items())
}

func (f *Feed) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *Feed) HasUnread() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.ContainsFunc(f.items, func(n Notification) bool { return !n.Seen })
}

func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countedLocked() < f.total
}

// counted reports whether n is part of the server's count. Pending rows
// only arrive through realtime inserts and are not.
func counted(n Notification) bool {
	return n.Status > StatusPending
}

func (f *Feed) countedLocked() int {
	c := 0
	for _, n := range f.items {
		if counted(n) {
			c++
		}
	}
	return c
}

func (f *Feed) parseAll(recs []Record, email string) []Notification {
	out := make([]Notification, 0, len(recs))
	for _, rec := range recs {
		out = append(out, f.parse(rec, email))
	}
	return out
}

// parse never fails: a payload that cannot be decrypted leaves only the
// record's own fields.
func (f *Feed) parse(rec Record, email string) Notification {
	n, err := Parse(rec, KeyForEmail(email))
	if err != nil {
		f.log.Warn().Err(err).Str("id", rec.ID).Msg("notification payload unreadable")
	}
	return n
}
