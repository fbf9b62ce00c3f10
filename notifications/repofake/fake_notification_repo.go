package repofake

import (
	"context"
	"slices"
	"sync"

	"github.com/jrsteele09/go-imagen-client/notifications"
)

var (
	_ notifications.Repo       = (*FakeNotificationRepo)(nil)
	_ notifications.Subscriber = (*FakeNotificationRepo)(nil)
)

// FakeNotificationRepo is an in-memory notifications table with a change
// feed. Published records are stored and delivered to subscribers of the
// record's user.
type FakeNotificationRepo struct {
	lock    sync.Mutex
	records []notifications.Record
	subs    map[int]subscription
	nextSub int
	err     error
	lists   []notifications.Range
}

type subscription struct {
	user string
	ch   chan notifications.Record
	done chan struct{}
}

func NewFakeNotificationRepo() *FakeNotificationRepo {
	return &FakeNotificationRepo{subs: make(map[int]subscription)}
}

// Add stores records without notifying subscribers.
func (r *FakeNotificationRepo) Add(recs ...notifications.Record) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.records = append(r.records, recs...)
}

// Upsert replaces the stored record with rec's id, or adds rec.
func (r *FakeNotificationRepo) Upsert(rec notifications.Record) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if i := slices.IndexFunc(r.records, func(x notifications.Record) bool { return x.ID == rec.ID }); i >= 0 {
		r.records[i] = rec
		return
	}
	r.records = append(r.records, rec)
}

// Publish stores rec and delivers it to matching subscribers. It returns
// the number of subscribers it was delivered to.
func (r *FakeNotificationRepo) Publish(rec notifications.Record) int {
	r.lock.Lock()
	r.records = append(r.records, rec)
	var targets []subscription
	for _, s := range r.subs {
		if s.user == rec.UserUUID {
			targets = append(targets, s)
		}
	}
	r.lock.Unlock()

	delivered := 0
	for _, s := range targets {
		select {
		case s.ch <- rec:
			delivered++
		case <-s.done:
		}
	}
	return delivered
}

// FailWith makes List and Count return err. Nil restores normal behaviour.
func (r *FakeNotificationRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = err
}

// Lists returns the ranges List was called with.
func (r *FakeNotificationRepo) Lists() []notifications.Range {
	r.lock.Lock()
	defer r.lock.Unlock()
	return slices.Clone(r.lists)
}

func (r *FakeNotificationRepo) Subscribers() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.subs)
}

func (r *FakeNotificationRepo) List(_ context.Context, userUUID string, rng notifications.Range) ([]notifications.Record, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lists = append(r.lists, rng)
	if r.err != nil {
		return nil, r.err
	}
	visible := r.visible(userUUID)
	if rng.From >= len(visible) {
		return nil, nil
	}
	return slices.Clone(visible[rng.From:min(rng.To, len(visible))]), nil
}

func (r *FakeNotificationRepo) Count(_ context.Context, userUUID string) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return len(r.visible(userUUID)), nil
}

// visible is the user's non-pending records, newest first.
func (r *FakeNotificationRepo) visible(userUUID string) []notifications.Record {
	var out []notifications.Record
	for _, rec := range r.records {
		if rec.UserUUID == userUUID && rec.Status > notifications.StatusPending {
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, func(a, b notifications.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func (r *FakeNotificationRepo) Subscribe(ctx context.Context, userUUID string, fn func(notifications.Record)) error {
	sub := subscription{user: userUUID, ch: make(chan notifications.Record), done: make(chan struct{})}
	r.lock.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = sub
	r.lock.Unlock()

	defer func() {
		r.lock.Lock()
		delete(r.subs, id)
		r.lock.Unlock()
		close(sub.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-sub.ch:
			fn(rec)
		}
	}
}
