package notifications

import "context"

// Repo reads a user's notification history, newest first, excluding
// pending rows.
type Repo interface {
	List(ctx context.Context, userUUID string, r Range) ([]Record, error)
	Count(ctx context.Context, userUUID string) (int, error)
}

// Subscriber delivers rows inserted after Subscribe is called. fn is called
// from a single goroutine. Subscribe blocks until ctx ends or the feed fails.
type Subscriber interface {
	Subscribe(ctx context.Context, userUUID string, fn func(Record)) error
}

// Marker records read state on the server.
type Marker interface {
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}
