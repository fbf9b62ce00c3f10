package apiclient

import (
	"context"

	"github.com/rs/zerolog"
)

// Reporter surfaces request failures to the user, the way a front end
// shows a toast. It is only called for failures the client could not
// handle itself: never for auth failures, refresh failures or 404s.
type Reporter interface {
	Report(ctx context.Context, kind Kind, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, kind Kind, err error)

func (f ReporterFunc) Report(ctx context.Context, kind Kind, err error) {
	f(ctx, kind, err)
}

type logReporter struct {
	log zerolog.Logger
}

func (r logReporter) Report(_ context.Context, kind Kind, err error) {
	r.log.Warn().Err(err).Str("kind", kind.String()).Msg(Message(err))
}
