package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
)

var (
	// ErrRefreshFailed wraps the refresh error returned to every request
	// that was waiting on a failed refresh.
	ErrRefreshFailed = ierrors.ErrRefreshFailed

	// ErrNetwork wraps transport failures where no response was received.
	ErrNetwork = ierrors.ErrNetwork

	// ErrNoRefreshToken is the refresh error when the session has no refresh token.
	ErrNoRefreshToken = ierrors.ErrNoRefreshToken
)

// StatusError is returned for any response with a 4xx or 5xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // from the detail, message or error field
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Kind classifies an error returned by the client.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindCanceled
	KindAuthExpired   // an auth failure status
	KindRefreshFailed // the session was logged out because refresh failed
	KindNotFound
	KindValidation // other 4xx
	KindServer     // 5xx
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	case KindAuthExpired:
		return "auth_expired"
	case KindRefreshFailed:
		return "refresh_failed"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Classify returns the Kind of err, treating the configured auth failure
// statuses as KindAuthExpired.
func (c *Client) Classify(err error) Kind {
	var se *StatusError
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrRefreshFailed):
		return KindRefreshFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.As(err, &se):
		switch {
		case c.isAuthFailure(se.StatusCode):
			return KindAuthExpired
		case se.StatusCode == http.StatusNotFound:
			return KindNotFound
		case se.StatusCode >= 500:
			return KindServer
		default:
			return KindValidation
		}
	default:
		return KindUnknown
	}
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// Message returns the server supplied message of err, falling back to err.Error().
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
