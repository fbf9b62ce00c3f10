package errors

import (
	"errors"
	"fmt"
)

// Sentinels shared across the client packages. Match with errors.Is.
var (
	// Session
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrNoRefreshToken   = errors.New("no refresh token")

	// Transport
	ErrNetwork = errors.New("network error")

	ErrInvalidInput = errors.New("invalid input")
	ErrDecrypt      = errors.New("decryption failed")
	ErrNotFound     = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
