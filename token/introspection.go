package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var (
	ErrEmptyToken   = errors.New("empty token")
	ErrNotJWT       = errors.New("token is not a JWT")
	ErrMissingClaim = errors.New("token missing claim")
)

// Introspection holds the claims a client can read from an access token
// without verifying its signature. Only the backend verifies tokens; the
// client uses these values for display and to anticipate expiry.
type Introspection struct {
	Active bool      `json:"active"`          // exp is in the future
	Sub    string    `json:"sub,omitempty"`   // user uuid
	Email  string    `json:"email,omitempty"` // present on backend-issued tokens
	Exp    time.Time `json:"exp"`
	Iat    time.Time `json:"iat,omitempty"`
	Jti    string    `json:"jti,omitempty"`
}

// Inspect decodes the claims of rawToken without verifying the signature.
func Inspect(rawToken string) (*Introspection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrEmptyToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	in := &Introspection{
		Exp:    exp.Time,
		Active: NowTimeFunc().Before(exp.Time),
	}
	in.Sub, _ = claims.GetSubject()
	in.Email, _ = claims["email"].(string)
	in.Jti, _ = claims["jti"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		in.Iat = iat.Time
	}
	return in, nil
}

// ExpiresAt returns the exp claim of rawToken.
func ExpiresAt(rawToken string) (time.Time, error) {
	in, err := Inspect(rawToken)
	if err != nil {
		return time.Time{}, err
	}
	return in.Exp, nil
}

// ExpiresWithin reports whether rawToken expires within d. Tokens whose
// expiry cannot be read report false; the server decides for those.
func ExpiresWithin(rawToken string, d time.Duration) bool {
	exp, err := ExpiresAt(rawToken)
	if err != nil {
		return false
	}
	return !NowTimeFunc().Add(d).Before(exp)
}
