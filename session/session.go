package session

import (
	"time"

	"github.com/jrsteele09/go-imagen-client/token"
	"golang.org/x/oauth2"
)

// User is the profile returned by the backend on login and from /me.
type User struct {
	UUID             string `json:"uuid"`
	Email            string `json:"email"`
	FullName         string `json:"full_name,omitempty"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	Plan             string `json:"plan,omitempty"`
	CreditsRemaining int    `json:"credits_remaining,omitempty"`
	IsActive         bool   `json:"is_active,omitempty"`
}

// Session is the persisted authentication state.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Authenticated reports whether both an access token and a user are present.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// OAuth2Token exposes the token pair as an *oauth2.Token. Expiry is taken
// from the access token's exp claim when it is a JWT and left zero otherwise.
func (s Session) OAuth2Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if exp, err := token.ExpiresAt(s.AccessToken); err == nil {
		t.Expiry = exp
	}
	return t
}

// ExpiresIn returns how long the access token remains valid, or false when unknown.
func (s Session) ExpiresIn(now time.Time) (time.Duration, bool) {
	exp, err := token.ExpiresAt(s.AccessToken)
	if err != nil {
		return 0, false
	}
	return exp.Sub(now), true
}
