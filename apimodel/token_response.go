package apimodel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-imagen-client/session"
)

// TokenResponse is returned by the login, signup, social login and refresh
// endpoints. Some deployments wrap it in a {"data": ...} envelope.
type TokenResponse struct {
	// AccessToken is the bearer token sent on every API request.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at the refresh endpoint for a new pair.
	// A refresh response that omits it keeps the previous refresh token.
	RefreshToken string `json:"refresh_token,omitempty"`

	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is a hint; the JWT exp claim is authoritative.
	ExpiresIn int `json:"expires_in,omitempty"`

	// User is present on login and signup responses.
	User *session.User `json:"user,omitempty"`
}

// ErrMissingAccessToken is returned when a token response carries no access token.
var ErrMissingAccessToken = errors.New("token response has no access_token")

// DecodeTokenResponse accepts both the flat and the enveloped shape.
func DecodeTokenResponse(body []byte) (*TokenResponse, error) {
	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		var env struct {
			Data *TokenResponse `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
			tr = *env.Data
		}
	}
	if tr.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}
	return &tr, nil
}

// Session converts the response into a session, keeping previousRefresh
// when the response did not rotate the refresh token.
func (tr *TokenResponse) Session(previousRefresh string) session.Session {
	refresh := tr.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return session.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: refresh,
		User:         tr.User,
	}
}
