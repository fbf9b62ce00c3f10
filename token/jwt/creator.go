package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator signs HS256 access tokens shaped like the ones the backend issues.
// It backs the local fake API used in tests and demos.
type Creator struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewCreator creates a new JWT creator
func NewCreator(secret string, accessExpiry time.Duration) *Creator {
	return &Creator{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
	}
}

// CreateAccessToken creates an access token for a user
func (c *Creator) CreateAccessToken(userUUID, email string) (string, error) {
	// jti keeps tokens minted within the same second distinct.
	claims := jwtlib.MapClaims{
		"sub":   userUUID,
		"email": email,
		"iat":   NowTimeFunc().Unix(),
		"exp":   NowTimeFunc().Add(c.accessExpiry).Unix(),
		"jti":   uuid.New().String(),
		"type":  "access",
	}
	return c.sign(claims)
}

// CreateRefreshToken creates a long lived refresh token for a user
func (c *Creator) CreateRefreshToken(userUUID string, expiry time.Duration) (string, error) {
	claims := jwtlib.MapClaims{
		"sub":  userUUID,
		"iat":  NowTimeFunc().Unix(),
		"exp":  NowTimeFunc().Add(expiry).Unix(),
		"jti":  uuid.New().String(),
		"type": "refresh",
	}
	return c.sign(claims)
}

// Verify checks the signature and expiry of rawToken and returns its subject
// when the token type matches wantType.
func (c *Creator) Verify(rawToken, wantType string) (string, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(rawToken, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil {
		return "", err
	}
	if typ, _ := claims["type"].(string); typ != wantType {
		return "", fmt.Errorf("token type %q, want %q", typ, wantType)
	}
	return claims.GetSubject()
}

func (c *Creator) sign(claims jwtlib.MapClaims) (string, error) {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
