package auth_test

import (
	"testing"

	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/auth"
	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateLogin(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid credentials", func(t *testing.T) {
		err := v.ValidateLogin(apimodel.LoginRequest{Email: "user@example.com", Password: "password123"})
		require.NoError(t, err)
	})

	t.Run("empty email", func(t *testing.T) {
		err := v.ValidateLogin(apimodel.LoginRequest{Password: "password123"})
		require.ErrorIs(t, err, ierrors.ErrInvalidInput)
		require.Contains(t, err.Error(), "email is required")
	})

	t.Run("invalid email format", func(t *testing.T) {
		err := v.ValidateLogin(apimodel.LoginRequest{Email: "userexample.com", Password: "password123"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "email must be a valid email address")
	})

	t.Run("empty password", func(t *testing.T) {
		err := v.ValidateLogin(apimodel.LoginRequest{Email: "user@example.com"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "password is required")
	})
}

func TestValidator_ValidateSignup(t *testing.T) {
	v := auth.NewValidator()
	req := apimodel.SignupRequest{Email: "user@example.com", Password: "secret1", FullName: "Jane Doe"}

	t.Run("valid signup", func(t *testing.T) {
		require.NoError(t, v.ValidateSignup(req, "secret1"))
	})

	t.Run("confirmation optional", func(t *testing.T) {
		require.NoError(t, v.ValidateSignup(req, ""))
	})

	t.Run("passwords differ", func(t *testing.T) {
		err := v.ValidateSignup(req, "secret2")
		require.ErrorIs(t, err, auth.PasswordsDontMatchErr)
	})

	t.Run("password too short", func(t *testing.T) {
		short := req
		short.Password = "abc"
		err := v.ValidateSignup(short, "abc")
		require.Error(t, err)
		require.Contains(t, err.Error(), "password must be at least 6 characters")
	})

	t.Run("missing name", func(t *testing.T) {
		noName := req
		noName.FullName = ""
		err := v.ValidateSignup(noName, "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "full_name is required")
	})
}

func TestValidator_ValidateGoogleCredential(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid JWT shape", func(t *testing.T) {
		require.NoError(t, v.ValidateGoogleCredential(" eyJhbGc.eyJzdWI.signature "))
	})

	t.Run("empty credential", func(t *testing.T) {
		err := v.ValidateGoogleCredential("")
		require.ErrorIs(t, err, ierrors.ErrInvalidInput)
		require.Contains(t, err.Error(), "credential is required")
	})

	t.Run("not a JWT", func(t *testing.T) {
		err := v.ValidateGoogleCredential("not-a-jwt")
		require.ErrorIs(t, err, auth.InvalidCredentialErr)
		require.Contains(t, err.Error(), "must be a JWT")
	})

	t.Run("empty segment", func(t *testing.T) {
		err := v.ValidateGoogleCredential("a..c")
		require.ErrorIs(t, err, auth.InvalidCredentialErr)
		require.Contains(t, err.Error(), "part 2 is empty")
	})
}
