package jwt_test

import (
	"testing"
	"time"

	tokenjwt "github.com/jrsteele09/go-imagen-client/token/jwt"
	"github.com/stretchr/testify/require"
)

func TestCreator(t *testing.T) {
	creator := tokenjwt.NewCreator("secret", time.Minute)

	access, err := creator.CreateAccessToken("user-1", "a@example.com")
	require.NoError(t, err)
	refresh, err := creator.CreateRefreshToken("user-1", time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, access, refresh)

	t.Run("verifies matching type", func(t *testing.T) {
		sub, err := creator.Verify(access, "access")
		require.NoError(t, err)
		require.Equal(t, "user-1", sub)

		sub, err = creator.Verify(refresh, "refresh")
		require.NoError(t, err)
		require.Equal(t, "user-1", sub)
	})

	t.Run("rejects wrong type", func(t *testing.T) {
		_, err := creator.Verify(refresh, "access")
		require.Error(t, err)
	})

	t.Run("rejects other secret", func(t *testing.T) {
		_, err := tokenjwt.NewCreator("other", time.Minute).Verify(access, "access")
		require.Error(t, err)
	})

	t.Run("rejects expired", func(t *testing.T) {
		expired, err := tokenjwt.NewCreator("secret", -time.Minute).CreateAccessToken("user-1", "a@example.com")
		require.NoError(t, err)
		_, err = creator.Verify(expired, "access")
		require.Error(t, err)
	})
}
