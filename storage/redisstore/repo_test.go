package redisstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/jrsteele09/go-imagen-client/storage"
	"github.com/jrsteele09/go-imagen-client/storage/redisstore"
	"github.com/stretchr/testify/require"
)

// Runs against a real server only when IMAGEN_TEST_REDIS_ADDR is set.
func TestRepo(t *testing.T) {
	addr := os.Getenv("IMAGEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IMAGEN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	repo, err := redisstore.Open(ctx, redisstore.Options{Addr: addr, Prefix: "imagen-test"})
	require.NoError(t, err)
	defer repo.Close()
	defer repo.Delete(ctx, "authStore")

	_, err = repo.Load(ctx, "authStore")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "authStore", []byte("value")))
	v, err := repo.Load(ctx, "authStore")
	require.NoError(t, err)
	require.Equal(t, "value", string(v))
}
