package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/storage/repofake"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	store, err := session.NewStore(context.Background(), repofake.NewFakeStorageRepo())
	require.NoError(t, err)

	_, err = apiclient.New("", store)
	require.Error(t, err)
	_, err = apiclient.New("http://localhost", nil)
	require.Error(t, err)

	c, err := apiclient.New("http://localhost/api/", store)
	require.NoError(t, err)
	require.Equal(t, "http://localhost/api", c.BaseURL())
	require.Equal(t, apiclient.DefaultRefreshPath, c.RefreshPath())
}

func TestBearerAndEnvelope(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t)

	resp, err := f.client.Get(context.Background(), "/me", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me session.User
	require.NoError(t, resp.Decode(&me))
	require.Equal(t, "jane@example.com", me.Email)
	require.Contains(t, string(resp.Body), `"data"`)

	last := f.api.RequestsTo("/me")
	require.Len(t, last, 1)
	require.Equal(t, "Bearer "+f.store.AccessToken(), last[0].Authorization)
}

func TestRequestWithoutTokenHasNoAuthorization(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.client.Get(context.Background(), "/me", nil)
	require.Error(t, err)
	require.Empty(t, f.api.RequestsTo("/me")[0].Authorization)
}

func TestNonAuthErrorsPassThrough(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t)
	ctx := context.Background()

	t.Run("server error is reported", func(t *testing.T) {
		_, err := f.client.Get(ctx, "/boom", nil)
		var se *apiclient.StatusError
		require.ErrorAs(t, err, &se)
		require.Equal(t, http.StatusInternalServerError, se.StatusCode)
		require.Equal(t, "generation service unavailable", se.Message)
		require.Equal(t, apiclient.KindServer, f.client.Classify(err))

		reports := f.reports()
		require.Len(t, reports, 1)
		require.Equal(t, apiclient.KindServer, reports[0].kind)
	})

	t.Run("not found is not reported", func(t *testing.T) {
		_, err := f.client.Get(ctx, "/nothing-here", nil)
		code, ok := apiclient.StatusCode(err)
		require.True(t, ok)
		require.Equal(t, http.StatusNotFound, code)
		require.Equal(t, apiclient.KindNotFound, f.client.Classify(err))
		require.Len(t, f.reports(), 1)
	})

	t.Run("validation message", func(t *testing.T) {
		_, err := f.client.Post(ctx, "/signup", map[string]string{"email": "jane@example.com", "password": "x"})
		require.Equal(t, apiclient.KindValidation, f.client.Classify(err))
		require.Equal(t, "Email already registered", apiclient.Message(err))
	})

	require.Equal(t, 0, f.api.RefreshCalls())
	require.True(t, f.store.Authenticated())
}

func TestNetworkError(t *testing.T) {
	f := setupTestFixture(t, nil)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	f.url = dead.URL
	c := f.newClient(t, f.store)

	_, err := c.Get(context.Background(), "/me", nil)
	require.ErrorIs(t, err, apiclient.ErrNetwork)
	require.Equal(t, apiclient.KindNetwork, c.Classify(err))

	reports := f.reports()
	require.Len(t, reports, 1)
	require.Equal(t, apiclient.KindNetwork, reports[0].kind)
}

func TestCanceledContextNotReported(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.client.Get(ctx, "/me", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, apiclient.KindCanceled, f.client.Classify(err))
	require.Empty(t, f.reports())
}

func TestRequestBodyAndHeaders(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t)

	_, err := f.client.Do(context.Background(), &apiclient.Request{
		Method: http.MethodPost,
		Path:   "/create_image",
		Body:   []byte(`{"prompt":"a red fox"}`),
		Header: http.Header{"X-Client": []string{"test"}},
	})
	require.NoError(t, err)

	reqs := f.api.RequestsTo("/create_image")
	require.Len(t, reqs, 1)
	require.JSONEq(t, `{"prompt":"a red fox"}`, string(reqs[0].Body))
}

func TestEncodeFailure(t *testing.T) {
	f := setupTestFixture(t, nil)
	_, err := f.client.Post(context.Background(), "/create_image", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "encode"))
	require.Empty(t, f.api.Requests())
	require.False(t, errors.Is(err, apiclient.ErrNetwork))
}
