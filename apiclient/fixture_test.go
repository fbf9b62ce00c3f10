package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/internal/testsupport/fakeapi"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/jrsteele09/go-imagen-client/storage"
	"github.com/jrsteele09/go-imagen-client/storage/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type reported struct {
	kind apiclient.Kind
	err  error
}

type testFixture struct {
	api      *fakeapi.Server
	url      string
	repo     storage.Repo
	store    *session.Store
	client   *apiclient.Client
	registry *prometheus.Registry
	cleared  int

	mu       sync.Mutex
	reported []reported
}

func setupTestFixture(t *testing.T, apiOpts []fakeapi.Option, clientOpts ...apiclient.Option) *testFixture {
	t.Helper()

	api, ts := fakeapi.Start(t, apiOpts...)
	f := &testFixture{
		api:      api,
		url:      ts.URL,
		repo:     repofake.NewFakeStorageRepo(),
		registry: prometheus.NewRegistry(),
	}
	f.store = f.newStore(t, f.repo)
	f.client = f.newClient(t, f.store, clientOpts...)
	return f
}

func (f *testFixture) newStore(t *testing.T, repo storage.Repo) *session.Store {
	t.Helper()
	store, err := session.NewStore(context.Background(), repo, session.OnClear(func() {
		f.mu.Lock()
		f.cleared++
		f.mu.Unlock()
	}))
	require.NoError(t, err)
	return store
}

func (f *testFixture) newClient(t *testing.T, store apiclient.TokenStore, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	base := []apiclient.Option{
		apiclient.WithMetrics(f.registry),
		apiclient.WithReporter(apiclient.ReporterFunc(func(_ context.Context, kind apiclient.Kind, err error) {
			f.mu.Lock()
			f.reported = append(f.reported, reported{kind: kind, err: err})
			f.mu.Unlock()
		})),
	}
	c, err := apiclient.New(f.url, store, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// login authenticates the default user straight against the backend.
func (f *testFixture) login(t *testing.T) {
	t.Helper()
	f.loginStore(t, f.client, f.store)
}

func (f *testFixture) loginStore(t *testing.T, c *apiclient.Client, store *session.Store) {
	t.Helper()
	resp, err := c.Post(context.Background(), "/login-v2", apimodel.LoginRequest{
		Email:    fakeapi.DefaultEmail,
		Password: fakeapi.DefaultPassword,
	})
	require.NoError(t, err)
	tr, err := apimodel.DecodeTokenResponse(resp.Body)
	require.NoError(t, err)
	require.NoError(t, store.SetSession(context.Background(), tr.Session("")))
}

func (f *testFixture) clearedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func (f *testFixture) reports() []reported {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reported(nil), f.reported...)
}

// rawRefresh calls the refresh endpoint directly, bypassing the client.
func (f *testFixture) rawRefresh(ctx context.Context, refreshToken string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url+apiclient.DefaultRefreshPath, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	var tr apimodel.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", "", err
	}
	return tr.AccessToken, tr.RefreshToken, nil
}

// metricValue returns the value of the named counter or gauge series whose
// labels include all of labels.
func (f *testFixture) metricValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue series
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
