package notifications_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/auth"
	"github.com/jrsteele09/go-imagen-client/internal/testsupport/fakeapi"
	"github.com/jrsteele09/go-imagen-client/notifications"
	notifake "github.com/jrsteele09/go-imagen-client/notifications/repofake"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/jrsteele09/go-imagen-client/storage/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = fakeapi.DefaultEmail
	testUserUUID = fakeapi.DefaultUserUUID
	otherUser    = "00000000-0000-0000-0000-000000000001"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type testFixture struct {
	store *session.Store
	repo  *notifake.FakeNotificationRepo
	feed  *notifications.Feed
	api   *fakeapi.Server
}

// setupTestFixture signs the test user in against a fake API and builds a
// feed over an in-memory table.
func setupTestFixture(t *testing.T, opts ...notifications.FeedOption) *testFixture {
	t.Helper()

	api, ts := fakeapi.Start(t)
	store, err := session.NewStore(context.Background(), repofake.NewFakeStorageRepo())
	require.NoError(t, err)
	client, err := apiclient.New(ts.URL, store)
	require.NoError(t, err)
	_, err = auth.NewService(client, store).Login(context.Background(), testEmail, fakeapi.DefaultPassword)
	require.NoError(t, err)

	repo := notifake.NewFakeNotificationRepo()
	opts = append([]notifications.FeedOption{notifications.WithMarker(notifications.NewAPIMarker(client))}, opts...)
	return &testFixture{
		store: store,
		repo:  repo,
		feed:  notifications.NewFeed(store, repo, opts...),
		api:   api,
	}
}

// encrypted builds the encrypted data column for payload, with each
// section stored as a JSON string the way the backend writes it.
func encrypted(t *testing.T, email string, sections map[string]any, redirect string) string {
	t.Helper()

	payload := map[string]any{}
	for name, v := range sections {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		payload[name] = string(b)
	}
	if redirect != "" {
		payload["redirect_url"] = redirect
	}
	plain, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := notifications.Encrypt(plain, notifications.KeyForEmail(email))
	require.NoError(t, err)
	return data
}

func newRecord(t *testing.T, id int, status notifications.Status, history map[string]any) notifications.Record {
	t.Helper()
	return notifications.Record{
		ID:        fmt.Sprint(id),
		UserUUID:  testUserUUID,
		EventType: "generation",
		Status:    status,
		CreatedAt: baseTime.Add(time.Duration(id) * time.Minute),
		Data:      encrypted(t, testEmail, map[string]any{"history": history}, ""),
	}
}

func seed(t *testing.T, repo *notifake.FakeNotificationRepo, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		repo.Add(newRecord(t, i, notifications.StatusSuccess, map[string]any{"type": "image", "uuid": fmt.Sprintf("h-%d", i)}))
	}
}
