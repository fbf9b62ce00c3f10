package notifications_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesPayload(t *testing.T) {
	rec := notifications.Record{
		ID:        "41",
		UserUUID:  testUserUUID,
		EventType: "payment",
		Status:    notifications.StatusSuccess,
		CreatedAt: baseTime,
		Data: encrypted(t, testEmail, map[string]any{
			"history":       map[string]any{"type": "video", "uuid": "h-9", "prompt": "sunset", "status": 1, "id": "spoofed"},
			"order_history": map[string]any{"external_order_id": "ord-7", "platform": "CRYPTOMUS"},
			"block":         map[string]any{"history_uuid": "h-10"},
		}, "/profile"),
	}

	n, err := notifications.Parse(rec, notifications.KeyForEmail(testEmail))
	require.NoError(t, err)
	require.Equal(t, "video", n.Type)
	require.Equal(t, "h-9", n.UUID)
	require.Equal(t, "h-10", n.HistoryUUID)
	require.Equal(t, "h-10", n.DetailUUID())
	require.Equal(t, "ord-7", n.ExternalOrderID)
	require.Equal(t, "CRYPTOMUS", n.Platform)
	require.Equal(t, "sunset", n.Prompt)
	require.Equal(t, "/profile", n.RedirectURL)

	require.Equal(t, "41", n.ID)
	require.Equal(t, notifications.StatusSuccess, n.Status)
	require.Equal(t, "payment", n.EventType)
	require.Equal(t, "spoofed", n.Details["id"])
}

func TestParseUnreadablePayloadKeepsRecord(t *testing.T) {
	rec := newRecord(t, 3, notifications.StatusFailed, map[string]any{"type": "image"})

	n, err := notifications.Parse(rec, notifications.KeyForEmail("someone.else@example.com"))
	require.ErrorIs(t, err, notifications.ErrDecrypt)
	require.Equal(t, "3", n.ID)
	require.Equal(t, notifications.StatusFailed, n.Status)
	require.Empty(t, n.Type)
	require.Equal(t, "generation", n.Kind())
}

func TestParseWithoutPayload(t *testing.T) {
	n, err := notifications.Parse(notifications.Record{ID: "1", EventType: "music"}, "key")
	require.NoError(t, err)
	require.Equal(t, "music", n.Kind())
}

func TestRecordUnmarshalDatabaseRow(t *testing.T) {
	var rec notifications.Record
	err := json.Unmarshal([]byte(`{
		"id": 1042,
		"user_uuid": "u-1",
		"event_type": null,
		"status": 2,
		"seen": null,
		"created_at": "2025-03-10T12:00:00.123456+00:00",
		"data": "abc"
	}`), &rec)
	require.NoError(t, err)
	require.Equal(t, "1042", rec.ID)
	require.Equal(t, notifications.StatusSuccess, rec.Status)
	require.False(t, rec.Seen)
	require.True(t, rec.CreatedAt.Equal(time.Date(2025, 3, 10, 12, 0, 0, 123456000, time.UTC)))

	err = json.Unmarshal([]byte(`{"id":"x","created_at":"2025-03-10 12:00:00"}`), &rec)
	require.NoError(t, err)
	require.Equal(t, "x", rec.ID)
	require.Equal(t, 2025, rec.CreatedAt.Year())

	err = json.Unmarshal([]byte(`{"id":"x","created_at":"yesterday"}`), &rec)
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	list := []notifications.Notification{
		{Record: notifications.Record{ID: "2", Status: notifications.StatusPending}},
		{Record: notifications.Record{ID: "1", Status: notifications.StatusSuccess}},
	}

	list, replaced := notifications.Merge(list, notifications.Notification{Record: notifications.Record{ID: "2", Status: notifications.StatusSuccess}})
	require.True(t, replaced)
	require.Len(t, list, 2)
	require.Equal(t, notifications.StatusSuccess, list[0].Status)

	list, replaced = notifications.Merge(list, notifications.Notification{Record: notifications.Record{ID: "3"}})
	require.False(t, replaced)
	require.Equal(t, []string{"3", "2", "1"}, ids(list))
}

func ids(list []notifications.Notification) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}
