package notifications_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/stretchr/testify/require"
)

func TestDisplayFor(t *testing.T) {
	tests := []struct {
		typ    string
		status notifications.Status
		icon   string
		color  string
	}{
		{typ: "video", status: notifications.StatusPending, icon: "i-fa-clock", color: "gray"},
		{typ: "video", status: notifications.StatusSuccess, icon: "hugeicons:ai-video", color: "green"},
		{typ: "image", status: notifications.StatusSuccess, icon: "hugeicons:ai-image", color: "purple"},
		{typ: "tts_history", status: notifications.StatusSuccess, icon: "i-fa-check-circle", color: "blue"},
		{typ: "music", status: notifications.StatusSuccess, icon: "i-fa-check-circle", color: "indigo"},
		{typ: "speech", status: notifications.StatusSuccess, icon: "i-fa-check-circle", color: "teal"},
		{typ: "voice_training", status: notifications.StatusFailed, icon: "ooui:error", color: "red"},
		{typ: "payment", status: notifications.StatusSuccess, icon: "i-fa-bell", color: "gray"},
		{typ: "image", status: notifications.StatusPaid, icon: "i-fa-bell", color: "gray"},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"_"+tt.status.String(), func(t *testing.T) {
			d := notifications.DisplayFor(tt.typ, tt.status)
			require.Equal(t, tt.icon, d.Icon)
			require.Equal(t, tt.color, d.Color)
			require.NotEmpty(t, d.Title)
		})
	}
}

func TestCatalogKeys(t *testing.T) {
	types := notifications.Types()
	require.Len(t, types, 18)
	require.Contains(t, types, "speech_3")
	require.NotContains(t, types, "default")
	require.True(t, notifications.Supported("music", notifications.StatusPending))
	require.False(t, notifications.Supported("music", notifications.StatusPaid))
}

func TestDescribe(t *testing.T) {
	n := notifications.Notification{
		Record:    notifications.Record{Status: notifications.StatusSuccess},
		Type:      "image",
		InputText: "",
		Prompt:    "a lighthouse on a cliff at dawn",
	}
	base := notifications.DisplayFor("image", notifications.StatusSuccess).Description
	require.Equal(t, base+` - "a lighthouse on a cl..."`, notifications.Describe(n))

	n.InputText = "short"
	require.Equal(t, base+` - "short"`, notifications.Describe(n))

	n.InputText, n.Prompt = "", ""
	require.Equal(t, base, notifications.Describe(n))
	require.Equal(t, notifications.DisplayFor("image", notifications.StatusSuccess).Title, notifications.Title(n))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", notifications.Truncate("abc", 20))
	require.Equal(t, strings.Repeat("x", 20), notifications.Truncate(strings.Repeat("x", 20), 20))
	require.Equal(t, "héllo...", notifications.Truncate("héllo wörld", 5))
}

func TestSortByPriority(t *testing.T) {
	at := func(id string, status notifications.Status, minutes int) notifications.Notification {
		return notifications.Notification{Record: notifications.Record{ID: id, Status: status, CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute)}}
	}
	list := []notifications.Notification{
		at("pending", notifications.StatusPending, 50),
		at("old-ok", notifications.StatusSuccess, 1),
		at("paid", notifications.StatusPaid, 40),
		at("new-ok", notifications.StatusSuccess, 30),
		at("failed", notifications.StatusFailed, 0),
	}

	sorted := notifications.SortByPriority(list)
	require.Equal(t, []string{"failed", "new-ok", "old-ok", "pending", "paid"}, ids(sorted))
	require.Equal(t, "pending", list[0].ID)
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		at   time.Time
		want string
	}{
		{ago: 30 * time.Second, want: "just now"},
		{ago: 90 * time.Second, want: "just now"},
		{ago: 5 * time.Minute, want: "5 minutes ago"},
		{ago: 59 * time.Minute, want: "59 minutes ago"},
		{ago: 3 * time.Hour, want: "3 hours ago"},
		{ago: 30 * time.Hour, want: "yesterday"},
		{ago: 72 * time.Hour, want: "Mar 7"},
		{at: time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC), want: "Dec 25, 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			at := tt.at
			if at.IsZero() {
				at = now.Add(-tt.ago)
			}
			require.Equal(t, tt.want, notifications.FormatAge(at, now))
		})
	}
}

func TestEffectsFor(t *testing.T) {
	n := func(status notifications.Status, typ, platform string) notifications.Notification {
		return notifications.Notification{
			Record:          notifications.Record{ID: "1", Status: status},
			Type:            typ,
			UUID:            "h-1",
			Platform:        platform,
			ExternalOrderID: "ord 7",
		}
	}

	redirect := notifications.Effect{Kind: notifications.EffectRedirect, URL: "/profile/thank-you?payment=success&id=ord+7"}
	require.Equal(t, []notifications.Effect{redirect}, notifications.EffectsFor(n(notifications.StatusSuccess, "", "CRYPTOMUS")))
	require.Equal(t, []notifications.Effect{redirect}, notifications.EffectsFor(n(notifications.StatusPaid, "", "CRYPTOMUS")))
	require.Empty(t, notifications.EffectsFor(n(notifications.StatusFailed, "", "CRYPTOMUS")))
	require.Empty(t, notifications.EffectsFor(n(notifications.StatusSuccess, "", "STRIPE")))

	open := notifications.Effect{Kind: notifications.EffectOpenDetail, HistoryUUID: "h-1"}
	require.Equal(t, []notifications.Effect{open}, notifications.EffectsFor(n(notifications.StatusSuccess, "video", "")))
	require.Empty(t, notifications.EffectsFor(n(notifications.StatusPending, "video", "")))
	require.Empty(t, notifications.EffectsFor(n(notifications.StatusSuccess, "image", "")))
}
