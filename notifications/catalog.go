package notifications

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	TypeVideo         = "video"
	TypeImage         = "image"
	TypeTTSHistory    = "tts_history"
	TypeVoiceTraining = "voice_training"
	TypeMusic         = "music"
	TypeSpeech        = "speech"
)

const (
	iconPending = "i-fa-clock"
	iconSuccess = "i-fa-check-circle"
	iconFailed  = "ooui:error"
	iconDefault = "i-fa-bell"

	truncateAt = 20
)

// Display is how a notification is presented.
type Display struct {
	Icon        string
	Title       string
	Description string
	Color       string
}

type typeInfo struct {
	label        string
	successColor string
	successIcon  string
}

var typeInfos = map[string]typeInfo{
	TypeVideo:         {label: "Video", successColor: "green", successIcon: "hugeicons:ai-video"},
	TypeImage:         {label: "Image", successColor: "purple", successIcon: "hugeicons:ai-image"},
	TypeTTSHistory:    {label: "Text to speech", successColor: "blue", successIcon: iconSuccess},
	TypeVoiceTraining: {label: "Voice training", successColor: "green", successIcon: iconSuccess},
	TypeMusic:         {label: "Music", successColor: "indigo", successIcon: iconSuccess},
	TypeSpeech:        {label: "Speech", successColor: "teal", successIcon: iconSuccess},
}

var defaultDisplay = Display{
	Icon:        iconDefault,
	Title:       "Notification",
	Description: "You have a new notification",
	Color:       "gray",
}

var catalog = buildCatalog()

func buildCatalog() map[string]Display {
	c := make(map[string]Display, len(typeInfos)*3)
	for typ, info := range typeInfos {
		c[key(typ, StatusPending)] = Display{
			Icon:        iconPending,
			Title:       info.label + " in progress",
			Description: "Your " + strings.ToLower(info.label) + " is being generated",
			Color:       "gray",
		}
		c[key(typ, StatusSuccess)] = Display{
			Icon:        info.successIcon,
			Title:       info.label + " ready",
			Description: "Your " + strings.ToLower(info.label) + " has been generated successfully",
			Color:       info.successColor,
		}
		c[key(typ, StatusFailed)] = Display{
			Icon:        iconFailed,
			Title:       info.label + " failed",
			Description: "We could not generate your " + strings.ToLower(info.label),
			Color:       "red",
		}
	}
	return c
}

func key(typ string, status Status) string {
	return typ + "_" + strconv.Itoa(int(status))
}

// DisplayFor looks up the display for a type and status, falling back to
// the generic bell.
func DisplayFor(typ string, status Status) Display {
	if d, ok := catalog[key(typ, status)]; ok {
		return d
	}
	return defaultDisplay
}

// Supported reports whether a type and status pair has its own display.
func Supported(typ string, status Status) bool {
	_, ok := catalog[key(typ, status)]
	return ok
}

// Types lists the catalog keys, sorted.
func Types() []string {
	keys := make([]string, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func Title(n Notification) string {
	return DisplayFor(n.Kind(), n.Status).Title
}

// Describe returns the display description followed by the job's input
// text or prompt, truncated.
func Describe(n Notification) string {
	base := DisplayFor(n.Kind(), n.Status).Description
	input := n.InputText
	if input == "" {
		input = n.Prompt
	}
	if input == "" {
		return base
	}
	return fmt.Sprintf("%s - \"%s\"", base, Truncate(input, truncateAt))
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Priority orders failures first, then successes, then everything else.
func Priority(n Notification) int {
	switch n.Status {
	case StatusFailed:
		return 1
	case StatusSuccess:
		return 2
	default:
		return 3
	}
}

// SortByPriority returns a copy of list ordered by Priority, newest first
// within a priority.
func SortByPriority(list []Notification) []Notification {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b Notification) int {
		if pa, pb := Priority(a), Priority(b); pa != pb {
			return pa - pb
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// FormatAge renders how long ago t was, relative to now.
func FormatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		minutes := int(d / time.Minute)
		if minutes <= 1 {
			return "just now"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	case d < 48*time.Hour:
		return "yesterday"
	case t.Year() != now.Year():
		return t.Format("Jan 2, 2006")
	default:
		return t.Format("Jan 2")
	}
}
