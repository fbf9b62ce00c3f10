// Package notifications turns encrypted rows of the notifications table
// into a merged, paginated feed and maps finished jobs to client actions.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the job state carried by a notification.
type Status int

const (
	StatusPending Status = 1
	StatusSuccess Status = 2
	StatusFailed  Status = 3
	StatusPaid    Status = 8 // payment settled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusPaid:
		return "paid"
	default:
		return strconv.Itoa(int(s))
	}
}

// Record is one row of the notifications table. Data is the encrypted
// payload; the other fields are stored in the clear.
type Record struct {
	ID        string    `json:"id"`
	UserUUID  string    `json:"user_uuid"`
	EventType string    `json:"event_type"`
	Status    Status    `json:"status"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
	Data      string    `json:"data"`
}

// Postgres renders timestamp columns without a zone when serialised by row_to_json.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
}

// UnmarshalJSON accepts numeric ids and the timestamp shapes Postgres emits.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		UserUUID  string          `json:"user_uuid"`
		EventType *string         `json:"event_type"`
		Status    Status          `json:"status"`
		Seen      *bool           `json:"seen"`
		CreatedAt string          `json:"created_at"`
		Data      *string         `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Record{UserUUID: raw.UserUUID, Status: raw.Status}
	r.ID = strings.Trim(string(bytes.TrimSpace(raw.ID)), `"`)
	if r.ID == "null" {
		r.ID = ""
	}
	if raw.EventType != nil {
		r.EventType = *raw.EventType
	}
	if raw.Seen != nil {
		r.Seen = *raw.Seen
	}
	if raw.Data != nil {
		r.Data = *raw.Data
	}
	if raw.CreatedAt != "" {
		t, err := parseTime(raw.CreatedAt)
		if err != nil {
			return err
		}
		r.CreatedAt = t
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("notifications: unrecognised timestamp %q", s)
}

// Notification is a Record with its decrypted payload applied. The record's
// own fields are never overwritten by payload fields of the same name.
type Notification struct {
	Record

	Type            string // job type: video, image, tts_history, ...
	UUID            string // uuid of the job's history entry
	HistoryUUID     string
	RedirectURL     string
	ExternalOrderID string
	Platform        string
	InputText       string
	Prompt          string

	// Details holds every decrypted field from history, order_history and
	// block, later sources winning on conflicts.
	Details map[string]any
}

// Kind returns the job type used for display, falling back to the event type.
func (n Notification) Kind() string {
	if n.Type != "" {
		return n.Type
	}
	return n.EventType
}

// DetailUUID is the history entry a detail view should open.
func (n Notification) DetailUUID() string {
	if n.HistoryUUID != "" {
		return n.HistoryUUID
	}
	return n.UUID
}

// Parse decrypts rec with passphrase and applies the payload. It always
// returns a usable Notification; a non-nil error means the payload could
// not be read and only the record's own fields are set.
func Parse(rec Record, passphrase string) (Notification, error) {
	n := Notification{Record: rec, Details: map[string]any{}}
	if rec.Data == "" {
		return n, nil
	}
	payload, err := Decrypt(rec.Data, passphrase)
	if err != nil {
		return n, fmt.Errorf("notification %s: %w", rec.ID, err)
	}

	for _, section := range []string{"history", "order_history", "block"} {
		for k, v := range embeddedObject(payload[section]) {
			n.Details[k] = v
		}
	}
	n.Type = stringField(n.Details, "type")
	n.UUID = stringField(n.Details, "uuid")
	n.HistoryUUID = stringField(n.Details, "history_uuid")
	n.ExternalOrderID = stringField(n.Details, "external_order_id")
	n.Platform = stringField(n.Details, "platform")
	n.InputText = stringField(n.Details, "input_text")
	n.Prompt = stringField(n.Details, "prompt")
	n.RedirectURL, _ = payload["redirect_url"].(string)
	return n, nil
}

// embeddedObject reads a payload section, which the backend stores as a
// JSON encoded string. Anything unreadable yields nil.
func embeddedObject(v any) map[string]any {
	switch s := v.(type) {
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil
		}
		return obj
	case map[string]any:
		return s
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
