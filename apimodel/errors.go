package apimodel

import (
	"bytes"
	"encoding/json"
)

// ErrorEnvelope is the error body shape returned by the backend. Detail may be
// a string or a structured validation report.
type ErrorEnvelope struct {
	Detail  json.RawMessage `json:"detail,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ErrorMessage extracts a human readable message from an error body, trying
// detail, then message, then error. It returns "" when none is present.
func ErrorMessage(body []byte) string {
	var env ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if msg := detailText(env.Detail); msg != "" {
		return msg
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}

func detailText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Validation errors arrive as [{"loc": [...], "msg": "..."}].
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
