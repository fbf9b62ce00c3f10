package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes one API call. Body is JSON encoded; a []byte or
// json.RawMessage body is sent as is.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful API response. Data holds the "data" member of an
// enveloped JSON body, or the whole body when there is no envelope.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Data       json.RawMessage
}

// Decode unmarshals Data into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DecodeBody unmarshals the raw body into v, ignoring any envelope.
func (r *Response) DecodeBody(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// attempt is a request in flight. retried is set once the request has been
// replayed after a refresh; a retried request is never refreshed again.
type attempt struct {
	req       *Request
	body      []byte
	retried   bool
	sentToken string // access token carried by the most recent send
}

func newAttempt(req *Request) (*attempt, error) {
	if req == nil {
		return nil, fmt.Errorf("apiclient: nil request")
	}
	at := &attempt{req: req}
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		at.body = b
	case json.RawMessage:
		at.body = b
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode %s %s body: %w", req.Method, req.Path, err)
		}
		at.body = encoded
	}
	return at, nil
}

func (at *attempt) bodyReader() *bytes.Reader {
	if at.body == nil {
		return nil
	}
	return bytes.NewReader(at.body)
}

// envelopeData returns the "data" member of a JSON object body, else the body.
func envelopeData(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return json.RawMessage(trimmed)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return json.RawMessage(trimmed)
	}
	if data, ok := env["data"]; ok && len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		return data
	}
	return json.RawMessage(trimmed)
}
