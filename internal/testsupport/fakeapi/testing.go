package fakeapi

import (
	"net/http/httptest"
	"testing"
)

// Start serves a new fake backend for the duration of the test.
func Start(t testing.TB, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()

	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}
