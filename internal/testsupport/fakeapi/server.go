// Package fakeapi is an in-process stand-in for the generation backend. It
// issues rotating JWT token pairs, enforces bearer auth and records every
// request so tests can assert on refresh and replay behaviour.
package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	tokenjwt "github.com/jrsteele09/go-imagen-client/token/jwt"
)

const (
	DefaultEmail      = "jane@example.com"
	DefaultPassword   = "password123"
	DefaultUserUUID   = "9d5c7a52-5f8e-4c1a-9a43-2f4f7d3e1b10"
	GoogleCredential  = "google-id-token"
	defaultSecret     = "fakeapi-secret"
	refreshTokenLife  = 30 * 24 * time.Hour
	accessTokenLife   = 15 * time.Minute
	defaultRefreshURL = "/refresh-token"
)

// RecordedRequest is one request as seen by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	Body          []byte
}

type user struct {
	UUID     string `json:"uuid"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Plan     string `json:"plan"`
	Credits  int    `json:"credits_remaining"`
	password string
}

type Option func(*Server)

// WithRefreshPath serves the refresh endpoint at path.
func WithRefreshPath(path string) Option {
	return func(s *Server) {
		s.refreshPath = path
	}
}

// WithAuthFailureStatus sets the status returned for an unknown or expired access token.
func WithAuthFailureStatus(status int) Option {
	return func(s *Server) {
		s.authStatus = status
	}
}

// WithRefreshDelay delays every refresh response, widening the window in
// which concurrent requests pile up behind it.
func WithRefreshDelay(d time.Duration) Option {
	return func(s *Server) {
		s.refreshDelay = d
	}
}

type Server struct {
	mux          *http.ServeMux
	creator      *tokenjwt.Creator
	refreshPath  string
	authStatus   int
	refreshDelay time.Duration

	mu             sync.Mutex
	users          map[string]*user  // by email
	access         map[string]string // valid access token -> user uuid
	refresh        map[string]string // valid refresh token -> user uuid
	refreshCalls   int
	refreshFail    int // status to fail refreshes with, 0 for success
	requests       []RecordedRequest
	readIDs        []string
	readAll        int
	histories      []map[string]any
	resourceCounts map[string]int
}

func New(opts ...Option) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		creator:        tokenjwt.NewCreator(defaultSecret, accessTokenLife),
		refreshPath:    defaultRefreshURL,
		authStatus:     http.StatusUnauthorized,
		users:          make(map[string]*user),
		access:         make(map[string]string),
		refresh:        make(map[string]string),
		resourceCounts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.users[DefaultEmail] = &user{
		UUID:     DefaultUserUUID,
		Email:    DefaultEmail,
		FullName: "Jane Doe",
		Plan:     "pro",
		Credits:  120,
		password: DefaultPassword,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /login-v2", s.record(s.handleLogin))
	s.mux.HandleFunc("POST /signup", s.record(s.handleSignup))
	s.mux.HandleFunc("POST /google-login-v2", s.record(s.handleGoogleLogin))
	s.mux.HandleFunc("POST "+s.refreshPath, s.record(s.handleRefresh))
	s.mux.HandleFunc("GET /me", s.record(s.authed(s.handleMe)))
	s.mux.HandleFunc("GET /user/stats", s.record(s.authed(s.handleStats)))
	s.mux.HandleFunc("PUT /user/preferences", s.record(s.authed(s.handlePreferences)))
	s.mux.HandleFunc("GET /resource/{name}", s.record(s.authed(s.handleResource)))
	s.mux.HandleFunc("GET /boom", s.record(s.authed(s.handleBoom)))
	s.mux.HandleFunc("PUT /user/read-notification/{id}", s.record(s.authed(s.handleRead)))
	s.mux.HandleFunc("PUT /user/read-all-notifications", s.record(s.authed(s.handleReadAll)))
	s.mux.HandleFunc("POST /create_image", s.record(s.authed(s.handleGenerate("image"))))
	s.mux.HandleFunc("POST /video-gen/veo", s.record(s.authed(s.handleGenerate("video"))))
	s.mux.HandleFunc("POST /text-to-speech", s.record(s.authed(s.handleGenerate("tts_history"))))
	s.mux.HandleFunc("GET /histories", s.record(s.authed(s.handleHistories)))
	s.mux.HandleFunc("GET /history/{uuid}", s.record(s.authed(s.handleHistory)))
	s.mux.HandleFunc("/", s.record(func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	}))
}

type handler func(w http.ResponseWriter, r *http.Request, body []byte)

type authedHandler func(w http.ResponseWriter, r *http.Request, body []byte, u *user)

func (s *Server) record(next handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()
		next(w, r, body)
	}
}

func (s *Server) authed(next authedHandler) handler {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		tok := bearer(r)
		s.mu.Lock()
		uid, ok := s.access[tok]
		var u *user
		if ok {
			u = s.userByUUID(uid)
		}
		s.mu.Unlock()
		if !ok || u == nil {
			writeJSON(w, s.authStatus, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		if _, err := s.creator.Verify(tok, "access"); err != nil {
			writeJSON(w, s.authStatus, map[string]any{"detail": "Token expired"})
			return
		}
		next(w, r, body, u)
	}
}

// issue mints a token pair for u. Caller holds s.mu.
func (s *Server) issue(u *user) (map[string]any, error) {
	access, err := s.creator.CreateAccessToken(u.UUID, u.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.creator.CreateRefreshToken(u.UUID, refreshTokenLife)
	if err != nil {
		return nil, err
	}
	s.access[access] = u.UUID
	s.refresh[refresh] = u.UUID
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    int(accessTokenLife.Seconds()),
		"user":          u,
	}, nil
}

func (s *Server) userByUUID(id string) *user {
	for _, u := range s.users {
		if u.UUID == id {
			return u
		}
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{{"loc": []string{"body"}, "msg": "invalid body"}}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(req.Email)]
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Incorrect email or password"})
		return
	}
	s.writeTokens(w, u)
}

func (s *Server) handleSignup(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(req.Email)
	if _, exists := s.users[email]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "Email already registered"})
		return
	}
	u := &user{UUID: uuid.NewString(), Email: email, FullName: req.FullName, Plan: "free", Credits: 10, password: req.Password}
	s.users[email] = u
	s.writeTokens(w, u)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Credential string `json:"credential"`
	}
	_ = json.Unmarshal(body, &req)
	if req.Credential != GoogleCredential {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid google credential"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeTokens(w, s.users[DefaultEmail])
}

// writeTokens responds with a fresh pair wrapped in a data envelope. Caller holds s.mu.
func (s *Server) writeTokens(w http.ResponseWriter, u *user) {
	pair, err := s.issue(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": pair})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, _ []byte) {
	if s.refreshDelay > 0 {
		time.Sleep(s.refreshDelay)
	}
	tok := bearer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshFail != 0 {
		writeJSON(w, s.refreshFail, map[string]any{"detail": "Refresh token revoked"})
		return
	}
	uid, ok := s.refresh[tok]
	if !ok {
		writeJSON(w, s.authStatus, map[string]any{"detail": "Invalid refresh token"})
		return
	}
	delete(s.refresh, tok)
	pair, err := s.issue(s.userByUUID(uid))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": err.Error()})
		return
	}
	delete(pair, "user")
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, _ []byte, u *user) {
	writeJSON(w, http.StatusOK, map[string]any{"data": u})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request, _ []byte, u *user) {
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"images_generated":   42,
		"total_credits_used": 180,
		"credits_remaining":  u.Credits,
	}})
}

// handlePreferences echoes the preferences back with a default style filled in.
func (s *Server) handlePreferences(w http.ResponseWriter, _ *http.Request, body []byte, _ *user) {
	var prefs map[string]any
	if err := json.Unmarshal(body, &prefs); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}
	if style, _ := prefs["preferred_style"].(string); style == "" {
		prefs["preferred_style"] = "realistic"
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": prefs})
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request, _ []byte, _ *user) {
	name := r.PathValue("name")
	s.mu.Lock()
	s.resourceCounts[name]++
	n := s.resourceCounts[name]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"name": name, "served": n}})
}

func (s *Server) handleBoom(w http.ResponseWriter, _ *http.Request, _ []byte, _ *user) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "generation service unavailable"})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request, _ []byte, _ *user) {
	s.mu.Lock()
	s.readIDs = append(s.readIDs, r.PathValue("id"))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleReadAll(w http.ResponseWriter, _ *http.Request, _ []byte, _ *user) {
	s.mu.Lock()
	s.readAll++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGenerate(kind string) authedHandler {
	return func(w http.ResponseWriter, _ *http.Request, body []byte, u *user) {
		var input map[string]any
		if err := json.Unmarshal(body, &input); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
			return
		}
		item := map[string]any{
			"uuid":       uuid.NewString(),
			"type":       kind,
			"status":     1,
			"user_uuid":  u.UUID,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range input {
			item[k] = v
		}
		s.mu.Lock()
		s.histories = append([]map[string]any{item}, s.histories...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": item})
	}
}

func (s *Server) handleHistories(w http.ResponseWriter, r *http.Request, _ []byte, _ *user) {
	q := r.URL.Query()
	filter := q.Get("filter_by")
	perPage := atoiDefault(q.Get("items_per_page"), 10)
	page := atoiDefault(q.Get("page"), 1)

	s.mu.Lock()
	var matched []map[string]any
	for _, h := range s.histories {
		if filter == "" || filter == "all" || h["type"] == filter {
			matched = append(matched, h)
		}
	}
	s.mu.Unlock()

	start := (page - 1) * perPage
	end := min(start+perPage, len(matched))
	result := []map[string]any{}
	if start < len(matched) {
		result = matched[start:end]
	}
	lastPage := (len(matched) + perPage - 1) / perPage
	writeJSON(w, http.StatusOK, map[string]any{
		"result":       result,
		"total":        len(matched),
		"current_page": page,
		"per_page":     perPage,
		"last_page":    max(lastPage, 1),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, _ []byte, _ *user) {
	id := r.PathValue("uuid")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.histories {
		if h["uuid"] == id {
			writeJSON(w, http.StatusOK, map[string]any{"data": h})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "History not found"})
}
