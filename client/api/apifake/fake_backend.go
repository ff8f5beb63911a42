// Package apifake is an in-memory stand-in for the admin backend's auth
// endpoints, served over httptest.
package apifake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/jrsteele09/go-tenant-admin/users"
)

const (
	Email          = "admin@test.com"
	Password       = "password123"
	AccessToken    = "mock-access-token"
	RegisterToken  = "mock-register-token"
	RefreshedToken = "mock-refreshed-token"
	TakenEmail     = "taken@test.com"
	LoginRedirect  = "/dashboard"
)

// Server is a fake backend. Tokens it knows map to users; every other
// bearer is rejected with 401.
type Server struct {
	*httptest.Server

	lock          sync.Mutex
	tokens        map[string]*users.User
	refreshStatus int
	refreshToken  string
	refreshCalls  int
	meCalls       int
	meGate        chan struct{}
	refreshGate   chan struct{}
}

// NewServer starts a fake backend. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		tokens:        map[string]*users.User{AccessToken: SuperUser()},
		refreshStatus: http.StatusOK,
		refreshToken:  RefreshedToken,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("GET /auth/me", s.me)
	mux.HandleFunc("POST /auth/refresh", s.refresh)
	mux.HandleFunc("GET /tenants", s.listTenants)
	s.Server = httptest.NewServer(mux)
	return s
}

// SuperUser is the account behind Email and Password
func SuperUser() *users.User {
	return &users.User{
		ID:     "super-user-1",
		Email:  Email,
		Name:   "Super User",
		Role:   users.RoleSuperUser,
		Active: true,
	}
}

var signingKey = []byte("apifake-signing-key")

// MakeToken signs a token for sub expiring at exp. The fake never verifies
// it; only its claims matter to the client.
func MakeToken(sub string, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(users.RoleSuperUser),
		"iat":  exp.Add(-time.Hour).Unix(),
		"exp":  exp.Unix(),
	}).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return token
}

// AddToken makes token valid for user
func (s *Server) AddToken(token string, user *users.User) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokens[token] = user
}

// RevokeToken makes token invalid
func (s *Server) RevokeToken(token string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.tokens, token)
}

// SetRefreshResponse controls /auth/refresh. Non-200 statuses answer with
// that status; 200 issues token for the caller's user.
func (s *Server) SetRefreshResponse(status int, token string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshStatus = status
	s.refreshToken = token
}

func (s *Server) RefreshCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshCalls
}

func (s *Server) MeCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.meCalls
}

// BlockMe holds /auth/me requests until release is called
func (s *Server) BlockMe() (release func()) {
	return s.block(&s.meGate)
}

// BlockRefresh holds /auth/refresh requests until release is called
func (s *Server) BlockRefresh() (release func()) {
	return s.block(&s.refreshGate)
}

func (s *Server) block(gate *chan struct{}) func() {
	ch := make(chan struct{})
	s.lock.Lock()
	*gate = ch
	s.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			*gate = nil
			s.lock.Unlock()
			close(ch)
		})
	}
}

func (s *Server) wait(r *http.Request, gate chan struct{}) {
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-r.Context().Done():
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if user := s.presented(r); user != nil {
		writeJSON(w, http.StatusForbidden, map[string]any{"redirectTo": LoginRedirect, "user": user})
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email != Email || req.Password != Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": AccessToken, "user": SuperUser()})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if user := s.presented(r); user != nil {
		writeJSON(w, http.StatusForbidden, map[string]any{"redirectTo": LoginRedirect, "user": user})
		return
	}
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     string  `json:"name"`
		TenantID *string `json:"tenantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == Email || req.Email == TakenEmail {
		writeMessage(w, http.StatusBadRequest, "Email already registered")
		return
	}
	user := &users.User{
		ID:       "user-" + req.Email,
		Email:    req.Email,
		Name:     req.Name,
		Role:     users.RoleUser,
		TenantID: req.TenantID,
		Active:   true,
	}
	s.AddToken(RegisterToken, user)
	writeJSON(w, http.StatusCreated, map[string]any{"accessToken": RegisterToken, "user": user})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	s.meCalls++
	gate := s.meGate
	s.lock.Unlock()
	s.wait(r, gate)

	user := s.lookup(bearer(r))
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	s.refreshCalls++
	gate := s.refreshGate
	status, next := s.refreshStatus, s.refreshToken
	s.lock.Unlock()
	s.wait(r, gate)

	user := s.lookup(bearer(r))
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if status != http.StatusOK {
		writeMessage(w, status, http.StatusText(status))
		return
	}
	s.AddToken(next, user)
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": next})
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	if s.lookup(bearer(r)) == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	all := []*tenants.Tenant{
		{ID: "tenant-1", Name: "Acme Corp", Slug: "acme-corp", Active: true},
		{ID: "tenant-2", Name: "Globex", Slug: "globex", Active: false},
	}
	page := utils.NormalisePage(0, 0)
	writeJSON(w, http.StatusOK, tenants.ListResult{Tenants: all, Total: len(all), Offset: page.Offset, Limit: page.Limit})
}

// presented returns the user behind the bearer or token cookie, if any
func (s *Server) presented(r *http.Request) *users.User {
	if user := s.lookup(bearer(r)); user != nil {
		return user
	}
	if c, err := r.Cookie("token"); err == nil {
		return s.lookup(c.Value)
	}
	return nil
}

func (s *Server) lookup(token string) *users.User {
	if token == "" {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.tokens[token]
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
