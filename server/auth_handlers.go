package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-admin/auth"
)

func requestMeta(r *http.Request) auth.Meta {
	return auth.Meta{
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
		CurrentToken: bearerToken(r),
	}
}

// LoginHandler answers POST /auth/login with {accessToken, user}
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := s.auth.Login(r.Context(), req, requestMeta(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RegisterHandler answers POST /auth/register with {accessToken, user}
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := s.auth.Register(r.Context(), req, requestMeta(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// MeHandler answers GET /auth/me with the caller's profile
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())
		user, err := s.auth.Profile(r.Context(), claims)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// RefreshHandler answers POST /auth/refresh with {accessToken}. The
// presented token must still be valid.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())
		resp, err := s.auth.Refresh(r.Context(), claims, requestMeta(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
