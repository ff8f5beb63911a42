// Package storage persists the session token in a durable key-value store
// and in the cookie presented to the backend. Both copies are always
// written together.
package storage

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// TokenKey is the durable store entry holding the raw token
	TokenKey = "auth_token"
	// CookieName is the cookie the backend reads when no bearer is sent
	CookieName = "token"
)

// TokenStore keeps the durable token entry and the token cookie in sync
type TokenStore struct {
	kv   KV
	jar  http.CookieJar
	url  *url.URL
	lock sync.Mutex
}

// NewTokenStore creates a TokenStore. The cookie is scoped to baseURL's host.
func NewTokenStore(kv KV, jar http.CookieJar, baseURL string) (*TokenStore, error) {
	if kv == nil {
		return nil, errors.New("[NewTokenStore] kv is required")
	}
	if jar == nil {
		return nil, errors.New("[NewTokenStore] cookie jar is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, errors.Errorf("[NewTokenStore] invalid base URL %q", baseURL)
	}
	return &TokenStore{kv: kv, jar: jar, url: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}}, nil
}

// Load returns the persisted token, or "" if there is none
func (s *TokenStore) Load() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	token, ok, err := s.kv.Get(TokenKey)
	if err != nil {
		return "", errors.Wrap(err, "[TokenStore Load]")
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Save overwrites both copies of the token. The cookie expires after maxAge.
func (s *TokenStore) Save(token string, maxAge time.Duration) error {
	if token == "" {
		return errors.New("[TokenStore Save] token is required")
	}
	if maxAge <= 0 {
		return errors.New("[TokenStore Save] max age must be positive")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.kv.Set(TokenKey, token); err != nil {
		return errors.Wrap(err, "[TokenStore Save]")
	}
	s.jar.SetCookies(s.url, []*http.Cookie{s.cookie(token, int(maxAge/time.Second))})
	return nil
}

// Restore sets the cookie for token when the durable entry still holds it.
// It reports false, writing nothing, when the entry holds another token.
func (s *TokenStore) Restore(token string, maxAge time.Duration) (bool, error) {
	if token == "" {
		return false, errors.New("[TokenStore Restore] token is required")
	}
	if maxAge <= 0 {
		return false, errors.New("[TokenStore Restore] max age must be positive")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	current, ok, err := s.kv.Get(TokenKey)
	if err != nil {
		return false, errors.Wrap(err, "[TokenStore Restore]")
	}
	if !ok || current != token {
		return false, nil
	}
	s.jar.SetCookies(s.url, []*http.Cookie{s.cookie(token, int(maxAge/time.Second))})
	return true, nil
}

// Clear removes both copies of the token. The cookie is left alone when
// the durable entry cannot be deleted.
func (s *TokenStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.kv.Delete(TokenKey); err != nil {
		return errors.Wrap(err, "[TokenStore Clear]")
	}
	s.jar.SetCookies(s.url, []*http.Cookie{s.cookie("", -1)})
	return nil
}

// CookieToken returns the token cookie currently held by the jar
func (s *TokenStore) CookieToken() string {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, c := range s.jar.Cookies(s.url) {
		if c.Name == CookieName {
			return c.Value
		}
	}
	return ""
}

// cookie builds the token cookie. A negative maxAge expires it immediately.
func (s *TokenStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: http.SameSiteLaxMode,
	}
}
