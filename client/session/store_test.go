package session_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/jrsteele09/go-tenant-admin/client/api/apifake"
	"github.com/jrsteele09/go-tenant-admin/client/session"
	"github.com/jrsteele09/go-tenant-admin/client/storage"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	backend *apifake.Server
	tokens  *storage.TokenStore
	store   *session.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	backend := apifake.NewServer()
	t.Cleanup(backend.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client, err := api.New(backend.URL, &http.Client{Jar: jar})
	require.NoError(t, err)
	tokens, err := storage.NewTokenStore(storage.NewMemoryKV(), jar, backend.URL)
	require.NoError(t, err)

	store, err := session.New(client, tokens)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return &fixture{backend: backend, tokens: tokens, store: store}
}

// tokenLog records every token published to watchers
type tokenLog struct {
	lock   sync.Mutex
	tokens []string
}

func (l *tokenLog) observe(token string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.tokens = append(l.tokens, token)
}

func (l *tokenLog) all() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.tokens...)
}

func TestNew_Validation(t *testing.T) {
	f := setup(t)
	client, err := api.New(f.backend.URL, nil)
	require.NoError(t, err)

	_, err = session.New(nil, f.tokens)
	require.Error(t, err)
	_, err = session.New(client, nil)
	require.Error(t, err)
	_, err = session.New(client, f.tokens, session.WithLoginMaxAge(0))
	require.Error(t, err)
}

func TestInit_NoPersistedToken(t *testing.T) {
	f := setup(t)

	f.store.Init(context.Background())

	st := f.store.State()
	require.False(t, st.Loading)
	require.Empty(t, st.Token)
	require.Nil(t, st.User)
	require.False(t, st.IsAuthenticated())
	require.Zero(t, f.backend.MeCalls())
}

func TestInit_ValidTokenLoadsProfile(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.tokens.Save(apifake.AccessToken, session.DefaultLoginMaxAge))
	release := f.backend.BlockMe()
	t.Cleanup(release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.store.Init(context.Background())
	}()

	require.Eventually(t, func() bool { return f.backend.MeCalls() == 1 }, waitFor, tick)
	st := f.store.State()
	require.True(t, st.Loading)
	require.Equal(t, apifake.AccessToken, st.Token)
	require.False(t, st.IsAuthenticated(), "a token alone is not authenticated")

	release()
	<-done

	st = f.store.State()
	require.False(t, st.Loading)
	require.True(t, st.IsAuthenticated())
	require.Equal(t, apifake.Email, st.User.Email)
	require.Equal(t, users.RoleSuperUser, st.User.Role)
}

func TestInit_InvalidTokenClearsEverything(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.tokens.Save("invalid-token", session.DefaultLoginMaxAge))
	var log tokenLog
	f.store.WatchToken(log.observe)

	f.store.Init(context.Background())

	st := f.store.State()
	require.False(t, st.Loading)
	require.False(t, st.IsAuthenticated())
	require.Empty(t, st.Token)

	persisted, err := f.tokens.Load()
	require.NoError(t, err)
	require.Empty(t, persisted)
	require.Empty(t, f.tokens.CookieToken())
	require.Equal(t, []string{"invalid-token", ""}, log.all())
}

func TestInit_UnreachableBackendClearsToken(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.tokens.Save(apifake.AccessToken, session.DefaultLoginMaxAge))
	f.backend.Close()

	f.store.Init(context.Background())

	require.False(t, f.store.State().IsAuthenticated())
	persisted, err := f.tokens.Load()
	require.NoError(t, err)
	require.Empty(t, persisted)
}

func TestLogin(t *testing.T) {
	f := setup(t)
	var log tokenLog
	f.store.WatchToken(log.observe)

	resp, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)
	require.Equal(t, "mock-access-token", resp.AccessToken)
	require.Equal(t, users.RoleSuperUser, resp.User.Role)

	st := f.store.State()
	require.True(t, st.IsAuthenticated())
	require.Equal(t, apifake.AccessToken, st.Token)

	persisted, err := f.tokens.Load()
	require.NoError(t, err)
	require.Equal(t, apifake.AccessToken, persisted)
	require.Equal(t, apifake.AccessToken, f.tokens.CookieToken())
	require.Equal(t, []string{apifake.AccessToken}, log.all())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setup(t)

	_, err := f.store.Login(context.Background(), apifake.Email, "wrong")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid credentials", apiErr.Message)
	require.False(t, f.store.State().IsAuthenticated())
}

func TestLogin_AlreadyAuthenticatedRedirect(t *testing.T) {
	f := setup(t)
	// the cookie from an earlier session is still in the jar
	require.NoError(t, f.tokens.Save(apifake.AccessToken, session.DefaultLoginMaxAge))

	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	var redirect *api.RedirectError
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, apifake.LoginRedirect, redirect.RedirectTo)

	st := f.store.State()
	require.NotNil(t, st.User)
	require.Equal(t, apifake.Email, st.User.Email)
}

func TestRegister(t *testing.T) {
	f := setup(t)

	resp, err := f.store.Register(context.Background(), api.RegisterRequest{Email: "new@test.com", Password: "password123", Name: "New"})
	require.NoError(t, err)
	require.Equal(t, apifake.RegisterToken, resp.AccessToken)
	require.True(t, f.store.State().IsAuthenticated())
	require.Equal(t, users.RoleUser, f.store.State().User.Role)

	persisted, err := f.tokens.Load()
	require.NoError(t, err)
	require.Equal(t, apifake.RegisterToken, persisted)

	require.NoError(t, f.store.Logout())
	_, err = f.store.Register(context.Background(), api.RegisterRequest{Email: apifake.TakenEmail, Password: "password123", Name: "Dup"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Email already registered", apiErr.Message)
}

func TestLogout(t *testing.T) {
	f := setup(t)
	var log tokenLog
	f.store.WatchToken(log.observe)
	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)

	require.NoError(t, f.store.Logout())

	st := f.store.State()
	require.False(t, st.IsAuthenticated())
	require.Empty(t, st.Token)
	require.Nil(t, st.User)
	persisted, err := f.tokens.Load()
	require.NoError(t, err)
	require.Empty(t, persisted)
	require.Empty(t, f.tokens.CookieToken())
	require.Equal(t, []string{apifake.AccessToken, ""}, log.all())
}

func TestGetProfile(t *testing.T) {
	f := setup(t)

	// no token, no call
	f.store.GetProfile(context.Background())
	require.Zero(t, f.backend.MeCalls())

	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)

	updated := apifake.SuperUser()
	updated.Name = "Renamed"
	f.backend.AddToken(apifake.AccessToken, updated)
	f.store.GetProfile(context.Background())
	require.Equal(t, "Renamed", f.store.State().User.Name)

	// failures keep the current user
	f.backend.RevokeToken(apifake.AccessToken)
	f.store.GetProfile(context.Background())
	st := f.store.State()
	require.True(t, st.IsAuthenticated())
	require.Equal(t, "Renamed", st.User.Name)
}

func TestTokenRefreshed(t *testing.T) {
	f := setup(t)
	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)
	var log tokenLog
	f.store.WatchToken(log.observe)

	renamed := apifake.SuperUser()
	renamed.Name = "After Refresh"
	f.backend.AddToken("refreshed-token", renamed)

	f.store.TokenRefreshed("refreshed-token")

	st := f.store.State()
	require.Equal(t, "refreshed-token", st.Token)
	require.Equal(t, "After Refresh", st.User.Name)
	require.Equal(t, []string{"refreshed-token"}, log.all())
}

func TestTokenRefreshed_ProfileFailureKeepsPreviousUser(t *testing.T) {
	f := setup(t)
	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)

	f.store.TokenRefreshed("unknown-to-backend")

	st := f.store.State()
	require.Equal(t, "unknown-to-backend", st.Token)
	require.NotNil(t, st.User)
	require.Equal(t, apifake.Email, st.User.Email)
	require.True(t, st.IsAuthenticated())
}

func TestTokenRefreshed_IgnoredWithoutSession(t *testing.T) {
	f := setup(t)
	f.store.TokenRefreshed("late-token")
	require.Empty(t, f.store.State().Token)
}

func TestTokenExpired(t *testing.T) {
	f := setup(t)
	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)
	var log tokenLog
	f.store.WatchToken(log.observe)

	f.store.TokenExpired()

	require.False(t, f.store.State().IsAuthenticated())
	require.Equal(t, []string{""}, log.all())
}

func TestWatchToken_Cancel(t *testing.T) {
	f := setup(t)
	var log tokenLog
	cancel := f.store.WatchToken(log.observe)
	cancel()

	_, err := f.store.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)
	require.Empty(t, log.all())
}

func TestClose_DiscardsPendingProfileLoad(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.tokens.Save(apifake.AccessToken, session.DefaultLoginMaxAge))
	release := f.backend.BlockMe()
	t.Cleanup(release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.store.Init(context.Background())
	}()
	require.Eventually(t, func() bool { return f.backend.MeCalls() == 1 }, waitFor, tick)

	f.store.Close()
	release()
	<-done

	st := f.store.State()
	require.True(t, st.Loading)
	require.Nil(t, st.User)
}
