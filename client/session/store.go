// Package session holds the authentication state of one running client:
// the current user, the current token and whether the initial profile load
// is still running.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/jrsteele09/go-tenant-admin/client/refresh"
	"github.com/jrsteele09/go-tenant-admin/client/tokens"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultLoginMaxAge is the cookie lifetime written on login and register
	DefaultLoginMaxAge = 7 * 24 * time.Hour

	defaultRequestTimeout = 30 * time.Second
)

// Transport performs the auth calls the store needs
type Transport interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Me(ctx context.Context, token string) (*users.User, error)
}

// TokenStore persists the token in durable storage and the cookie
type TokenStore interface {
	Load() (string, error)
	Save(token string, maxAge time.Duration) error
	Restore(token string, maxAge time.Duration) (bool, error)
	Clear() error
}

var (
	_ Transport        = (*api.Client)(nil)
	_ refresh.Listener = (*Store)(nil)
)

// State is a snapshot of the authentication state
type State struct {
	User    *users.User
	Token   string
	Loading bool
}

// IsAuthenticated needs both a token and a loaded user
func (s State) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

type watcher struct {
	id int
	fn func(token string)
}

type Store struct {
	transport      Transport
	tokens         TokenStore
	loginMaxAge    time.Duration
	requestTimeout time.Duration
	baseCtx        context.Context
	nowTime        func() time.Time
	logger         zerolog.Logger

	lock      sync.Mutex
	state     State
	closed    bool
	watchers  []watcher
	watcherID int

	// publishLock orders token notifications so watchers always end on the
	// latest token
	publishLock sync.Mutex
}

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLoginMaxAge sets the cookie lifetime used after login and register
func WithLoginMaxAge(d time.Duration) Option {
	return func(s *Store) {
		s.loginMaxAge = d
	}
}

// WithContext sets the parent context of profile fetches started by
// refresh notifications
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		s.baseCtx = ctx
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.requestTimeout = d
	}
}

// WithNowTime sets the clock used to measure a resumed token's remaining
// lifetime
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func New(transport Transport, tokenStore TokenStore, options ...Option) (*Store, error) {
	if transport == nil {
		return nil, errors.New("[session New] transport is required")
	}
	if tokenStore == nil {
		return nil, errors.New("[session New] token store is required")
	}
	s := &Store{
		transport:      transport,
		tokens:         tokenStore,
		loginMaxAge:    DefaultLoginMaxAge,
		requestTimeout: defaultRequestTimeout,
		baseCtx:        context.Background(),
		nowTime:        time.Now,
		logger:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.loginMaxAge <= 0 {
		return nil, errors.New("[session New] login max age must be positive")
	}
	return s, nil
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.snapshotLocked()
}

// WatchToken registers fn to be called with the token each time it changes
// ("" when the session ends). The returned func unregisters it.
func (s *Store) WatchToken(fn func(token string)) (cancel func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.watcherID++
	id := s.watcherID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		for i, w := range s.watchers {
			if w.id == id {
				s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// Init loads the persisted token and validates it by fetching the profile.
// A token the backend does not accept is removed from memory and storage.
func (s *Store) Init(ctx context.Context) {
	token, err := s.tokens.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load persisted token")
	}

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	if token == "" {
		s.state = State{}
		s.lock.Unlock()
		return
	}
	s.state = State{Token: token, Loading: true}
	s.lock.Unlock()
	s.publish()

	user, err := s.transport.Me(ctx, token)

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	if s.state.Token != token {
		// a login or logout happened while the profile was loading
		s.state.Loading = false
		s.lock.Unlock()
		return
	}
	if err != nil {
		s.state = State{}
		s.lock.Unlock()
		s.logger.Debug().Err(err).Msg("Persisted token rejected, clearing session")
		s.clearPersisted()
		s.publish()
		return
	}
	s.state.User = user
	s.state.Loading = false
	s.lock.Unlock()
	s.restoreCookie(token)
}

// Login posts the credentials and starts a session. An already
// authenticated caller gets *api.RedirectError; other failures carry the
// server message in *api.Error.
func (s *Store) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	resp, err := s.transport.Login(ctx, email, password)
	if err != nil {
		return nil, s.authFailure(err)
	}
	s.begin(resp)
	return resp, nil
}

// Register creates an account and starts a session, like Login
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	resp, err := s.transport.Register(ctx, req)
	if err != nil {
		return nil, s.authFailure(err)
	}
	s.begin(resp)
	return resp, nil
}

// Logout forgets the session locally. The backend is not called; the token
// simply stops being presented.
func (s *Store) Logout() error {
	s.lock.Lock()
	if !s.closed {
		s.state = State{}
	}
	s.lock.Unlock()

	// idle the scheduler first so a refresh finishing now cannot persist
	// its token after the clear
	s.publish()
	if err := s.tokens.Clear(); err != nil {
		return errors.Wrap(err, "[session Logout]")
	}
	return nil
}

// GetProfile re-fetches the current user. Failures keep the previous user.
func (s *Store) GetProfile(ctx context.Context) {
	s.lock.Lock()
	token := s.state.Token
	s.lock.Unlock()
	if token == "" {
		return
	}

	user, err := s.transport.Me(ctx, token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Profile refresh failed")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed || s.state.Token != token {
		return
	}
	s.state.User = user
}

// TokenRefreshed adopts a token renewed by the refresh scheduler, then
// reloads the profile. When that reload fails the previous user is kept
// alongside the new token.
func (s *Store) TokenRefreshed(token string) {
	s.lock.Lock()
	if s.closed || s.state.Token == "" {
		s.lock.Unlock()
		return
	}
	s.state.Token = token
	s.lock.Unlock()
	s.publish()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.requestTimeout)
	defer cancel()
	s.GetProfile(ctx)
}

// TokenExpired drops the session after the backend refused to renew it.
// The persisted copies are already gone at this point.
func (s *Store) TokenExpired() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.state = State{}
	s.lock.Unlock()
	s.publish()
}

// Close stops all further state changes and drops the watchers. Calls in
// flight complete but their results are discarded.
func (s *Store) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	s.watchers = nil
}

func (s *Store) begin(resp *api.AuthResponse) {
	if err := s.tokens.Save(resp.AccessToken, s.loginMaxAge); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist token")
	}

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.state = State{User: resp.User, Token: resp.AccessToken}
	s.lock.Unlock()
	s.publish()
}

func (s *Store) authFailure(err error) error {
	var redirect *api.RedirectError
	if !errors.As(err, &redirect) {
		return err
	}
	if redirect.User != nil {
		s.lock.Lock()
		if !s.closed {
			s.state.User = redirect.User
		}
		s.lock.Unlock()
	}
	return redirect
}

// restoreCookie puts a resumed token back into the cookie jar, which does
// not outlive the process. The cookie expires with the token. Nothing is
// written once storage holds a different token.
func (s *Store) restoreCookie(token string) {
	remaining, ok := tokens.NewInspector(s.nowTime).TimeRemaining(token)
	if !ok || remaining < time.Second {
		return
	}
	restored, err := s.tokens.Restore(token, remaining)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to restore token cookie")
		return
	}
	if !restored {
		s.logger.Debug().Msg("Token changed while resuming, cookie not restored")
	}
}

func (s *Store) clearPersisted() {
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear persisted token")
	}
}

// publish sends the current token to every watcher
func (s *Store) publish() {
	s.publishLock.Lock()
	defer s.publishLock.Unlock()

	s.lock.Lock()
	token := s.state.Token
	watchers := append([]watcher(nil), s.watchers...)
	s.lock.Unlock()

	for _, w := range watchers {
		w.fn(token)
	}
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}
