// Package refresh keeps a session token alive by renewing it shortly before
// it expires.
//
// A Scheduler observes the current token. For each new token it arms a
// one-shot task at expiry minus the refresh threshold and a periodic safety
// check that covers delayed timers and tokens whose expiry cannot be read.
// At most one refresh call is in flight at any time.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/jrsteele09/go-tenant-admin/client/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultThreshold     = 5 * time.Minute
	DefaultCheckInterval = 5 * time.Minute
	// DefaultCookieMaxAge is the cookie lifetime written after a refresh
	DefaultCookieMaxAge = 16 * time.Hour

	defaultRequestTimeout = 30 * time.Second
)

// Refresher exchanges a token for its successor
type Refresher interface {
	Refresh(ctx context.Context, token string) (string, error)
}

// TokenStore persists the token in durable storage and the cookie
type TokenStore interface {
	Save(token string, maxAge time.Duration) error
	Clear() error
}

// Listener is told about the outcome of refresh calls. Methods are called
// without any scheduler lock held.
type Listener interface {
	TokenRefreshed(token string)
	TokenExpired()
}

var (
	_ Refresher = (*api.Client)(nil)
	_ Listener  = ListenerFuncs{}
)

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Refreshed func(token string)
	Expired   func()
}

func (l ListenerFuncs) TokenRefreshed(token string) {
	if l.Refreshed != nil {
		l.Refreshed(token)
	}
}

func (l ListenerFuncs) TokenExpired() {
	if l.Expired != nil {
		l.Expired()
	}
}

type Scheduler struct {
	refresher      Refresher
	store          TokenStore
	listener       Listener
	clock          clockwork.Clock
	inspector      *tokens.Inspector
	threshold      time.Duration
	interval       time.Duration
	cookieMaxAge   time.Duration
	requestTimeout time.Duration
	baseCtx        context.Context
	logger         zerolog.Logger

	lock       sync.Mutex
	token      string
	generation uint64
	oneShot    *Task
	periodic   *Task
	inFlight   bool
	stopped    bool
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithThreshold sets how long before expiry a token is renewed
func WithThreshold(d time.Duration) Option {
	return func(s *Scheduler) {
		s.threshold = d
	}
}

// WithCheckInterval sets the period of the safety check
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

func WithCookieMaxAge(d time.Duration) Option {
	return func(s *Scheduler) {
		s.cookieMaxAge = d
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.requestTimeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithContext sets the parent context of refresh calls. Stop does not
// cancel calls already in flight; their results are discarded.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		s.baseCtx = ctx
	}
}

// New creates an idle Scheduler. Call Observe with the current token to
// start it.
func New(refresher Refresher, store TokenStore, listener Listener, options ...Option) (*Scheduler, error) {
	if refresher == nil {
		return nil, errors.New("[refresh New] refresher is required")
	}
	if store == nil {
		return nil, errors.New("[refresh New] token store is required")
	}
	if listener == nil {
		return nil, errors.New("[refresh New] listener is required")
	}
	s := &Scheduler{
		refresher:      refresher,
		store:          store,
		listener:       listener,
		clock:          clockwork.NewRealClock(),
		threshold:      DefaultThreshold,
		interval:       DefaultCheckInterval,
		cookieMaxAge:   DefaultCookieMaxAge,
		requestTimeout: defaultRequestTimeout,
		baseCtx:        context.Background(),
		logger:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.threshold < 0 {
		return nil, errors.New("[refresh New] threshold must not be negative")
	}
	if s.interval <= 0 {
		return nil, errors.New("[refresh New] check interval must be positive")
	}
	if s.cookieMaxAge <= 0 {
		return nil, errors.New("[refresh New] cookie max age must be positive")
	}
	s.inspector = tokens.NewInspector(s.clock.Now)
	return s, nil
}

// Observe tells the scheduler the current token. A changed token tears
// down all tasks and schedules new ones from its expiry; an empty token
// leaves the scheduler idle.
func (s *Scheduler) Observe(token string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopped || token == s.token {
		return
	}
	s.scheduleLocked(token)
}

// Stop cancels all tasks. Refresh calls still in flight complete but their
// results are dropped and the listener is not called.
func (s *Scheduler) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.cancelTasksLocked()
	s.token = ""
	s.generation++
	s.logger.Debug().Msg("Token refresh scheduler stopped")
}

func (s *Scheduler) scheduleLocked(token string) {
	s.cancelTasksLocked()
	s.generation++
	s.token = token
	if token == "" {
		s.logger.Debug().Msg("No token, refresh scheduler idle")
		return
	}

	gen := s.generation
	s.periodic = Every(s.clock, s.interval, func() { s.check(gen) })

	remaining, ok := s.inspector.TimeRemaining(token)
	if !ok {
		s.logger.Debug().Dur("check_interval", s.interval).Msg("Token expiry unknown, relying on periodic checks")
		return
	}
	delay := remaining - s.threshold
	if delay <= 0 {
		s.logger.Debug().Dur("remaining", remaining).Msg("Token within refresh threshold, refreshing now")
		s.startRefreshLocked(gen)
		return
	}
	s.logger.Debug().Dur("refresh_in", delay).Msg("Token refresh scheduled")
	s.oneShot = After(s.clock, delay, func() { s.fire(gen) })
}

func (s *Scheduler) cancelTasksLocked() {
	s.oneShot.Cancel()
	s.periodic.Cancel()
	s.oneShot = nil
	s.periodic = nil
}

// fire runs when the one-shot task expires
func (s *Scheduler) fire(gen uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopped || gen != s.generation {
		return
	}
	s.startRefreshLocked(gen)
}

// check runs on every periodic tick
func (s *Scheduler) check(gen uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopped || gen != s.generation || s.inFlight {
		return
	}
	if !s.inspector.ShouldRefresh(s.token, s.threshold) {
		return
	}
	s.logger.Debug().Msg("Periodic check found token due for refresh")
	s.startRefreshLocked(gen)
}

func (s *Scheduler) startRefreshLocked(gen uint64) {
	if s.inFlight {
		s.logger.Debug().Msg("Token refresh already in flight")
		return
	}
	s.inFlight = true
	go s.refresh(gen, s.token)
}

func (s *Scheduler) refresh(gen uint64, token string) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.requestTimeout)
	next, err := s.refresher.Refresh(ctx, token)
	cancel()

	s.lock.Lock()
	s.inFlight = false
	if s.stopped || gen != s.generation {
		s.lock.Unlock()
		s.logger.Debug().Msg("Discarding refresh result for a superseded token")
		return
	}

	switch {
	case err == nil:
		if err := s.store.Save(next, s.cookieMaxAge); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist refreshed token")
		}
		if next != s.token {
			s.scheduleLocked(next)
		}
		s.lock.Unlock()
		s.logger.Debug().Msg("Token refreshed")
		s.listener.TokenRefreshed(next)

	case api.IsUnauthorized(err):
		s.scheduleLocked("")
		if err := s.store.Clear(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to clear persisted token")
		}
		s.lock.Unlock()
		s.logger.Debug().Err(err).Msg("Token refresh rejected, session expired")
		s.listener.TokenExpired()

	default:
		s.lock.Unlock()
		s.logger.Debug().Err(err).Msg("Token refresh failed, waiting for next check")
	}
}
