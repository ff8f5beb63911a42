// Package client wires the session client together: transport, persisted
// token, auth state store and refresh scheduler. A Client owns all of them
// from New until Close; nothing is kept at package level.
package client

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/jrsteele09/go-tenant-admin/client/refresh"
	"github.com/jrsteele09/go-tenant-admin/client/session"
	"github.com/jrsteele09/go-tenant-admin/client/storage"
	"github.com/jrsteele09/go-tenant-admin/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultHTTPTimeout = 30 * time.Second

// Options configures a Client. Only BaseURL is required.
type Options struct {
	BaseURL string
	// KV holds the durable token copy. Defaults to a FileKV at
	// CredentialsPath, or an in-memory KV when that is empty too.
	KV              storage.KV
	CredentialsPath string
	// HTTPClient is used for every backend call. A cookie jar is added
	// when it has none.
	HTTPClient       *http.Client
	Clock            clockwork.Clock
	RefreshThreshold time.Duration
	CheckInterval    time.Duration
	Logger           zerolog.Logger
}

// OptionsFromConfig maps the client config file onto Options
func OptionsFromConfig(cfg config.ClientConfig, logger zerolog.Logger) Options {
	return Options{
		BaseURL:          cfg.Server,
		CredentialsPath:  cfg.CredentialsPath,
		RefreshThreshold: cfg.RefreshThreshold,
		CheckInterval:    cfg.CheckInterval,
		Logger:           logger,
	}
}

type Client struct {
	API       *api.Client
	Tokens    *storage.TokenStore
	Session   *session.Store
	Scheduler *refresh.Scheduler

	stopWatch func()
}

// New builds a Client. Call Start to load the persisted session.
func New(opts Options) (*Client, error) {
	httpClient, err := withCookieJar(opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	kv := opts.KV
	if kv == nil {
		if opts.CredentialsPath != "" {
			kv = storage.NewFileKV(opts.CredentialsPath)
		} else {
			kv = storage.NewMemoryKV()
		}
	}

	apiClient, err := api.New(opts.BaseURL, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "[client New]")
	}
	tokenStore, err := storage.NewTokenStore(kv, httpClient.Jar, apiClient.BaseURL())
	if err != nil {
		return nil, errors.Wrap(err, "[client New]")
	}

	sessionOpts := []session.Option{
		session.WithLogger(opts.Logger.With().Str("component", "session").Logger()),
	}
	if opts.Clock != nil {
		sessionOpts = append(sessionOpts, session.WithNowTime(opts.Clock.Now))
	}
	store, err := session.New(apiClient, tokenStore, sessionOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[client New]")
	}

	schedOpts := []refresh.Option{
		refresh.WithLogger(opts.Logger.With().Str("component", "refresh").Logger()),
	}
	if opts.Clock != nil {
		schedOpts = append(schedOpts, refresh.WithClock(opts.Clock))
	}
	if opts.RefreshThreshold > 0 {
		schedOpts = append(schedOpts, refresh.WithThreshold(opts.RefreshThreshold))
	}
	if opts.CheckInterval > 0 {
		schedOpts = append(schedOpts, refresh.WithCheckInterval(opts.CheckInterval))
	}
	scheduler, err := refresh.New(apiClient, tokenStore, store, schedOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[client New]")
	}

	return &Client{
		API:       apiClient,
		Tokens:    tokenStore,
		Session:   store,
		Scheduler: scheduler,
		stopWatch: store.WatchToken(scheduler.Observe),
	}, nil
}

// Start restores the persisted session and, when there is one, starts
// keeping it alive
func (c *Client) Start(ctx context.Context) session.State {
	c.Session.Init(ctx)
	return c.Session.State()
}

// Close stops the scheduler and the store. Requests in flight are left to
// finish and their results dropped. The persisted token stays so a later
// Client resumes the session.
func (c *Client) Close() {
	c.stopWatch()
	c.Scheduler.Stop()
	c.Session.Close()
}

func withCookieJar(hc *http.Client) (*http.Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	} else {
		copied := *hc
		hc = &copied
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[client New] cookie jar")
		}
		hc.Jar = jar
	}
	return hc, nil
}
