package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-tenant-admin/auth"
	"github.com/jrsteele09/go-tenant-admin/internal/config"
	"github.com/jrsteele09/go-tenant-admin/internal/logging"
	"github.com/jrsteele09/go-tenant-admin/internal/store"
	"github.com/jrsteele09/go-tenant-admin/server"
	"github.com/jrsteele09/go-tenant-admin/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger := logging.Configure(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	if err := os.MkdirAll(filepath.Dir(c.GetDatabasePath()), 0o755); err != nil {
		return errors.Wrap(err, "create data folder")
	}
	st, err := store.NewSQLiteStore(c.GetDatabasePath(), logger.With().Str("component", "store").Logger())
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(context.Background()); err != nil {
		return err
	}

	tokens, err := token.NewManager(token.NewHMACSigner(c.GetJWTSecret()),
		token.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
		token.WithIssuer(c.GetBaseURL()),
	)
	if err != nil {
		return err
	}

	handler, err := server.New(c, auth.Repos{
		Users:    st.Users(),
		Tenants:  st.Tenants(),
		Sessions: st.Sessions(),
		Audit:    st.Audit(),
	}, tokens, server.WithHealthCheck(st.Ping))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
