// Package app provides the central orchestrator for the location API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/illmade-knight/location-api/internal/api"
	"github.com/illmade-knight/location-api/internal/config"
	"github.com/illmade-knight/location-api/internal/metrics"
	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
)

// App holds every component of a running location API: the store, the
// service over it, the HTTP server and the metrics reporter.
type App struct {
	Config      *config.Config
	Store       *locations.InMemoryStore
	LocationSvc *locations.Service
	Registry    *metrics.Registry
	Logger      zerolog.Logger

	reporter *metrics.Reporter
	server   *http.Server
	listener net.Listener
	serveErr chan error
	mu       sync.Mutex
}

// New assembles an App from cfg. publisher may be nil, in which case change
// events are discarded.
func New(cfg *config.Config, publisher locations.EventPublisher, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := metrics.NewRegistry()
	store := locations.NewInMemoryStore(locations.WithInstrumentation(metrics.NewStoreMetrics(registry)))
	svc := locations.NewService(store, publisher, logger)

	users := make(map[string]string, len(cfg.Security.Users))
	for _, u := range cfg.Security.Users {
		users[u.Name] = u.PasswordHash
	}
	handler := api.NewHandler(svc, api.Options{
		PageSize: cfg.Server.PageSize,
		Security: api.Security{
			Enabled:    cfg.Security.Enabled,
			Realm:      cfg.Security.Realm,
			RequireTLS: cfg.Security.RequireTLS,
			Users:      users,
		},
		StatusCodes: metrics.NewStatusCodes(registry),
		RouteTimers: metrics.NewRouteTimers(registry),
	}, logger)

	a := &App{
		Config:      cfg,
		Store:       store,
		LocationSvc: svc,
		Registry:    registry,
		Logger:      logger,
		server: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	if cfg.Metrics.Enabled {
		a.reporter = metrics.NewReporter(registry, cfg.Metrics.ReportInterval, store.Len, logger)
	}
	return a, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Start binds the listen address and serves requests in the background.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return errors.New("app already started")
	}

	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	if a.reporter != nil {
		if err := a.reporter.Start(ctx); err != nil {
			_ = listener.Close()
			return fmt.Errorf("failed to start metrics reporter: %w", err)
		}
	}

	a.listener = listener
	a.serveErr = make(chan error, 1)
	tlsEnabled := a.Config.TLSEnabled()
	go func() {
		var err error
		if tlsEnabled {
			err = a.server.ServeTLS(listener, a.Config.Server.TLSCertFile, a.Config.Server.TLSKeyFile)
		} else {
			err = a.server.Serve(listener)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		a.serveErr <- err
	}()

	a.Logger.Info().Str("addr", listener.Addr().String()).Bool("tls", tlsEnabled).Msg("Location API listening")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown stops accepting requests, waits for in-flight ones within ctx and
// stops the metrics reporter. An App cannot be restarted after Shutdown.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.serveErr == nil {
		return nil
	}

	err := a.server.Shutdown(ctx)
	if serveErr := <-a.serveErr; serveErr != nil {
		err = errors.Join(err, serveErr)
	}
	a.serveErr = nil
	if a.reporter != nil {
		a.reporter.Stop()
	}
	a.Logger.Info().Msg("Location API stopped")
	return err
}
