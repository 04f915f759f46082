package api

import (
	"net/http"

	"github.com/illmade-knight/location-api/internal/metrics"
	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
)

// Security configures authentication for the API.
type Security struct {
	Enabled    bool
	Realm      string
	RequireTLS bool
	// Users maps user names to bcrypt password hashes.
	Users map[string]string
}

// Options configures NewHandler.
type Options struct {
	PageSize    int
	Security    Security
	StatusCodes *metrics.StatusCodes // Optional.
	RouteTimers *metrics.RouteTimers // Optional.
}

// NewHandler builds the HTTP handler serving the location resource behind
// access logging, status code telemetry and, when enabled, TLS and basic
// authentication checks. Route timers sit innermost.
func NewHandler(svc *locations.Service, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	NewLocationResource(svc, opts.PageSize, logger).Register(mux)

	middlewares := []Middleware{AccessLog(logger.With().Str("component", "access-log").Logger())}
	if opts.StatusCodes != nil {
		middlewares = append(middlewares, opts.StatusCodes.Middleware)
	}
	if opts.Security.RequireTLS {
		middlewares = append(middlewares, RequireTLS(logger))
	}
	if opts.Security.Enabled {
		middlewares = append(middlewares, BasicAuth(opts.Security.Realm, opts.Security.Users, logger))
	}
	if opts.RouteTimers != nil {
		middlewares = append(middlewares, opts.RouteTimers.Middleware)
	}
	return Chain(mux, middlewares...)
}
