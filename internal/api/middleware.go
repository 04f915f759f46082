package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/illmade-knight/location-api/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// AccessLog logs every request once it has been served.
func AccessLog(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := metrics.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.Status()).
				Dur("duration", time.Since(began)).
				Msg("Request served")
		})
	}
}

// RequireTLS rejects requests that did not arrive over TLS.
func RequireTLS(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				writeStatus(w, r, logger, http.StatusForbidden, "TLS is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BasicAuth accepts requests whose credentials match one of the users.
// Passwords are stored as bcrypt hashes keyed by user name.
func BasicAuth(realm string, users map[string]string, logger zerolog.Logger) Middleware {
	challenge := "Basic realm=" + strconv.Quote(realm)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, password, ok := r.BasicAuth()
			if !ok || !authenticate(users, name, password) {
				if ok {
					logger.Warn().Str("user", name).Str("path", r.URL.Path).Msg("Rejected credentials")
				}
				w.Header().Set("WWW-Authenticate", challenge)
				writeStatus(w, r, logger, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// dummyHash is compared against for unknown users so they still pay for a bcrypt check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("location-api"), bcrypt.MinCost)

func authenticate(users map[string]string, name, password string) bool {
	hash, known := users[name]
	if !known {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func writeStatus(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, status int, message string) {
	contentType, err := negotiate(r)
	if err != nil {
		contentType = contentTypeJSON
	}
	if err := encode(w, contentType, status, ErrorMessage{Message: message}); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
