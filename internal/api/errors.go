package api

import (
	"errors"
	"net/http"

	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
)

// statusFor maps an error onto the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, locations.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, locations.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errNotAcceptable):
		return http.StatusNotAcceptable
	case errors.Is(err, errUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	default:
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusInternalServerError
	}
}

// writeError renders err as an ErrorMessage. Server-side failures are logged
// and their detail is withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		message = http.StatusText(status)
	}

	contentType, negotiateErr := negotiate(r)
	if negotiateErr != nil {
		contentType = contentTypeJSON
	}
	if encodeErr := encode(w, contentType, status, ErrorMessage{Message: message}); encodeErr != nil {
		logger.Warn().Err(encodeErr).Msg("Failed to write error response")
	}
}
