package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
)

const (
	locationPath    = "/location"
	startIndexParam = "start-index"

	// DefaultPageSize is used when a resource is created without a page size.
	DefaultPageSize = 10
)

// LocationResource exposes REST methods for locations.
type LocationResource struct {
	svc      *locations.Service
	pageSize int
	logger   zerolog.Logger
}

// NewLocationResource creates a LocationResource serving pages of pageSize.
func NewLocationResource(svc *locations.Service, pageSize int, logger zerolog.Logger) *LocationResource {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &LocationResource{
		svc:      svc,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "location-resource").Logger(),
	}
}

// Register adds the location routes to mux.
func (h *LocationResource) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+locationPath, h.listLocations)
	mux.HandleFunc("POST "+locationPath, h.createLocation)
	mux.HandleFunc("GET "+locationPath+"/{id}", h.getLocation)
	mux.HandleFunc("PUT "+locationPath+"/{id}", h.updateLocation)
	mux.HandleFunc("DELETE "+locationPath+"/{id}", h.deleteLocation)
}

// listLocations returns one page starting at ?start-index (default 0) with a
// next-page link when more locations follow.
func (h *LocationResource) listLocations(w http.ResponseWriter, r *http.Request) {
	contentType, err := negotiate(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	startIndex := 0
	if raw := r.URL.Query().Get(startIndexParam); raw != "" {
		startIndex, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, h.logger, fmt.Errorf("%w: %s must be an integer, got %q", locations.ErrInvalidArgument, startIndexParam, raw))
			return
		}
	}

	page, err := h.svc.ListLocations(r.Context(), startIndex, h.pageSize)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	list := LocationList{Locations: page.Items}
	if page.HasNext() {
		next := baseURL(r)
		next.Path = locationPath
		next.RawQuery = url.Values{startIndexParam: {strconv.Itoa(*page.Next)}}.Encode()
		list.NextPage = next.String()
	}
	h.respond(w, r, contentType, http.StatusOK, list)
}

// createLocation stores a new location. The body must not carry an id.
func (h *LocationResource) createLocation(w http.ResponseWriter, r *http.Request) {
	contentType, err := negotiate(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	template, err := decodeLocation(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.svc.CreateLocation(r.Context(), template)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	self := baseURL(r)
	self.Path = locationPath + "/" + created.ID
	w.Header().Set("Location", self.String())
	h.respond(w, r, contentType, http.StatusCreated, created)
}

func (h *LocationResource) getLocation(w http.ResponseWriter, r *http.Request) {
	contentType, err := negotiate(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	loc, err := h.svc.GetLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respond(w, r, contentType, http.StatusOK, loc)
}

// updateLocation replaces a location. The id in the body must match the URI.
func (h *LocationResource) updateLocation(w http.ResponseWriter, r *http.Request) {
	contentType, err := negotiate(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	loc, err := decodeLocation(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id := r.PathValue("id")
	if loc.ID != id {
		writeError(w, r, h.logger, fmt.Errorf("%w: invalid location id for this URI: %s", locations.ErrInvalidArgument, loc.ID))
		return
	}
	if err := h.svc.UpdateLocation(r.Context(), loc); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respond(w, r, contentType, http.StatusOK, loc)
}

func (h *LocationResource) deleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLocation(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond writes body, or a 500 when it cannot be encoded.
func (h *LocationResource) respond(w http.ResponseWriter, r *http.Request, contentType string, status int, body any) {
	err := encode(w, contentType, status, body)
	switch {
	case errors.Is(err, errEncoding):
		w.Header().Del("Location")
		writeError(w, r, h.logger, err)
	case err != nil:
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

// baseURL returns the scheme and host the request was addressed to.
func baseURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: r.Host}
}
