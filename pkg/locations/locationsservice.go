// FILE: locations/service.go

package locations

import (
	"context"
	"fmt"
	"time"

	"github.com/illmade-knight/location-api/pkg/pagination"
	"github.com/rs/zerolog"
)

// EventType names the kind of change a ChangeEvent describes.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// ChangeEvent describes a successful mutation of the store.
type ChangeEvent struct {
	Type       EventType `json:"type"`
	LocationID string    `json:"location_id"`
	// Location is the state after the change; nil for deletions.
	Location   *Location `json:"location,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers change events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ChangeEvent) error { return nil }

// Service provides the business logic for managing locations.
// It orchestrates the store and announces changes through the publisher.
type Service struct {
	store     Store
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewService creates a Service. A nil publisher disables change events.
func NewService(store Store, publisher EventPublisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "location-service").Logger(),
	}
}

// CreateLocation stores a new location built from the template.
func (s *Service) CreateLocation(ctx context.Context, template Location) (Location, error) {
	loc, err := s.store.Create(ctx, template)
	if err != nil {
		return Location{}, err
	}
	s.logger.Info().Str("location_id", loc.ID).Str("name", loc.Name).Msg("Location created")
	s.announce(ctx, EventCreated, loc.ID, &loc)
	return loc, nil
}

// GetLocation fetches a single location by its ID.
func (s *Service) GetLocation(ctx context.Context, id string) (Location, error) {
	return s.store.Get(ctx, id)
}

// UpdateLocation replaces the stored location carrying the same ID.
func (s *Service) UpdateLocation(ctx context.Context, loc Location) error {
	if err := s.store.Update(ctx, loc); err != nil {
		return err
	}
	s.logger.Info().Str("location_id", loc.ID).Msg("Location updated")
	s.announce(ctx, EventUpdated, loc.ID, &loc)
	return nil
}

// DeleteLocation removes a location by its ID.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("location_id", id).Msg("Location deleted")
	s.announce(ctx, EventDeleted, id, nil)
	return nil
}

// ListLocations returns one page of locations ordered by ID. Next is set on the
// page when more locations follow it.
func (s *Service) ListLocations(ctx context.Context, startIndex, pageSize int) (pagination.Page[Location], error) {
	if err := pagination.Validate(startIndex, pageSize); err != nil {
		return pagination.Page[Location]{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return pagination.Fetch[Location](ctx, s.store.List, startIndex, pageSize)
}

// GetStore exposes the underlying store.
func (s *Service) GetStore() Store {
	return s.store
}

// announce publishes a change event. A failed publish is logged; the change
// itself has already been applied.
func (s *Service) announce(ctx context.Context, typ EventType, id string, loc *Location) {
	event := ChangeEvent{
		Type:       typ,
		LocationID: id,
		Location:   loc,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("location_id", id).Str("event", string(typ)).Msg("Failed to publish location change event")
	}
}
