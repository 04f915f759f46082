// FILE: pkg/locations/inmem_store.go

package locations

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/location-api/pkg/pagination"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// IDGenerator produces identifiers for newly created locations.
type IDGenerator func() (string, error)

// RandomID returns a random (version 4) UUID rendered as text.
func RandomID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate location ID: %w", err)
	}
	return id.String(), nil
}

// entry holds one stored location. The map shard lock guards membership and
// the entry lock guards the value; removal takes both, shard first.
type entry struct {
	mu      sync.RWMutex
	loc     Location
	removed bool
}

// InMemoryStore is a thread-safe, in-memory implementation of the Store interface.
// Locations are kept in a sharded map, so operations on unrelated IDs do not
// contend on a single lock. Nothing survives the process.
type InMemoryStore struct {
	locations cmap.ConcurrentMap[string, *entry]
	newID     IDGenerator
	metrics   Instrumentation
}

// StoreOption customises an InMemoryStore.
type StoreOption func(*InMemoryStore)

// WithIDGenerator replaces RandomID as the source of new IDs.
func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *InMemoryStore) {
		s.newID = gen
	}
}

// WithInstrumentation reports store measurements to m.
func WithInstrumentation(m Instrumentation) StoreOption {
	return func(s *InMemoryStore) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewInMemoryStore creates a new, empty in-memory store.
func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		locations: cmap.New[*entry](),
		newID:     RandomID,
		metrics:   nopInstrumentation{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a location by its ID.
func (s *InMemoryStore) Get(ctx context.Context, id string) (Location, error) {
	e, ok := s.locations.Get(id)
	if ok {
		e.mu.RLock()
		loc, removed := e.loc, e.removed
		e.mu.RUnlock()
		if !removed {
			return loc, nil
		}
	}
	s.metrics.NotFound()
	return Location{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create saves a copy of the template under a newly generated ID.
// The insert only happens if the ID is unused; a clash means the generator is
// broken and is reported as ErrInvariantViolation rather than retried.
func (s *InMemoryStore) Create(ctx context.Context, template Location) (Location, error) {
	if !template.IsTemplate() {
		s.metrics.BadRequest()
		return Location{}, fmt.Errorf("%w: location already has an id: %s", ErrInvalidArgument, template.ID)
	}

	id, err := s.newID()
	if err != nil {
		return Location{}, err
	}
	if id == "" {
		return Location{}, fmt.Errorf("%w: generated an empty location ID", ErrInvariantViolation)
	}

	loc := template.withID(id)
	if !s.locations.SetIfAbsent(id, &entry{loc: loc}) {
		return Location{}, fmt.Errorf("%w: store already contains location with id: %s", ErrInvariantViolation, id)
	}
	return loc, nil
}

// Update replaces the stored location with the same ID.
func (s *InMemoryStore) Update(ctx context.Context, loc Location) error {
	if e, ok := s.locations.Get(loc.ID); ok {
		e.mu.Lock()
		removed := e.removed
		if !removed {
			e.loc = loc
		}
		e.mu.Unlock()
		if !removed {
			return nil
		}
	}
	s.metrics.NotFound()
	return fmt.Errorf("%w: %s", ErrNotFound, loc.ID)
}

// Remove deletes a location by its ID.
func (s *InMemoryStore) Remove(ctx context.Context, id string) error {
	removed := s.locations.RemoveCb(id, func(_ string, e *entry, exists bool) bool {
		if !exists {
			return false
		}
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
		return true
	})
	if !removed {
		s.metrics.NotFound()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns up to pageSize locations ordered by ID, starting at startIndex.
// The window is cut from a single snapshot, so its bounds always agree with the
// ordering it was sorted in. A startIndex past the end yields an empty slice.
func (s *InMemoryStore) List(ctx context.Context, startIndex, pageSize int) ([]Location, error) {
	if err := pagination.Validate(startIndex, pageSize); err != nil {
		s.metrics.BadRequest()
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	snapshot := s.snapshot()
	if startIndex >= len(snapshot) {
		s.metrics.ListSize(0)
		return []Location{}, nil
	}

	began := time.Now()
	slices.SortFunc(snapshot, compareByID)
	s.metrics.ListSort(time.Since(began))

	page := pagination.Window(snapshot, startIndex, pageSize)
	s.metrics.ListSize(len(page))
	return page, nil
}

// Len returns the number of stored locations.
func (s *InMemoryStore) Len() int {
	return s.locations.Count()
}

// snapshot copies every live location out of the map.
func (s *InMemoryStore) snapshot() []Location {
	all := make([]Location, 0, s.locations.Count())
	s.locations.IterCb(func(_ string, e *entry) {
		e.mu.RLock()
		if !e.removed {
			all = append(all, e.loc)
		}
		e.mu.RUnlock()
	})
	return all
}

// compareByID orders locations lexicographically by ID.
func compareByID(a, b Location) int {
	return strings.Compare(a.ID, b.ID)
}
