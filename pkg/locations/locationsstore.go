// FILE: locations/store.go

package locations

import (
	"context"
	"errors"
	"time"
)

// Store errors. Callers match them with errors.Is.
var (
	// ErrNotFound is returned when an operation references an unknown ID.
	ErrNotFound = errors.New("location not found")
	// ErrInvalidArgument is returned for requests the store refuses to act on,
	// such as creating a location that already has an ID.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvariantViolation signals a broken store invariant, such as a freshly
	// generated ID that is already in use. It must not be retried.
	ErrInvariantViolation = errors.New("store invariant violated")
)

// Store is the interface for storing and retrieving locations.
// This decouples the service from the storage implementation.
type Store interface {
	// Get retrieves a location by its ID.
	Get(ctx context.Context, id string) (Location, error)
	// Create assigns a new ID to the template and saves it.
	Create(ctx context.Context, template Location) (Location, error)
	// Update replaces an existing location as a whole.
	Update(ctx context.Context, loc Location) error
	// Remove deletes a location by its ID.
	Remove(ctx context.Context, id string) error
	// List returns the window [startIndex, startIndex+pageSize) of all
	// locations ordered by ID.
	List(ctx context.Context, startIndex, pageSize int) ([]Location, error)
}

// Instrumentation receives measurements from a Store. Implementations must be
// safe for concurrent use.
type Instrumentation interface {
	NotFound()
	BadRequest()
	ListSize(n int)
	ListSort(d time.Duration)
}

type nopInstrumentation struct{}

func (nopInstrumentation) NotFound()              {}
func (nopInstrumentation) BadRequest()            {}
func (nopInstrumentation) ListSize(int)           {}
func (nopInstrumentation) ListSort(time.Duration) {}
