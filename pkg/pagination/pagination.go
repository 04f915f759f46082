// Package pagination provides offset-based windowing over ordered results and
// the lookahead convention used to decide whether a following page exists.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned for a negative start index or a page size
// below one.
var ErrInvalidWindow = errors.New("invalid page window")

// ListFunc returns the window [start, start+size) of an ordered sequence.
type ListFunc[T any] func(ctx context.Context, start, size int) ([]T, error)

// Page is one window of an ordered sequence.
type Page[T any] struct {
	Items []T
	Start int
	Size  int
	// Next is the start index of the following page, or nil on the last page.
	Next *int
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Next != nil
}

// Validate checks that start and size describe a window.
func Validate(start, size int) error {
	if start < 0 {
		return fmt.Errorf("%w: start index %d is negative", ErrInvalidWindow, start)
	}
	if size < 1 {
		return fmt.Errorf("%w: page size %d must be at least 1", ErrInvalidWindow, size)
	}
	return nil
}

// Window returns items[min(start, n) : min(start+size, n)] where n is
// len(items). The result is never nil. start and size must be non-negative.
func Window[T any](items []T, start, size int) []T {
	n := len(items)
	if start >= n {
		return []T{}
	}
	end := n
	if size < n-start {
		end = start + size
	}
	return items[start:end]
}

// Fetch reads one page through list by asking for a single record past the
// page size. If that extra record comes back the page is trimmed and Next
// points at the following page.
func Fetch[T any](ctx context.Context, list ListFunc[T], start, size int) (Page[T], error) {
	if err := Validate(start, size); err != nil {
		return Page[T]{}, err
	}

	lookahead := size
	if size < math.MaxInt {
		lookahead = size + 1
	}
	items, err := list(ctx, start, lookahead)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: items, Start: start, Size: size}
	if len(items) > size {
		next := start + size
		page.Items = items[:size]
		page.Next = &next
	}
	return page, nil
}
