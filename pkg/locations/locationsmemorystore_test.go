package locations_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delta = 0.0001

func TestInMemoryStore_Create(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	t.Run("Assigns an ID and keeps the template values", func(t *testing.T) {
		template := locations.NewLocation("test", -122.3, 48.5)

		created, err := store.Create(ctx, template)

		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, template.Name, created.Name)
		assert.InDelta(t, template.Longitude, created.Longitude, delta)
		assert.InDelta(t, template.Latitude, created.Latitude, delta)
	})

	t.Run("Rejects a location that already has an ID", func(t *testing.T) {
		before := store.Len()
		loc := locations.Location{ID: "This isn't right...", Name: "test", Longitude: -122.3, Latitude: 48.5}

		_, err := store.Create(ctx, loc)

		require.Error(t, err)
		assert.True(t, errors.Is(err, locations.ErrInvalidArgument))
		assert.Equal(t, before, store.Len())
	})

	t.Run("Creates are unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			created, err := store.Create(ctx, locations.NewLocation(fmt.Sprintf("loc%d", i), 0, 0))
			require.NoError(t, err)
			_, dup := seen[created.ID]
			require.False(t, dup, "duplicate id %s", created.ID)
			seen[created.ID] = struct{}{}
		}
	})
}

func TestInMemoryStore_Create_IDCollision(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore(locations.WithIDGenerator(func() (string, error) {
		return "always-the-same", nil
	}))

	first, err := store.Create(ctx, locations.NewLocation("first", 1, 1))
	require.NoError(t, err)

	_, err = store.Create(ctx, locations.NewLocation("second", 2, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, locations.ErrInvariantViolation))

	// The existing location must not have been overwritten.
	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestInMemoryStore_Create_GeneratorFailure(t *testing.T) {
	store := locations.NewInMemoryStore(locations.WithIDGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	_, err := store.Create(context.Background(), locations.NewLocation("loc", 0, 0))
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestInMemoryStore_Get(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	t.Run("Round trip", func(t *testing.T) {
		template := locations.NewLocation("loc", 12.5, -7.25)
		created, err := store.Create(ctx, template)
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
		assert.Equal(t, template.Name, got.Name)
		assert.InDelta(t, template.Longitude, got.Longitude, delta)
		assert.InDelta(t, template.Latitude, got.Latitude, delta)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := store.Get(ctx, "kaboom")
		require.Error(t, err)
		assert.True(t, errors.Is(err, locations.ErrNotFound))
	})
}

func TestInMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	t.Run("Replaces the whole value", func(t *testing.T) {
		created, err := store.Create(ctx, locations.NewLocation("loc", 0, 0))
		require.NoError(t, err)
		update := locations.Location{ID: created.ID, Name: "A New Name", Longitude: -122.5, Latitude: 48.5}

		err = store.Update(ctx, update)
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, update, got)
	})

	t.Run("Clearing a field is not merged away", func(t *testing.T) {
		created, err := store.Create(ctx, locations.NewLocation("named", 3, 4))
		require.NoError(t, err)

		err = store.Update(ctx, locations.Location{ID: created.ID})
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Name)
		assert.Zero(t, got.Longitude)
	})

	t.Run("Not found", func(t *testing.T) {
		err := store.Update(ctx, locations.Location{ID: "5f0c3c7e-missing", Name: "loc"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, locations.ErrNotFound))

		_, err = store.Get(ctx, "5f0c3c7e-missing")
		assert.True(t, errors.Is(err, locations.ErrNotFound), "update must not insert")
	})

	t.Run("Template is not found", func(t *testing.T) {
		err := store.Update(ctx, locations.NewLocation("no id", 0, 0))
		assert.True(t, errors.Is(err, locations.ErrNotFound))
	})
}

func TestInMemoryStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	created, err := store.Create(ctx, locations.NewLocation("loc", 0, 0))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, created.ID))

	_, err = store.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, locations.ErrNotFound))

	err = store.Remove(ctx, created.ID)
	assert.True(t, errors.Is(err, locations.ErrNotFound), "second remove must fail")

	err = store.Update(ctx, created)
	assert.True(t, errors.Is(err, locations.ErrNotFound), "update after remove must fail")
	assert.Equal(t, 0, store.Len())
}

func TestInMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()
	const testDataSize = 20

	createdIDs := make([]string, 0, testDataSize)
	for i := 0; i < testDataSize; i++ {
		created, err := store.Create(ctx, locations.NewLocation(fmt.Sprintf("loc%d", i), 0, 0))
		require.NoError(t, err)
		createdIDs = append(createdIDs, created.ID)
	}
	sort.Strings(createdIDs)

	t.Run("All records in ID order", func(t *testing.T) {
		all, err := store.List(ctx, 0, testDataSize)
		require.NoError(t, err)
		require.Len(t, all, testDataSize)
		for i, loc := range all {
			assert.Equal(t, createdIDs[i], loc.ID)
		}
	})

	t.Run("Start at the end is empty", func(t *testing.T) {
		page, err := store.List(ctx, testDataSize, 100)
		require.NoError(t, err)
		assert.NotNil(t, page)
		assert.Empty(t, page)
	})

	t.Run("Start far past the end is empty", func(t *testing.T) {
		page, err := store.List(ctx, 1000, 1)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("Second half", func(t *testing.T) {
		page, err := store.List(ctx, testDataSize/2, testDataSize)
		require.NoError(t, err)
		require.Len(t, page, testDataSize/2)
		assert.Equal(t, createdIDs[testDataSize/2], page[0].ID)
	})

	t.Run("First page starts at the smallest ID", func(t *testing.T) {
		page, err := store.List(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, page, 10)
		assert.Equal(t, createdIDs[0], page[0].ID)
		assert.Equal(t, createdIDs[9], page[9].ID)
	})

	t.Run("Every window has min(m, N-k) records", func(t *testing.T) {
		for k := 0; k < testDataSize; k++ {
			for _, m := range []int{1, 3, 7, testDataSize, testDataSize + 5} {
				page, err := store.List(ctx, k, m)
				require.NoError(t, err)
				require.Len(t, page, min(m, testDataSize-k))
				for i, loc := range page {
					assert.Equal(t, createdIDs[k+i], loc.ID)
				}
			}
		}
	})

	t.Run("Huge page size does not overflow", func(t *testing.T) {
		page, err := store.List(ctx, 5, int(^uint(0)>>1))
		require.NoError(t, err)
		assert.Len(t, page, testDataSize-5)
	})

	t.Run("Invalid arguments", func(t *testing.T) {
		_, err := store.List(ctx, -1, 10)
		assert.True(t, errors.Is(err, locations.ErrInvalidArgument))

		_, err = store.List(ctx, 0, 0)
		assert.True(t, errors.Is(err, locations.ErrInvalidArgument))

		_, err = store.List(ctx, 0, -3)
		assert.True(t, errors.Is(err, locations.ErrInvalidArgument))
	})
}

func TestInMemoryStore_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()
	const workers = 16
	const perWorker = 200

	ids := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				created, err := store.Create(ctx, locations.NewLocation(fmt.Sprintf("w%d-%d", w, i), float64(w), float64(i)))
				if !assert.NoError(t, err) {
					return
				}
				ids <- created.ID
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
		_, err := store.Get(ctx, id)
		require.NoError(t, err)
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, workers*perWorker, store.Len())

	all, err := store.List(ctx, 0, workers*perWorker)
	require.NoError(t, err)
	assert.Len(t, all, workers*perWorker)
}

func TestInMemoryStore_ConcurrentUpdatesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	a, err := store.Create(ctx, locations.NewLocation("a", 0, 0))
	require.NoError(t, err)
	b, err := store.Create(ctx, locations.NewLocation("b", 0, 0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, locations.Location{ID: a.ID, Name: "a", Longitude: float64(i), Latitude: float64(i)}))
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, locations.Location{ID: b.ID, Name: "b", Longitude: float64(-i), Latitude: float64(-i)}))
		}(i)
	}
	wg.Wait()

	gotA, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := store.Get(ctx, b.ID)
	require.NoError(t, err)

	// Each value is one whole update: fields never mix across writers.
	assert.Equal(t, "a", gotA.Name)
	assert.Equal(t, gotA.Longitude, gotA.Latitude)
	assert.GreaterOrEqual(t, gotA.Longitude, 0.0)
	assert.Equal(t, "b", gotB.Name)
	assert.Equal(t, gotB.Longitude, gotB.Latitude)
	assert.LessOrEqual(t, gotB.Longitude, 0.0)
}

func TestInMemoryStore_ConcurrentRemoveOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()
	created, err := store.Create(ctx, locations.NewLocation("contested", 0, 0))
	require.NoError(t, err)

	const racers = 32
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Remove(ctx, created.ID)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, locations.ErrNotFound))
	}
	assert.Equal(t, 1, succeeded)
}

func TestInMemoryStore_ListDuringMutation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := locations.NewInMemoryStore()
	for i := 0; i < 50; i++ {
		_, err := store.Create(ctx, locations.NewLocation(fmt.Sprintf("seed%d", i), 0, 0))
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			created, err := store.Create(ctx, locations.NewLocation("churn", 0, 0))
			if err != nil {
				return
			}
			_ = store.Remove(ctx, created.ID)
		}
	}()

	for i := 0; i < 200; i++ {
		page, err := store.List(ctx, 0, 25)
		require.NoError(t, err)
		require.LessOrEqual(t, len(page), 25)
		assert.True(t, sort.SliceIsSorted(page, func(x, y int) bool { return page[x].ID < page[y].ID }))
	}
	<-done
}

type recordingInstrumentation struct {
	mu         sync.Mutex
	notFound   int
	badRequest int
	sizes      []int
	sorts      int
}

func (r *recordingInstrumentation) NotFound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound++
}

func (r *recordingInstrumentation) BadRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badRequest++
}

func (r *recordingInstrumentation) ListSize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, n)
}

func (r *recordingInstrumentation) ListSort(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sorts++
}

func TestInMemoryStore_Instrumentation(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInstrumentation{}
	store := locations.NewInMemoryStore(locations.WithInstrumentation(rec))

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, locations.NewLocation("loc", 0, 0))
		require.NoError(t, err)
	}
	_, _ = store.Create(ctx, locations.Location{ID: "preset"})
	_, _ = store.Get(ctx, "missing")
	_ = store.Remove(ctx, "missing")
	_, _ = store.List(ctx, 0, 2)
	_, _ = store.List(ctx, 10, 2)

	assert.Equal(t, 2, rec.notFound)
	assert.Equal(t, 1, rec.badRequest)
	assert.Equal(t, []int{2, 0}, rec.sizes)
	assert.Equal(t, 1, rec.sorts, "an empty window skips the sort")
}
