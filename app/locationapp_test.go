package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/illmade-knight/location-api/app"
	"github.com/illmade-knight/location-api/internal/config"
	"github.com/illmade-knight/location-api/internal/metrics"
	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Dependencies ---

type mockPublisher struct {
	mu     sync.Mutex
	events []locations.ChangeEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event locations.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) types() []locations.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []locations.EventType
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

// --- Test Suite ---

func TestApp_ServesLocations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Arrange
	publisher := &mockPublisher{}
	a, err := app.New(testConfig(), publisher, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, a.Shutdown(context.Background()))
	})
	base := fmt.Sprintf("http://%s/location", a.Addr())

	// Act
	resp, err := http.Post(base, "application/json", strings.NewReader(`{"name":"Dock","longitude":3,"latitude":4}`))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	// Assert
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, base+"/"), location)

	resp, err = http.Get(location)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, a.Store.Len())
	assert.Equal(t, []locations.EventType{locations.EventCreated}, publisher.types())

	snap := a.Registry.Snapshot()
	assert.Equal(t, int64(2), snap.Histograms[metrics.MetricNameFor(http.StatusOK)].Count)
	assert.Equal(t, int64(1), snap.Timers["POST /location"].Count)
	assert.Equal(t, int64(1), snap.Timers["GET /location/{id}"].Count)
}

func TestApp_StoreMetricsAreRegistered(t *testing.T) {
	a, err := app.New(testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = a.LocationSvc.GetLocation(context.Background(), "missing")
	require.ErrorIs(t, err, locations.ErrNotFound)
	_, err = a.LocationSvc.ListLocations(context.Background(), -1, 10)
	require.ErrorIs(t, err, locations.ErrInvalidArgument)

	snap := a.Registry.Snapshot()
	assert.Equal(t, int64(1), snap.Counters[metrics.NotFound])
}

func TestApp_StartTwice(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.ReportInterval = time.Hour

	a, err := app.New(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	assert.Error(t, a.Start(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
	assert.NoError(t, a.Shutdown(context.Background()), "second shutdown is a no-op")
	assert.Error(t, a.Start(context.Background()), "no restart after shutdown")
}

func TestApp_ShutdownBeforeStart(t *testing.T) {
	a, err := app.New(testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, a.Shutdown(context.Background()))
	assert.Nil(t, a.Addr())
}

func TestApp_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Security.Enabled = true

	_, err := app.New(cfg, nil, zerolog.Nop())
	require.Error(t, err)
	assert.False(t, errors.Is(err, locations.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "at least one user")
}
