package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dpup/steppe.guide/server/internal/cache"
	"github.com/dpup/steppe.guide/server/internal/clients/google"
)

func TestPeriodicRefresh_WarmsEveryAttraction(t *testing.T) {
	finder := &MockTransitStopFinder{}
	finder.On("NearbyTransitStops", mock.Anything, mock.Anything, 500).Return([]google.TransitStop{}, nil)

	svc := newTestService(t, nil, finder)
	refresh := NewPeriodicRefreshService(svc, time.Hour)

	attractions := len(svc.Catalog().Attractions)
	assert.Equal(t, attractions, refresh.Refresh(testContext(t)))
	finder.AssertNumberOfCalls(t, "NearbyTransitStops", attractions)

	// Second pass is served from cache
	assert.Equal(t, attractions, refresh.Refresh(testContext(t)))
	finder.AssertNumberOfCalls(t, "NearbyTransitStops", attractions)
}

func TestPeriodicRefresh_StartStop(t *testing.T) {
	var calls atomic.Int32
	finder := &MockTransitStopFinder{}
	finder.On("NearbyTransitStops", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return([]google.TransitStop{}, nil)

	svc := newTestService(t, nil, finder)
	refresh := NewPeriodicRefreshService(svc, time.Hour)

	require.NoError(t, refresh.StartPeriodicRefresh(testContext(t)))
	assert.True(t, refresh.IsRunning())

	// Initial refresh runs immediately
	assert.Eventually(t, func() bool {
		return int(calls.Load()) >= len(svc.Catalog().Attractions)
	}, time.Second, 10*time.Millisecond)

	refresh.Stop()
	assert.False(t, refresh.IsRunning())
	refresh.Stop()
}

func TestPeriodicRefresh_DisabledInterval(t *testing.T) {
	svc := newTestService(t, nil, nil)
	refresh := NewPeriodicRefreshService(svc, 0)

	require.NoError(t, refresh.StartPeriodicRefresh(testContext(t)))
	assert.False(t, refresh.IsRunning())
}

func TestPeriodicRefresh_SkipsFreshEntries(t *testing.T) {
	finder := &MockTransitStopFinder{}
	finder.On("NearbyTransitStops", mock.Anything, mock.Anything, 500).Return([]google.TransitStop{}, nil)

	svc := newTestService(t, nil, finder)
	attractions := svc.Catalog().Attractions
	require.NotEmpty(t, attractions)

	first := attractions[0]
	require.NoError(t, svc.cache.Set(cache.TransitStopsKey(first.Coordinates, 500), []google.TransitStop{}, time.Hour, "test"))

	refresh := NewPeriodicRefreshService(svc, time.Hour)
	assert.Equal(t, len(attractions), refresh.Refresh(testContext(t)))
	finder.AssertNumberOfCalls(t, "NearbyTransitStops", len(attractions)-1)
	finder.AssertNotCalled(t, "NearbyTransitStops", mock.Anything, first.Coordinates, 500)
}

func TestPeriodicRefresh_ContextWithoutLogger(t *testing.T) {
	var calls atomic.Int32
	finder := &MockTransitStopFinder{}
	finder.On("NearbyTransitStops", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(nil, errors.New("offline"))

	svc := newTestService(t, nil, finder)
	refresh := NewPeriodicRefreshService(svc, time.Hour)
	t.Cleanup(refresh.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	assert.NotPanics(t, func() {
		require.NoError(t, refresh.StartPeriodicRefresh(ctx))
	})

	// Failed lookups are logged by the background loop, which would crash
	// the process without a logger.
	assert.Eventually(t, func() bool {
		return int(calls.Load()) >= len(svc.Catalog().Attractions)
	}, time.Second, 10*time.Millisecond)
	assert.True(t, refresh.IsRunning())
}
