package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

type stop struct {
	Name string  `json:"name"`
	Km   float64 `json:"km"`
}

func newTestCache(start time.Time) (*Cache, *time.Time) {
	c := NewCache()
	clock := start
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	stops := []stop{{Name: "Байтерек", Km: 0.05}, {Name: "Нуржол бульвар", Km: 0.44}}
	require.NoError(t, c.Set("k", stops, time.Minute, "places"))

	var got []stop
	found, err := c.Get("k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stops, got)

	found, err = c.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, c.Set("k", "v", 10*time.Minute, "places"))

	assert.False(t, c.IsStale("k"))
	assert.True(t, c.IsStale("missing"))

	*clock = clock.Add(11 * time.Minute)
	assert.True(t, c.IsStale("k"))

	var v string
	found, err := c.Get("k", &v)
	require.NoError(t, err)
	assert.False(t, found)

	stats := c.Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.StaleEntries)

	assert.Equal(t, 1, c.CleanupStale())
	assert.Equal(t, 0, c.Stats().TotalEntries)
}

func TestCache_SetUnmarshalable(t *testing.T) {
	c := NewCache()
	err := c.Set("k", make(chan int), time.Minute, "test")
	assert.Error(t, err)
}

func TestCache_PeriodicCleanupStops(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set("gone", 1, -time.Second, "test"))

	ctx, cancel := context.WithCancel(logging.EnsureLogger(t.Context()))
	c.StartPeriodicCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().TotalEntries == 0
	}, time.Second, 5*time.Millisecond)
	cancel()
}

func TestCache_PeriodicCleanupWithoutLogger(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set("gone", 1, -time.Second, "test"))
	require.NoError(t, c.Set("kept", 2, time.Hour, "test"))

	// A bare context must not bring the cleanup goroutine down.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartPeriodicCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().TotalEntries == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, c.IsStale("kept"))
}

func TestTransitStopsKey(t *testing.T) {
	a := TransitStopsKey(geo.Point{Latitude: 51.12831, Longitude: 71.43058}, 500)
	b := TransitStopsKey(geo.Point{Latitude: 51.12829, Longitude: 71.43061}, 500)
	assert.Equal(t, a, b)
	assert.Equal(t, "transit_stops:51.128,71.431:500", a)

	assert.NotEqual(t, a, TransitStopsKey(geo.Point{Latitude: 51.12831, Longitude: 71.43058}, 1000))
}
