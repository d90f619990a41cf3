package services

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
)

// PeriodicRefreshService keeps the transit stop cache warm around every
// catalog attraction so the first visitor to an attraction page does not
// wait on Places.
type PeriodicRefreshService struct {
	routes   *RouteService
	interval time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewPeriodicRefreshService creates a new periodic refresh service
func NewPeriodicRefreshService(routes *RouteService, interval time.Duration) *PeriodicRefreshService {
	return &PeriodicRefreshService{
		routes:   routes,
		interval: interval,
	}
}

// StartPeriodicRefresh warms the cache now and then every interval until ctx
// is done or Stop is called. A non-positive interval disables refreshing.
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	ctx = logging.EnsureLogger(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.interval <= 0 {
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})

	logging.Infow(ctx, "Starting periodic transit stop refresh", "interval", p.interval)

	go p.refreshLoop(ctx, p.stopChan)
	return nil
}

// Stop gracefully stops the periodic refresh
func (p *PeriodicRefreshService) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			err, _ := errors.ParseStack(debug.Stack())
			skipFrames := 3
			numFrames := 5
			logging.Errorw(ctx, "Periodic refresh: recovered from panic",
				"error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Debugw(ctx, "Periodic refresh stopping due to context cancellation")
			return
		case <-stop:
			logging.Debugw(ctx, "Periodic refresh stopping due to stop signal")
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh looks up transit stops for every attraction whose cached entry
// has expired. It returns how many attractions have fresh stops afterwards.
func (p *PeriodicRefreshService) Refresh(ctx context.Context) int {
	ctx = logging.EnsureLogger(ctx)
	refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	warmed := 0
	for _, a := range p.routes.Catalog().Attractions {
		if refreshCtx.Err() != nil {
			break
		}
		if p.routes.transitStopsFresh(a.Coordinates, 0) {
			warmed++
			continue
		}
		if _, err := p.routes.NearbyTransitStops(refreshCtx, a.Coordinates, 0); err != nil {
			logging.Warnw(ctx, "Periodic refresh failed", "attraction", a.ID, "error", err)
			continue
		}
		warmed++
	}

	logging.Debugw(ctx, "Periodic refresh: transit stops checked", "attractions", warmed)
	return warmed
}
