// Package scheduler keeps the ET0 cache warm for the locations the analysis history knows about.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flahasoil/internal/soil"
	"flahasoil/internal/weather"
)

// LocationSource lists the geocoded locations to refresh
type LocationSource interface {
	ListLocations(ctx context.Context, limit int) ([]soil.Location, error)
}

// ET0Refresher replaces the cached ET0 of a location with a fresh value
type ET0Refresher interface {
	RefreshET0(ctx context.Context, lat, lon float64) (*weather.ET0Estimate, error)
}

// RefreshManagerConfig configures the refresh job
type RefreshManagerConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule      string        `json:"schedule"`
	LocationLimit int           `json:"location_limit"`
	MaxConcurrent int           `json:"max_concurrent"`
	JobTimeout    time.Duration `json:"job_timeout"`
}

// DefaultRefreshManagerConfig returns default configuration
func DefaultRefreshManagerConfig() RefreshManagerConfig {
	return RefreshManagerConfig{
		Schedule:      "0 */6 * * *",
		LocationLimit: 500,
		MaxConcurrent: 4,
		JobTimeout:    30 * time.Minute,
	}
}

// RefreshSummary reports the outcome of one refresh run
type RefreshSummary struct {
	Locations int           `json:"locations"`
	Refreshed int           `json:"refreshed"`
	Estimated int           `json:"estimated"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// RefreshManager runs the ET0 refresh on a cron schedule
type RefreshManager struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	entry     cron.EntryID
	locations LocationSource
	refresher ET0Refresher
	logger    *zap.Logger
	config    RefreshManagerConfig
	mu        sync.Mutex
	running   bool
}

// NewRefreshManager creates a refresh manager. The schedule is validated here.
func NewRefreshManager(locations LocationSource, refresher ET0Refresher, logger *zap.Logger, config RefreshManagerConfig) (*RefreshManager, error) {
	defaults := DefaultRefreshManagerConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.LocationLimit <= 0 {
		config.LocationLimit = defaults.LocationLimit
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	schedule, err := cron.ParseStandard(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", config.Schedule, err)
	}

	return &RefreshManager{
		cron:      cron.New(),
		schedule:  schedule,
		locations: locations,
		refresher: refresher,
		logger:    logger,
		config:    config,
	}, nil
}

// Start registers the refresh job and starts the scheduler
func (m *RefreshManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("refresh manager already running")
	}

	entry, err := m.cron.AddFunc(m.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.JobTimeout)
		defer cancel()
		_, _ = m.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	m.entry = entry
	m.cron.Start()
	m.running = true

	m.logger.Info("Started ET0 refresh scheduler",
		zap.String("cron", m.config.Schedule),
		zap.Time("next_run", m.schedule.Next(time.Now())))
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish
func (m *RefreshManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.logger.Info("Stopping ET0 refresh scheduler")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.cron.Remove(m.entry)
	m.running = false
}

// NextRun returns the next scheduled run, or the zero time when stopped
func (m *RefreshManager) NextRun() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return time.Time{}
	}
	return m.schedule.Next(time.Now())
}

// RunOnce refreshes every known location, at most MaxConcurrent at a time. A failed
// location is logged and counted; it does not stop the run. Only a failure to list
// the locations is returned as an error.
func (m *RefreshManager) RunOnce(ctx context.Context) (RefreshSummary, error) {
	start := time.Now()
	var summary RefreshSummary

	locations, err := m.locations.ListLocations(ctx, m.config.LocationLimit)
	if err != nil {
		m.logger.Error("Failed to list locations for ET0 refresh", zap.Error(err))
		return summary, fmt.Errorf("failed to list locations: %w", err)
	}
	summary.Locations = len(locations)

	var refreshed, estimated, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(m.config.MaxConcurrent)

	for _, loc := range locations {
		if ctx.Err() != nil {
			failed.Add(1)
			continue
		}
		loc := loc
		g.Go(func() error {
			est, err := m.refresher.RefreshET0(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				failed.Add(1)
				m.logger.Warn("Failed to refresh ET0",
					zap.Float64("latitude", loc.Latitude),
					zap.Float64("longitude", loc.Longitude),
					zap.Error(err))
				return nil
			}
			refreshed.Add(1)
			if est.Status == weather.StatusEstimated {
				estimated.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	summary.Refreshed = int(refreshed.Load())
	summary.Estimated = int(estimated.Load())
	summary.Failed = int(failed.Load())
	summary.Duration = time.Since(start)

	m.logger.Info("ET0 refresh completed",
		zap.Int("locations", summary.Locations),
		zap.Int("refreshed", summary.Refreshed),
		zap.Int("estimated", summary.Estimated),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}
