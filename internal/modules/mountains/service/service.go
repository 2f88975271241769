// Package service runs forecast fetch rounds and keeps the latest snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bacchus320/snowflake/internal/modules/mountains/forecast"
	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

type MountainLister interface {
	GetMountains() ([]types.Mountain, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (forecast.Result, error)
}

type Options struct {
	Concurrency     int
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

type Service struct {
	mountains   MountainLister
	fetcher     Fetcher
	publisher   ReportPublisher
	concurrency int
	interval    time.Duration
	logger      *slog.Logger
	now         func() time.Time

	state atomic.Pointer[ForecastState]
}

// NewService wires the orchestrator. publisher may be nil.
func NewService(mountains MountainLister, fetcher Fetcher, publisher ReportPublisher, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		mountains:   mountains,
		fetcher:     fetcher,
		publisher:   publisher,
		concurrency: opts.Concurrency,
		interval:    opts.RefreshInterval,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// Snapshot returns the latest completed round, or nil before the first one.
func (s *Service) Snapshot() *ForecastState {
	return s.state.Load()
}

// Refresh runs one fetch round and publishes the resulting snapshot.
// A failing mountain is stored as unavailable; only a registry failure
// fails the round.
func (s *Service) Refresh(ctx context.Context) (*ForecastState, error) {
	started := s.now()

	mountains, err := s.mountains.GetMountains()
	if err != nil {
		err = fmt.Errorf("load mountains: %w", err)
		s.logger.Error("forecast round failed", "error", err)
		// keep serving the last good round if there is one
		if prev := s.state.Load(); prev == nil || prev.Failed() {
			s.state.Store(&ForecastState{StartedAt: started, CompletedAt: s.now(), Err: err})
		}
		return nil, err
	}

	b := newRoundBuilder(len(mountains))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, m := range mountains {
		g.Go(func() error {
			b.set(s.fetchOne(ctx, m))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := b.build(started, s.now(), mountains)
	s.state.Store(state)

	available := 0
	for _, f := range state.Forecasts {
		if f.Available() {
			available++
		}
	}
	s.logger.Info("forecast round completed",
		"mountains", len(mountains),
		"available", available,
		"duration_ms", state.CompletedAt.Sub(started).Milliseconds(),
	)

	s.publishReports(state)
	return state, nil
}

func (s *Service) fetchOne(ctx context.Context, m types.Mountain) types.MountainForecast {
	res, err := s.fetcher.Fetch(ctx, m.Lat, m.Lon)
	if err != nil {
		var fe *forecast.FetchError
		if errors.As(err, &fe) {
			s.logger.Warn("forecast unavailable",
				"mountain_id", m.ID,
				"status", fe.StatusCode,
				"error", err,
			)
		} else {
			s.logger.Warn("forecast unavailable", "mountain_id", m.ID, "error", err)
		}
		return types.MountainForecast{Mountain: m, Err: err}
	}

	daily := res.Daily
	if res.FromCache {
		s.logger.Info("forecast from cache", "mountain_id", m.ID, "fetched_at", res.FetchedAt)
	}
	return types.MountainForecast{
		Mountain:  m,
		Daily:     &daily,
		FetchedAt: res.FetchedAt,
		FromCache: res.FromCache,
	}
}

// Run performs the initial round and then refreshes on the configured
// interval until ctx is done. A zero interval disables refreshing.
func (s *Service) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
