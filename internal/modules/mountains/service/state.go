package service

import (
	"sync"
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

// ForecastState is the immutable result of one fetch round.
type ForecastState struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Mountains   []types.Mountain
	Forecasts   map[string]types.MountainForecast

	// Err is set when the round could not run at all.
	Err error
}

// Forecast returns the entry of one mountain.
func (s *ForecastState) Forecast(id string) (types.MountainForecast, bool) {
	if s == nil {
		return types.MountainForecast{}, false
	}
	f, ok := s.Forecasts[id]
	return f, ok
}

// Failed reports whether the whole round failed.
func (s *ForecastState) Failed() bool {
	return s != nil && s.Err != nil
}

// roundBuilder collects the per-mountain results of a running round.
type roundBuilder struct {
	mu        sync.Mutex
	forecasts map[string]types.MountainForecast
}

func newRoundBuilder(n int) *roundBuilder {
	return &roundBuilder{forecasts: make(map[string]types.MountainForecast, n)}
}

// set stores the entry of one mountain. Later writes for the same id are dropped.
func (b *roundBuilder) set(f types.MountainForecast) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.forecasts[f.Mountain.ID]; ok {
		return false
	}
	b.forecasts[f.Mountain.ID] = f
	return true
}

func (b *roundBuilder) build(started, completed time.Time, mountains []types.Mountain) *ForecastState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]types.MountainForecast, len(b.forecasts))
	for k, v := range b.forecasts {
		out[k] = v
	}
	return &ForecastState{
		StartedAt:   started,
		CompletedAt: completed,
		Mountains:   mountains,
		Forecasts:   out,
	}
}
