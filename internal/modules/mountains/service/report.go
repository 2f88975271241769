package service

import (
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/scoring"
	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

type ReportPublisher interface {
	PublishSnowReport(report types.SnowReport) error
}

// BuildSnowReport scores today and every selectable offset the forecast covers.
func BuildSnowReport(f types.MountainForecast, generatedAt time.Time) types.SnowReport {
	r := types.SnowReport{
		MountainID:  f.Mountain.ID,
		Name:        f.Mountain.Name,
		GeneratedAt: generatedAt,
		Available:   f.Available(),
	}
	if !r.Available {
		return r
	}
	for offset := 0; offset <= types.MaxDayOffset; offset++ {
		if !f.Daily.HasDate(offset) {
			continue
		}
		r.Days = append(r.Days, types.DayScoreItem{
			Offset: offset,
			Date:   f.Daily.Days[offset].Date,
			Score:  scoring.Score(*f.Daily, offset),
		})
	}
	return r
}

func (s *Service) publishReports(state *ForecastState) {
	if s.publisher == nil {
		return
	}
	for _, m := range state.Mountains {
		f, ok := state.Forecast(m.ID)
		if !ok {
			continue
		}
		report := BuildSnowReport(f, state.CompletedAt)
		if err := s.publisher.PublishSnowReport(report); err != nil {
			s.logger.Warn("publish snow report failed", "mountain_id", m.ID, "error", err)
			continue
		}
		s.logger.Debug("published snow report", "mountain_id", m.ID, "days", len(report.Days))
	}
}
