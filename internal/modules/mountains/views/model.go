package views

import (
	"fmt"
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/scoring"
	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

const (
	StatusLoading = "Loading forecasts from Open‑Meteo…"
	StatusFailed  = "Failed to load forecast. Please try again later."
	StatusReady   = "Tap +1 day / +2 days / +3 days to switch view."

	Unavailable = "Forecast unavailable."
)

// DashboardInput is what the page is rendered from.
type DashboardInput struct {
	Mountains []types.Mountain
	Forecasts map[string]types.MountainForecast
	Day       int
	Loaded    bool
	Failed    bool
	UpdatedAt time.Time
}

type DashboardData struct {
	Status     string
	Day        int
	DayOptions []DayOption
	Cards      []MountainCard
	UpdatedAt  string
}

type DayOption struct {
	Offset int
	Label  string
	Active bool
}

type MountainCard struct {
	ID        string
	Title     string
	Elevation string
	Region    string
	Available bool
	FromCache bool

	Score     types.ScoreResult
	Stars     string
	DateLabel string
	Days      []DayCard
}

type DayCard struct {
	Offset    int
	Label     string
	DateLabel string
	Emoji     string
	Level     types.Level
	Stars     string
	Temp      string
	Snow      string
	Chance    string
}

// NewDashboardData builds the cards for the selected day. Days missing from a
// forecast are shown with today's values.
func NewDashboardData(in DashboardInput) *DashboardData {
	data := &DashboardData{Day: in.Day}
	for o := types.MinDayOffset; o <= types.MaxDayOffset; o++ {
		data.DayOptions = append(data.DayOptions, DayOption{Offset: o, Label: OffsetLabel(o), Active: o == in.Day})
	}

	switch {
	case in.Failed:
		data.Status = StatusFailed
		return data
	case !in.Loaded:
		data.Status = StatusLoading
		return data
	}
	data.Status = StatusReady
	if !in.UpdatedAt.IsZero() {
		data.UpdatedAt = in.UpdatedAt.Format("2006-01-02 15:04")
	}

	for _, m := range in.Mountains {
		data.Cards = append(data.Cards, NewMountainCard(m, in.Forecasts[m.ID], in.Day))
	}
	return data
}

// NewMountainCard renders one mountain. f may be the zero value when the
// round has no entry for it.
func NewMountainCard(m types.Mountain, f types.MountainForecast, day int) MountainCard {
	card := MountainCard{
		ID:        m.ID,
		Title:     fmt.Sprintf("%s (%s)", m.LocalName, m.Name),
		Elevation: Elevation(m.Elevation),
		Region:    m.Region,
		Available: f.Available(),
		FromCache: f.FromCache,
	}
	if !card.Available {
		return card
	}

	w := *f.Daily
	idx := scoring.ResolveDayIndex(w, day)
	card.Score = scoring.Score(w, idx)
	card.Stars = StarString(card.Score.Stars)
	card.DateLabel = DateLabel(w.Days[idx].Date)

	for o := types.MinDayOffset; o <= types.MaxDayOffset; o++ {
		di := scoring.ResolveDayIndex(w, o)
		d, _ := w.At(di)
		s := scoring.Score(w, di)
		card.Days = append(card.Days, DayCard{
			Offset:    o,
			Label:     OffsetLabel(o),
			DateLabel: DateLabel(d.Date),
			Emoji:     s.Emoji,
			Level:     s.Level,
			Stars:     StarString(s.Stars),
			Temp:      TempRange(d),
			Snow:      SnowPrecip(d),
			Chance:    Chance(d),
		})
	}
	return card
}
