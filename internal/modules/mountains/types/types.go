package types

import (
	"math"
	"time"
)

// Selectable forecast day offsets; 0 is today.
const (
	MinDayOffset     = 1
	MaxDayOffset     = 3
	DefaultDayOffset = 1
)

type Mountain struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	LocalName string  `json:"localName"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation int     `json:"elevation"`
	Region    string  `json:"region"`
}

// Day holds one forecast day. Numeric fields are nil when the upstream
// value was null or missing.
type Day struct {
	Date                        string   `json:"date"`
	TempMax                     *float64 `json:"tempMax"`
	TempMin                     *float64 `json:"tempMin"`
	SnowfallSum                 *float64 `json:"snowfallSum"`
	PrecipitationSum            *float64 `json:"precipitationSum"`
	PrecipitationProbabilityMax *float64 `json:"precipitationProbabilityMax"`
}

// DailyWeather is the per-day forecast of one location, index 0 being today.
type DailyWeather struct {
	Days []Day `json:"days"`
}

// Len returns the number of forecast days.
func (w DailyWeather) Len() int {
	return len(w.Days)
}

// At returns the day at index i and whether it exists.
func (w DailyWeather) At(i int) (Day, bool) {
	if i < 0 || i >= len(w.Days) {
		return Day{}, false
	}
	return w.Days[i], true
}

// HasDate reports whether index i exists and carries a calendar date.
func (w DailyWeather) HasDate(i int) bool {
	d, ok := w.At(i)
	return ok && d.Date != ""
}

// Value returns the float behind p when it is present and finite.
func Value(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// Empty reports whether none of the weather values are usable.
func (d Day) Empty() bool {
	for _, p := range []*float64{d.TempMax, d.TempMin, d.SnowfallSum, d.PrecipitationSum, d.PrecipitationProbabilityMax} {
		if _, ok := Value(p); ok {
			return false
		}
	}
	return true
}

type Level string

const (
	LevelUnknown Level = "unknown"
	LevelNone    Level = "none"
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
)

type Reason struct {
	Code  string `json:"code"`
	Delta int    `json:"delta"`
	Text  string `json:"text"`
}

type ScoreResult struct {
	Score   int      `json:"score"`
	Label   string   `json:"label"`
	Emoji   string   `json:"emoji"`
	Level   Level    `json:"level"`
	Reasons []Reason `json:"reasons,omitempty"`
	Stars   int      `json:"starRating"`
}

type MountainForecast struct {
	Mountain  Mountain      `json:"mountain"`
	Daily     *DailyWeather `json:"daily,omitempty"`
	Err       error         `json:"-"`
	FetchedAt time.Time     `json:"fetchedAt"`
	FromCache bool          `json:"fromCache"`
}

// Available reports whether a forecast was fetched for the mountain.
func (f MountainForecast) Available() bool {
	return f.Err == nil && f.Daily != nil && f.Daily.Len() > 0
}

// SnowReport is the per-mountain summary published after a fetch round.
type SnowReport struct {
	MountainID  string         `json:"mountain_id"`
	Name        string         `json:"name"`
	GeneratedAt time.Time      `json:"generated_at"`
	Available   bool           `json:"available"`
	Days        []DayScoreItem `json:"days,omitempty"`
}

type DayScoreItem struct {
	Offset int         `json:"offset"`
	Date   string      `json:"date"`
	Score  ScoreResult `json:"score"`
}
