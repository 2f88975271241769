// Package scoring turns a day of forecast values into a snowflake rating.
//
// Rules are grouped. Inside a group the first matching rule wins; the
// deltas of all groups are summed.
package scoring

import (
	"math"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

const (
	LabelExcellent = "Excellent snowflakes"
	LabelGood      = "Good chance"
	LabelMaybe     = "Maybe"
	LabelUnlikely  = "Unlikely"
	LabelNoData    = "No data"

	EmojiExcellent = "❄❄❄"
	EmojiGood      = "❄❄"
	EmojiMaybe     = "❄?"
	EmojiUnlikely  = "✖"
	EmojiNoData    = "？"
)

type rule struct {
	code  string
	delta int
	text  string
	when  func(d types.Day) bool
}

type group struct {
	name     string
	requires func(d types.Day) bool
	rules    []rule
}

var groups = []group{
	{
		name:     "temperature",
		requires: func(d types.Day) bool { return present(d.TempMax) && present(d.TempMin) },
		rules: []rule{
			{code: "very_cold", delta: 2, text: "매우 추움", when: func(d types.Day) bool { return lte(d.TempMax, -2) }},
			{code: "sub_zero_all_day", delta: 2, text: "영하권 유지", when: func(d types.Day) bool { return lt(d.TempMax, 1) && lte(d.TempMin, -1) }},
			{code: "freezing_overnight", delta: 1, text: "영하로 떨어짐", when: func(d types.Day) bool { return lte(d.TempMin, 0) }},
			{code: "warm_melting", delta: -2, text: "영상 기온, 녹을 수 있음", when: func(d types.Day) bool { return gte(d.TempMax, 4) }},
		},
	},
	{
		name:     "snow",
		requires: func(d types.Day) bool { return present(d.SnowfallSum) },
		rules: []rule{
			{code: "heavy_snow", delta: 3, text: "눈 많이 예정", when: func(d types.Day) bool { return gte(d.SnowfallSum, 5) }},
			{code: "light_snow", delta: 2, text: "눈 약간 예정", when: func(d types.Day) bool { return gte(d.SnowfallSum, 1) }},
			{code: "rime_possible", delta: 1, text: "습기 + 영하, 상고대 가능", when: func(d types.Day) bool {
				return eq(d.SnowfallSum, 0) && gt(d.PrecipitationSum, 0) && lte(d.TempMax, 1)
			}},
		},
	},
	{
		name:     "precipitation_probability",
		requires: func(d types.Day) bool { return present(d.PrecipitationProbabilityMax) },
		rules: []rule{
			{code: "likely_snow", delta: 1, text: "강수 확률 높음 (눈 가능)", when: func(d types.Day) bool {
				return gte(d.PrecipitationProbabilityMax, 70) && lte(d.TempMax, 1)
			}},
			{code: "likely_rain", delta: -1, text: "강수는 비일 가능성", when: func(d types.Day) bool {
				return gte(d.PrecipitationProbabilityMax, 70) && gte(d.TempMax, 3)
			}},
		},
	},
}

// Score rates the day at dayIndex. The index is expected to be valid; use
// ResolveDayIndex first. A day without any usable value rates as unknown.
func Score(weather types.DailyWeather, dayIndex int) types.ScoreResult {
	day, ok := weather.At(dayIndex)
	if !ok || day.Empty() {
		return NoData()
	}

	score := 0
	var reasons []types.Reason
	for _, g := range groups {
		if !g.requires(day) {
			continue
		}
		for _, r := range g.rules {
			if r.when(day) {
				score += r.delta
				reasons = append(reasons, types.Reason{Code: r.code, Delta: r.delta, Text: r.text})
				break
			}
		}
	}

	res := rate(float64(score))
	res.Reasons = reasons
	return res
}

// NoData is the rating shown when nothing is known about a day.
func NoData() types.ScoreResult {
	return types.ScoreResult{
		Score: 0,
		Label: LabelNoData,
		Emoji: EmojiNoData,
		Level: types.LevelUnknown,
		Stars: 0,
	}
}

func rate(raw float64) types.ScoreResult {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		raw = 0
	}
	score := int(raw)

	res := types.ScoreResult{Score: score, Stars: Stars(score)}
	switch {
	case score >= 6:
		res.Label, res.Emoji, res.Level = LabelExcellent, EmojiExcellent, types.LevelHigh
	case score >= 4:
		res.Label, res.Emoji, res.Level = LabelGood, EmojiGood, types.LevelMedium
	case score >= 2:
		res.Label, res.Emoji, res.Level = LabelMaybe, EmojiMaybe, types.LevelLow
	default:
		res.Label, res.Emoji, res.Level = LabelUnlikely, EmojiUnlikely, types.LevelNone
	}
	return res
}

// Stars maps a score onto 0..5 stars.
func Stars(score int) int {
	stars := 5
	switch {
	case score <= 1:
		stars = 1
	case score <= 3:
		stars = 2
	case score <= 5:
		stars = 3
	case score <= 7:
		stars = 4
	}
	// zero and below override the one-star band
	if score <= 0 {
		stars = 0
	}
	return stars
}

// ResolveDayIndex returns offset when the forecast has a dated day there,
// otherwise today (0).
func ResolveDayIndex(weather types.DailyWeather, offset int) int {
	if weather.HasDate(offset) {
		return offset
	}
	return 0
}

func present(p *float64) bool {
	_, ok := types.Value(p)
	return ok
}

func compare(p *float64, f func(v float64) bool) bool {
	v, ok := types.Value(p)
	return ok && f(v)
}

func lt(p *float64, x float64) bool  { return compare(p, func(v float64) bool { return v < x }) }
func lte(p *float64, x float64) bool { return compare(p, func(v float64) bool { return v <= x }) }
func gt(p *float64, x float64) bool  { return compare(p, func(v float64) bool { return v > x }) }
func gte(p *float64, x float64) bool { return compare(p, func(v float64) bool { return v >= x }) }
func eq(p *float64, x float64) bool  { return compare(p, func(v float64) bool { return v == x }) }
