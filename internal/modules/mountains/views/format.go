package views

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

// Missing is shown in place of an absent value.
const Missing = "–"

var weekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// DateLabel formats an ISO date as "M/D (요일)".
func DateLabel(iso string) string {
	if iso == "" {
		return "Unknown date"
	}
	d, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%d/%d (%s)", int(d.Month()), d.Day(), weekdays[d.Weekday()])
}

// OffsetLabel names a day offset relative to today.
func OffsetLabel(offset int) string {
	switch offset {
	case 0:
		return "Today"
	case 1:
		return "+1 day"
	default:
		return fmt.Sprintf("+%d days", offset)
	}
}

// Elevation formats meters with thousands separators, e.g. "1,567 m".
func Elevation(m int) string {
	s := strconv.Itoa(m)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + " m"
	}
	return b.String() + " m"
}

// TempRange renders "min° / max°C" with both values rounded.
func TempRange(d types.Day) string {
	return fmt.Sprintf("%s° / %s°C", rounded(d.TempMin), rounded(d.TempMax))
}

// SnowPrecip renders "snow cm / precip mm" with one decimal.
func SnowPrecip(d types.Day) string {
	return fmt.Sprintf("%s cm / %s mm", oneDecimal(d.SnowfallSum), oneDecimal(d.PrecipitationSum))
}

// Chance renders the precipitation probability as a percentage.
func Chance(d types.Day) string {
	v, ok := types.Value(d.PrecipitationProbabilityMax)
	if !ok {
		return Missing
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// StarString renders n filled stars out of five.
func StarString(n int) string {
	n = min(max(n, 0), 5)
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func rounded(p *float64) string {
	v, ok := types.Value(p)
	if !ok {
		return Missing
	}
	// halves round up, -2.5 becomes -2
	r := math.Floor(v + 0.5)
	if r == 0 {
		r = 0 // drops the sign of -0
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}

func oneDecimal(p *float64) string {
	v, ok := types.Value(p)
	if !ok {
		return Missing
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
