package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

var errInvalidDay = fmt.Errorf("invalid 'day' (expected %d..%d)", types.MinDayOffset, types.MaxDayOffset)

// parseDayQuery reads the selected day offset; an absent value is the default.
func parseDayQuery(r *http.Request) (int, error) {
	s := r.URL.Query().Get("day")
	if s == "" {
		return types.DefaultDayOffset, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Join(errInvalidDay, err)
	}
	if n < types.MinDayOffset || n > types.MaxDayOffset {
		return 0, errInvalidDay
	}
	return n, nil
}

// dayOrDefault is the lenient form used by the HTML pages.
func dayOrDefault(r *http.Request) int {
	n, err := parseDayQuery(r)
	if err != nil {
		return types.DefaultDayOffset
	}
	return n
}
