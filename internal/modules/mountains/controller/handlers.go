package controller

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/repository"
	"github.com/bacchus320/snowflake/internal/modules/mountains/scoring"
	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
	"github.com/bacchus320/snowflake/internal/modules/mountains/views"
	"github.com/bacchus320/snowflake/internal/utils"
)

type forecastDay struct {
	Offset int `json:"offset"`
	types.Day
	Score types.ScoreResult `json:"score"`
}

type forecastResponse struct {
	Mountain        types.Mountain    `json:"mountain"`
	Day             int               `json:"day"`
	DayIndex        int               `json:"dayIndex"`
	FallbackToToday bool              `json:"fallbackToToday"`
	Date            string            `json:"date"`
	Score           types.ScoreResult `json:"score"`
	FetchedAt       time.Time         `json:"fetchedAt"`
	FromCache       bool              `json:"fromCache"`
	Days            []forecastDay     `json:"days"`
}

type scoreItem struct {
	MountainID string            `json:"mountainId"`
	Name       string            `json:"name"`
	LocalName  string            `json:"localName"`
	Available  bool              `json:"available"`
	Date       string            `json:"date,omitempty"`
	Score      types.ScoreResult `json:"score"`
}

type scoresResponse struct {
	Day       int         `json:"day"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Mountains []scoreItem `json:"mountains"`
}

func (c *mountainControllerImpl) dashboardData(r *http.Request) *views.DashboardData {
	in := views.DashboardInput{Day: dayOrDefault(r)}
	if state := c.forecasts.Snapshot(); state != nil {
		in.Loaded = true
		in.Failed = state.Failed()
		in.Mountains = state.Mountains
		in.Forecasts = state.Forecasts
		in.UpdatedAt = state.CompletedAt
	}
	return views.NewDashboardData(in)
}

func (c *mountainControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	c.renderHTML(w, "dashboard", c.dashboardData(r), views.RenderDashboard)
}

func (c *mountainControllerImpl) handleMountainsPartial(w http.ResponseWriter, r *http.Request) {
	c.renderHTML(w, "mountains partial", c.dashboardData(r), views.RenderMountainsPartial)
}

func (c *mountainControllerImpl) renderHTML(w http.ResponseWriter, name string, data *views.DashboardData, render func(io.Writer, *views.DashboardData) error) {
	var buf bytes.Buffer
	if err := render(&buf, data); err != nil {
		slog.Error("template render failed", "view", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("write response failed", "view", name, "error", err)
	}
}

func (c *mountainControllerImpl) handleMountains(w http.ResponseWriter, r *http.Request) {
	mountains, err := c.repository.GetMountains()
	if err != nil {
		slog.Error("get mountains failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load mountains")
		return
	}
	if mountains == nil {
		mountains = []types.Mountain{}
	}
	utils.WriteJSON(w, http.StatusOK, mountains)
}

func (c *mountainControllerImpl) handleMountainForecast(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing mountain id")
		return
	}

	day, err := parseDayQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	mountain, err := c.repository.GetMountain(id)
	if errors.Is(err, repository.ErrMountainNotFound) {
		utils.WriteError(w, http.StatusNotFound, "unknown mountain id")
		return
	}
	if err != nil {
		slog.Error("get mountain failed", "mountain_id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load mountain")
		return
	}

	f, ok := c.forecasts.Snapshot().Forecast(id)
	if !ok || !f.Available() {
		utils.WriteError(w, http.StatusServiceUnavailable, "forecast unavailable")
		return
	}

	weather := *f.Daily
	idx := scoring.ResolveDayIndex(weather, day)
	resp := forecastResponse{
		Mountain:        mountain,
		Day:             day,
		DayIndex:        idx,
		FallbackToToday: idx != day,
		Date:            weather.Days[idx].Date,
		Score:           scoring.Score(weather, idx),
		FetchedAt:       f.FetchedAt,
		FromCache:       f.FromCache,
	}
	for i, d := range weather.Days {
		resp.Days = append(resp.Days, forecastDay{Offset: i, Day: d, Score: scoring.Score(weather, i)})
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (c *mountainControllerImpl) handleScores(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := c.forecasts.Snapshot()
	if state == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, "forecast not loaded yet")
		return
	}
	if state.Failed() {
		utils.WriteError(w, http.StatusServiceUnavailable, views.StatusFailed)
		return
	}

	resp := scoresResponse{Day: day, UpdatedAt: state.CompletedAt, Mountains: []scoreItem{}}
	for _, m := range state.Mountains {
		item := scoreItem{MountainID: m.ID, Name: m.Name, LocalName: m.LocalName, Score: scoring.NoData()}
		if f, ok := state.Forecast(m.ID); ok && f.Available() {
			idx := scoring.ResolveDayIndex(*f.Daily, day)
			item.Available = true
			item.Date = f.Daily.Days[idx].Date
			item.Score = scoring.Score(*f.Daily, idx)
		}
		resp.Mountains = append(resp.Mountains, item)
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
