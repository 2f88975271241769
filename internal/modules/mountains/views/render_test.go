package views

import (
	"bytes"
	"errors"
	"html"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

func f(v float64) *float64 { return &v }

var taebaek = types.Mountain{
	ID: "taebaeksan", Name: "Taebaeksan", LocalName: "태백산",
	Lat: 37.083, Lon: 128.933, Elevation: 1567, Region: "Gangwon / Gyeongbuk",
}

var halla = types.Mountain{
	ID: "hallasan", Name: "Hallasan", LocalName: "한라산",
	Lat: 33.3617, Lon: 126.5292, Elevation: 1947, Region: "Jeju",
}

func todayOnly() *types.DailyWeather {
	return &types.DailyWeather{Days: []types.Day{
		{Date: "2025-01-10", TempMax: f(-5), TempMin: f(-10), SnowfallSum: f(6), PrecipitationSum: f(6), PrecipitationProbabilityMax: f(80)},
	}}
}

func fourDays() *types.DailyWeather {
	return &types.DailyWeather{Days: []types.Day{
		{Date: "2025-01-10", TempMax: f(-5), TempMin: f(-10), SnowfallSum: f(6), PrecipitationSum: f(6), PrecipitationProbabilityMax: f(80)},
		{Date: "2025-01-11", TempMax: f(5), TempMin: f(2), SnowfallSum: f(0), PrecipitationSum: f(0), PrecipitationProbabilityMax: f(20)},
		{Date: "2025-01-12", TempMax: f(0.5), TempMin: f(-1), SnowfallSum: f(0), PrecipitationSum: f(3), PrecipitationProbabilityMax: f(10)},
		{Date: "2025-01-13"},
	}}
}

func TestLoadTemplates_success(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates() = %v; want nil", err)
	}
	if dashboardTmpl == nil {
		t.Fatal("LoadTemplates() left dashboardTmpl nil")
	}
}

func TestLoadTemplates_failure_noFiles(t *testing.T) {
	if err := loadTemplatesFromFS(fstest.MapFS{}, "templates"); err == nil {
		t.Fatal("loadTemplatesFromFS(emptyFS) = nil; want error")
	}
}

func TestLoadTemplates_failure_parse(t *testing.T) {
	badFS := fstest.MapFS{
		"templates/base.html":           {Data: []byte("{{ .")},
		"templates/partials/x.html":     {Data: []byte("ok")},
		"templates/partials/other.html": {Data: []byte("ok")},
	}
	if err := loadTemplatesFromFS(badFS, "templates"); err == nil {
		t.Fatal("loadTemplatesFromFS(badFS) = nil; want error")
	}
}

func TestRenderDashboard_notLoaded(t *testing.T) {
	prev := dashboardTmpl
	dashboardTmpl = nil
	t.Cleanup(func() { dashboardTmpl = prev })

	var buf bytes.Buffer
	err := RenderDashboard(&buf, &DashboardData{})
	if err == nil {
		t.Fatal("RenderDashboard() = nil; want error when templates not loaded")
	}
	if !strings.Contains(err.Error(), "not loaded") {
		t.Errorf("err = %q; want message containing \"not loaded\"", err.Error())
	}
	if err := RenderMountainsPartial(&buf, &DashboardData{}); err == nil {
		t.Fatal("RenderMountainsPartial() = nil; want error when templates not loaded")
	}
}

func TestRenderDashboard_loading(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	var buf bytes.Buffer
	data := NewDashboardData(DashboardInput{Day: 1})
	if err := RenderDashboard(&buf, data); err != nil {
		t.Fatalf("RenderDashboard() = %v; want nil", err)
	}
	// html/template writes "+" as "&#43;"
	out := html.UnescapeString(buf.String())
	for _, want := range []string{"<!DOCTYPE html>", "<main", StatusLoading, "+1 day", "+2 days", "+3 days", "/service-worker.js"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderDashboard_failed(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	var buf bytes.Buffer
	data := NewDashboardData(DashboardInput{Day: 1, Failed: true, Mountains: []types.Mountain{taebaek}})
	if err := RenderDashboard(&buf, data); err != nil {
		t.Fatalf("RenderDashboard() = %v; want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, StatusFailed) {
		t.Errorf("output missing failure status; got %q", out)
	}
	if strings.Contains(out, "mountain-card\"") {
		t.Error("output has cards for a failed round")
	}
}

func TestRenderMountainsPartial_withData(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	data := NewDashboardData(DashboardInput{
		Mountains: []types.Mountain{taebaek, halla},
		Forecasts: map[string]types.MountainForecast{
			"taebaeksan": {Mountain: taebaek, Daily: fourDays()},
			"hallasan":   {Mountain: halla, Err: errors.New("status 500")},
		},
		Day:       2,
		Loaded:    true,
		UpdatedAt: time.Date(2025, 1, 10, 7, 30, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	if err := RenderMountainsPartial(&buf, data); err != nil {
		t.Fatalf("RenderMountainsPartial() = %v; want nil", err)
	}
	out := buf.String()

	if strings.Contains(out, "<!DOCTYPE html>") {
		t.Error("partial rendered the full layout")
	}
	for _, want := range []string{
		"태백산 (Taebaeksan)",
		"1,567 m",
		"Gangwon / Gyeongbuk",
		"Maybe",
		"1/12 (일)",
		"-1° / 1°C",
		"0.0 cm / 3.0 mm",
		"10%",
		"한라산 (Hallasan)",
		Unavailable,
		"Updated 2025-01-10 07:30",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.Contains(out, `class="day-button active"`) {
		t.Error("no active day button")
	}
}

func TestNewMountainCard_fallsBackToToday(t *testing.T) {
	card := NewMountainCard(taebaek, types.MountainForecast{Mountain: taebaek, Daily: todayOnly()}, 2)

	if !card.Available {
		t.Fatal("Available = false; want true")
	}
	if card.DateLabel != "1/10 (금)" {
		t.Errorf("DateLabel = %q; want today's 1/10 (금)", card.DateLabel)
	}
	if card.Score.Score != 6 || card.Score.Level != types.LevelHigh {
		t.Errorf("Score = %+v; want today's score 6/high", card.Score)
	}
	if len(card.Days) != 3 {
		t.Fatalf("Days = %d; want 3", len(card.Days))
	}
	for _, d := range card.Days {
		if d.DateLabel != "1/10 (금)" {
			t.Errorf("day %d DateLabel = %q; want fallback to today", d.Offset, d.DateLabel)
		}
	}
}

func TestNewMountainCard_absentValues(t *testing.T) {
	card := NewMountainCard(taebaek, types.MountainForecast{Mountain: taebaek, Daily: fourDays()}, 3)

	if card.Score.Level != types.LevelUnknown {
		t.Errorf("Level = %q; want unknown for an empty day", card.Score.Level)
	}
	d3 := card.Days[2]
	if d3.Temp != "–° / –°C" || d3.Snow != "– cm / – mm" || d3.Chance != "–" {
		t.Errorf("day 3 = %+v; want dashes for absent values", d3)
	}
}

func TestNewMountainCard_unavailable(t *testing.T) {
	card := NewMountainCard(halla, types.MountainForecast{}, 1)
	if card.Available {
		t.Error("Available = true; want false")
	}
	if card.Title != "한라산 (Hallasan)" || card.Elevation != "1,947 m" {
		t.Errorf("card = %+v; want header fields", card)
	}
	if len(card.Days) != 0 {
		t.Errorf("Days = %d; want 0", len(card.Days))
	}
}

func TestNewDashboardData_dayOptions(t *testing.T) {
	data := NewDashboardData(DashboardInput{Day: 3, Loaded: true})
	if len(data.DayOptions) != 3 {
		t.Fatalf("DayOptions = %d; want 3", len(data.DayOptions))
	}
	for _, o := range data.DayOptions {
		if o.Active != (o.Offset == 3) {
			t.Errorf("option %d Active = %v", o.Offset, o.Active)
		}
	}
	if data.Status != StatusReady {
		t.Errorf("Status = %q; want %q", data.Status, StatusReady)
	}
}
