// Package forecast fetches daily forecasts from the Open-Meteo API.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

const (
	DefaultBaseURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultTimezone = "Asia/Seoul"

	dailyFields = "temperature_2m_max,temperature_2m_min,precipitation_sum,snowfall_sum,precipitation_probability_max"

	maxBodyBytes = 1 << 20
)

// FetchError is returned for any failed upstream call. StatusCode is the
// upstream HTTP status, also for bodies that fail to decode, and 0 when no
// response was received.
type FetchError struct {
	Lat        float64
	Lon        float64
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forecast fetch (%.4f, %.4f): status %d: %v", e.Lat, e.Lon, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("forecast fetch (%.4f, %.4f): %v", e.Lat, e.Lon, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	BaseURL      string
	Timezone     string
	Days         int
	Timeout      time.Duration
	RPS          float64
	Burst        int
	CacheVersion string
	Logger       *slog.Logger
}

// Result is one parsed forecast. FromCache is set when the network call
// failed and a previously stored response was used instead.
type Result struct {
	Daily     types.DailyWeather
	FetchedAt time.Time
	FromCache bool
}

type Client struct {
	baseURL    string
	timezone   string
	days       int
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timezone == "" {
		opts.Timezone = DefaultTimezone
	}
	if opts.Days <= 0 {
		opts.Days = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    opts.BaseURL,
		timezone:   opts.Timezone,
		days:       opts.Days,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		cache:      NewCache(opts.CacheVersion),
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// FetchDaily returns the daily forecast for a coordinate.
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64) (types.DailyWeather, error) {
	res, err := c.Fetch(ctx, lat, lon)
	if err != nil {
		return types.DailyWeather{}, err
	}
	return res.Daily, nil
}

// Fetch is network-first: a successful response is stored in the cache, a
// failed one is answered from the cache when an entry for the same URL exists.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	reqURL, err := c.requestURL(lat, lon)
	if err != nil {
		return Result{}, &FetchError{Lat: lat, Lon: lon, Err: err}
	}

	body, status, fetchErr := c.get(ctx, reqURL, lat, lon)
	if fetchErr == nil {
		daily, err := parseDaily(body)
		if err == nil {
			now := c.now()
			c.cache.Put(reqURL, body, now)
			return Result{Daily: daily, FetchedAt: now}, nil
		}
		fetchErr = &FetchError{Lat: lat, Lon: lon, StatusCode: status, Err: err}
	}

	if ctx.Err() != nil {
		return Result{}, fetchErr
	}

	cached, storedAt, ok := c.cache.Get(reqURL)
	if !ok {
		return Result{}, fetchErr
	}
	daily, err := parseDaily(cached)
	if err != nil {
		return Result{}, fetchErr
	}
	c.logger.Warn("forecast served from cache",
		"lat", lat,
		"lon", lon,
		"stored_at", storedAt,
		"error", fetchErr,
	)
	return Result{Daily: daily, FetchedAt: storedAt, FromCache: true}, nil
}

func (c *Client) requestURL(lat, lon float64) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("timezone", c.timezone)
	q.Set("forecast_days", strconv.Itoa(c.days))
	q.Set("daily", dailyFields)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, reqURL string, lat, lon float64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &FetchError{Lat: lat, Lon: lon, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &FetchError{Lat: lat, Lon: lon, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("close forecast body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &FetchError{Lat: lat, Lon: lon, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &FetchError{Lat: lat, Lon: lon, StatusCode: resp.StatusCode, Err: upstreamReason(body)}
	}
	return body, resp.StatusCode, nil
}

// upstreamReason extracts the message of an Open-Meteo error body.
func upstreamReason(body []byte) error {
	var e struct {
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Reason != "" {
		return errors.New(e.Reason)
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return errors.New("unexpected status")
	}
	return errors.New(msg)
}

type dailyResponse struct {
	Daily *struct {
		Time                        []string   `json:"time"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		TemperatureMin              []*float64 `json:"temperature_2m_min"`
		PrecipitationSum            []*float64 `json:"precipitation_sum"`
		SnowfallSum                 []*float64 `json:"snowfall_sum"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// parseDaily turns the parallel daily arrays into one record per day.
// Nulls and short arrays leave the affected values absent.
func parseDaily(body []byte) (types.DailyWeather, error) {
	var resp dailyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.DailyWeather{}, fmt.Errorf("decode forecast: %w", err)
	}
	if resp.Daily == nil {
		return types.DailyWeather{}, errors.New("decode forecast: missing daily block")
	}
	d := resp.Daily

	n := max(len(d.Time), len(d.TemperatureMax), len(d.TemperatureMin),
		len(d.PrecipitationSum), len(d.SnowfallSum), len(d.PrecipitationProbabilityMax))

	days := make([]types.Day, n)
	for i := range days {
		if i < len(d.Time) {
			days[i].Date = d.Time[i]
		}
		days[i].TempMax = at(d.TemperatureMax, i)
		days[i].TempMin = at(d.TemperatureMin, i)
		days[i].PrecipitationSum = at(d.PrecipitationSum, i)
		days[i].SnowfallSum = at(d.SnowfallSum, i)
		days[i].PrecipitationProbabilityMax = at(d.PrecipitationProbabilityMax, i)
	}
	return types.DailyWeather{Days: days}, nil
}

func at(xs []*float64, i int) *float64 {
	if i >= len(xs) {
		return nil
	}
	return xs[i]
}
