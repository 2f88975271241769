package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// Open-Meteo serves at most 16 forecast days; offset 3 needs 4.
	minForecastDays = 4
	maxForecastDays = 16
)

var cacheVersionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogQueries      bool

	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	ForecastAPIURL          string
	ForecastTimezone        string
	ForecastDays            int
	ForecastHTTPTimeout     time.Duration
	ForecastRPS             float64
	ForecastBurst           int
	ForecastConcurrency     int
	ForecastRefreshInterval time.Duration

	// AssetCacheVersion names the offline cache namespace and the static
	// asset validators. Bump it on every deploy that changes assets.
	AssetCacheVersion string
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: env("HTTP_ADDR", ":8080"),

		SQLiteDriver: env("SQLITE_DRIVER", "sqlite3"),
		SQLiteDSN:    env("SQLITE_DSN", ""),
		SQLitePath:   env("SQLITE_PATH", "data/snowflake.db"),

		MQTTBroker:      env("MQTT_BROKER", "localhost"),
		MQTTClientID:    env("MQTT_CLIENT_ID", "snowflake-server"),
		MQTTTopicPrefix: strings.Trim(env("MQTT_TOPIC_PREFIX", "snowflake/mountains"), "/"),

		ForecastAPIURL:   env("FORECAST_API_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastTimezone: env("FORECAST_TIMEZONE", "Asia/Seoul"),

		AssetCacheVersion: env("ASSET_CACHE_VERSION", "v1"),
	}

	if cfg.SQLiteMaxOpenConns, err = envInt("SQLITE_MAX_OPEN_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteMaxIdleConns, err = envInt("SQLITE_MAX_IDLE_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteConnMaxLifetime, err = envDuration("SQLITE_CONN_MAX_LIFETIME", 0); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteLogQueries, err = envBool("SQLITE_LOG_QUERIES", false); err != nil {
		return Config{}, err
	}

	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort < 1 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", cfg.MQTTPort)
	}

	if u, err := url.Parse(cfg.ForecastAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid FORECAST_API_URL %q", cfg.ForecastAPIURL)
	}
	if _, err := time.LoadLocation(cfg.ForecastTimezone); err != nil {
		return Config{}, fmt.Errorf("invalid FORECAST_TIMEZONE %q: %w", cfg.ForecastTimezone, err)
	}

	if cfg.ForecastDays, err = envInt("FORECAST_DAYS", minForecastDays); err != nil {
		return Config{}, err
	}
	if cfg.ForecastDays < minForecastDays || cfg.ForecastDays > maxForecastDays {
		return Config{}, fmt.Errorf("invalid FORECAST_DAYS %d (allowed: %d-%d)", cfg.ForecastDays, minForecastDays, maxForecastDays)
	}
	if cfg.ForecastHTTPTimeout, err = envDuration("FORECAST_HTTP_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ForecastHTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid FORECAST_HTTP_TIMEOUT %s (must be positive)", cfg.ForecastHTTPTimeout)
	}
	if cfg.ForecastRPS, err = envFloat("FORECAST_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.ForecastRPS < 0 {
		return Config{}, fmt.Errorf("invalid FORECAST_RPS %v (must be >= 0, 0 disables the limit)", cfg.ForecastRPS)
	}
	if cfg.ForecastBurst, err = envInt("FORECAST_BURST", 2); err != nil {
		return Config{}, err
	}
	if cfg.ForecastBurst < 1 {
		return Config{}, fmt.Errorf("invalid FORECAST_BURST %d (must be >= 1)", cfg.ForecastBurst)
	}
	if cfg.ForecastConcurrency, err = envInt("FORECAST_CONCURRENCY", 4); err != nil {
		return Config{}, err
	}
	if cfg.ForecastConcurrency < 1 {
		return Config{}, fmt.Errorf("invalid FORECAST_CONCURRENCY %d (must be >= 1)", cfg.ForecastConcurrency)
	}
	if cfg.ForecastRefreshInterval, err = envDuration("FORECAST_REFRESH_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if cfg.ForecastRefreshInterval < 0 {
		return Config{}, fmt.Errorf("invalid FORECAST_REFRESH_INTERVAL %s (must be >= 0, 0 fetches once per process)", cfg.ForecastRefreshInterval)
	}

	if !cacheVersionPattern.MatchString(cfg.AssetCacheVersion) {
		return Config{}, fmt.Errorf("invalid ASSET_CACHE_VERSION %q (allowed: letters, digits, '.', '_', '-')", cfg.AssetCacheVersion)
	}

	return cfg, nil
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := env(key, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := env(key, "")
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := env(key, "")
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	s := env(key, "")
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
