package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/bacchus320/snowflake/internal/config"
)

func TestNewLogger_ReleaseWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}

	logger := newLogger(&buf, cfg, "1.2.3", "snowflake")
	logger.Debug("hidden")
	logger.Info("forecast round completed", "mountains", 9)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines; want 1: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("json.Unmarshal() = %v; want nil", err)
	}
	want := map[string]any{
		"msg":       "forecast round completed",
		"app":       "snowflake",
		"version":   "1.2.3",
		"env":       "prod",
		"mountains": float64(9),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v; want %v", k, rec[k], v)
		}
	}
}

func TestNewLogger_DevUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelDebug}

	logger := newLogger(&buf, cfg, "dev", "snowflake")
	logger.Debug("forecast served from cache", "mountain_id", "hallasan")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("dev output looks like JSON: %q", out)
	}
	for _, want := range []string{"forecast served from cache", "app=snowflake", "mountain_id=hallasan"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}
