package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bacchus320/snowflake/internal/config"
)

type sqlRecord struct {
	Level      string   `json:"level"`
	Msg        string   `json:"msg"`
	Op         string   `json:"op"`
	SQL        string   `json:"sql"`
	Args       []string `json:"args"`
	DurationMS *int64   `json:"duration_ms"`
	Error      string   `json:"error"`
}

func openLogged(t *testing.T) (*sql.DB, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db := sql.OpenDB(NewLoggingConnector(":memory:", logger))
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, &buf
}

func sqlRecords(t *testing.T, buf *bytes.Buffer) []sqlRecord {
	t.Helper()
	var out []sqlRecord
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec sqlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("json.Unmarshal(%q) = %v; want nil", line, err)
		}
		if rec.Msg == "sql" {
			out = append(out, rec)
		}
	}
	return out
}

func lastRecord(t *testing.T, buf *bytes.Buffer) sqlRecord {
	t.Helper()
	recs := sqlRecords(t, buf)
	if len(recs) == 0 {
		t.Fatalf("no sql records in %q", buf.String())
	}
	return recs[len(recs)-1]
}

func TestLoggingConnector_ExecWithArgs(t *testing.T) {
	db, buf := openLogged(t)

	if _, err := db.Exec(`CREATE TABLE mountains (id TEXT PRIMARY KEY, elevation_m INTEGER, region TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	buf.Reset()

	if _, err := db.Exec(`INSERT INTO mountains (id, elevation_m, region) VALUES (?, ?, ?)`, "hallasan", 1947, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got := lastRecord(t, buf)
	if got.Level != "DEBUG" || got.Op != "exec" {
		t.Errorf("level/op = %s/%s; want DEBUG/exec", got.Level, got.Op)
	}
	if got.SQL != `INSERT INTO mountains (id, elevation_m, region) VALUES (?, ?, ?)` {
		t.Errorf("sql = %q", got.SQL)
	}
	wantArgs := []string{"hallasan", "1947", "NULL"}
	if strings.Join(got.Args, ",") != strings.Join(wantArgs, ",") {
		t.Errorf("args = %v; want %v", got.Args, wantArgs)
	}
	if got.DurationMS == nil {
		t.Error("duration_ms missing")
	}
}

func TestLoggingConnector_QueryCompactsSQL(t *testing.T) {
	db, buf := openLogged(t)

	rows, err := db.Query("SELECT\n  1 AS one,\n\t2 AS two\nWHERE 1 = ?", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	_ = rows.Close()

	got := lastRecord(t, buf)
	if got.Op != "query" {
		t.Errorf("op = %q; want query", got.Op)
	}
	if got.SQL != "SELECT 1 AS one, 2 AS two WHERE 1 = ?" {
		t.Errorf("sql = %q", got.SQL)
	}
}

func TestLoggingConnector_FailedStatementLoggedAsWarn(t *testing.T) {
	db, buf := openLogged(t)

	if _, err := db.Exec(`INSERT INTO missing_table VALUES (1)`); err == nil {
		t.Fatal("Exec() = nil; want error")
	}

	got := lastRecord(t, buf)
	if got.Level != "WARN" {
		t.Errorf("level = %q; want WARN", got.Level)
	}
	if !strings.Contains(got.Error, "missing_table") {
		t.Errorf("error = %q; want mention of missing_table", got.Error)
	}
}

func TestLoggingConnector_PreparedStatementsAndTx(t *testing.T) {
	db, buf := openLogged(t)

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin() = %v; want nil", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO t (id) VALUES (?)`)
	if err != nil {
		t.Fatalf("Prepare() = %v; want nil", err)
	}
	for i := range 3 {
		if _, err := stmt.Exec(i); err != nil {
			t.Fatalf("stmt.Exec(%d) = %v; want nil", i, err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() = %v; want nil", err)
	}

	inserts := 0
	for _, rec := range sqlRecords(t, buf) {
		if strings.HasPrefix(rec.SQL, "INSERT INTO t") {
			inserts++
		}
	}
	if inserts != 3 {
		t.Errorf("logged %d inserts; want 3", inserts)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("rows = %d; want 3", n)
	}
}

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	params := "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  config.Config{SQLiteDSN: "file:custom.db?mode=ro", SQLitePath: "ignored.db"},
			want: "file:custom.db?mode=ro",
		},
		{
			name: "plain path",
			cfg:  config.Config{SQLitePath: filepath.Join(dir, "a", "snowflake.db")},
			want: "file:" + filepath.Join(dir, "a", "snowflake.db") + "?" + params,
		},
		{
			name: "file uri with query",
			cfg:  config.Config{SQLitePath: "file:" + filepath.Join(dir, "b.db") + "?cache=shared"},
			want: "file:" + filepath.Join(dir, "b.db") + "?cache=shared&" + params,
		},
		{
			name: "memory",
			cfg:  config.Config{SQLitePath: ":memory:"},
			want: "file::memory:?cache=shared&_foreign_keys=on",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN() = %v; want nil", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN() = %q; want %q", got, tt.want)
			}
		})
	}

	if _, err := buildDSN(config.Config{}); err == nil {
		t.Error("buildDSN(empty) = nil; want error")
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snowflake.db")

	for _, logQueries := range []bool{false, true} {
		cfg := config.Config{
			SQLiteDriver:       "sqlite3",
			SQLitePath:         path,
			SQLiteMaxOpenConns: 1,
			SQLiteMaxIdleConns: 1,
			SQLiteLogQueries:   logQueries,
		}
		db, err := Open(cfg, slog.New(slog.DiscardHandler))
		if err != nil {
			t.Fatalf("Open(logQueries=%v) = %v; want nil", logQueries, err)
		}
		var one int
		if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil || one != 1 {
			t.Errorf("SELECT 1 = %d, %v; want 1, nil", one, err)
		}
		if err := Close(db); err != nil {
			t.Errorf("Close() = %v; want nil", err)
		}
	}

	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) = %v; want nil", err)
	}
}
