package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bacchus320/snowflake/internal/config"
	db "github.com/bacchus320/snowflake/internal/db"
	"github.com/bacchus320/snowflake/internal/logging"
	"github.com/bacchus320/snowflake/internal/migrate"
)

var version = "dev"

const usage = `usage: %s <command>
  up      apply pending schema/seed migrations
  status  list migrations and whether they are applied
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, "snowflake-migrate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer, command string) error {
	switch command {
	case "up", "migrate", "status":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	switch command {
	case "up", "migrate":
		if err := migrate.Run(ctx, conn); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
	case "status":
		migrations, err := migrate.Status(ctx, conn)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			fmt.Fprintf(out, "%s  %-24s %s\n", m.Version, m.Name, state)
		}
	}
	return nil
}
