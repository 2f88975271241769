package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bacchus320/snowflake/internal/config"
	db "github.com/bacchus320/snowflake/internal/db"
	httpapi "github.com/bacchus320/snowflake/internal/httpapi"
	"github.com/bacchus320/snowflake/internal/migrate"
	"github.com/bacchus320/snowflake/internal/modules/mountains"
	"github.com/bacchus320/snowflake/internal/modules/mountains/forecast"
	"github.com/bacchus320/snowflake/internal/modules/mountains/repository"
	"github.com/bacchus320/snowflake/internal/modules/mountains/service"
	"github.com/bacchus320/snowflake/internal/modules/mountains/views"
	"github.com/bacchus320/snowflake/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteLogQueries", cfg.SQLiteLogQueries,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
		"forecastAPIURL", cfg.ForecastAPIURL,
		"forecastDays", cfg.ForecastDays,
		"forecastConcurrency", cfg.ForecastConcurrency,
		"forecastRefreshInterval", cfg.ForecastRefreshInterval,
		"assetCacheVersion", cfg.AssetCacheVersion,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database ready")

	if err := views.LoadTemplates(); err != nil {
		return err
	}
	assets, err := httpapi.NewAssets(cfg.AssetCacheVersion)
	if err != nil {
		return err
	}

	repo := repository.NewRepository(dbConn)
	client := forecast.NewClient(forecast.Options{
		BaseURL:      cfg.ForecastAPIURL,
		Timezone:     cfg.ForecastTimezone,
		Days:         cfg.ForecastDays,
		Timeout:      cfg.ForecastHTTPTimeout,
		RPS:          cfg.ForecastRPS,
		Burst:        cfg.ForecastBurst,
		CacheVersion: cfg.AssetCacheVersion,
		Logger:       logger,
	})

	publisher := mqtt.NewPublisher(cfg, logger)
	// Short connect window; auto-reconnect takes over when the broker is down.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = publisher.Connect(connectCtx)
	connectCancel()
	if err != nil {
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	svc := service.NewService(repo, client, publisher, service.Options{
		Concurrency:     cfg.ForecastConcurrency,
		RefreshInterval: cfg.ForecastRefreshInterval,
		Logger:          logger,
	})

	mux := httpapi.NewMux(dbConn, assets, publisher)
	mountains.RegisterFeature(mux, repo, svc)

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("forecast refresh stopped", "error", err)
		}
	}()

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		publisher.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	select {
	case <-refreshDone:
	case <-shutdownCtx.Done():
		logger.Warn("forecast refresh did not stop before shutdown deadline")
	}

	logger.Info("mqtt disconnecting")
	publisher.Disconnect()

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
