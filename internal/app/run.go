package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"surfsup-server/internal/config"
	db "surfsup-server/internal/db"
	httpapi "surfsup-server/internal/httpapi"
	climate "surfsup-server/internal/modules/climate"
	"surfsup-server/internal/modules/climate/service"
	"surfsup-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"referenceDate", cfg.ReferenceDate.Format(config.DateLayout),
		"tobsStation", cfg.TobsStation,
		"corsAllowedOrigins", cfg.CORSAllowedOrigins,
		"rateLimitRPS", cfg.RateLimitRPS,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
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

	verifyCtx, verifyCancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.VerifySchema(verifyCtx, dbConn)
	verifyCancel()
	if err != nil {
		return err
	}
	logger.Info("dataset opened", "tables", db.RequiredTables)

	mux := httpapi.NewMux(dbConn)

	// The handler has to be set before Connect so the first subscription
	// already has somewhere to dispatch to.
	var bridge *mqtt.Bridge
	if cfg.MQTTBroker != "" {
		bridge = mqtt.NewBridge(cfg, logger)
		climate.RegisterFeature(mux, dbConn, bridge, service.OptionsFromConfig(cfg), logger)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = bridge.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	} else {
		climate.RegisterFeature(mux, dbConn, nil, service.OptionsFromConfig(cfg), logger)
		logger.Info("mqtt disabled")
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if bridge != nil {
		logger.Info("mqtt disconnecting")
		bridge.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
