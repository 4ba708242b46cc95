package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/config"
	"github.com/fencecpq/quoteengine/internal/db"
	"github.com/fencecpq/quoteengine/internal/logger"
	"github.com/fencecpq/quoteengine/internal/migrations"
	"github.com/fencecpq/quoteengine/internal/quoting"
	"github.com/fencecpq/quoteengine/internal/seed"
	"github.com/fencecpq/quoteengine/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.IsDev()))
	defer func() { _ = baseLogger.Sync() }()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		baseLogger.Fatal("failed to open database", zap.String("db_path", cfg.DBPath), zap.Error(err))
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		baseLogger.Fatal("failed to run database migrations", zap.Error(err))
	}

	if cfg.SeedDemo || cfg.IsDev() {
		seedLogger := logger.Named(baseLogger, "seed")
		stats, err := seed.Run(context.Background(), database)
		if err != nil {
			seedLogger.Fatal("failed to seed demo catalog", zap.Error(err))
		}
		seedLogger.Info("demo catalog ready", zap.Int("inserts", stats.Inserts))
	}

	quotes := quoting.NewService(store.New(database), logger.Named(baseLogger, "svc.quoting"))
	srv := newServer(database, quotes, logger.Named(baseLogger, "http"))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
