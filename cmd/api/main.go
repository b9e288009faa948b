package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tutoring/internal/config"
	"tutoring/internal/handler"
	"tutoring/internal/logger"
	"tutoring/internal/metrics"
	"tutoring/internal/queue"
	"tutoring/internal/records"
	"tutoring/internal/store"
)

func main() {
	// A missing .env is fine: the environment may already be set.
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	m := metrics.New()

	// A missing connection string does not stop the process: every request
	// then fails with the configuration error.
	db, err := store.Open(store.Config{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}, m)
	if err != nil {
		log.Error("database gateway not ready", "error", err)
		db = store.Unavailable(err)
	}
	defer db.Close()

	var (
		events   queue.Queue
		redisCli *store.Redis
	)
	if cfg.EventsBackend == "redis" {
		redisCli = store.NewRedis(cfg.RedisAddr)
		defer redisCli.Close()
		events, err = queue.New(cfg.EventsBackend, redisCli.Client, cfg.EventsKey)
	} else {
		events, err = queue.New(cfg.EventsBackend, nil, cfg.EventsKey)
	}
	if err != nil {
		return err
	}

	window := records.MonthWindow(cfg.SummaryMonth)
	svc := records.NewService(records.NewRepository(db, m), records.Options{
		Events:  events,
		Window:  window,
		Logger:  log,
		Metrics: m,
	})

	var eventsPinger handler.Pinger
	if redisCli != nil {
		eventsPinger = redisCli
	}
	h := handler.New(svc, db, eventsPinger, log)
	r := handler.Router(h, log, m.Handler())

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			"addr", srv.Addr,
			"driver", cfg.DBDriver,
			"events", cfg.EventsBackend,
			"summary_from", window.From.String(),
			"summary_to", window.To.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}

	log.Info("server exited")
	return nil
}
