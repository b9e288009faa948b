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

	"github.com/joho/godotenv"

	"tutoring/internal/config"
	"tutoring/internal/logger"
	"tutoring/internal/metrics"
	"tutoring/internal/queue"
	"tutoring/internal/store"
)

// Worker consumes record events and writes an audit line for each.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EventsBackend != "redis" {
		log.Error("worker needs EVENTS_BACKEND=redis", "events", cfg.EventsBackend)
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx); err != nil {
		log.Warn("redis not reachable yet, consumer will keep retrying", "addr", cfg.RedisAddr, "error", err)
	}
	cancel()

	q, err := queue.New(cfg.EventsBackend, redisClient.Client, cfg.EventsKey)
	if err != nil {
		log.Error("queue init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	events, err := q.Consume(ctx)
	if err != nil {
		log.Error("queue consume init failed", "error", err)
		os.Exit(1)
	}

	log.Info("worker started", "key", cfg.EventsKey, "metrics_addr", srv.Addr)
	n := consume(events, log, m)
	log.Info("worker stopped", "events", n)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
}

// consume drains events until the channel closes and returns how many it saw.
func consume(events <-chan queue.Event, log *slog.Logger, m *metrics.Metrics) int {
	n := 0
	for evt := range events {
		if evt.Type != queue.EventRecordCreated {
			log.Debug("skipping event", "type", evt.Type, "event_id", evt.ID)
			continue
		}
		n++
		m.EventConsumed(evt.Entity)
		log.Info("record created",
			"event_id", evt.ID,
			"entity", evt.Entity,
			"at", evt.At.Format(time.RFC3339),
			"lag", time.Since(evt.At).Round(time.Millisecond).String(),
		)
	}
	return n
}
