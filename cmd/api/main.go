package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed-archive/internal/api"
	"feed-archive/internal/config"
	"feed-archive/internal/db"
	"feed-archive/internal/jobs"
	"feed-archive/internal/logging"
	"feed-archive/internal/redis"
	"feed-archive/internal/store"
	"feed-archive/internal/twitter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_api",
		"service", "feed-archive",
		"http_addr", cfg.HTTPAddr,
		"env", cfg.AppEnv,
		"bearer_token", logging.MaskToken(cfg.BearerToken),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL; the database may still be coming up
	var dbConn *db.DB
	for attempt := 1; ; attempt++ {
		dbConn, err = db.New(ctx, cfg.DBDSN)
		if err == nil {
			break
		}
		if attempt >= 5 {
			logger.Error("db_connect_failed", "error", err, "attempts", attempt)
			os.Exit(1)
		}
		logger.Warn("db_connect_retry", "error", err, "attempt", attempt)
		time.Sleep(3 * time.Second)
	}
	defer dbConn.Close()

	// Connect to Redis. The feed works without it, just slower.
	var redisClient *redis.Client
	if cfg.RedisDSN != "" {
		redisClient, err = redis.New(cfg.RedisDSN)
		if err != nil {
			logger.Warn("redis_connect_failed", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	st := store.New(dbConn, logger)
	client := twitter.NewClient(logger, cfg.BearerToken)
	runner := jobs.NewRunner(logger, client, st, cfg)

	refresher := jobs.NewRefresher(logger, runner, cfg)
	go refresher.Run(ctx)

	srv := api.NewServer(logger, st, runner, redisClient, cfg)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("api_started", "addr", cfg.HTTPAddr)

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis_close_error", "error", err)
		}
	}

	dbConn.Close()
	logger.Info("api_stopped")
}
