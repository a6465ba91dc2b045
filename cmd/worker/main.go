package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"classaccess/internal/audit"
	"classaccess/internal/backend"
	"classaccess/internal/config"
	"classaccess/internal/logging"
	"classaccess/internal/notify"
	"classaccess/internal/queue"
	"classaccess/internal/store"
)

// Worker delivers queued admin broadcasts to the backend when the dashboard
// runs with QUEUE_BACKEND=redis.
func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.BackendServiceToken == "" {
		logger.Warn("BACKEND_SERVICE_TOKEN is empty, the backend will likely reject notifications")
	}

	var recorder notify.Recorder
	db, repo := audit.Open(ctx, cfg.AuditDSN, logger)
	defer func() { _ = db.Close() }()
	if repo != nil {
		recorder = repo
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	dispatcher := notify.NewDispatcher(api, recorder, backend.Credential{Token: cfg.BackendServiceToken}, logger.Named("notify"))

	logger.Info("worker started, waiting for notifications")
	if err := dispatcher.Run(ctx, queue.NewRedisQueue(redisClient.Client, "", logger.Named("queue"))); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", zap.Error(err))
		return
	}
	logger.Info("worker stopped")
}
