package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"classaccess/internal/attendance"
	"classaccess/internal/audit"
	"classaccess/internal/auth"
	"classaccess/internal/backend"
	"classaccess/internal/cache"
	"classaccess/internal/config"
	"classaccess/internal/logging"
	"classaccess/internal/metrics"
	"classaccess/internal/notify"
	"classaccess/internal/queue"
	"classaccess/internal/store"
	"classaccess/internal/web"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("dashboard failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, repo := audit.Open(ctx, cfg.AuditDSN, logger)
	defer func() { _ = db.Close() }()

	var auditLog web.AuditLog
	var recorder notify.Recorder
	if repo != nil {
		auditLog, recorder = repo, repo
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	checks := map[string]web.HealthCheck{
		"db": db.Healthy,
	}
	var datasetCache attendance.Cache
	var vault auth.Vault
	if redisClient.Healthy(ctx) {
		shared := cache.NewRedis(redisClient.Client)
		datasetCache = shared
		vault = auth.NewStoreVault(shared)
		checks["redis"] = redisClient.Healthy
	} else {
		logger.Warn("redis not reachable, attendance cache disabled and sessions kept in process", zap.String("addr", cfg.RedisAddr))
	}

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	loader := attendance.NewLoader(api, datasetCache, cfg.CacheTTL, cfg.HistoryBatchSize, logger)
	feed := attendance.NewFeed(metrics.StaleSnapshots.Inc)

	service := backend.Credential{Token: cfg.BackendServiceToken}
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		dispatcher := notify.NewDispatcher(api, recorder, service, logger.Named("notify"))
		go func() {
			if err := dispatcher.Run(ctx, mem); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification dispatcher stopped", zap.Error(err))
			}
		}()
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "", logger.Named("queue"))
		checks["redis"] = redisClient.Healthy
	}

	router, err := web.NewRouter(web.Deps{
		Backend:             api,
		Loader:              loader,
		Feed:                feed,
		Sessions:            auth.NewManager(cfg.SessionSigningKey, cfg.SessionIssuer, cfg.SessionTTL, cfg.Production(), vault),
		Queue:               q,
		Audit:               auditLog,
		Checks:              checks,
		Log:                 logger,
		InstitutionalDomain: cfg.InstitutionalDomain,
		CalendarURL:         cfg.CalendarURL,
		RateLimitPerMin:     cfg.RateLimitPerMin,
		LoginLimitPerMin:    cfg.LoginLimitPerMin,
		AllowedOrigins:      cfg.AllowedOrigins,
		Production:          cfg.Production(),
	})
	if err != nil {
		return err
	}

	protect := csrf.Protect([]byte(cfg.CSRFKey),
		csrf.Secure(cfg.Production()),
		csrf.Path("/"),
		csrf.FieldName("csrf_token"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf rejected", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			http.Error(w, "Solicitud no válida, recarga la página e inténtalo de nuevo.", http.StatusForbidden)
		})),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      protect(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting dashboard", zap.String("addr", srv.Addr), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down dashboard")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
	return nil
}
