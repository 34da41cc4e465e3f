package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/yukikurage/team-todo-api/internal/auth"
	"github.com/yukikurage/team-todo-api/internal/clock"
	"github.com/yukikurage/team-todo-api/internal/config"
	"github.com/yukikurage/team-todo-api/internal/constants"
	"github.com/yukikurage/team-todo-api/internal/database"
	"github.com/yukikurage/team-todo-api/internal/handlers"
	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/middleware"
	"github.com/yukikurage/team-todo-api/internal/notify"
	"github.com/yukikurage/team-todo-api/internal/push"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"github.com/yukikurage/team-todo-api/internal/services"
)

func main() {
	configPath := pflag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	pflag.Parse()

	// Load configuration
	cfg := config.MustLoad(*configPath)

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set Gin mode
	gin.SetMode(cfg.HTTP.GinMode)

	// Connect to database and run migrations
	db, err := database.Connect(cfg.DB, cfg.HTTP.GinMode == gin.DebugMode, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(registry)

	clk := clock.Real()

	sender, closeSender, err := newPushSender(ctx, cfg.Push, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	denylist, closeDenylist, err := newDenylist(ctx, cfg.Redis, clk, logger)
	if err != nil {
		return err
	}
	defer closeDenylist()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	typeRepo := repository.NewTaskTypeRepository(db)
	deviceRepo := repository.NewDeviceTokenRepository(db)

	fanout := notify.NewFanout(deviceRepo, sender, collector, logger.With("component", "notify"))

	svc := handlers.Services{
		Auth:     services.NewAuthService(userRepo, auth.NewTokenManager(cfg.JWT, clk), denylist, collector, logger),
		Users:    services.NewUserService(userRepo, deviceRepo, fanout, collector, logger),
		Tasks:    services.NewTaskService(taskRepo, fanout, collector, clk, logger),
		TaskType: services.NewTaskTypeService(typeRepo, logger),
		Devices:  services.NewDeviceService(deviceRepo, collector, logger),
	}

	router := handlers.NewRouter(svc, handlers.RouterOptions{
		HelpDir:        cfg.HelpDir,
		LoginLimiter:   middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:         logger.With("component", "http"),
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = constants.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	// let queued push notifications drain before closing the sender
	fanout.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		log.Printf("unknown log level %q, using INFO", level)
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newPushSender(ctx context.Context, cfg config.PushConfig, logger *slog.Logger) (push.Sender, func(), error) {
	switch cfg.Provider {
	case "fcm":
		sender, err := push.NewFCMSender(ctx, cfg.FCMCredentials)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("push delivery via firebase")
		return sender, func() {}, nil
	case "nats":
		sender, err := push.NewNATSSender(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("push delivery via nats", "subject", cfg.NATSSubject)
		return sender, sender.Close, nil
	default:
		logger.Warn("push delivery disabled, notifications are only logged")
		return push.NewLogSender(logger.With("component", "push")), func() {}, nil
	}
}

func newDenylist(ctx context.Context, cfg config.RedisConfig, clk clock.Clock, logger *slog.Logger) (auth.Denylist, func(), error) {
	if cfg.Address == "" {
		logger.Warn("redis not configured, token revocations are kept in memory")
		return auth.NewMemoryDenylist(clk), func() {}, nil
	}

	denylist, err := auth.NewRedisDenylist(ctx, cfg, clk)
	if err != nil {
		return nil, nil, err
	}
	return denylist, func() {
		if err := denylist.Close(); err != nil {
			logger.Error("failed to close redis", "error", err)
		}
	}, nil
}
