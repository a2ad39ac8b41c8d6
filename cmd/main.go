package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nightgig/platform/auth/internal/api"
	"github.com/nightgig/platform/auth/internal/audit"
	"github.com/nightgig/platform/auth/internal/clients/google"
	"github.com/nightgig/platform/auth/internal/repository"
	"github.com/nightgig/platform/auth/internal/service"
	"github.com/nightgig/platform/auth/pkg/broker"
	"github.com/nightgig/platform/auth/pkg/config"
	"github.com/nightgig/platform/auth/pkg/logger"
	"github.com/nightgig/platform/auth/pkg/metrics"
	"github.com/nightgig/platform/auth/pkg/postgres"
)

const (
	ReadTimeout       = 5 * time.Second
	WriteTimeout      = 15 * time.Second
	IdleTimeout       = 60 * time.Second
	ReadHeaderTimeout = 2 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// @title Nightgig Auth API
// @version 1.0
// @description Authentication and access control for the nightgig marketplace.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
//
//nolint:funlen,cyclop
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	err = metrics.Register(prometheus.DefaultRegisterer)
	panicOnErr("register metrics", err)

	memory := repository.NewMemoryStore(time.Now)

	deps := service.Deps{
		Users:         memory,
		AccountStates: memory,
		RefreshTokens: memory,
		Verifications: memory,
		Denylist:      memory,
	}

	var windows service.WindowStore = memory

	if cfg.StorageDriver == config.StorageDriverPostgres {
		pool, err := postgres.ConnectToPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		panicOnErr("connect to postgres", err)

		defer pool.Close()

		err = postgres.UpMigrations(cfg.PostgresDSN)
		panicOnErr("up migrations", err)

		repo := repository.New(pool)
		deps.Users = repo
		deps.AccountStates = repo
		deps.RefreshTokens = repository.NewRefreshTokenRepository(pool)
		deps.Verifications = repository.NewVerificationTokenRepository(pool)
	} else {
		l.Warn("using in-memory storage, data is lost on restart")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		store := repository.NewRedisStore(client, cfg.Redis.KeyPrefix)
		panicOnErr("ping redis", store.Ping(ctx))

		windows = store
		deps.Denylist = store
	}

	deps.Attempts = windows

	var sinks []audit.Sink

	if len(cfg.KafkaBrokers) > 0 {
		producer := broker.NewProducer(l, cfg.KafkaBrokers, cfg.KafkaNotificationsTopic, cfg.KafkaSecurityTopic)
		defer producer.Close()

		deps.Notifications = producer
		sinks = append(sinks, producer)
	} else {
		l.Warn("kafka brokers not configured, notifications are not delivered")
	}

	auditor := audit.New(l, sinks...)
	deps.Audit = auditor

	if cfg.GoogleEnabled() {
		deps.Provider = google.NewClient(cfg.Google)
	}

	s, err := service.NewService(cfg, deps)
	panicOnErr("create service", err)

	limits := api.Limiters{
		Auth: service.NewRateLimiter(windows, "auth", cfg.Security.AuthRateLimitMax, cfg.Security.RateLimitWindow, nil),
		API:  service.NewRateLimiter(windows, "api", cfg.Security.RateLimitMax, cfg.Security.RateLimitWindow, nil),
	}

	h := api.NewHandler(s, s.RBAC(), cfg, nil)
	mw := api.NewMiddleware(s, auditor, cfg.Security.TrustProxyHeaders)
	gates := api.NewGates(s.RBAC(), auditor)
	router := api.NewRouter(h, mw, gates, limits)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		l.Info("http server started", "port", cfg.HTTPPort, "storage", cfg.StorageDriver, "google", cfg.GoogleEnabled())

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}

		l.Debug("http server stopped")
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()

		runJob(ctx, l.With("job", "delete_expired_tokens"), cfg.Jobs.TokenCleanupInterval, s.DeleteExpiredTokens)
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()

		runJob(ctx, l.With("job", "sweep_memory"), cfg.Jobs.WindowCleanupInterval, func(context.Context) error {
			removed := memory.Sweep(time.Now())
			l.Debug("memory store swept", "removed", removed)

			return nil
		})
	}()

	waitSignal(l, cancel, server)
	wg.Wait()
}

func runJob(ctx context.Context, l *slog.Logger, interval time.Duration, job func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		l.Debug("job started")

		err := job(ctx)
		if err != nil {
			l.Error(fmt.Sprintf("job failed: %s", err))
		} else {
			l.Debug("job finished")
		}

		select {
		case <-ctx.Done():
			l.Debug("job stopped by ctx")
			return
		case <-ticker.C:
		}
	}
}

func waitSignal(l *slog.Logger, cancel context.CancelFunc, server *http.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	sig := <-ch

	l.Info("got OS signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		l.Error("server shutdown", "error", err)
	}
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
