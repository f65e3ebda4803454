package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"mediconnect/cache"
	"mediconnect/config"
	"mediconnect/database"
	"mediconnect/handlers"
	"mediconnect/logger"
	"mediconnect/monitoring"
	"mediconnect/routes"
	"mediconnect/services"
	"mediconnect/utils"
)

const redisPoolReportInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			log.WithError(err).Warn("Sentry disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	db, err := database.InitDB(ctx, cfg.DBURL, log, cfg.IsDevelopment())
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		DialTimeout:  cfg.RedisDialTimeout,
		MinIdleConns: cfg.RedisMinIdleConns,
		ReadTimeout:  cfg.RedisReadTimeout,
		MaxRetries:   cfg.RedisMaxRetries,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize Redis client")
	}
	defer redisClient.Close()

	store, err := cache.NewCache(redisClient)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize cache")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		database.MonitorRedisPool(ctx, redisClient, log, redisPoolReportInterval)
	}()

	var mailer services.Mailer = utils.NewLogMailer(log)
	if cfg.SMTPHost != "" {
		mailer = utils.NewSMTPMailer(utils.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	}

	deps := routes.NewDependencies(db, store, cache.NewRedisLocker(redisClient), mailer, monitoring.NewMetrics(), log)
	deps.HealthChecks = map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	router, stopRouter, err := routes.SetupRoutes(cfg, deps, log)
	if err != nil {
		log.WithError(err).Fatal("failed to set up routes")
	}
	defer stopRouter()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listenAndServe failed")
		}
	}()

	// Graceful shutdown handling
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	log.Info("Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	stopBackground()

	wg.Wait()
	log.Info("Server exited gracefully")
}
