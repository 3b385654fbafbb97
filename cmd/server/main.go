// Command server runs the venue seating API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/venue-seating/internal/config"
	"github.com/iliyamo/venue-seating/internal/database"
	"github.com/iliyamo/venue-seating/internal/handler"
	"github.com/iliyamo/venue-seating/internal/logging"
	"github.com/iliyamo/venue-seating/internal/metrics"
	"github.com/iliyamo/venue-seating/internal/middleware"
	"github.com/iliyamo/venue-seating/internal/query"
	"github.com/iliyamo/venue-seating/internal/queue"
	"github.com/iliyamo/venue-seating/internal/repository"
	"github.com/iliyamo/venue-seating/internal/router"
	"github.com/iliyamo/venue-seating/internal/seating"
	"github.com/iliyamo/venue-seating/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: MySQL in every real environment, memory for local demos.
	var (
		store   repository.Store
		users   repository.Users
		tokens  repository.Tokens
		db      *sql.DB
		readyFn func(c echo.Context) error
	)
	switch cfg.DBDriver {
	case "memory":
		store = repository.NewMemoryStore()
		accounts := repository.NewMemoryAccounts()
		users, tokens = accounts, accounts
		log.Warn("using in-memory store; data is lost on exit")
	default:
		var err error
		db, err = database.Open(ctx, database.Options{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
			LockWaitSeconds: cfg.Seating.LockWaitSeconds,
		})
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		store = repository.NewSQLStore(db, repository.SQLStoreOptions{
			TxTimeout:       cfg.Seating.TxTimeout,
			DeadlockRetries: cfg.Seating.DeadlockRetries,
		})
		users, tokens = repository.NewUserRepo(db), repository.NewTokenRepo(db)
		readyFn = func(c echo.Context) error { return db.PingContext(c.Request().Context()) }
	}

	if created, err := repository.SeedAdmin(ctx, users, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		log.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	} else if created {
		log.Info("bootstrap admin created", "email", cfg.AdminEmail)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, cfg.DBName))
	}
	prom := metrics.NewPrometheus(reg, "seating")

	opts := []seating.Option{
		seating.WithLogger(log),
		seating.WithMetrics(prom),
		seating.WithPublishTimeout(cfg.Seating.PublishTimeout),
	}
	if cfg.Events.Enabled {
		pub := service.NewEventPublisher(cfg.Events.URL, cfg.Events.Queue, log)
		pub.Observe = prom.EventPublished
		opts = append(opts, seating.WithPublisher(pub))

		consumer := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogPath: cfg.Events.LogPath, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("seating consumer stopped", "error", err)
			}
		}()
	}
	engine := seating.New(store, opts...)
	reader := query.New(store)

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; response cache off, rate limit per process")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true, LogURI: true, LogStatus: true, LogLatency: true, LogError: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, handler.Ready(readyFn), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUserHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterSeating(e, router.Seating{
		Tables:      handler.NewTableHandler(engine, reader),
		Assignments: handler.NewAssignmentHandler(engine, reader),
		Clients:     handler.NewClientHandler(engine, reader),
		JWTSecret:   cfg.JWTSecret,
		Cache:       middleware.NewRedisCache(cacheCfg, rdb, prom.CacheLookup),
		Invalidate:  middleware.InvalidateCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
