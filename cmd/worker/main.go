package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/akibsystems/showgeki2-sub002/internal/admission"
	"github.com/akibsystems/showgeki2-sub002/internal/alerting"
	"github.com/akibsystems/showgeki2-sub002/internal/config"
	"github.com/akibsystems/showgeki2-sub002/internal/httpapi"
	"github.com/akibsystems/showgeki2-sub002/internal/httpapi/handlers"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/shutdown"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
	"github.com/akibsystems/showgeki2-sub002/internal/probe"
	"github.com/akibsystems/showgeki2-sub002/internal/publisher"
	"github.com/akibsystems/showgeki2-sub002/internal/renderer"
	"github.com/akibsystems/showgeki2-sub002/internal/repositories"
	"github.com/akibsystems/showgeki2-sub002/internal/storage"
	"github.com/akibsystems/showgeki2-sub002/internal/worker"
	"github.com/akibsystems/showgeki2-sub002/internal/worker/processor"
)

func main() {
	log := logger.NewDefault()

	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("failed to load configuration", err)
	}

	log.Info("starting showgeki2 worker",
		"mode", cfg.Mode,
		"render_max_concurrent", cfg.RenderMaxConcurrent,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// PostgreSQL
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	// Redis, optional: poller wake-up channel only.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		log.Info("Redis connected")
	}

	// Object storage
	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	// Collaborators
	store := repositories.NewJobRepository(pool)
	renderGate := admission.New(cfg.RenderMaxConcurrent)
	publishGate := admission.New(cfg.PublishMaxConcurrent)

	var notifier ports.Notifier = alerting.NopNotifier{}
	if cfg.AlertWebhookURL != "" {
		notifier = alerting.NewWebhookNotifier(cfg.AlertWebhookURL, log)
	}

	pub := publisher.New(sp, publishGate, publisher.Config{
		MaxRetries:     cfg.PublishRetryMax,
		BaseBackoff:    cfg.PublishRetryBase(),
		AttemptTimeout: cfg.PublishHTTPTimeout(),
	}, log)

	proc := processor.New(processor.Deps{
		Store:         store,
		Engine:        renderer.NewSubprocess(cfg.RendererBin, cfg.RenderTimeout()),
		Publisher:     pub,
		Prober:        probe.New(cfg.FFprobeBin),
		Notifier:      notifier,
		WorkspaceRoot: cfg.WorkspaceRoot,
		Log:           log,
	})

	// Standalone mode runs the queue poller; the webhook only acknowledges.
	if cfg.Mode == config.ModeStandalone {
		poller := worker.NewPoller(worker.Deps{
			Store:     store,
			Processor: proc,
			Gate:      renderGate,
			RDB:       rdb,
			QueueName: cfg.QueueName,
			Interval:  cfg.PollInterval(),
			Log:       log,
		})

		pollerCtx, cancelPoller := context.WithCancel(ctx)
		pollerDone := make(chan struct{})
		go func() {
			defer close(pollerDone)
			_ = poller.Run(pollerCtx)
		}()
		shutdownMgr.Register("poller", func(ctx context.Context) error {
			cancelPoller()
			select {
			case <-pollerDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	// HTTP ingress
	router := httpapi.NewRouter(handlers.Deps{
		Store:      store,
		Processor:  proc,
		Gate:       renderGate,
		Standalone: cfg.Mode == config.ModeStandalone,
		RDB:        rdb,
		QueueName:  cfg.QueueName,
		Pool:       pool,
		SP:         sp,
		Log:        log,
	})

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.HTTPPort,
		Handler: router,
		// Synchronous jobs hold the handler for the whole render, so the
		// write timeout must outlast the render timeout.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RenderTimeout() + time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
