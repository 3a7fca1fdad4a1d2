package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/koios/frame-renderer/internal/assets"
	"github.com/koios/frame-renderer/internal/config"
	"github.com/koios/frame-renderer/internal/engine"
	"github.com/koios/frame-renderer/internal/handlers"
	"github.com/koios/frame-renderer/internal/metrics"
	"github.com/koios/frame-renderer/internal/raster"
	"github.com/koios/frame-renderer/internal/redis"
	"github.com/koios/frame-renderer/internal/remix"
	"github.com/koios/frame-renderer/internal/store"
	"github.com/koios/frame-renderer/pkg/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	zcfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sizes := models.RenderSizes{Display: cfg.Render.DisplaySize, Canvas: cfg.Render.CanvasSize}

	presets := models.NewPresetRegistry(sizes, logger)
	if err := presets.LoadPresets(cfg.Presets.Path); err != nil {
		logger.Warn("Using built-in presets only", zap.String("path", cfg.Presets.Path), zap.Error(err))
	}

	exporter, err := raster.NewExporter()
	if err != nil {
		logger.Fatal("Failed to initialize exporter", zap.Error(err))
	}

	loader := assets.NewLoader(assets.Options{
		Timeout:     cfg.Assets.Timeout,
		MaxBytes:    cfg.Assets.MaxBytes,
		RateLimit:   cfg.Assets.RateLimit,
		Retries:     cfg.Assets.Retries,
		CacheTTL:    cfg.Assets.CacheTTL,
		Concurrency: assets.DefaultOptions().Concurrency,
		Hosts:       cfg.Assets.Hosts,
	}, logger)

	m := metrics.New()
	eng, err := engine.New(sizes, loader, exporter, m, logger)
	if err != nil {
		logger.Fatal("Invalid render sizes", zap.Error(err))
	}

	pool := engine.NewWorkerPool(cfg.Render.Workers, eng, cfg.Render.Timeout, logger)
	pool.Start()
	renderer := handlers.PoolRenderer{Pool: pool}

	// Frame store, drafts and the export queue live in Redis when it is
	// reachable; otherwise the server runs with in-memory stores and no queue.
	var (
		frames   remix.FrameStore
		draftsKV remix.KV
		consumer *redis.Consumer
	)
	redisClient, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory stores", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		frames = store.NewMemoryFrames()
		draftsKV = store.NewMemoryKV(cfg.Redis.DraftTTL)
	} else {
		shared := store.NewRedisFromClient(redisClient.Redis(), cfg.Redis.KeyPrefix)
		frames = shared.Frames()
		draftsKV = shared.KV("draft", cfg.Redis.DraftTTL)

		consumer = redis.NewConsumer(redisClient, handlers.NewEventHandler(renderer, sizes, logger), logger)
		go func() {
			if err := consumer.Start(); err != nil {
				logger.Error("Export consumer failed", zap.Error(err))
			}
		}()
	}

	frameHandler := handlers.NewFrameHandler(handlers.Deps{
		Renderer: renderer,
		Presets:  presets,
		Remixer:  remix.NewRemixer(frames, sizes, logger),
		Drafts:   &remix.Drafts{KV: draftsKV, Sizes: sizes},
		Metrics:  m,
		Sizes:    sizes,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      frameHandler.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("Server started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("display_size", sizes.Display),
		zap.Int("canvas_size", sizes.Canvas),
		zap.Int("workers", cfg.Render.Workers),
		zap.Bool("export_queue", consumer != nil))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if consumer != nil {
		consumer.Stop()
	}

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	pool.Stop()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}

	cancel()
	logger.Info("Server shutdown complete")
}
