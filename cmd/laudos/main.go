package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/backend"
	"github.com/kailas-cloud/laudos/internal/config"
	logpkg "github.com/kailas-cloud/laudos/internal/logger"
	"github.com/kailas-cloud/laudos/internal/metrics"
	chiTransport "github.com/kailas-cloud/laudos/internal/transport/chi"
	openaiGen "github.com/kailas-cloud/laudos/internal/transport/openai"
	archiveuc "github.com/kailas-cloud/laudos/internal/usecase/archive"
	generateuc "github.com/kailas-cloud/laudos/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/laudos/internal/usecase/health"
	searchuc "github.com/kailas-cloud/laudos/internal/usecase/search"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting laudos API server",
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("provider_driver", cfg.Provider.Driver),
		zap.Bool("generation", cfg.Generation.Enabled),
	)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	ctx := context.Background()
	be, err := backend.Open(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open candidate provider", zap.Error(err))
	}
	defer be.Close()

	searchSvc := searchuc.New(be.Provider, searchuc.WithDefaultLimit(cfg.Search.DefaultLimit))

	// Pass nil interfaces (not typed nil pointers) for disabled components.
	var (
		completer generateuc.Completer
		genHealth healthuc.GenerationChecker
	)
	if cfg.Generation.Enabled {
		c := openaiGen.NewCompleter(&openaiGen.Config{
			APIKey:    cfg.Generation.APIKey,
			BaseURL:   cfg.Generation.BaseURL,
			Model:     cfg.Generation.Model,
			MaxTokens: cfg.Generation.MaxTokens,
			Timeout:   time.Duration(cfg.Generation.TimeoutSec) * time.Second,
			Logger:    logger,
		})
		completer, genHealth = c, c
	}
	generateSvc := generateuc.New(completer)

	var archiveSvc *archiveuc.Service
	if be.Writer != nil {
		archiveSvc = archiveuc.New(be.Writer, be.Invalidator()).WithMaxBatchSize(cfg.Import.MaxBatchSize)
	}

	var proxy chiTransport.DBProxy
	if be.Supabase != nil {
		proxy = be.Supabase
	}

	healthSvc := healthuc.New(be.Provider, genHealth)

	server := chiTransport.NewServer(searchSvc, generateSvc, archiveSvc, healthSvc, proxy, logger)
	handler := chiTransport.NewRouter(server, chiTransport.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
