package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"

	"lorikeet/internal/cache"
	"lorikeet/internal/config"
	httphandlers "lorikeet/internal/http"
	"lorikeet/internal/logger"
	"lorikeet/internal/resolver"
	"lorikeet/internal/transformer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	vipsConfig := &vips.Config{
		ConcurrencyLevel: cfg.VipsConcurrency,
		MaxCacheMem:      cfg.VipsMaxCacheMB * 1024 * 1024,
		MaxCacheFiles:    0,
		MaxCacheSize:     0,
		ReportLeaks:      false,
		CacheTrace:       false,
		VectorEnabled:    true,
	}

	vips.SetLogging(func(domain string, level vips.LogLevel, message string) {
		if level >= vips.LogLevelError {
			log.Error("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		} else if level >= vips.LogLevelWarning {
			log.Warn("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		}
	}, vips.LogLevelError)

	vips.Startup(vipsConfig)
	defer vips.Shutdown()

	log.Info("Starting Lorikeet image server",
		zap.Int("port", cfg.Port),
		zap.String("source_dir", cfg.SourceDir),
		zap.String("info_cache_dir", cfg.InfoCacheDir),
		zap.String("derivative_cache_dir", cfg.DerivativeCacheDir),
		zap.Int("info_cache_size", cfg.InfoCacheSize),
	)

	res := resolver.New(cfg.SourceDir, log)
	infoCache := cache.NewInfoCache(cfg.InfoCacheDir, cfg.InfoCacheSize, log)
	derivCache, err := cache.NewDerivativeCache(cfg.DerivativeCacheDir, log)
	if err != nil {
		log.Fatal("Failed to initialize derivative cache", zap.Error(err))
	}
	trans := transformer.New(log)

	handlers := httphandlers.New(cfg, log, res, infoCache, derivCache, trans, trans)

	mux := http.NewServeMux()
	mux.HandleFunc("/iiif/", handlers.HandleIIIF)
	mux.HandleFunc("/healthz", handlers.HandleHealthz)

	handler := handlers.CORSMiddleware(handlers.RequestLoggingMiddleware(mux))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
