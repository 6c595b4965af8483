package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/metarepo/internal/config"
	dbRedis "github.com/kailas-cloud/metarepo/internal/db/redis"
	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/index"
	logpkg "github.com/kailas-cloud/metarepo/internal/logger"
	"github.com/kailas-cloud/metarepo/internal/metrics"
	applicationrepo "github.com/kailas-cloud/metarepo/internal/repository/application"
	"github.com/kailas-cloud/metarepo/internal/repository/querycache"
	recordrepo "github.com/kailas-cloud/metarepo/internal/repository/record"
	searchrepo "github.com/kailas-cloud/metarepo/internal/repository/search"
	"github.com/kailas-cloud/metarepo/internal/storage/sqlite"
	chiTransport "github.com/kailas-cloud/metarepo/internal/transport/chi"
	aggregateuc "github.com/kailas-cloud/metarepo/internal/usecase/aggregate"
	attachmentuc "github.com/kailas-cloud/metarepo/internal/usecase/attachment"
	resourceuc "github.com/kailas-cloud/metarepo/internal/usecase/resource"
	searchuc "github.com/kailas-cloud/metarepo/internal/usecase/search"
	"github.com/kailas-cloud/metarepo/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting metarepo API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database_path", cfg.Storage.DatabasePath),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	// Relational store
	store, err := sqlite.NewStore(sqlite.Config{Path: cfg.Storage.DatabasePath})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	// Search cache store
	cacheStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer cacheStore.Close()

	ctx := context.Background()
	if err := cacheStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	// Full-text indexes, one per entity kind
	idx, err := index.NewManager(index.Config{Dir: cfg.Storage.IndexDir})
	if err != nil {
		logger.Fatal("Failed to open indexes", zap.Error(err))
	}
	defer idx.Close()

	// Repositories
	records := recordrepo.New(store.DB())
	applications := applicationrepo.New(store.DB())
	cache := querycache.New(cacheStore, cfg.Cache.KeyPrefix, metrics.SearchCacheTotal, logger)
	searches := searchrepo.New(idx, records, cfg.Search.MaxResultSet)

	// Use case services
	window := time.Duration(cfg.Search.FreshnessWindowSec) * time.Second
	searchSvc := searchuc.New(searches, records, cache, window)
	resourceSvc := resourceuc.New(records, idx, applications)
	metadataSvc, err := attachmentuc.New(domain.KindMetadata, records, idx, applications)
	if err != nil {
		logger.Fatal("Failed to create metadata service", zap.Error(err))
	}
	statsSvc, err := attachmentuc.New(domain.KindStats, records, idx, applications)
	if err != nil {
		logger.Fatal("Failed to create stats service", zap.Error(err))
	}
	aggregateSvc := aggregateuc.New(records)

	// HTTP server
	server := chiTransport.NewServer(
		resourceSvc, metadataSvc, statsSvc, searchSvc, aggregateSvc,
		map[string]chiTransport.Pinger{
			"database": store,
			"cache":    cacheStore,
		},
		logger,
	).WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.AuthMiddleware(applications))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
