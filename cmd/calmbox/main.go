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

	"github.com/calmbox/calmbox/internal/config"
	"github.com/calmbox/calmbox/internal/db"
	dbRedis "github.com/calmbox/calmbox/internal/db/redis"
	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/guard"
	logpkg "github.com/calmbox/calmbox/internal/logger"
	"github.com/calmbox/calmbox/internal/metrics"
	"github.com/calmbox/calmbox/internal/protocol"
	chunksrepo "github.com/calmbox/calmbox/internal/repository/chunks"
	"github.com/calmbox/calmbox/internal/repository/embcache"
	"github.com/calmbox/calmbox/internal/router"
	"github.com/calmbox/calmbox/internal/taxonomy"
	chiTransport "github.com/calmbox/calmbox/internal/transport/chi"
	"github.com/calmbox/calmbox/internal/transport/console"
	openaiTransport "github.com/calmbox/calmbox/internal/transport/openai"
	healthuc "github.com/calmbox/calmbox/internal/usecase/health"
	retrievaluc "github.com/calmbox/calmbox/internal/usecase/retrieval"
	sessionuc "github.com/calmbox/calmbox/internal/usecase/session"
	"github.com/calmbox/calmbox/internal/version"
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

	logger.Info("Starting calmbox",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	var store db.Store
	store, err = dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Knowledge documents are immutable after load; a malformed document is
	// a deployment defect and fails startup.
	taxDoc, err := taxonomy.LoadDocument(cfg.Knowledge.TaxonomyPath)
	if err != nil {
		logger.Fatal("Failed to load taxonomy", zap.Error(err))
	}
	registry := taxonomy.NewRegistry(taxDoc)

	rules, err := router.LoadOverrides(cfg.Knowledge.OverridesPath)
	if err != nil {
		logger.Fatal("Failed to load override rules", zap.Error(err))
	}
	rt := router.New(taxDoc, rules, registry)

	protocols, err := protocol.Load(cfg.Knowledge.ProtocolsPath)
	if err != nil {
		logger.Fatal("Failed to load protocols", zap.Error(err))
	}
	logger.Info("Knowledge loaded",
		zap.Int("tags", len(taxDoc.Entries)),
		zap.Int("override_rules", len(rules)),
	)

	// Embedder chain: OpenAI-compatible provider wrapped in the store cache.
	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:   cfg.Generator.APIKey,
		BaseURL:  cfg.Generator.BaseURL,
		Model:    cfg.Generator.Model,
		Provider: cfg.Generator.Provider,
		Logger:   logger,
	})

	chunkRepo := chunksrepo.New(store, cfg.Knowledge.KeyPrefix)
	retrievalSvc := retrievaluc.New(chunkRepo, embedder, rt, retrievaluc.Policy{
		WQuality: cfg.Rerank.WQuality,
		WEnabled: cfg.Rerank.WEnabled,
	})

	sessionSvc := sessionuc.New(
		rt, protocols, retrievalSvc,
		generator, guard.New(), console.New(logger),
		logger, sessionuc.Config{
			TopK:          cfg.Session.TopK,
			AutoTopTags:   cfg.Session.AutoTopTags,
			MaxReplyRunes: cfg.Session.MaxReplyRunes,
			MaxTokens:     cfg.Session.MaxTokens,
			Temperature:   cfg.Session.Temperature,
			TopP:          cfg.Session.TopP,
		},
	)

	healthSvc := healthuc.New(store, newProviderChecker(embedder), newProviderChecker(generator))

	server := chiTransport.NewServer(sessionSvc, retrievalSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

// buildEmbedder assembles the embedder chain: OpenAI provider -> store cache.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if cfg.Embedding.CacheOff {
		return base
	}
	return embcache.New(base, store, cfg.Knowledge.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
}

// providerChecker wraps a provider to implement health.ProviderChecker.
type providerChecker struct {
	embedder any
}

func newProviderChecker(embedder any) *providerChecker {
	return &providerChecker{embedder: embedder}
}

func (h *providerChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
