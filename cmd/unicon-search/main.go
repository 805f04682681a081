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

	"github.com/WebRenew/unicon-search/internal/config"
	"github.com/WebRenew/unicon-search/internal/db/libsql"
	dbRedis "github.com/WebRenew/unicon-search/internal/db/redis"
	"github.com/WebRenew/unicon-search/internal/domain"
	logpkg "github.com/WebRenew/unicon-search/internal/logger"
	"github.com/WebRenew/unicon-search/internal/metrics"
	"github.com/WebRenew/unicon-search/internal/repository/embcache"
	"github.com/WebRenew/unicon-search/internal/repository/expcache"
	chiTransport "github.com/WebRenew/unicon-search/internal/transport/chi"
	openaiProv "github.com/WebRenew/unicon-search/internal/transport/openai"
	healthuc "github.com/WebRenew/unicon-search/internal/usecase/health"
	searchuc "github.com/WebRenew/unicon-search/internal/usecase/search"
	"github.com/WebRenew/unicon-search/internal/version"
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

	logger.Info("Starting unicon-search API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_url", cfg.Database.URL),
	)

	catalog, err := libsql.Open(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to open icon catalog", zap.Error(err))
	}
	defer catalog.Close()

	ctx := context.Background()
	if err := catalog.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Icon catalog not ready", zap.Error(err))
	}
	logger.Info("Connected to icon catalog")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	embedder, redisStore := buildEmbedder(cfg, logger)
	expander := buildExpander(cfg, logger)

	searchSvc := searchuc.New(catalog, embedder, expander, searchuc.Config{
		MinQueryLen:      cfg.Search.MinQueryLen,
		DefaultLimit:     cfg.Search.DefaultLimit,
		MaxLimit:         cfg.Search.MaxLimit,
		SemanticWeight:   cfg.Search.SemanticWeight,
		LexicalWeight:    cfg.Search.LexicalWeight,
		CandidateCap:     cfg.Search.CandidateCap,
		ExpansionTimeout: time.Duration(cfg.Expansion.TimeoutMS) * time.Millisecond,
		ResultsTTL:       time.Duration(cfg.Cache.ResultsTTLSec) * time.Second,
		ResultsMaxSize:   cfg.Cache.ResultsMaxSize,
	}, logger)

	var cachePinger healthuc.CachePinger
	if redisStore != nil {
		cachePinger = redisStore
	}
	healthSvc := healthuc.New(catalog, newEmbeddingHealthChecker(embedder), cachePinger)

	server := chiTransport.NewServer(
		searchSvc, catalog, healthSvc,
		cfg.Search.DefaultLimit, cfg.Search.MaxLimit,
		cfg.Auth.AdminToken,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	// Drop expired result-cache entries in the background.
	pruneCtx, stopPrune := context.WithCancel(ctx)
	go pruneLoop(pruneCtx, searchSvc, time.Duration(cfg.Cache.ResultsTTLSec)*time.Second)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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
	stopPrune()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if redisStore != nil {
		redisStore.Close()
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedding chain: OpenAI provider wrapped
// in a cache backed by Redis when configured, process memory otherwise.
func buildEmbedder(cfg config.Config, logger *zap.Logger) (domain.Embedder, *dbRedis.Store) {
	base := openaiProv.NewEmbedder(&openaiProv.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	ttl := time.Duration(cfg.Cache.EmbeddingTTLSec) * time.Second

	if len(cfg.Redis.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			logger.Fatal("Failed to connect embedding-cache backend", zap.Error(err))
		}
		logger.Info("Embedding cache backed by Redis", zap.Strings("addrs", cfg.Redis.Addrs))
		return embcache.New(base, store, ttl, metrics.CacheTotal, logger), store
	}

	memory := embcache.NewMemoryStore(ttl, cfg.Cache.EmbeddingMaxSize)
	return embcache.New(base, memory, ttl, metrics.CacheTotal, logger), nil
}

// buildExpander assembles the AI query expansion chain, or nil when no
// expansion credential is configured.
func buildExpander(cfg config.Config, logger *zap.Logger) searchuc.Expander {
	if cfg.Expansion.APIKey == "" {
		logger.Info("AI query expansion disabled: no credential configured")
		return nil
	}

	base := openaiProv.NewExpander(&openaiProv.ExpanderConfig{
		APIKey:  cfg.Expansion.APIKey,
		BaseURL: cfg.Expansion.BaseURL,
		Model:   cfg.Expansion.Model,
		Logger:  logger,
	})
	return expcache.New(
		base,
		time.Duration(cfg.Cache.ExpansionTTLSec)*time.Second,
		cfg.Cache.ExpansionMaxSize,
		metrics.CacheTotal,
	)
}

func pruneLoop(ctx context.Context, svc *searchuc.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.PruneCaches()
		}
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
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
						"error": "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
