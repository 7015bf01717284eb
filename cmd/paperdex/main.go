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

	"github.com/kailas-cloud/paperdex/internal/config"
	"github.com/kailas-cloud/paperdex/internal/db/redisvec"
	"github.com/kailas-cloud/paperdex/internal/db/sqlite"
	"github.com/kailas-cloud/paperdex/internal/domain"
	logpkg "github.com/kailas-cloud/paperdex/internal/logger"
	"github.com/kailas-cloud/paperdex/internal/metrics"
	"github.com/kailas-cloud/paperdex/internal/repository/embcache"
	paperrepo "github.com/kailas-cloud/paperdex/internal/repository/paper"
	searchrepo "github.com/kailas-cloud/paperdex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/paperdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/paperdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/paperdex/internal/usecase/embedding"
	paperuc "github.com/kailas-cloud/paperdex/internal/usecase/paper"
	searchuc "github.com/kailas-cloud/paperdex/internal/usecase/search"
	"github.com/kailas-cloud/paperdex/internal/version"
)

const dbReadinessTimeout = 10 * time.Second

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting paperdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.String("vector_driver", cfg.VectorIndex.Driver),
	)

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, dbReadinessTimeout); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Build embedder chains — composition root
	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	paperRepo := paperrepo.New(store, cfg.Embedding.Dimensions)
	searchRepo := searchrepo.New(store, cfg.Embedding.Dimensions)

	// The vector leg defaults to the in-process scan over the relational
	// store; the redis driver swaps in a RediSearch HNSW index fed by the
	// paper service's mirror.
	var vecSearcher searchuc.VectorSearcher = searchRepo

	paperSvc := paperuc.New(paperRepo, docEmbedder, logger)

	if cfg.VectorIndex.Driver == "redis" {
		vecStore, err := redisvec.NewStore(redisvec.Config{
			Addrs:      cfg.VectorIndex.Addrs,
			Username:   cfg.VectorIndex.Username,
			Password:   cfg.VectorIndex.Password,
			Dimensions: cfg.Embedding.Dimensions,
			KeyPrefix:  cfg.VectorIndex.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("Failed to create vector index store", zap.Error(err))
		}
		defer vecStore.Close()

		if err := vecStore.WaitForReady(ctx, dbReadinessTimeout); err != nil {
			logger.Fatal("Vector index not ready", zap.Error(err))
		}
		if err := vecStore.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure vector index", zap.Error(err))
		}

		vecSearcher = vecStore
		paperSvc.WithMirror(vecStore)
		logger.Info("Vector index ready", zap.Strings("addrs", cfg.VectorIndex.Addrs))
	}

	searchSvc := searchuc.New(searchRepo, vecSearcher, queryEmbedder, logger).
		WithRRFK(cfg.Search.RRFK)

	server := chiTransport.NewServer(paperSvc, searchSvc, store, logger)

	principals := make(map[string]int64, len(cfg.Auth.Principals))
	for _, p := range cfg.Auth.Principals {
		principals[p.Token] = p.Principal
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.PrincipalAuth(principals))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Lazy -> Cached -> Instruction.
// The provider probe lives in the lazy factory, so startup never blocks on the
// embedding endpoint and a dead endpoint degrades search instead of the binary.
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	instruction string,
	store *sqlite.Store,
	logger *zap.Logger,
) domain.Embedder {
	factory := func(ctx context.Context) (domain.Embedder, error) {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:        embCfg.APIKey,
			BaseURL:       embCfg.BaseURL,
			Model:         embCfg.Model,
			Dimensions:    embCfg.Dimensions,
			MaxInputRunes: embCfg.MaxInputChars,
			Provider:      embCfg.Provider,
			Logger:        logger,
		})
		if err := base.HealthCheck(ctx); err != nil {
			return nil, fmt.Errorf("probe embedding endpoint: %w", err)
		}
		return base, nil
	}

	var embedder domain.Embedder = embeddinguc.NewLazy(factory, logger)

	// Cached sits outside Lazy: a cache hit never touches the provider, so
	// known texts stay searchable even while the endpoint is down.
	if embCfg.Cache {
		embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
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
