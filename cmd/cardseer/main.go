package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/ann/hnsw"
	"github.com/cardseer/cardseer/internal/catalog"
	"github.com/cardseer/cardseer/internal/config"
	"github.com/cardseer/cardseer/internal/db"
	dbRedis "github.com/cardseer/cardseer/internal/db/redis"
	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/index"
	logpkg "github.com/cardseer/cardseer/internal/logger"
	"github.com/cardseer/cardseer/internal/match"
	"github.com/cardseer/cardseer/internal/metrics"
	"github.com/cardseer/cardseer/internal/repository/embcache"
	snapshotrepo "github.com/cardseer/cardseer/internal/repository/snapshot"
	"github.com/cardseer/cardseer/internal/transport/httpapi"
	openaiEmb "github.com/cardseer/cardseer/internal/transport/openai"
	embeddinguc "github.com/cardseer/cardseer/internal/usecase/embedding"
	healthuc "github.com/cardseer/cardseer/internal/usecase/health"
	retrievaluc "github.com/cardseer/cardseer/internal/usecase/retrieval"
	"github.com/cardseer/cardseer/internal/version"
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

	logger.Info("Starting cardseer API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store. Redis and Valkey speak the same protocol for the
	// commands this service uses, so both drivers map to the rueidis store.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Build embedder chains — composition root
	vecCfg := cfg.Embedding.Vectorizer
	docEmbedder := buildEmbedder(
		cfg.Embedding.Provider, vecCfg, vecCfg.DocumentInstruction,
		store, cfg.Storage.KeyPrefix, logger,
	)
	queryEmbedder := buildEmbedder(
		cfg.Embedding.Provider, vecCfg, vecCfg.QueryInstruction,
		store, cfg.Storage.KeyPrefix, logger,
	)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider.Name),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Load catalogs
	cards, err := catalog.LoadCards(cfg.Catalog.CardsFile)
	if err != nil {
		logger.Fatal("Failed to load card catalog",
			zap.String("file", cfg.Catalog.CardsFile),
			zap.Error(err),
		)
	}
	logger.Info("Card catalog loaded", zap.Int("cards", len(cards)))

	var docs []domain.Document
	if cfg.Catalog.RulesFile != "" {
		docs, err = catalog.LoadDocuments(cfg.Catalog.RulesFile)
		if err != nil {
			logger.Fatal("Failed to load rules catalog",
				zap.String("file", cfg.Catalog.RulesFile),
				zap.Error(err),
			)
		}
		logger.Info("Rules catalog loaded", zap.Int("documents", len(docs)))
	} else {
		logger.Warn("No rules file configured, rules retrieval disabled")
	}

	hnswCfg := hnsw.Config{
		M:              cfg.Index.HNSWM,
		EfConstruction: cfg.Index.HNSWEFConstruct,
	}

	cardIndex := index.New(docEmbedder, index.Config{
		Name:   "cards",
		HNSW:   hnswCfg,
		Logger: logger,
	}).WithQueryEmbedder(queryEmbedder)
	rulesIndex := index.New(docEmbedder, index.Config{
		Name:   "rules",
		HNSW:   hnswCfg,
		Logger: logger,
	}).WithQueryEmbedder(queryEmbedder)

	cardStore := catalog.NewStore(cards, cardIndex)
	rulesStore := catalog.NewRulesStore(docs, rulesIndex)

	// Restore indexes from snapshots, rebuilding (and re-snapshotting) on miss
	snapStore := snapshotrepo.New(store, cfg.Storage.KeyPrefix, logger)
	if err := readyIndex(ctx, cardIndex, "cards", cardStore.Entries(), snapStore, logger); err != nil {
		logger.Fatal("Failed to prepare cards index", zap.Error(err))
	}
	if len(docs) > 0 {
		if err := readyIndex(ctx, rulesIndex, "rules", rulesStore.Entries(), snapStore, logger); err != nil {
			logger.Fatal("Failed to prepare rules index", zap.Error(err))
		}
	}

	// Create use case services
	sampler := index.NewSampler(time.Now().UnixNano())
	matcher := match.New(cfg.Matcher.MinRatio, cfg.Matcher.ExtraDenylist)

	retrievalSvc := retrievaluc.NewService(
		cardStore, cardIndex, rulesStore, rulesIndex,
		sampler, matcher,
		retrievaluc.Config{
			CardsK:         cfg.Index.CardsK,
			CardsThreshold: cfg.Index.CardsThreshold,
			CardsLasso:     cfg.Index.CardsLasso,
			RulesK:         cfg.Index.RulesK,
			RulesThreshold: cfg.Index.RulesThreshold,
			RulesLasso:     cfg.Index.RulesLasso,
		},
		logger,
	)

	// Health service
	indexes := map[string]healthuc.IndexCounter{"cards_index": cardIndex}
	if len(docs) > 0 {
		indexes["rules_index"] = rulesIndex
	}
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), indexes)

	// Create HTTP server
	server := httpapi.NewServer(retrievalSvc, cardStore, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

// readyIndex restores an index from its snapshot, or builds it from the
// catalog entries and saves a fresh snapshot. A stale snapshot (entry count
// differs from the catalog) triggers a rebuild.
func readyIndex(
	ctx context.Context,
	idx *index.SimilarityIndex,
	name string,
	entries []domain.IndexEntry,
	snapshots *snapshotrepo.Store,
	logger *zap.Logger,
) error {
	data, err := snapshots.Load(ctx, name)
	if err == nil {
		if restoreErr := idx.Restore(data); restoreErr == nil {
			if idx.Len() == len(entries) {
				logger.Info("Index restored from snapshot",
					zap.String("index", name),
					zap.Int("entries", idx.Len()),
				)
				return nil
			}
			logger.Warn("Snapshot out of date, rebuilding",
				zap.String("index", name),
				zap.Int("snapshot_entries", idx.Len()),
				zap.Int("catalog_entries", len(entries)),
			)
		} else {
			logger.Warn("Snapshot restore failed, rebuilding",
				zap.String("index", name),
				zap.Error(restoreErr),
			)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load snapshot: %w", err)
	}

	report, err := idx.Build(ctx, entries)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if report.Err != nil {
		logger.Warn("Index built partially",
			zap.String("index", name),
			zap.Int("embedded", report.Embedded),
			zap.Int("requested", len(entries)),
			zap.String("failed_label", report.FailedLabel),
			zap.Error(report.Err),
		)
	}

	data, err = idx.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := snapshots.Save(ctx, name, data); err != nil {
		// The index is usable without a snapshot, the next start just rebuilds.
		logger.Warn("Failed to save snapshot", zap.String("index", name), zap.Error(err))
	}
	return nil
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.Store,
	keyPrefix string,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provCfg.Name,
		Timeout:    time.Duration(provCfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, keyPrefix, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (logging)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provCfg.Name, vecCfg.Model, logger)

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
