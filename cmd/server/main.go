// Natural-language query chat server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/nlqbot/nlq-server/internal/api"
	"github.com/nlqbot/nlq-server/internal/config"
	"github.com/nlqbot/nlq-server/internal/middleware"
	"github.com/nlqbot/nlq-server/internal/model"
	"github.com/nlqbot/nlq-server/internal/objectstore"
	"github.com/nlqbot/nlq-server/internal/pipeline"
	"github.com/nlqbot/nlq-server/internal/retrieval"
	"github.com/nlqbot/nlq-server/internal/schema"
	"github.com/nlqbot/nlq-server/internal/transport"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "backend", cfg.Retrieval.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize object store", "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				slog.Error("Failed to close object store", "error", closeErr)
			}
		}()
	}

	sch, err := schema.Load(ctx, store, cfg.Storage.SchemaKey)
	if err != nil {
		slog.Error("Failed to load schema", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema loaded", "tables", len(sch.Tables))

	client, err := model.NewClient(model.Config{
		APIKey:          cfg.Model.APIKey,
		BaseURL:         cfg.Model.BaseURL,
		ClassifyModel:   cfg.Model.ClassifyModel,
		DecomposeModel:  cfg.Model.DecomposeModel,
		QueryModel:      cfg.Model.QueryModel,
		SynthesizeModel: cfg.Model.SynthesizeModel,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize model client", "error", err)
		os.Exit(1)
	}

	backend, pinger, err := newBackend(ctx, cfg, store, client, sch)
	if err != nil {
		slog.Error("Failed to initialize retrieval backend", "error", err)
		os.Exit(1)
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				slog.Error("Failed to close retrieval backend", "error", closeErr)
			}
		}()
	}

	// Initialize services.
	executor := retrieval.NewExecutor(backend, logger)
	hub := transport.NewHub()
	orchestrator := pipeline.NewOrchestrator(client, client, executor, client, hub, sch, logger)
	dispatcher := pipeline.NewDispatcher(orchestrator, cfg.TurnTimeout, logger)

	// Initialize handlers.
	limiter := transport.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	chatHandler := transport.NewChatHandler(hub, dispatcher, limiter, cfg.FrontendURL, cfg.IsDevelopment())
	healthHandler := api.NewHealthHandler(pinger, sch)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", chatHandler.ServeHTTP)

	// Create server. WriteTimeout stays 0: responses stream over
	// long-lived WebSocket connections.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	if cfg.Storage.Bucket != "" {
		slog.Info("Using GCS object store", "bucket", cfg.Storage.Bucket)
		return objectstore.NewGCS(ctx, cfg.Storage.Bucket)
	}
	slog.Info("Using local object store", "dir", cfg.Storage.LocalDir)
	return objectstore.NewLocal(cfg.Storage.LocalDir)
}

// newBackend builds the configured retrieval backend. The sqlite
// backend works on a local snapshot of the database, downloaded at
// startup; queries for it are generated per sub-question by the model.
func newBackend(ctx context.Context, cfg *config.Config, store objectstore.Store, client *model.Client, sch *schema.Schema) (retrieval.Backend, api.Pinger, error) {
	switch cfg.Retrieval.Backend {
	case "sqlite":
		dbPath := filepath.Join(cfg.Storage.DataDir, filepath.Base(cfg.Storage.DatabaseKey))
		if err := store.Download(ctx, cfg.Storage.DatabaseKey, dbPath); err != nil {
			return nil, nil, err
		}
		slog.Info("Database snapshot downloaded", "path", dbPath)

		gen := retrieval.QueryFunc(func(ctx context.Context, question string) (string, error) {
			return client.GenerateQuery(ctx, question, sch)
		})
		backend, err := retrieval.NewSQLite(dbPath, gen)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend, nil

	case "knowledge":
		backend, err := retrieval.NewKnowledge(cfg.Retrieval.KnowledgeEndpoint, cfg.Retrieval.KnowledgeTimeout)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	}
	// config.Load validates the backend name; this is unreachable.
	return nil, nil, errors.New("unknown retrieval backend")
}
