// Package server provides the core application wiring and lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/federated-rag/retrieval-gateway/internal/api"
	azurebackend "github.com/federated-rag/retrieval-gateway/internal/backend/azure"
	memorybackend "github.com/federated-rag/retrieval-gateway/internal/backend/memory"
	opensearchbackend "github.com/federated-rag/retrieval-gateway/internal/backend/opensearch"
	postgresbackend "github.com/federated-rag/retrieval-gateway/internal/backend/postgres"
	snowflakebackend "github.com/federated-rag/retrieval-gateway/internal/backend/snowflake"
	"github.com/federated-rag/retrieval-gateway/internal/config"
	"github.com/federated-rag/retrieval-gateway/internal/logging"
	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	client    *retrieval.Client
	apiServer *api.Server
}

// Factories returns the adapter factory table for every backend kind this
// build links. Qdrant and Milvus endpoints require adapters registered by an
// embedding-capable build and are absent here.
func Factories() map[retrieval.BackendKind]retrieval.Factory {
	return map[retrieval.BackendKind]retrieval.Factory{
		retrieval.KindMemory:          memorybackend.Factory,
		retrieval.KindPostgres:        postgresbackend.Factory,
		retrieval.KindOpenSearch:      opensearchbackend.Factory,
		retrieval.KindAzureAISearch:   azurebackend.Factory,
		retrieval.KindSnowflakeCortex: snowflakebackend.Factory,
	}
}

// BuildClient constructs the federation client from configuration. When
// endpointName is non-empty the client is pinned to that single endpoint.
func BuildClient(cfg config.Config, endpointName string, logger *zap.Logger) (*retrieval.Client, error) {
	endpoints := cfg.RetrievalEndpoints()
	var (
		registry *retrieval.Registry
		err      error
	)
	if endpointName != "" {
		registry, err = retrieval.NewPinnedRegistry(endpoints, endpointName, cfg.WriteEndpoint, logger)
	} else {
		registry, err = retrieval.NewRegistry(endpoints, cfg.WriteEndpoint, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("build endpoint registry: %w", err)
	}
	cache := retrieval.NewAdapterCache(Factories(), logger)
	return retrieval.NewClient(registry, cache, cfg.Sites, logger), nil
}

// Build creates the application's dependencies.
func Build(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	client, err := BuildClient(cfg, "", logger)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		apiServer: api.NewServer(client, cfg, logger),
	}, nil
}

// Logger exposes the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Client exposes the federation client.
func (a *App) Client() *retrieval.Client {
	return a.client
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return nil
}
