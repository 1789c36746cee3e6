// Package httpserver exposes the coverage engine over HTTP: ingestion
// and validation of table batches, event metrics, drilldown, trend
// deltas and CSV export.
package httpserver

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/storoescobar/commercial-events-calendar/internal/config"
	"github.com/storoescobar/commercial-events-calendar/internal/coverage"
	"github.com/storoescobar/commercial-events-calendar/internal/database"
	"github.com/storoescobar/commercial-events-calendar/internal/metrics"
	"github.com/storoescobar/commercial-events-calendar/internal/middleware"
	"github.com/storoescobar/commercial-events-calendar/internal/storage"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps the HTTP handlers and the coverage services.
type Server struct {
	documents storage.DocumentStore
	history   *coverage.History
	logger    *zap.Logger
	config    *config.Config
	metrics   *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
// Durable backends that are unavailable degrade to in-memory stores.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		documents: pickDocumentStore(deps),
		logger:    deps.Logger,
		config:    deps.Config,
		metrics:   deps.Metrics,
	}
	s.history = coverage.NewHistory(pickSnapshotStore(deps), deps.Logger, deps.Metrics)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Ingestion
	mux.HandleFunc("/v1/ingest", s.handleIngest)
	mux.HandleFunc("/v1/validate", s.handleValidate)

	// Metrics and drilldown
	mux.HandleFunc("/v1/events/metrics", s.handleEventMetrics)
	mux.HandleFunc("/v1/events/", s.handleEventByID)

	// Export
	mux.HandleFunc("/v1/export/metrics", s.handleExportMetrics)
	mux.HandleFunc("/v1/export/gaps", s.handleExportGaps)

	// Middleware chain, outermost first: recovery, logging, auth, rate limit.
	var handler http.Handler = mux
	handler = middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger, deps.Metrics).Handler(handler)
	handler = middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler(handler)
	handler = middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(deps.Logger).Handler(handler)
	return handler
}

// pickDocumentStore prefers PostgreSQL, then Redis, then memory.
func pickDocumentStore(deps *Dependencies) storage.DocumentStore {
	ctx := context.Background()
	if deps.DB != nil {
		store := storage.NewPostgresDocumentStore(deps.DB.Pool)
		if err := store.Init(ctx); err != nil {
			deps.Logger.Warn("document schema init failed, using in-memory documents", zap.Error(err))
		} else {
			return store
		}
	}
	if deps.Redis != nil {
		return storage.NewRedisDocumentStore(deps.Redis.Client)
	}
	deps.Logger.Warn("no durable document backend, session state is in-memory only")
	return storage.NewInMemoryDocumentStore()
}

// pickSnapshotStore honors the configured backend and degrades to
// memory when it is unavailable.
func pickSnapshotStore(deps *Dependencies) storage.SnapshotStore {
	ctx := context.Background()
	switch deps.Config.Snapshots.Backend {
	case "clickhouse":
		if deps.ClickHouse != nil {
			store := storage.NewClickHouseSnapshotStore(deps.ClickHouse.Conn)
			if err := store.Init(ctx); err != nil {
				deps.Logger.Warn("ClickHouse snapshot schema init failed", zap.Error(err))
			} else {
				return store
			}
		}
	case "postgres":
		if deps.DB != nil {
			store := storage.NewPostgresSnapshotStore(deps.DB.Pool)
			if err := store.Init(ctx); err != nil {
				deps.Logger.Warn("PostgreSQL snapshot schema init failed", zap.Error(err))
			} else {
				return store
			}
		}
	}
	deps.Logger.Warn("snapshot history is in-memory only",
		zap.String("backend", deps.Config.Snapshots.Backend),
	)
	return storage.NewInMemorySnapshotStore()
}
