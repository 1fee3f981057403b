package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mlomp/mairie-backend/pkg/accounts"
	"github.com/mlomp/mairie-backend/pkg/config"
	"github.com/mlomp/mairie-backend/pkg/content"
	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/middleware"
	"github.com/mlomp/mairie-backend/pkg/observability"
	"github.com/mlomp/mairie-backend/pkg/sso"
)

// Server assembles the HTTP surface: routing, middleware, health and
// metrics endpoints
type Server struct {
	cfg      config.Config
	db       *sql.DB
	logger   *observability.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
	accounts *accounts.Service
	uploader media.Uploader
	gate     *middleware.AuthGate
	sso      *sso.Handlers
	handler  http.Handler
}

// NewServer creates the API server and wires every handler into its router.
// The sso handlers may be nil when federated login is disabled.
func NewServer(
	cfg config.Config,
	db *sql.DB,
	logger *observability.Logger,
	metrics *observability.Metrics,
	registry *prometheus.Registry,
	accountsService *accounts.Service,
	uploader media.Uploader,
	gate *middleware.AuthGate,
	ssoHandlers *sso.Handlers,
) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		metrics:  metrics,
		registry: registry,
		accounts: accountsService,
		uploader: uploader,
		gate:     gate,
		sso:      ssoHandlers,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	router := mux.NewRouter()

	health := observability.NewHealthChecker(s.db)
	router.HandleFunc("/healthz", health.Liveness).Methods("GET")
	router.HandleFunc("/readyz", health.Readiness).Methods("GET")

	if s.cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.Handler(s.registry)).Methods("GET")
	}

	apiRouter := router.PathPrefix("/api").Subrouter()

	accounts.NewHandlers(s.accounts, s.gate).RegisterRoutes(apiRouter)
	if s.sso != nil {
		s.sso.RegisterRoutes(apiRouter)
	}

	content.NewNewsHandlers(s.db, s.gate, s.uploader).RegisterRoutes(apiRouter)
	content.NewServiceHandlers(s.db, s.gate).RegisterRoutes(apiRouter)
	content.NewProjectHandlers(s.db, s.gate, s.uploader).RegisterRoutes(apiRouter)
	content.NewInvestmentHandlers(s.db, s.gate, s.uploader).RegisterRoutes(apiRouter)
	content.NewProcedureHandlers(s.db, s.gate).RegisterRoutes(apiRouter)
	content.NewGalleryHandlers(s.db, s.uploader, s.logger).RegisterRoutes(apiRouter)
	content.NewContactHandlers(s.db, s.gate).RegisterRoutes(apiRouter)

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger.Slog()),
		httputil.RecoveryMiddleware(s.logger.Slog()),
		httputil.CORSMiddleware(s.cfg.CORSOrigins),
		httputil.MaxBytesMiddleware(s.cfg.Media.MaxUploadBytes+1024*1024),
		s.metrics.HTTPMiddleware,
	)
	s.handler = chain(router)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
