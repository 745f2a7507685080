// Package api exposes the HTTP façade: document CRUD, the query
// endpoint, and health. It is a thin layer; the pipeline semantics
// live in pkg/queue, pkg/worker and pkg/rag.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/observability"
)

// Server is the HTTP API server
type Server struct {
	router      *gin.Engine
	server      *http.Server
	store       DocumentStore
	publisher   EventPublisher
	query       QueryService
	dbHealth    Pinger
	queueHealth Pinger
	queueDepth  DepthReporter
	logger      observability.Logger
}

// Deps collects the collaborators the server routes to
type Deps struct {
	Store       DocumentStore
	Publisher   EventPublisher
	Query       QueryService
	DBHealth    Pinger
	QueueHealth Pinger
	QueueDepth  DepthReporter
	Logger      observability.Logger
}

// NewServer builds the router and wires the handlers
func NewServer(cfg config.APIConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(RequestLogger(logger))
	router.Use(CORS())

	s := &Server{
		router:      router,
		store:       deps.Store,
		publisher:   deps.Publisher,
		query:       deps.Query,
		dbHealth:    deps.DBHealth,
		queueHealth: deps.QueueHealth,
		queueDepth:  deps.QueueDepth,
		logger:      logger,
	}

	router.GET("/", s.root)
	router.GET("/healthz", s.healthz)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/documents/", s.createDocument)
		apiGroup.GET("/documents/", s.listDocuments)
		apiGroup.GET("/documents/:id", s.getDocument)
		apiGroup.POST("/query/", s.queryDocuments)
	}

	s.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving; it blocks until the listener stops
func (s *Server) Start() error {
	s.logger.Info("API server listening", map[string]interface{}{
		"address": s.server.Addr,
	})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
