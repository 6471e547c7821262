// Package dashboard serves the stock analysis HTTP API.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"StockLens/internal/cache"
	"StockLens/internal/catalog"
	"StockLens/internal/recorder"
)

// Options configure the server.
type Options struct {
	Addr         string
	DefaultStart string
	SymbolSuffix string
	Location     *time.Location
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	Now            func() time.Time
}

// Server represents the HTTP API server.
type Server struct {
	opts       Options
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	registry *cache.Registry
	catalog  *catalog.Catalog
	recorder recorder.Recorder
}

// NewServer creates the server and registers its routes.
func NewServer(opts Options, reg *cache.Registry, cat *catalog.Catalog, rec recorder.Recorder, logger *logrus.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultStart == "" {
		opts.DefaultStart = "2019-01-01"
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{
		opts:     opts,
		logger:   logger,
		registry: reg,
		catalog:  cat,
		recorder: rec,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	apiV1.HandleFunc("/tickers", s.handleTickers).Methods(http.MethodGet)
	apiV1.HandleFunc("/stocks/{ticker}", s.handleStock).Methods(http.MethodGet)
	apiV1.HandleFunc("/stocks/{ticker}/csv", s.handleCSV).Methods(http.MethodGet)
	apiV1.HandleFunc("/stocks/{ticker}/refresh", s.handleRefresh).Methods(http.MethodPost)
	apiV1.HandleFunc("/stocks/{ticker}/growth/history", s.handleGrowthHistory).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
	})
	return c.Handler(s.router)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.WithField("address", s.opts.Addr).Info("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
