// Package server is the reference metrics gateway: a JSON API over the
// SQLite store that the dashboard client talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/store"
)

const (
	serverReadTimeout  = 15 * time.Second
	serverWriteTimeout = 30 * time.Second
	shutdownTimeout    = 10 * time.Second

	maxRequestBytes = 1 << 20
)

// Server serves the gateway API for one store.
type Server struct {
	store    *store.Store
	log      *zap.Logger
	tokenTTL time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithTokenTTL makes issued tokens expire after d. Zero means never.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

func New(st *store.Store, opts ...Option) *Server {
	s := &Server{store: st, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the router with every route and middleware installed.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.SetupRoutes(router)
	// Outside the router so preflight requests reach it without a route.
	return corsMiddleware(router)
}

// SetupRoutes configures all HTTP routes under /api.
func (s *Server) SetupRoutes(router *mux.Router) {
	router.Use(s.logRequests)

	api := router.PathPrefix("/api").Subrouter()

	// Accounts
	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.Handle("/auth/me", s.requireAuth(http.HandlerFunc(s.handleMe))).Methods("GET")

	// Metrics; fixed paths before {id}
	m := api.PathPrefix("/metrics").Subrouter()
	m.Use(s.requireAuth)
	m.HandleFunc("", s.handleListMetrics).Methods("GET")
	m.HandleFunc("", s.handleCreateMetric).Methods("POST")
	m.HandleFunc("/summary", s.handleSummary).Methods("GET")
	m.HandleFunc("/export/csv", s.handleExportCSV).Methods("GET")
	m.HandleFunc("/ai/summary", s.handleMoodSummary).Methods("GET")
	m.HandleFunc("/{id}", s.handleGetMetric).Methods("GET")
	m.HandleFunc("/{id}", s.handleUpdateMetric).Methods("PUT")
	m.HandleFunc("/{id}", s.handleDeleteMetric).Methods("DELETE")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
