// Package api exposes the ledger core over HTTP. It is a thin boundary:
// request parsing, caller-identity headers and error-code mapping live
// here; every invariant lives below.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ledger-core/pkg/history"
	"ledger-core/pkg/logging"
	"ledger-core/pkg/transfer"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	// Address to listen on (e.g. ":8080").
	Address string

	// ReadTimeout for HTTP requests.
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server routes HTTP requests to the transfer executor and history reader.
type Server struct {
	executor *transfer.Executor
	reader   *history.Reader
	logger   *logging.Logger
	server   *http.Server
}

// NewServer creates the HTTP server. registry may be nil to disable the
// /metrics endpoint.
func NewServer(executor *transfer.Executor, reader *history.Reader, registry *prometheus.Registry, logger *logging.Logger, config ServerConfig) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	s := &Server{
		executor: executor,
		reader:   reader,
		logger:   logger.Named("api"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/transfers", s.handleTransfer).Methods(http.MethodPost)
	r.HandleFunc("/v1/transfers/{referenceID}", s.handleFindByReference).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{accountID}/transactions", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/statements/{accountNumber}", s.handleStatement).Methods(http.MethodGet)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("listening", zap.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
