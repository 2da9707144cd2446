package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smukkama/weather-monitor/internal/api"
	"github.com/smukkama/weather-monitor/internal/connection"
	"github.com/smukkama/weather-monitor/pkg/config"
)

// Server is the public HTTP server: REST API, metrics and the /ws alert stream.
type Server struct {
	config      config.HTTPConfig
	connManager *connection.Manager
	handler     *api.Handler
	logger      *slog.Logger
	upgrader    websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

// NewServer creates a new HTTP server
func NewServer(cfg config.HTTPConfig, connManager *connection.Manager, handler *api.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:      cfg,
		connManager: connManager,
		handler:     handler,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(api.Metrics)
	r.Use(api.RequestLogger(s.logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWebSocket)
	s.handler.Mount(r)

	return r
}

// Start starts listening on the configured port
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	s.listener = listener
	s.logger.Info("http server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops accepting requests, closes every WebSocket client and waits for
// their goroutines to exit.
func (s *Server) Stop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.connManager.CloseAll()
	s.wg.Wait()
	s.logger.Info("http server stopped")
	return err
}
