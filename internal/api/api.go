// Package api provides HTTP handlers and the main API server logic for
// ordersweep.
//
// It exposes the delete-discord-message endpoint backed by the long-lived
// Discord gateway connection, plus service metadata and health endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/restockops/ordersweep/internal/discord"
	"github.com/restockops/ordersweep/internal/models"
	"github.com/restockops/ordersweep/internal/sweep"
)

// ServiceName identifies the service in metadata and health responses.
const ServiceName = "ordersweep"

// Version is the service version reported by the metadata endpoint.
const Version = "1.0.0"

// Default server configuration
const (
	// DefaultAddr is the default API listen address.
	DefaultAddr = ":8000"
	// DefaultRequestTimeout bounds one search-and-delete operation, covering
	// the history fetch and all deletions.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	DefaultLimit   int
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the API server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithDefaultLimit sets the scan limit applied when a request omits one.
func WithDefaultLimit(limit int) Option {
	return func(o *Opts) {
		o.DefaultLimit = limit
	}
}

// WithRequestTimeout sets the per-request time budget for sweep operations.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.RequestTimeout = d
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(o *Opts) {
		o.CORSOrigins = origins
	}
}

// Server wires the HTTP endpoints to the gateway connection and the sweep
// workflow. Handlers are stateless and safe to invoke concurrently.
type Server struct {
	gw      discord.Gateway
	sweeper *sweep.Sweeper
	opts    Opts
}

// NewServer creates an API server around the given gateway connection.
func NewServer(gw discord.Gateway, opts ...Option) *Server {
	cfg := Opts{
		Addr:           DefaultAddr,
		DefaultLimit:   models.DefaultScanLimit,
		RequestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{gw: gw, sweeper: sweep.NewSweeper(gw), opts: cfg}
}

// Handler builds the routed HTTP handler, including CORS middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/delete-discord-message", s.deleteMessageHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/", s.rootHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// Run establishes the Discord gateway connection, starts the HTTP server, and
// serves until a termination signal arrives or the listener fails. The
// gateway session lives for the whole process and is closed on the way out.
func Run(discordOpts []discord.Option, apiOpts []Option) error {
	client, err := discord.NewClient(discordOpts...)
	if err != nil {
		return fmt.Errorf("failed to establish Discord gateway connection: %w", err)
	}

	srv := NewServer(client, apiOpts...)
	httpSrv := &http.Server{Addr: srv.opts.Addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", srv.opts.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("API server failed", "error", err)
		if cerr := client.Close(); cerr != nil {
			slog.Error("Failed to close Discord gateway connection", "error", cerr)
		}
		return err
	case sig := <-sigCh:
		slog.Info("Shutting down on signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown did not complete cleanly", "error", err)
	}
	if err := client.Close(); err != nil {
		slog.Error("Failed to close Discord gateway connection", "error", err)
	}
	slog.Info("Shutdown complete")
	return nil
}
