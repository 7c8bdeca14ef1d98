package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/internal/config"
	tubehttp "github.com/aretw0/tubelife/pkg/adapters/http"
	"github.com/aretw0/tubelife/pkg/adapters/mcp"
	"github.com/aretw0/tubelife/pkg/observability"
)

// ShutdownTimeout bounds the graceful shutdown of network servers.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP control server.
type ServeOptions struct {
	Config    *config.Config
	Addr      string // overrides Config.HTTP.Addr
	AutoStart bool
	Debug     bool
}

// Stack is an engine wired with every outer surface: library, metrics
// registry and event streams.
type Stack struct {
	Engine   *tubelife.Engine
	Library  *Library
	Registry *prometheus.Registry
	Streams  *tubehttp.StreamManager
}

// NewStack opens the library and builds an engine whose lifecycle hooks
// feed the metrics collectors and the SSE stream.
func NewStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	lib, err := OpenLibrary(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	streams := tubehttp.NewStreamManager(logger)

	engine, err := NewEngine(ctx, cfg, lib, logger,
		tubelife.WithLifecycleHooks(metrics.Hooks()),
		tubelife.WithLifecycleHooks(streams.Hooks()),
	)
	if err != nil {
		lib.Close()
		return nil, err
	}
	return &Stack{Engine: engine, Library: lib, Registry: reg, Streams: streams}, nil
}

// Handler returns the HTTP control API for the stack.
func (s *Stack) Handler(withMetrics bool, logger *slog.Logger) http.Handler {
	opts := []tubehttp.Option{
		tubehttp.WithLibrary(s.Library.Manager),
		tubehttp.WithSelector(s.Library.Host),
		tubehttp.WithStreams(s.Streams),
		tubehttp.WithLogger(logger),
	}
	if withMetrics {
		opts = append(opts, tubehttp.WithMetrics(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))
	}
	return tubehttp.NewHandler(s.Engine, opts...)
}

// Close stops the engine, waits for host I/O and releases the library.
func (s *Stack) Close() error {
	s.Engine.Stop(context.Background())
	s.Engine.WaitIO()
	return s.Library.Close()
}

// Serve runs the HTTP control server until interrupted.
func Serve(opts ServeOptions) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	addr := cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	level := cfg.Level()
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := createLogger(level, true)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	stack, err := NewStack(sigCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	r := stack.Engine.Runner()
	if err := r.Start(sigCtx); err != nil {
		return err
	}
	defer r.Stop()

	if opts.AutoStart {
		stack.Engine.Start(sigCtx)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           stack.Handler(cfg.HTTP.Metrics, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting tubelife server", "address", srv.Addr, "backend", cfg.Store.Backend, "sequence", stack.Engine.Name)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-sigCtx.Done():
		logger.Info("Start shutdown", "signal", sigCtx.Signal())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}

// MCPOptions configures the MCP server.
type MCPOptions struct {
	Config    *config.Config
	Transport string // stdio or sse
	Addr      string
	BaseURL   string
	AutoStart bool
	Debug     bool
}

// ServeMCP exposes the engine as an MCP server. With stdio the protocol owns
// stdout, so logging is off unless debugging.
func ServeMCP(opts MCPOptions) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	logger := createLogger(cfg.Level(), opts.Debug || opts.Transport == "sse")

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	stack, err := NewStack(sigCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	r := stack.Engine.Runner()
	if err := r.Start(sigCtx); err != nil {
		return err
	}
	defer r.Stop()

	if opts.AutoStart {
		stack.Engine.Start(sigCtx)
	}

	srv := mcp.NewServer(stack.Engine, mcp.WithSelector(stack.Library.Host), mcp.WithLogger(logger))

	switch opts.Transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		addr := opts.Addr
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + addr
		}
		return srv.ServeSSE(sigCtx, addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q (use stdio or sse)", opts.Transport)
	}
}
