package server

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

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AbdelilahOu/MssqlMcp/internal/tools"
)

const (
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
)

type MCPServerConfig struct {
	Logger  *slog.Logger
	Version string
	Gateway tools.Querier
	// CommandName overrides the name of the query tool.
	CommandName string
	// Target labels the database in test_connection output.
	Target string
	// ListTableResources registers every table as a resource at startup.
	ListTableResources bool
}

func (cfg *MCPServerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Gateway == nil {
		return errors.New("gateway is required")
	}
	return nil
}

// NewMCPServer registers the tools and the table resources on a new MCP server.
func NewMCPServer(ctx context.Context, cfg MCPServerConfig) (*mcp.Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate server config: %w", err)
	}

	impl := &mcp.Implementation{Name: "mssql-mcp-server", Version: cfg.Version}
	server := mcp.NewServer(impl, nil)

	if err := tools.RegisterTools(server, tools.Config{
		Gateway:     cfg.Gateway,
		CommandName: cfg.CommandName,
		Target:      cfg.Target,
	}); err != nil {
		return nil, err
	}

	if cfg.ListTableResources {
		n := tools.AddTableResources(ctx, server, cfg.Gateway)
		cfg.Logger.Info("server: table resources registered", "count", n)
	}

	return server, nil
}

// RunStdioServer serves MCP over stdin/stdout until the client disconnects or
// the process receives SIGINT or SIGTERM.
func RunStdioServer(ctx context.Context, cfg MCPServerConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := NewMCPServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	cfg.Logger.Info("server: mcp stdio running", "target", cfg.Target)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type HTTPServerConfig struct {
	MCPServerConfig
	ListenAddr        string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

func (cfg *HTTPServerConfig) Validate() error {
	if err := cfg.MCPServerConfig.Validate(); err != nil {
		return err
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	return nil
}

// HTTPServer serves MCP over streamable HTTP next to health and metrics
// endpoints.
type HTTPServer struct {
	cfg        HTTPServerConfig
	mcpServer  *mcp.Server
	httpServer *http.Server
}

func NewHTTPServer(ctx context.Context, cfg HTTPServerConfig) (*HTTPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate http server config: %w", err)
	}

	mcpServer, err := NewMCPServer(ctx, cfg.MCPServerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	s := &HTTPServer{
		cfg:       cfg,
		mcpServer: mcpServer,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

// Handler returns the routes served by the HTTP transport.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/readyz", s.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *HTTPServer) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Logger.Error("server: http server error", "error", err)
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.cfg.Logger.Info("server: mcp streamable http listening", "listenAddr", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.cfg.Logger.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	case err := <-serveErrCh:
		return err
	}
}

func (s *HTTPServer) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Gateway.Ping(r.Context()); err != nil {
		s.cfg.Logger.Warn("server: readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// RunHTTPServer serves the HTTP transport until SIGINT or SIGTERM.
func RunHTTPServer(ctx context.Context, cfg HTTPServerConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := NewHTTPServer(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
