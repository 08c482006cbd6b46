package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AbdelilahOu/MssqlMcp/internal/client"
	"github.com/AbdelilahOu/MssqlMcp/internal/config"
	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
	"github.com/AbdelilahOu/MssqlMcp/internal/metrics"
	"github.com/AbdelilahOu/MssqlMcp/internal/server"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mssql-mcp-server",
	Short: "MCP server for read-only SQL Server queries",
	Long: `A Model Context Protocol (MCP) server that lets AI assistants run read-only
queries against one Microsoft SQL Server database. Connection settings come
from MSSQL_* environment variables, an optional .env file, or flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags())

	stdioCmd := &cobra.Command{
		Use:   "stdio",
		Short: "Run over stdio transport (for local MCP clients)",
		RunE:  runStdioServer,
	}
	rootCmd.AddCommand(stdioCmd)

	httpCmd := &cobra.Command{
		Use:   "http",
		Short: "Run over streamable HTTP transport with /healthz, /readyz and /metrics",
		RunE:  runHTTPServer,
	}
	rootCmd.AddCommand(httpCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Connect once, print the server version and a few tables, then exit",
		RunE:  runCheck,
	}
	rootCmd.AddCommand(checkCmd)
}

// setup loads the configuration, starts logging and builds the gateway.
// The returned cleanup closes both.
func setup(cmd *cobra.Command) (*config.Config, *gateway.Gateway, func(), error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	if err := logger.Initialize(logger.ConfigFromLoggingConfig(cfg.Logging())); err != nil {
		return nil, nil, nil, err
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	logger.Info("Starting MSSQL MCP server", map[string]interface{}{
		"version":    version,
		"target":     cfg.Target(),
		"connection": client.Redact(client.BuildConnString(cfg)),
	})

	gw, err := gateway.New(gateway.Config{
		Logger:       logger.Slog(),
		Open:         client.Opener(cfg),
		QueryTimeout: cfg.QueryTimeout,
		Target:       cfg.Target(),
	})
	if err != nil {
		logger.Shutdown()
		return nil, nil, nil, err
	}

	cleanup := func() {
		gw.Close()
		logger.Shutdown()
	}
	return cfg, gw, cleanup, nil
}

// connectEagerly opens the handle at startup. A failure is not fatal: the
// gateway retries on the first tool call.
func connectEagerly(ctx context.Context, cfg *config.Config, gw *gateway.Gateway) bool {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+time.Second)
	defer cancel()

	err := gw.Connect(ctx)
	logger.LogConnectionEvent("startup_connect", cfg.Target(), err)
	return err == nil
}

func mcpServerConfig(cfg *config.Config, gw *gateway.Gateway, connected bool) server.MCPServerConfig {
	return server.MCPServerConfig{
		Logger:             logger.Slog(),
		Version:            version,
		Gateway:            gw,
		CommandName:        cfg.Command,
		Target:             cfg.Target(),
		ListTableResources: connected,
	}
}

func runStdioServer(cmd *cobra.Command, args []string) error {
	cfg, gw, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	connected := connectEagerly(cmd.Context(), cfg, gw)
	return server.RunStdioServer(cmd.Context(), mcpServerConfig(cfg, gw, connected))
}

func runHTTPServer(cmd *cobra.Command, args []string) error {
	cfg, gw, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	connected := connectEagerly(cmd.Context(), cfg, gw)
	return server.RunHTTPServer(cmd.Context(), server.HTTPServerConfig{
		MCPServerConfig: mcpServerConfig(cfg, gw, connected),
		ListenAddr:      cfg.HTTPAddr,
	})
}

const checkTablesQuery = `
	SELECT TOP 5 TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE
	FROM INFORMATION_SCHEMA.TABLES
	ORDER BY TABLE_SCHEMA, TABLE_NAME`

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, gw, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := gw.Ping(ctx); err != nil {
		logger.LogConnectionEvent("check", cfg.Target(), err)
		return fmt.Errorf("connection to %s failed: %w", cfg.Target(), err)
	}
	fmt.Fprintf(out, "Connected to %s\n", cfg.Target())

	info, err := gw.ExecuteQuery(ctx, "SELECT @@VERSION AS version")
	if err != nil {
		return fmt.Errorf("failed to read server version: %w", err)
	}
	serverVersion, _, _ := strings.Cut(info.String(0, "version"), "\n")
	fmt.Fprintf(out, "Server: %s\n\n", strings.TrimSpace(serverVersion))

	tables, err := gw.ExecuteQuery(ctx, checkTablesQuery)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Schema", "Table", "Type"})
	for i := range tables.Rows {
		table.Append([]string{
			tables.String(i, "TABLE_SCHEMA"),
			tables.String(i, "TABLE_NAME"),
			tables.String(i, "TABLE_TYPE"),
		})
	}
	table.Render()
	return nil
}
