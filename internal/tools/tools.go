package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/config"
	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
)

// Querier is the part of the gateway the tools rely on. *gateway.Gateway
// satisfies it.
type Querier interface {
	ExecuteQuery(ctx context.Context, statement string, args ...any) (*gateway.ResultSet, error)
	ExplainQuery(ctx context.Context, statement string) (string, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Gateway Querier
	// CommandName is the name of the query tool.
	CommandName string
	// Target identifies the database in test_connection output.
	Target string
}

func (cfg *Config) Validate() error {
	if cfg.Gateway == nil {
		return fmt.Errorf("gateway is required")
	}
	return nil
}

type registrar interface {
	Name() string
	Register(s *mcp.Server) error
}

func RegisterTools(s *mcp.Server, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate tools config: %w", err)
	}
	if cfg.CommandName == "" {
		cfg.CommandName = config.DefaultCommand
	}

	all := []registrar{
		GetExecuteSQLTool(cfg.Gateway, cfg.CommandName),
		GetListTablesTool(cfg.Gateway),
		GetDescribeTableTool(cfg.Gateway),
		GetDbInfoTool(cfg.Gateway),
		GetAnalyzeTableTool(cfg.Gateway),
		GetExplainQueryTool(cfg.Gateway),
		GetTestConnectionTool(cfg.Gateway, cfg.Target),
	}
	for _, t := range all {
		if err := t.Register(s); err != nil {
			return fmt.Errorf("failed to register %s tool: %w", t.Name(), err)
		}
	}

	RegisterResourceTemplate(s, cfg.Gateway)
	return nil
}
