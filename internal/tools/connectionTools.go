package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

type TestConnectionInput struct{}

type TestConnectionOutput struct {
	Success    bool   `json:"success" jsonschema:"Whether the connection test succeeded"`
	Message    string `json:"message" jsonschema:"Test result message"`
	Connection string `json:"connection" jsonschema:"Database that was tested"`
	LatencyMS  int64  `json:"latency_ms" jsonschema:"Round trip time of the check in milliseconds"`
}

func GetTestConnectionTool(gw Querier, target string) *ToolDefinition[TestConnectionInput, TestConnectionOutput] {
	if target == "" {
		target = "current"
	}
	return NewToolDefinition[TestConnectionInput, TestConnectionOutput](
		"test_connection",
		"Test connectivity to the database before executing queries. Reconnects once if the connection was lost.",
		func(ctx context.Context, req *mcp.CallToolRequest, input TestConnectionInput) (*mcp.CallToolResult, TestConnectionOutput, error) {
			return testConnectionHandler(ctx, gw, target)
		},
	)
}

func testConnectionHandler(ctx context.Context, gw Querier, target string) (*mcp.CallToolResult, TestConnectionOutput, error) {
	start := time.Now()
	err := gw.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	logger.LogConnectionEvent("test_connection", target, err)

	if err != nil {
		return nil, TestConnectionOutput{
			Success:    false,
			Message:    fmt.Sprintf("Connection test failed: %v", err),
			Connection: target,
			LatencyMS:  latency,
		}, nil
	}

	return nil, TestConnectionOutput{
		Success:    true,
		Message:    "Connection test successful",
		Connection: target,
		LatencyMS:  latency,
	}, nil
}
