package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

type ExplainQueryInput struct {
	Query string `json:"query" jsonschema:"SQL query to explain. It is compiled but not executed."`
}

type ExplainQueryOutput struct {
	Plan string `json:"plan" jsonschema:"Estimated execution plan as showplan XML"`
}

func GetExplainQueryTool(gw Querier) *ToolDefinition[ExplainQueryInput, ExplainQueryOutput] {
	return NewToolDefinition[ExplainQueryInput, ExplainQueryOutput](
		"explain_query",
		"Get the estimated execution plan of a read-only query for performance analysis.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ExplainQueryInput) (*mcp.CallToolResult, ExplainQueryOutput, error) {
			return explainQueryHandler(ctx, input, gw)
		},
	)
}

func explainQueryHandler(ctx context.Context, input ExplainQueryInput, gw Querier) (*mcp.CallToolResult, ExplainQueryOutput, error) {
	plan, err := gw.ExplainQuery(ctx, input.Query)
	if err != nil {
		logger.LogDatabaseOperation("EXPLAIN", input.Query, 0, err)
		return nil, ExplainQueryOutput{}, fmt.Errorf("failed to explain query: %w", err)
	}
	logger.LogDatabaseOperation("EXPLAIN", input.Query, int64(strings.Count(plan, "\n")+1), nil)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: plan},
		},
	}, ExplainQueryOutput{Plan: plan}, nil
}
