package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
	"github.com/AbdelilahOu/MssqlMcp/internal/metrics"
)

// ToolHandler is the typed handler signature used by every tool.
type ToolHandler[TInput, TOutput any] func(ctx context.Context, req *mcp.CallToolRequest, input TInput) (*mcp.CallToolResult, TOutput, error)

// ToolDefinition represents a complete tool with its metadata and handler
type ToolDefinition[TInput, TOutput any] struct {
	Tool    *mcp.Tool
	Handler ToolHandler[TInput, TOutput]

	// customizeInput adjusts the inferred input schema, e.g. to add enums.
	customizeInput func(*jsonschema.Schema)
}

// NewToolDefinition creates a new tool definition with the given name, description and handler
func NewToolDefinition[TInput, TOutput any](
	name, description string,
	handler ToolHandler[TInput, TOutput],
) *ToolDefinition[TInput, TOutput] {
	return &ToolDefinition[TInput, TOutput]{
		Tool: &mcp.Tool{
			Name:        name,
			Description: description,
		},
		Handler: handler,
	}
}

func (td *ToolDefinition[TInput, TOutput]) Name() string {
	return td.Tool.Name
}

// WithInputSchema registers a hook that edits the inferred input schema.
func (td *ToolDefinition[TInput, TOutput]) WithInputSchema(fn func(*jsonschema.Schema)) *ToolDefinition[TInput, TOutput] {
	td.customizeInput = fn
	return td
}

// Register infers the input and output schemas and adds this tool to the
// MCP server. Each call is logged with its own request id.
func (td *ToolDefinition[TInput, TOutput]) Register(s *mcp.Server) error {
	in, err := jsonschema.For[TInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s input schema: %w", td.Tool.Name, err)
	}
	if td.customizeInput != nil {
		td.customizeInput(in)
	}

	out, err := jsonschema.For[TOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s output schema: %w", td.Tool.Name, err)
	}

	tool := *td.Tool
	tool.InputSchema = in
	tool.OutputSchema = out

	mcp.AddTool(s, &tool, td.instrumented())
	return nil
}

func (td *ToolDefinition[TInput, TOutput]) instrumented() mcp.ToolHandlerFor[TInput, TOutput] {
	name := td.Tool.Name
	return func(ctx context.Context, req *mcp.CallToolRequest, input TInput) (*mcp.CallToolResult, TOutput, error) {
		requestID := uuid.NewString()
		start := time.Now()

		res, out, err := td.Handler(ctx, req, input)

		logger.LogToolCall(name, requestID, time.Since(start), err)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()

		return res, out, err
	}
}
