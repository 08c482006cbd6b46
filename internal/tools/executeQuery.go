package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

type ExecuteSQLInput struct {
	Query  string `json:"query" jsonschema:"The SQL statement to execute. Only read-only statements are accepted."`
	Format string `json:"format,omitempty" jsonschema:"Text rendering of the result: csv (default), table or json"`
}

type ExecuteSQLOutput struct {
	Columns  []gateway.Column `json:"columns" jsonschema:"Result columns in server order"`
	Rows     [][]any          `json:"rows" jsonschema:"Result rows with values in column order"`
	RowCount int              `json:"row_count" jsonschema:"Number of rows returned"`
}

func GetExecuteSQLTool(gw Querier, name string) *ToolDefinition[ExecuteSQLInput, ExecuteSQLOutput] {
	return NewToolDefinition[ExecuteSQLInput, ExecuteSQLOutput](
		name,
		"Execute a read-only SQL query on the SQL Server database and return the result rows. "+
			"Statements starting with INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE, EXEC, EXECUTE or MERGE are rejected.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ExecuteSQLInput) (*mcp.CallToolResult, ExecuteSQLOutput, error) {
			return executeSQLHandler(ctx, input, gw)
		},
	).WithInputSchema(func(s *jsonschema.Schema) {
		if p, ok := s.Properties["format"]; ok {
			p.Enum = []any{FormatCSV, FormatTable, FormatJSON}
		}
	})
}

func executeSQLHandler(ctx context.Context, input ExecuteSQLInput, gw Querier) (*mcp.CallToolResult, ExecuteSQLOutput, error) {
	format, err := normalizeFormat(input.Format)
	if err != nil {
		return nil, ExecuteSQLOutput{}, err
	}

	rs, err := gw.ExecuteQuery(ctx, input.Query)
	if err != nil {
		logger.LogDatabaseOperation("EXECUTE_SQL", input.Query, 0, err)
		return nil, ExecuteSQLOutput{}, err
	}
	logger.LogDatabaseOperation("EXECUTE_SQL", input.Query, int64(rs.Len()), nil)

	text, err := renderResult(rs, format)
	if err != nil {
		return nil, ExecuteSQLOutput{}, err
	}

	output := ExecuteSQLOutput{
		Columns:  rs.Columns,
		Rows:     rs.Rows,
		RowCount: rs.Len(),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, output, nil
}
