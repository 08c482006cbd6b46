package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

type ListTablesInput struct {
	Schema string `json:"schema,omitempty" jsonschema:"Optional schema name to filter tables, e.g. dbo"`
}

type TableInfo struct {
	Name   string `json:"name" jsonschema:"Table name"`
	Schema string `json:"schema" jsonschema:"Schema name"`
	Type   string `json:"type" jsonschema:"Table type (table or view)"`
}

type ListTablesOutput struct {
	Tables []TableInfo `json:"tables" jsonschema:"Array of table information"`
}

const listTablesQuery = `
	SELECT TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE
	FROM INFORMATION_SCHEMA.TABLES
	ORDER BY TABLE_SCHEMA, TABLE_NAME`

const listTablesInSchemaQuery = `
	SELECT TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE
	FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_SCHEMA = @p1
	ORDER BY TABLE_SCHEMA, TABLE_NAME`

func GetListTablesTool(gw Querier) *ToolDefinition[ListTablesInput, ListTablesOutput] {
	return NewToolDefinition[ListTablesInput, ListTablesOutput](
		"list_tables",
		"List all tables and views in the database with their schema.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ListTablesInput) (*mcp.CallToolResult, ListTablesOutput, error) {
			return listTablesHandler(ctx, input, gw)
		},
	)
}

func listTablesHandler(ctx context.Context, input ListTablesInput, gw Querier) (*mcp.CallToolResult, ListTablesOutput, error) {
	tables, err := listTables(ctx, gw, strings.TrimSpace(input.Schema))
	if err != nil {
		logger.LogDatabaseOperation("LIST_TABLES", listTablesQuery, 0, err)
		return nil, ListTablesOutput{}, err
	}
	logger.LogDatabaseOperation("LIST_TABLES", listTablesQuery, int64(len(tables)), nil)

	return nil, ListTablesOutput{Tables: tables}, nil
}

func listTables(ctx context.Context, gw Querier, schema string) ([]TableInfo, error) {
	query, args := listTablesQuery, []any(nil)
	if schema != "" {
		query, args = listTablesInSchemaQuery, []any{schema}
	}

	rs, err := gw.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, rs.Len())
	for i := range rs.Rows {
		tables = append(tables, TableInfo{
			Name:   rs.String(i, "TABLE_NAME"),
			Schema: rs.String(i, "TABLE_SCHEMA"),
			Type:   normalizeTableType(rs.String(i, "TABLE_TYPE")),
		})
	}
	return tables, nil
}

func normalizeTableType(tableType string) string {
	t := strings.ToLower(tableType)
	switch {
	case strings.Contains(t, "base table"):
		return "table"
	case strings.Contains(t, "view"):
		return "view"
	default:
		return t
	}
}
