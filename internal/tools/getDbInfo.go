package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
)

type GetDBInfoInput struct{}

type GetDBInfoOutput struct {
	DatabaseName string   `json:"database_name" jsonschema:"Name of the database"`
	Version      string   `json:"version" jsonschema:"First line of the server version string"`
	Schemas      []string `json:"schemas" jsonschema:"User schemas in the database"`
	TableCount   int64    `json:"table_count" jsonschema:"Number of base tables"`
}

const dbNameVersionQuery = "SELECT DB_NAME() AS database_name, @@VERSION AS version"

const dbSchemasQuery = `
	SELECT name
	FROM sys.schemas
	WHERE schema_id < 16384
		AND name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
	ORDER BY name`

const dbTableCountQuery = "SELECT COUNT(*) AS table_count FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE'"

func GetDbInfoTool(gw Querier) *ToolDefinition[GetDBInfoInput, GetDBInfoOutput] {
	return NewToolDefinition[GetDBInfoInput, GetDBInfoOutput](
		"get_db_info",
		"Get general database information: name, server version, schemas and table count.",
		func(ctx context.Context, req *mcp.CallToolRequest, input GetDBInfoInput) (*mcp.CallToolResult, GetDBInfoOutput, error) {
			return getDBInfoHandler(ctx, gw)
		},
	)
}

func getDBInfoHandler(ctx context.Context, gw Querier) (*mcp.CallToolResult, GetDBInfoOutput, error) {
	info, err := gw.ExecuteQuery(ctx, dbNameVersionQuery)
	if err != nil {
		return nil, GetDBInfoOutput{}, fmt.Errorf("failed to get database name: %w", err)
	}
	if info.Len() == 0 {
		return nil, GetDBInfoOutput{}, fmt.Errorf("failed to get database name: no rows returned")
	}

	version, _, _ := strings.Cut(info.String(0, "version"), "\n")

	schemas, err := getStringSliceFromQuery(ctx, gw, dbSchemasQuery)
	if err != nil {
		return nil, GetDBInfoOutput{}, fmt.Errorf("failed to get schemas: %w", err)
	}

	count, err := gw.ExecuteQuery(ctx, dbTableCountQuery)
	if err != nil {
		return nil, GetDBInfoOutput{}, fmt.Errorf("failed to get table count: %w", err)
	}
	var tableCount int64
	if v, ok := count.Value(0, "table_count"); ok {
		tableCount, _ = v.(int64)
	}

	return nil, GetDBInfoOutput{
		DatabaseName: info.String(0, "database_name"),
		Version:      strings.TrimSpace(version),
		Schemas:      schemas,
		TableCount:   tableCount,
	}, nil
}

// getStringSliceFromQuery returns the first column of every row as text.
func getStringSliceFromQuery(ctx context.Context, gw Querier, query string, args ...any) ([]string, error) {
	rs, err := gw.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, rs.Len())
	if len(rs.Columns) == 0 {
		return result, nil
	}
	for _, row := range rs.Rows {
		result = append(result, gateway.FormatValue(row[0]))
	}
	return result, nil
}
