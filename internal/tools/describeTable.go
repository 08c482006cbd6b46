package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

type DescribeTableInput struct {
	TableName string `json:"table_name" jsonschema:"Name of the table to describe, either name or schema.name"`
	Schema    string `json:"schema,omitempty" jsonschema:"Optional schema name (defaults to dbo)"`
}

type ColumnInfo struct {
	Name          string `json:"name" jsonschema:"Column name"`
	DataType      string `json:"data_type" jsonschema:"Data type of the column"`
	IsNullable    bool   `json:"is_nullable" jsonschema:"Whether the column can contain NULL values"`
	IsPrimaryKey  bool   `json:"is_primary_key" jsonschema:"Whether the column is part of the primary key"`
	DefaultValue  string `json:"default_value,omitempty" jsonschema:"Default value for the column"`
	CharMaxLength *int64 `json:"char_max_length,omitempty" jsonschema:"Maximum length for character and binary types, -1 for MAX"`
}

type IndexInfo struct {
	Name      string   `json:"name" jsonschema:"Index name"`
	Columns   []string `json:"columns" jsonschema:"Columns included in the index"`
	IsUnique  bool     `json:"is_unique" jsonschema:"Whether the index is unique"`
	IsPrimary bool     `json:"is_primary" jsonschema:"Whether the index backs the primary key"`
}

type DescribeTableOutput struct {
	Table   string       `json:"table" jsonschema:"Schema-qualified table name"`
	Columns []ColumnInfo `json:"columns" jsonschema:"Array of column information"`
	Indexes []IndexInfo  `json:"indexes" jsonschema:"Array of index information"`
}

const describeColumnsQuery = `
	SELECT
		c.COLUMN_NAME,
		c.DATA_TYPE,
		c.IS_NULLABLE,
		c.COLUMN_DEFAULT,
		c.CHARACTER_MAXIMUM_LENGTH,
		CASE WHEN pk.COLUMN_NAME IS NULL THEN CAST(0 AS BIT) ELSE CAST(1 AS BIT) END AS IS_PRIMARY_KEY
	FROM INFORMATION_SCHEMA.COLUMNS c
	LEFT JOIN (
		SELECT ku.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
			ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
			AND tc.CONSTRAINT_SCHEMA = ku.CONSTRAINT_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
			AND tc.TABLE_SCHEMA = @p1
			AND tc.TABLE_NAME = @p2
	) pk ON c.COLUMN_NAME = pk.COLUMN_NAME
	WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
	ORDER BY c.ORDINAL_POSITION`

const describeIndexesQuery = `
	SELECT
		i.name AS INDEX_NAME,
		i.is_unique AS IS_UNIQUE,
		i.is_primary_key AS IS_PRIMARY_KEY,
		col.name AS COLUMN_NAME
	FROM sys.indexes i
	JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
	JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
	WHERE i.object_id = OBJECT_ID(QUOTENAME(@p1) + '.' + QUOTENAME(@p2))
		AND i.name IS NOT NULL
	ORDER BY i.name, ic.key_ordinal, ic.index_column_id`

func GetDescribeTableTool(gw Querier) *ToolDefinition[DescribeTableInput, DescribeTableOutput] {
	return NewToolDefinition[DescribeTableInput, DescribeTableOutput](
		"describe_table",
		"Get detailed information about table structure, columns, and indexes.",
		func(ctx context.Context, req *mcp.CallToolRequest, input DescribeTableInput) (*mcp.CallToolResult, DescribeTableOutput, error) {
			return describeTableHandler(ctx, input, gw)
		},
	)
}

func describeTableHandler(ctx context.Context, input DescribeTableInput, gw Querier) (*mcp.CallToolResult, DescribeTableOutput, error) {
	table, err := parseTableName(input.TableName, input.Schema)
	if err != nil {
		return nil, DescribeTableOutput{}, err
	}

	columns, err := getTableColumns(ctx, gw, table)
	if err != nil {
		logger.LogDatabaseOperation("DESCRIBE_TABLE", "DESCRIBE "+table.String(), 0, err)
		return nil, DescribeTableOutput{}, fmt.Errorf("get columns error: %w", err)
	}
	if len(columns) == 0 {
		return nil, DescribeTableOutput{}, fmt.Errorf("table %s not found", table)
	}

	indexes, err := getTableIndexes(ctx, gw, table)
	if err != nil {
		logger.LogDatabaseOperation("DESCRIBE_TABLE", "DESCRIBE "+table.String(), 0, err)
		return nil, DescribeTableOutput{}, fmt.Errorf("get indexes error: %w", err)
	}

	logger.LogDatabaseOperation("DESCRIBE_TABLE", "DESCRIBE "+table.String(), int64(len(columns)), nil)

	return nil, DescribeTableOutput{
		Table:   table.String(),
		Columns: columns,
		Indexes: indexes,
	}, nil
}

func getTableColumns(ctx context.Context, gw Querier, table tableRef) ([]ColumnInfo, error) {
	rs, err := gw.ExecuteQuery(ctx, describeColumnsQuery, table.Schema, table.Name)
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnInfo, 0, rs.Len())
	for i := range rs.Rows {
		col := ColumnInfo{
			Name:         rs.String(i, "COLUMN_NAME"),
			DataType:     rs.String(i, "DATA_TYPE"),
			IsNullable:   rs.String(i, "IS_NULLABLE") == "YES",
			IsPrimaryKey: asBool(rs.Value(i, "IS_PRIMARY_KEY")),
			DefaultValue: rs.String(i, "COLUMN_DEFAULT"),
		}
		if v, ok := rs.Value(i, "CHARACTER_MAXIMUM_LENGTH"); ok {
			if n, ok := v.(int64); ok {
				col.CharMaxLength = &n
			}
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func getTableIndexes(ctx context.Context, gw Querier, table tableRef) ([]IndexInfo, error) {
	rs, err := gw.ExecuteQuery(ctx, describeIndexesQuery, table.Schema, table.Name)
	if err != nil {
		return nil, err
	}

	// rows arrive ordered by index name, one row per index column
	indexes := make([]IndexInfo, 0)
	for i := range rs.Rows {
		name := rs.String(i, "INDEX_NAME")
		if n := len(indexes); n == 0 || indexes[n-1].Name != name {
			indexes = append(indexes, IndexInfo{
				Name:      name,
				Columns:   make([]string, 0, 1),
				IsUnique:  asBool(rs.Value(i, "IS_UNIQUE")),
				IsPrimary: asBool(rs.Value(i, "IS_PRIMARY_KEY")),
			})
		}
		last := &indexes[len(indexes)-1]
		last.Columns = append(last.Columns, rs.String(i, "COLUMN_NAME"))
	}
	return indexes, nil
}

// asBool reads BIT and integer flags.
func asBool(v any, ok bool) bool {
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case string:
		return b == "1" || b == "true"
	default:
		return false
	}
}
