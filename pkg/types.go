package mcpdb

// AnalyzeTableInput: analyze_table tool input
type AnalyzeTableInput struct {
	TableName string `json:"table_name" jsonschema:"Table to analyze, either name or schema.name"`
	Schema    string `json:"schema,omitempty" jsonschema:"Schema of the table when table_name is unqualified (defaults to dbo)"`
}

// TableStats: storage and column statistics of one table
type TableStats struct {
	TableName    string            `json:"table_name" jsonschema:"Bracket-quoted table name"`
	RowCount     int64             `json:"row_count" jsonschema:"Number of rows"`
	TotalSize    string            `json:"total_size" jsonschema:"Reserved space, or N/A when partition stats are not visible"`
	TableSize    string            `json:"table_size" jsonschema:"Space used by data pages"`
	IndexSize    string            `json:"index_size" jsonschema:"Space used by index pages"`
	LastAnalyzed string            `json:"last_analyzed" jsonschema:"Most recent statistics update on the table"`
	ColumnStats  map[string]string `json:"column_stats" jsonschema:"Nullability per column"`
}

// AnalyzeTableOutput: analyze_table tool output
type AnalyzeTableOutput struct {
	Stats TableStats `json:"stats" jsonschema:"Table statistics"`
}
