package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

const (
	resourceScheme    = "mssql://"
	resourceSuffix    = "/data"
	tableDataTemplate = resourceScheme + "{table}" + resourceSuffix
	tableDataMIMEType = "text/csv"
	tablePreviewRows  = 100
)

// TableDataURI returns the resource URI for a table, e.g. mssql://dbo.orders/data.
func TableDataURI(table string) string {
	return resourceScheme + table + resourceSuffix
}

// RegisterResourceTemplate exposes the first rows of any table as CSV under
// mssql://{table}/data.
func RegisterResourceTemplate(s *mcp.Server, gw Querier) {
	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: tableDataTemplate,
		Name:        "table_data",
		Description: "First 100 rows of a table as CSV. {table} is name or schema.name.",
		MIMEType:    tableDataMIMEType,
	}, tableDataHandler(gw))
}

// AddTableResources lists every table as a concrete resource and returns how
// many were added. Failures are logged and leave only the template registered.
func AddTableResources(ctx context.Context, s *mcp.Server, gw Querier) int {
	tables, err := listTables(ctx, gw, "")
	if err != nil {
		logger.Warn("Failed to list tables for resources", map[string]interface{}{
			"error": err.Error(),
		})
		return 0
	}

	handler := tableDataHandler(gw)
	added := 0
	for _, t := range tables {
		name := t.Schema + "." + t.Name
		if _, err := parseTableName(name, ""); err != nil {
			continue
		}
		s.AddResource(&mcp.Resource{
			URI:         TableDataURI(name),
			Name:        "Table: " + name,
			Description: "Data in " + t.Type + " " + name,
			MIMEType:    tableDataMIMEType,
		}, handler)
		added++
	}
	return added
}

func tableDataHandler(gw Querier) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		name, ok := tableFromURI(uri)
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		table, err := parseTableName(name, "")
		if err != nil {
			return nil, mcp.ResourceNotFoundError(uri)
		}

		query := fmt.Sprintf("SELECT TOP %d * FROM %s", tablePreviewRows, table.Quoted())
		rs, err := gw.ExecuteQuery(ctx, query)
		if err != nil {
			logger.LogDatabaseOperation("READ_RESOURCE", query, 0, err)
			if gateway.IsKind(err, gateway.QueryError) {
				return nil, mcp.ResourceNotFoundError(uri)
			}
			return nil, err
		}
		logger.LogDatabaseOperation("READ_RESOURCE", query, int64(rs.Len()), nil)

		text, err := renderCSV(rs)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: tableDataMIMEType,
				Text:     text,
			}},
		}, nil
	}
}

func tableFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, resourceScheme)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, resourceSuffix)
}
