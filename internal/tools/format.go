package tools

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
)

const (
	FormatCSV   = "csv"
	FormatTable = "table"
	FormatJSON  = "json"
)

var outputFormats = []string{FormatCSV, FormatTable, FormatJSON}

func normalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		return FormatCSV, nil
	}
	for _, known := range outputFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q: use one of %s", format, strings.Join(outputFormats, ", "))
}

// renderResult renders rs as text in the given format.
func renderResult(rs *gateway.ResultSet, format string) (string, error) {
	if len(rs.Columns) == 0 {
		return "Statement completed without a result set.", nil
	}

	switch format {
	case FormatTable:
		return renderTable(rs), nil
	case FormatJSON:
		return renderJSON(rs)
	default:
		return renderCSV(rs)
	}
}

// renderCSV writes a header line followed by one line per row. NULL is an
// empty field.
func renderCSV(rs *gateway.ResultSet) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(rs.ColumnNames()); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, v := range row {
			record[i] = gateway.FormatValue(v)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}

func renderTable(rs *gateway.ResultSet) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(rs.ColumnNames())
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = gateway.FormatValue(v)
		}
		table.Append(cells)
	}
	table.Render()

	return fmt.Sprintf("%s(%d rows)", buf.String(), rs.Len())
}

func renderJSON(rs *gateway.ResultSet) (string, error) {
	b, err := json.MarshalIndent(rs.Maps(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON marshal error: %w", err)
	}
	return string(b), nil
}
