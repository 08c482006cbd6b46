package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
)

func sampleResult() *gateway.ResultSet {
	rs := gateway.NewResultSet([]gateway.Column{
		{Name: "id", Type: "INT"},
		{Name: "name", Type: "NVARCHAR"},
	})
	rs.Rows = append(rs.Rows,
		[]any{int64(1), "alice"},
		[]any{int64(2), nil},
		[]any{int64(3), "smith, john"},
	)
	return rs
}

func TestNormalizeFormat(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]string{
		"":        FormatCSV,
		"csv":     FormatCSV,
		" TABLE ": FormatTable,
		"Json":    FormatJSON,
	} {
		got, err := normalizeFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := normalizeFormat("xml")
	require.ErrorContains(t, err, `unsupported format "xml"`)
}

func TestRenderCSV(t *testing.T) {
	t.Parallel()

	text, err := renderCSV(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,alice\n2,\n3,\"smith, john\"", text)
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	text, err := renderResult(sampleResult(), FormatTable)
	require.NoError(t, err)
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "NULL")
	assert.Contains(t, text, "(3 rows)")
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	text, err := renderResult(sampleResult(), FormatJSON)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "alice"}, rows[0])
	assert.Nil(t, rows[1]["name"])
}

func TestRenderResult_NoResultSet(t *testing.T) {
	t.Parallel()

	text, err := renderResult(gateway.NewResultSet(nil), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Statement completed without a result set.", text)
}
