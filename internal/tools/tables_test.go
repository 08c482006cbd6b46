package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		schema     string
		want       tableRef
		wantQuoted string
		wantErr    string
	}{
		{name: "bare name defaults to dbo", input: "users", want: tableRef{Schema: "dbo", Name: "users"}, wantQuoted: "[dbo].[users]"},
		{name: "explicit schema argument", input: "orders", schema: "sales", want: tableRef{Schema: "sales", Name: "orders"}, wantQuoted: "[sales].[orders]"},
		{name: "qualified name wins over schema", input: "hr.staff", schema: "sales", want: tableRef{Schema: "hr", Name: "staff"}, wantQuoted: "[hr].[staff]"},
		{name: "surrounding whitespace", input: "  users ", want: tableRef{Schema: "dbo", Name: "users"}, wantQuoted: "[dbo].[users]"},
		{name: "digits and underscores", input: "t_2024_q1", want: tableRef{Schema: "dbo", Name: "t_2024_q1"}, wantQuoted: "[dbo].[t_2024_q1]"},
		{name: "empty", input: "", wantErr: "invalid table name"},
		{name: "injection attempt", input: "users; DROP TABLE users", wantErr: "invalid table name"},
		{name: "bracket breakout", input: "users]--", wantErr: "invalid table name"},
		{name: "three part name", input: "db.dbo.users", wantErr: "invalid table name"},
		{name: "bad schema argument", input: "users", schema: "dbo]", wantErr: "invalid schema name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseTableName(tt.input, tt.schema)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantQuoted, got.Quoted())
		})
	}
}

func TestTableFromURI(t *testing.T) {
	t.Parallel()

	name, ok := tableFromURI("mssql://dbo.users/data")
	require.True(t, ok)
	assert.Equal(t, "dbo.users", name)

	_, ok = tableFromURI("file:///etc/passwd")
	assert.False(t, ok)

	_, ok = tableFromURI("mssql://dbo.users/schema")
	assert.False(t, ok)

	assert.Equal(t, "mssql://sales.orders/data", TableDataURI("sales.orders"))
}
