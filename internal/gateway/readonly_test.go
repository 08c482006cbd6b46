package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadingKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "plain select", in: "SELECT 1", want: "SELECT", wantOK: true},
		{name: "lower case", in: "select 1", want: "SELECT", wantOK: true},
		{name: "leading whitespace", in: "\n\t  with x as (select 1) select * from x", want: "WITH", wantOK: true},
		{name: "line comment", in: "-- list users\nSELECT * FROM users", want: "SELECT", wantOK: true},
		{name: "block comment", in: "/* a */ /* b */SELECT 1", want: "SELECT", wantOK: true},
		{name: "mixed comments", in: "/* a\n */\n-- b\n  exec sp_help", want: "EXEC", wantOK: true},
		{name: "separators", in: ";;  ; SELECT 1", want: "SELECT", wantOK: true},
		{name: "keyword glued to paren", in: "SELECT(1)", want: "SELECT", wantOK: true},
		{name: "paren first", in: "(SELECT 1)", want: "", wantOK: true},
		{name: "empty", in: "", wantOK: false},
		{name: "whitespace", in: "   \n", wantOK: false},
		{name: "only line comment", in: "-- nothing here", wantOK: false},
		{name: "unterminated block comment", in: "/* SELECT 1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := leadingKeyword(tt.in)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckReadOnly(t *testing.T) {
	t.Parallel()

	allowed := []string{
		"SELECT * FROM sys.tables",
		"WITH cte AS (SELECT 1 AS n) SELECT n FROM cte",
		"SELECT TOP 100 * FROM [dbo].[orders]",
		"-- DELETE FROM t\nSELECT 1",
		"/* DROP TABLE t */ SELECT 1",
		"DECLARE @n int = 1; SELECT @n",
		"SELECT 'DELETE' AS word",
		"SET NOCOUNT ON; SELECT 1",
		"(SELECT 1)",
		"INSERTED_ROWS_VIEW",
	}
	for _, stmt := range allowed {
		assert.NoError(t, CheckReadOnly(stmt), stmt)
	}

	denied := []string{
		"INSERT INTO t VALUES (1)",
		"Update t SET a = 1",
		"DELETE t",
		"drop table t",
		"ALTER DATABASE x SET OFFLINE",
		"create view v as select 1",
		"TRUNCATE TABLE t",
		"exec xp_cmdshell 'dir'",
		"EXECUTE('select 1')",
		"MERGE t USING s ON 1 = 1 WHEN MATCHED THEN DELETE;",
		"; DELETE FROM t",
	}
	for _, stmt := range denied {
		err := CheckReadOnly(stmt)
		require.Error(t, err, stmt)
		assert.True(t, IsKind(err, InvalidInput), stmt)
		assert.Contains(t, err.Error(), "read-only")
	}
}
