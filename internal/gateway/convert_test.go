package gateway

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/assert"
)

func TestConvertValue(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		dbType string
		in     any
		want   any
	}{
		{name: "null", dbType: "INT", in: nil, want: nil},
		{name: "bigint", dbType: "BIGINT", in: int64(42), want: int64(42)},
		{name: "int32", dbType: "INT", in: int32(-7), want: int64(-7)},
		{name: "smallint", dbType: "SMALLINT", in: int16(3), want: int64(3)},
		{name: "tinyint", dbType: "TINYINT", in: uint8(255), want: int64(255)},
		{name: "real", dbType: "REAL", in: float32(1.5), want: float64(1.5)},
		{name: "float", dbType: "FLOAT", in: 2.25, want: 2.25},
		{name: "bit", dbType: "BIT", in: true, want: true},
		{name: "nvarchar", dbType: "NVARCHAR", in: "héllo", want: "héllo"},
		{name: "datetime2", dbType: "DATETIME2", in: ts, want: ts},
		{name: "decimal", dbType: "DECIMAL", in: []byte("1234.5600"), want: "1234.5600"},
		{name: "money", dbType: "MONEY", in: []byte("19.9900"), want: "19.9900"},
		{name: "varchar bytes", dbType: "VARCHAR", in: []byte("abc"), want: "abc"},
		{name: "binary", dbType: "BINARY", in: []byte{0x00, 0x0f, 0xa0}, want: "0x000FA0"},
		{name: "lower case type", dbType: "varbinary", in: []byte{0xff}, want: "0xFF"},
		{
			name:   "uniqueidentifier",
			dbType: "UNIQUEIDENTIFIER",
			in:     []byte{0x67, 0x45, 0x23, 0x01, 0xab, 0x89, 0xef, 0xcd, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
			want:   "01234567-89ab-cdef-0123-456789abcdef",
		},
		{name: "short uniqueidentifier", dbType: "UNIQUEIDENTIFIER", in: []byte{0x01}, want: "0x01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, convertValue(tt.dbType, tt.in))
		})
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "12", FormatValue(int64(12)))
	assert.Equal(t, "0.5", FormatValue(0.5))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "text", FormatValue("text"))
	assert.Equal(t, "2024-03-01T12:30:00Z", FormatValue(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)))
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: driver.ErrBadConn, want: true},
		{name: "conn done", err: sql.ErrConnDone, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "wrapped unexpected eof", err: fmt.Errorf("read: %w", io.ErrUnexpectedEOF), want: true},
		{name: "net error", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, want: true},
		{name: "stream error", err: mssql.StreamError{InnerError: errors.New("bad token")}, want: true},
		{name: "fatal server error", err: mssql.Error{Number: 596, Class: 21, Message: "session killed"}, want: true},
		{name: "syntax error", err: mssql.Error{Number: 102, Class: 15, Message: "Incorrect syntax near 'FROM'."}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isConnectionError(tt.err))
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	qErr := queryError(mssql.Error{Number: 208, Class: 16, Message: "Invalid object name 'x'."})
	assert.Equal(t, "query error: Invalid object name 'x'.", qErr.Error())
	assert.Equal(t, QueryError, KindOf(qErr))

	cErr := &Error{Kind: ConnectionError, Msg: "cannot connect to db:1433/app", Err: errors.New("refused")}
	assert.Equal(t, "connection error: cannot connect to db:1433/app: refused", cErr.Error())
	assert.True(t, IsKind(fmt.Errorf("tool: %w", cErr), ConnectionError))
	assert.False(t, IsKind(errors.New("other"), ConnectionError))
	assert.Equal(t, Kind(0), KindOf(errors.New("other")))

	assert.Equal(t, "plain", ServerMessage(errors.New("plain")))
}

func TestResultSetLookup(t *testing.T) {
	t.Parallel()

	rs := NewResultSet([]Column{{Name: "id", Type: "INT"}, {Name: "Name", Type: "NVARCHAR"}, {Name: "id", Type: "INT"}})
	rs.Rows = append(rs.Rows, []any{int64(1), "a", int64(9)})

	i, ok := rs.Index("id")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = rs.Index("name")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = rs.Index("missing")
	assert.False(t, ok)

	_, ok = rs.Value(5, "id")
	assert.False(t, ok)

	assert.Equal(t, "a", rs.String(0, "NAME"))
	assert.Equal(t, []map[string]any{{"id": int64(1), "Name": "a"}}, rs.Maps())
}
