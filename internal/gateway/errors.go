package gateway

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	mssql "github.com/denisenkom/go-mssqldb"
)

// Kind classifies gateway failures.
type Kind int

const (
	// InvalidInput means the statement was rejected before the database was
	// contacted.
	InvalidInput Kind = iota + 1
	// ConnectionError means the handle could not be established, was lost, or
	// the statement timed out.
	ConnectionError
	// QueryError means the server rejected the statement.
	QueryError
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case ConnectionError:
		return "connection error"
	case QueryError:
		return "query error"
	default:
		return "unknown error"
	}
}

// Error is returned by every gateway operation that fails.
type Error struct {
	Kind Kind
	Msg  string
	// Number is the SQL Server error number for query errors, zero otherwise.
	Number int32
	// Timeout is set when a ConnectionError was caused by the query deadline.
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == QueryError || e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Kind == kind
}

// KindOf returns the kind of a gateway error, or zero for other errors.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}

// ServerMessage returns the message text sent by SQL Server, falling back to
// the error string for errors that did not come from the server.
func ServerMessage(err error) string {
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Message
	}
	return err.Error()
}

func invalidInput(msg string) *Error {
	return &Error{Kind: InvalidInput, Msg: msg}
}

func queryError(err error) *Error {
	gwErr := &Error{Kind: QueryError, Msg: ServerMessage(err), Err: err}
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		gwErr.Number = sqlErr.Number
	}
	return gwErr
}

// isConnectionError reports whether err means the session is unusable, as
// opposed to the server rejecting a statement.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var streamErr mssql.StreamError
	if errors.As(err, &streamErr) {
		return true
	}
	var serverErr mssql.ServerError
	if errors.As(err, &serverErr) {
		return true
	}

	// Severity 20 and above terminates the session on the server side.
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Class >= 20
	}
	return false
}
