package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AbdelilahOu/MssqlMcp/internal/metrics"
)

// Opener creates a verified database handle. client.Opener is the production
// implementation.
type Opener func(ctx context.Context) (*sql.DB, error)

type Config struct {
	Logger       *slog.Logger
	Open         Opener
	QueryTimeout time.Duration
	// Target names the database in connection error messages.
	Target string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Open == nil {
		return fmt.Errorf("opener is required")
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	return nil
}

// Gateway owns the single database session and runs read-only statements
// over it, one at a time.
type Gateway struct {
	log *slog.Logger
	cfg Config

	mu     sync.Mutex
	db     *sql.DB
	conn   *sql.Conn
	opens  int
	closed bool
}

func New(cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate gateway config: %w", err)
	}
	if cfg.Target == "" {
		cfg.Target = "database"
	}
	return &Gateway{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// ExecuteQuery validates statement, runs it and returns every row. args are
// passed to the driver as @p1, @p2, ... parameters.
func (g *Gateway) ExecuteQuery(ctx context.Context, statement string, args ...any) (*ResultSet, error) {
	start := time.Now()
	rs, err := g.executeQuery(ctx, statement, args)
	g.observe(start, err)
	return rs, err
}

func (g *Gateway) executeQuery(ctx context.Context, statement string, args []any) (*ResultSet, error) {
	if err := CheckReadOnly(statement); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, &Error{Kind: ConnectionError, Msg: "gateway is closed"}
	}

	reconnected, err := g.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	rs, err := g.query(ctx, statement, args)
	if err == nil {
		return rs, nil
	}

	var gwErr *Error
	if reconnected || ctx.Err() != nil || !errors.As(err, &gwErr) ||
		gwErr.Kind != ConnectionError || gwErr.Timeout {
		return nil, err
	}

	g.log.Warn("gateway: connection lost during query, reconnecting", "error", gwErr.Err)
	if err := g.connect(ctx); err != nil {
		return nil, err
	}
	return g.query(ctx, statement, args)
}

// Connect opens the handle if none is held.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return &Error{Kind: ConnectionError, Msg: "gateway is closed"}
	}
	if g.conn != nil {
		return nil
	}
	return g.connect(ctx)
}

// Ping checks the handle, reconnecting once if it is missing or dead.
func (g *Gateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return &Error{Kind: ConnectionError, Msg: "gateway is closed"}
	}
	_, err := g.ensureConn(ctx)
	return err
}

// Close releases the handle. Further calls fail with ConnectionError.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	g.discard()
	g.log.Info("gateway: closed")
	return nil
}

// ensureConn makes sure a live handle is held. reconnected reports whether
// this call already spent its one connection attempt.
func (g *Gateway) ensureConn(ctx context.Context) (reconnected bool, err error) {
	if g.conn == nil {
		return true, g.connect(ctx)
	}

	pingCtx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()

	if err := g.conn.PingContext(pingCtx); err != nil {
		g.log.Warn("gateway: liveness check failed, reconnecting", "error", err)
		return true, g.connect(ctx)
	}
	return false, nil
}

// connect replaces any held handle with a fresh one.
func (g *Gateway) connect(ctx context.Context) error {
	g.discard()

	db, err := g.cfg.Open(ctx)
	if err != nil {
		g.log.Error("gateway: connect failed", "target", g.cfg.Target, "error", err)
		return &Error{Kind: ConnectionError, Msg: "cannot connect to " + g.cfg.Target, Err: err}
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		g.log.Error("gateway: acquire session failed", "target", g.cfg.Target, "error", err)
		return &Error{Kind: ConnectionError, Msg: "cannot connect to " + g.cfg.Target, Err: err}
	}

	g.db, g.conn = db, conn
	if g.opens > 0 {
		metrics.ReconnectsTotal.Inc()
		g.log.Info("gateway: reconnected", "target", g.cfg.Target)
	} else {
		g.log.Info("gateway: connected", "target", g.cfg.Target)
	}
	g.opens++
	return nil
}

func (g *Gateway) discard() {
	if g.conn != nil {
		if err := g.conn.Close(); err != nil {
			g.log.Debug("gateway: close session", "error", err)
		}
		g.conn = nil
	}
	if g.db != nil {
		if err := g.db.Close(); err != nil {
			g.log.Debug("gateway: close handle", "error", err)
		}
		g.db = nil
	}
}

// query runs one statement under the query timeout and classifies failures.
// Connection failures drop the handle.
func (g *Gateway) query(ctx context.Context, statement string, args []any) (*ResultSet, error) {
	qctx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()

	rs, err := g.scan(qctx, statement, args)
	if err == nil {
		g.log.Debug("gateway: query completed", "rows", rs.Len(), "columns", len(rs.Columns))
		return rs, nil
	}

	// Drivers report cancellation inconsistently, so trust the context.
	if qctx.Err() != nil {
		g.discard()
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, &Error{Kind: ConnectionError, Msg: "query cancelled", Err: ctx.Err()}
		}
		return nil, &Error{
			Kind:    ConnectionError,
			Msg:     fmt.Sprintf("query timed out after %s", g.cfg.QueryTimeout),
			Timeout: true,
			Err:     context.DeadlineExceeded,
		}
	}

	if isConnectionError(err) {
		g.discard()
		return nil, &Error{Kind: ConnectionError, Msg: "connection lost", Err: err}
	}
	return nil, queryError(err)
}

func (g *Gateway) scan(ctx context.Context, statement string, args []any) (*ResultSet, error) {
	rows, err := g.conn.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = Column{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}
	rs := NewResultSet(columns)

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make([]any, len(columns))
		for i, v := range values {
			row[i] = convertValue(columns[i].Type, v)
		}
		rs.Rows = append(rs.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (g *Gateway) observe(start time.Time, err error) {
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	outcome := metrics.OutcomeOK
	var gwErr *Error
	if errors.As(err, &gwErr) {
		switch {
		case gwErr.Timeout:
			outcome = metrics.OutcomeTimeout
		case gwErr.Kind == InvalidInput:
			outcome = metrics.OutcomeInvalidInput
		case gwErr.Kind == QueryError:
			outcome = metrics.OutcomeQueryError
		default:
			outcome = metrics.OutcomeConnectionError
		}
	}
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
}
