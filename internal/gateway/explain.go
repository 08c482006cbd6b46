package gateway

import (
	"context"
	"strings"
	"time"
)

const (
	showplanOn  = "SET SHOWPLAN_XML ON"
	showplanOff = "SET SHOWPLAN_XML OFF"
)

// ExplainQuery returns the estimated execution plan of statement as showplan
// XML. The statement is compiled but not executed. It is subject to the same
// read-only check as ExecuteQuery.
func (g *Gateway) ExplainQuery(ctx context.Context, statement string) (string, error) {
	start := time.Now()
	plan, err := g.explainQuery(ctx, statement)
	g.observe(start, err)
	return plan, err
}

func (g *Gateway) explainQuery(ctx context.Context, statement string) (string, error) {
	if err := CheckReadOnly(statement); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return "", &Error{Kind: ConnectionError, Msg: "gateway is closed"}
	}
	if _, err := g.ensureConn(ctx); err != nil {
		return "", err
	}

	if err := g.exec(ctx, showplanOn); err != nil {
		return "", err
	}
	rs, err := g.query(ctx, statement, nil)
	// SHOWPLAN stays on for the session until turned off; a session left in
	// that state is dropped.
	if g.conn != nil {
		if offErr := g.exec(ctx, showplanOff); offErr != nil {
			g.log.Warn("gateway: cannot leave showplan mode, dropping session", "error", offErr)
			g.discard()
		}
	}
	if err != nil {
		return "", err
	}

	var plan strings.Builder
	for i := range rs.Rows {
		if len(rs.Rows[i]) == 0 {
			continue
		}
		if plan.Len() > 0 {
			plan.WriteByte('\n')
		}
		plan.WriteString(FormatValue(rs.Rows[i][0]))
	}
	return plan.String(), nil
}

// exec runs a statement that returns no rows under the query timeout.
func (g *Gateway) exec(ctx context.Context, statement string) error {
	qctx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()

	if _, err := g.conn.ExecContext(qctx, statement); err != nil {
		if isConnectionError(err) || qctx.Err() != nil {
			g.discard()
			return &Error{Kind: ConnectionError, Msg: "connection lost", Err: err}
		}
		return queryError(err)
	}
	return nil
}
