package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes used as the "outcome" label.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeQueryError      = "query_error"
	OutcomeConnectionError = "connection_error"
	OutcomeTimeout         = "timeout"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mssql_mcp_build_info",
			Help: "Build information of the MSSQL MCP server",
		},
		[]string{"version", "commit", "date"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mssql_mcp_queries_total",
			Help: "Statements handled by the query gateway, by outcome",
		},
		[]string{"outcome"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mssql_mcp_query_duration_seconds",
			Help:    "Time spent executing statements, including reconnects",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mssql_mcp_reconnects_total",
			Help: "Times the database handle was rebuilt after being lost",
		},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mssql_mcp_tool_calls_total",
			Help: "MCP tool invocations, by tool and status",
		},
		[]string{"tool", "status"},
	)
)
