package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelilahOu/MssqlMcp/internal/gateway"
)

type fakeGateway struct {
	pingErr error
}

func (f *fakeGateway) ExecuteQuery(ctx context.Context, statement string, args ...any) (*gateway.ResultSet, error) {
	return nil, &gateway.Error{Kind: gateway.ConnectionError, Msg: "cannot connect to test"}
}

func (f *fakeGateway) ExplainQuery(ctx context.Context, statement string) (string, error) {
	return "", &gateway.Error{Kind: gateway.ConnectionError, Msg: "cannot connect to test"}
}

func (f *fakeGateway) Ping(ctx context.Context) error {
	return f.pingErr
}

func testConfig(gw *fakeGateway) MCPServerConfig {
	return MCPServerConfig{
		Logger:      slog.New(slog.DiscardHandler),
		Version:     "test",
		Gateway:     gw,
		CommandName: "run_query",
		Target:      "db.internal:1433/sales",
	}
}

func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestNewMCPServer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewMCPServer(context.Background(), MCPServerConfig{Gateway: &fakeGateway{}})
	require.ErrorContains(t, err, "logger is required")

	_, err = NewMCPServer(context.Background(), MCPServerConfig{Logger: slog.New(slog.DiscardHandler)})
	require.ErrorContains(t, err, "gateway is required")
}

func TestNewMCPServer_RegistersToolsAndTemplate(t *testing.T) {
	t.Parallel()

	server, err := NewMCPServer(context.Background(), testConfig(&fakeGateway{}))
	require.NoError(t, err)
	cs := connect(t, server)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
		assert.NotNil(t, tool.OutputSchema, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"run_query",
		"list_tables",
		"describe_table",
		"get_db_info",
		"analyze_table",
		"explain_query",
		"test_connection",
	}, names)

	templates, err := cs.ListResourceTemplates(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, "mssql://{table}/data", templates.ResourceTemplates[0].URITemplate)
}

func TestNewMCPServer_TableResourcesBestEffort(t *testing.T) {
	t.Parallel()

	cfg := testConfig(&fakeGateway{})
	cfg.ListTableResources = true

	// listing fails against the fake gateway; the server still starts
	server, err := NewMCPServer(context.Background(), cfg)
	require.NoError(t, err)
	cs := connect(t, server)

	res, err := cs.ListResources(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Resources)
}

func newHTTPServer(t *testing.T, gw *fakeGateway) *HTTPServer {
	t.Helper()
	s, err := NewHTTPServer(context.Background(), HTTPServerConfig{
		MCPServerConfig: testConfig(gw),
		ListenAddr:      "127.0.0.1:0",
	})
	require.NoError(t, err)
	return s
}

func TestHTTPServer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPServer(context.Background(), HTTPServerConfig{MCPServerConfig: testConfig(&fakeGateway{})})
	require.ErrorContains(t, err, "listen address is required")
}

func TestHTTPServer_Healthz(t *testing.T) {
	t.Parallel()

	s := newHTTPServer(t, &fakeGateway{pingErr: errors.New("down")})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok\n", rr.Body.String())
}

func TestHTTPServer_ReadyzHandler(t *testing.T) {
	t.Parallel()

	t.Run("database reachable", func(t *testing.T) {
		t.Parallel()

		s := newHTTPServer(t, &fakeGateway{})
		rr := httptest.NewRecorder()
		s.readyzHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "ok\n", rr.Body.String())
	})

	t.Run("database unreachable", func(t *testing.T) {
		t.Parallel()

		s := newHTTPServer(t, &fakeGateway{pingErr: &gateway.Error{Kind: gateway.ConnectionError, Msg: "cannot connect"}})
		rr := httptest.NewRecorder()
		s.readyzHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		require.Equal(t, "database not ready\n", rr.Body.String())
	})
}

func TestHTTPServer_Metrics(t *testing.T) {
	t.Parallel()

	s := newHTTPServer(t, &fakeGateway{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mssql_mcp_reconnects_total")
}

func TestHTTPServer_StreamableMCP(t *testing.T) {
	t.Parallel()

	s := newHTTPServer(t, &fakeGateway{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{
		Endpoint:   ts.URL + "/mcp",
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "test_connection",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "db.internal:1433/sales", out["connection"])
}
