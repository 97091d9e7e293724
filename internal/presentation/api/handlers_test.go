package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
	"github.com/mshogin/flownodes/internal/infrastructure/logging"
	"github.com/mshogin/flownodes/internal/infrastructure/metrics"
	"github.com/mshogin/flownodes/internal/infrastructure/status"
)

type fakeNode struct {
	cfg      config.NodeConfig
	bound    bool
	err      error
	received *models.Message
}

func (n *fakeNode) ID() string                { return n.cfg.ID }
func (n *fakeNode) Type() string              { return n.cfg.Type }
func (n *fakeNode) Config() config.NodeConfig { return n.cfg }
func (n *fakeNode) BoundService() bool        { return n.bound }

func (n *fakeNode) Configure(cfg config.NodeConfig) error {
	if cfg.Type != "" && cfg.Type != n.cfg.Type {
		return errors.New("node type cannot change")
	}
	cfg.Type = n.cfg.Type
	n.cfg = cfg
	return nil
}

func (n *fakeNode) Handle(_ context.Context, msg *models.Message) (*models.Message, error) {
	n.received = msg
	if n.err != nil {
		return nil, n.err
	}
	msg.Set(models.FieldWorkspaces, []any{"ws"})
	return msg, nil
}

type fixture struct {
	node    *fakeNode
	board   *status.Board
	handler http.Handler
}

func newFixture(t *testing.T, env *config.Environment) *fixture {
	t.Helper()
	node := &fakeNode{cfg: config.NodeConfig{
		ID:          "wm1",
		Type:        config.NodeTypeWorkspaceManager,
		Mode:        "listWorkspaces",
		Credentials: models.Credentials{Username: "u", Password: "p"},
	}}
	board := status.NewBoard()
	exporter := metrics.NewPrometheusExporter("flownodes")
	exporter.RegisterCollector(metrics.NewCollector())
	logger := logging.NewStructuredLogger(&bytes.Buffer{}, logging.ErrorLevel)

	h := NewHandler([]Node{node}, board, exporter, env, logger)
	return &fixture{node: node, board: board, handler: NewRouter(h)}
}

func (f *fixture) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestSendMessage_JSONEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodPost, "/nodes/wm1/messages", "application/json",
		`{"_msgid":"m1","payload":{"workspace_id":"w1"},"topic":"t"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, f.node.received)
	assert.Equal(t, "m1", f.node.received.ID)
	assert.Equal(t, map[string]any{"workspace_id": "w1"}, f.node.received.Payload)

	out := decodeBody(t, rr)
	assert.Equal(t, "m1", out["_msgid"])
	assert.Equal(t, "t", out["topic"])
	assert.Equal(t, []any{"ws"}, out[models.FieldWorkspaces])
}

func TestSendMessage_TextAndBinaryPayloads(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodPost, "/nodes/wm1/messages", "text/plain; charset=utf-8", "hello")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", f.node.received.Payload)

	rr = f.do(http.MethodPost, "/nodes/wm1/messages", "application/octet-stream", "\x00\x01")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []byte("\x00\x01"), f.node.received.Payload)
}

func TestSendMessage_InvalidJSON(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodPost, "/nodes/wm1/messages", "application/json", "{")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, f.node.received)
}

func TestSendMessage_UnknownNode(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodPost, "/nodes/nope/messages", "text/plain", "x")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "nope")
}

func TestSendMessage_ErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing credentials", models.ErrMissingCredentials, http.StatusUnprocessableEntity},
		{"missing parameter", &models.MissingParameterError{Field: models.ParamWorkspaceID}, http.StatusUnprocessableEntity},
		{"unknown operation", &models.UnknownOperationError{Name: "x"}, http.StatusUnprocessableEntity},
		{"invalid payload", &models.InvalidPayloadTypeError{Got: "number"}, http.StatusUnprocessableEntity},
		{"payload write", &models.PayloadWriteError{Path: "/tmp/x", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"remote", &models.RemoteServiceError{Operation: "listWorkspaces", StatusCode: 401}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.node.err = tt.err

			rr := f.do(http.MethodPost, "/nodes/wm1/messages", "text/plain", "x")

			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, tt.err.Error(), decodeBody(t, rr)["error"])
		})
	}
}

func TestListNodes_HidesCredentials(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodGet, "/nodes", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `"p"`)
	nodes := decodeBody(t, rr)["nodes"].([]any)
	require.Len(t, nodes, 1)
	node := nodes[0].(map[string]any)
	assert.Equal(t, "wm1", node["id"])
	assert.Equal(t, "listWorkspaces", node["mode"])
	assert.Equal(t, false, node["bound_service"])
}

func TestConfigureNode(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodPut, "/nodes/wm1", "application/json", `{"mode":"getIntent","intent":"hello"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "getIntent", f.node.cfg.Mode)
	assert.Equal(t, "hello", f.node.cfg.Intent)
	assert.Equal(t, "wm1", f.node.cfg.ID)
	// credentials survive a redeploy that omits them
	assert.Equal(t, models.Credentials{Username: "u", Password: "p"}, f.node.cfg.Credentials)

	rr = f.do(http.MethodPut, "/nodes/wm1", "application/json", `{"credentials":{"username":"a","password":"b"},"password":"legacy"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.Credentials{Username: "a", Password: "b"}, f.node.cfg.Credentials)
	assert.Equal(t, "legacy", f.node.cfg.Password)
}

func TestConfigureNode_Rejected(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodPut, "/nodes/wm1", "application/json", `{"type":"natural-language-understanding"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPut, "/nodes/wm1", "application/json", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNodeStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.board.SetStatus("wm1", models.StatusError("missing workspace_id"))

	rr := f.do(http.MethodGet, "/nodes/wm1/status", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeBody(t, rr)["status"].(map[string]any)
	assert.Equal(t, "red", st["fill"])
	assert.Equal(t, "missing workspace_id", st["text"])
}

func TestBoundServiceEndpoints(t *testing.T) {
	env := &config.Environment{VCAPServices: config.VCAPServices{
		"conversation": {{Name: "my-conversation", Label: "conversation"}},
	}}
	f := newFixture(t, env)

	rr := f.do(http.MethodGet, "/watson-conversation-v1-workspace-manager/vcap", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"bound_service":true}`, rr.Body.String())

	rr = f.do(http.MethodGet, "/natural-language-understanding/vcap", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `null`, rr.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])

	rr = f.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "flownodes_uptime_seconds")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(http.MethodOptions, "/nodes/wm1/messages", "", "")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
