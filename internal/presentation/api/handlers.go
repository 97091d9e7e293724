package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
	"github.com/mshogin/flownodes/internal/infrastructure/logging"
	"github.com/mshogin/flownodes/internal/infrastructure/metrics"
	"github.com/mshogin/flownodes/internal/infrastructure/status"
)

// maxMessageBytes bounds an inbound message body.
const maxMessageBytes = 32 << 20

// Node is a deployed flow node.
type Node interface {
	ID() string
	Type() string
	Config() config.NodeConfig
	Configure(cfg config.NodeConfig) error
	BoundService() bool
	Handle(ctx context.Context, msg *models.Message) (*models.Message, error)
}

// Handler handles HTTP requests for deployed nodes.
type Handler struct {
	nodes    map[string]Node
	board    *status.Board
	exporter *metrics.PrometheusExporter
	env      *config.Environment
	logger   *logging.StructuredLogger
}

// NewHandler creates a new Handler instance.
func NewHandler(
	nodes []Node,
	board *status.Board,
	exporter *metrics.PrometheusExporter,
	env *config.Environment,
	logger *logging.StructuredLogger,
) *Handler {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Handler{
		nodes:    byID,
		board:    board,
		exporter: exporter,
		env:      env,
		logger:   logger,
	}
}

// nodeView is the public description of a node; credentials are never exposed.
type nodeView struct {
	config.NodeConfig
	BoundService bool `json:"bound_service"`
}

// SendMessage handles POST /nodes/{id}/messages.
//
// A JSON body is the whole message envelope. A text/* body becomes a string
// payload, anything else a binary payload.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	node, ok := h.node(w, r)
	if !ok {
		return
	}

	msg, err := decodeMessage(r)
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := node.Handle(r.Context(), msg)
	if err != nil {
		h.sendErrorResponse(w, statusCodeFor(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, out)
}

// ListNodes handles GET /nodes.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	views := make([]nodeView, 0, len(ids))
	for _, id := range ids {
		n := h.nodes[id]
		views = append(views, nodeView{NodeConfig: n.Config(), BoundService: n.BoundService()})
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{"nodes": views})
}

// GetNode handles GET /nodes/{id}.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, ok := h.node(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, http.StatusOK, nodeView{NodeConfig: node.Config(), BoundService: node.BoundService()})
}

// configureRequest is the body of PUT /nodes/{id}. Credentials are only
// replaced when present.
type configureRequest struct {
	config.NodeConfig
	Credentials *models.Credentials `json:"credentials,omitempty"`
	Password    *string             `json:"password,omitempty"`
}

// ConfigureNode handles PUT /nodes/{id}.
func (h *Handler) ConfigureNode(w http.ResponseWriter, r *http.Request) {
	node, ok := h.node(w, r)
	if !ok {
		return
	}

	var req configureRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	current := node.Config()
	next := req.NodeConfig
	next.ID = node.ID()
	next.Credentials = current.Credentials
	next.Password = current.Password
	if req.Credentials != nil {
		next.Credentials = *req.Credentials
	}
	if req.Password != nil {
		next.Password = *req.Password
	}

	if err := node.Configure(next); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("node reconfigured", map[string]interface{}{"node_id": node.ID(), "mode": next.Mode})
	h.sendJSON(w, http.StatusOK, nodeView{NodeConfig: node.Config(), BoundService: node.BoundService()})
}

// NodeStatus handles GET /nodes/{id}/status.
func (h *Handler) NodeStatus(w http.ResponseWriter, r *http.Request) {
	node, ok := h.node(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, http.StatusOK, h.board.Get(node.ID()))
}

// BoundService returns a handler reporting whether the service identified by
// identifier is bound in the environment: {"bound_service": true} or null.
func (h *Handler) BoundService(identifier string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.env.BoundCredentials(identifier); ok {
			h.sendJSON(w, http.StatusOK, map[string]bool{"bound_service": true})
			return
		}
		h.sendJSON(w, http.StatusOK, nil)
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Metrics handles GET /metrics.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	io.WriteString(w, h.exporter.Export())
}

func (h *Handler) node(w http.ResponseWriter, r *http.Request) (Node, bool) {
	id := chi.URLParam(r, "id")
	node, ok := h.nodes[id]
	if !ok {
		h.sendErrorResponse(w, http.StatusNotFound, "node not found: "+id)
		return nil, false
	}
	return node, true
}

func decodeMessage(r *http.Request) (*models.Message, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json":
		var msg models.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	case strings.HasPrefix(mediaType, "text/"):
		return models.NewMessage(string(body)), nil
	default:
		return models.NewMessage(body), nil
	}
}

// statusCodeFor maps pipeline failures onto HTTP status codes.
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, models.ErrRemoteService):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrPayloadWrite):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrMissingCredentials),
		errors.Is(err, models.ErrMissingOperation),
		errors.Is(err, models.ErrUnknownOperation),
		errors.Is(err, models.ErrMissingParameter),
		errors.Is(err, models.ErrInvalidPayloadType),
		errors.Is(err, models.ErrMissingPayload),
		errors.Is(err, models.ErrNoFeatures):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// sendErrorResponse sends an error response.
func (h *Handler) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
