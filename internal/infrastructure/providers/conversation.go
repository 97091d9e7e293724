package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/domain/services"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
)

// listQueryParams are forwarded as query parameters when present in the parameter set.
var listQueryParams = []string{models.ParamPageLimit, models.ParamIncludeCount, models.ParamSort}

// ConversationClient implements services.WorkspaceService against the
// conversation v1 REST API for a single set of credentials.
type ConversationClient struct {
	transport *transport
	creds     models.Credentials
}

// NewConversationFactory returns a factory of per-message conversation clients
// sharing one connection pool and rate limiter. rt may be nil.
func NewConversationFactory(cfg config.ServiceConfig, rt http.RoundTripper) services.WorkspaceClientFactory {
	t := newTransport(cfg, rt)
	return func(creds models.Credentials) services.WorkspaceService {
		return &ConversationClient{transport: t, creds: creds}
	}
}

// ListWorkspaces calls GET /v1/workspaces.
func (c *ConversationClient) ListWorkspaces(ctx context.Context, params models.ParameterSet) (any, error) {
	query := url.Values{}
	for _, key := range listQueryParams {
		if v, ok := params[key]; ok && v != nil {
			query.Set(key, fmt.Sprint(v))
		}
	}
	return c.transport.do(ctx, c.creds, request{
		operation: "listWorkspaces",
		method:    http.MethodGet,
		path:      "/v1/workspaces",
		query:     query,
	})
}

// GetWorkspace calls GET /v1/workspaces/{workspace_id}.
func (c *ConversationClient) GetWorkspace(ctx context.Context, params models.ParameterSet) (any, error) {
	id, err := requireParam(params, models.ParamWorkspaceID)
	if err != nil {
		return nil, err
	}
	return c.transport.do(ctx, c.creds, request{
		operation: "getWorkspace",
		method:    http.MethodGet,
		path:      "/v1/workspaces/" + url.PathEscape(id),
		query:     exportQuery(params),
	})
}

// CreateWorkspace calls POST /v1/workspaces with the workspace document.
func (c *ConversationClient) CreateWorkspace(ctx context.Context, params models.ParameterSet) (any, error) {
	body, contentType, err := workspaceBody(params)
	if err != nil {
		return nil, err
	}
	return c.transport.do(ctx, c.creds, request{
		operation:   "createWorkspace",
		method:      http.MethodPost,
		path:        "/v1/workspaces",
		body:        body,
		contentType: contentType,
	})
}

// UpdateWorkspace calls POST /v1/workspaces/{workspace_id} with the workspace document.
func (c *ConversationClient) UpdateWorkspace(ctx context.Context, params models.ParameterSet) (any, error) {
	id, err := requireParam(params, models.ParamWorkspaceID)
	if err != nil {
		return nil, err
	}
	body, contentType, err := workspaceBody(params)
	if err != nil {
		return nil, err
	}
	return c.transport.do(ctx, c.creds, request{
		operation:   "updateWorkspace",
		method:      http.MethodPost,
		path:        "/v1/workspaces/" + url.PathEscape(id),
		body:        body,
		contentType: contentType,
	})
}

// DeleteWorkspace calls DELETE /v1/workspaces/{workspace_id}.
func (c *ConversationClient) DeleteWorkspace(ctx context.Context, params models.ParameterSet) (any, error) {
	id, err := requireParam(params, models.ParamWorkspaceID)
	if err != nil {
		return nil, err
	}
	return c.transport.do(ctx, c.creds, request{
		operation: "deleteWorkspace",
		method:    http.MethodDelete,
		path:      "/v1/workspaces/" + url.PathEscape(id),
	})
}

// ListIntents calls GET /v1/workspaces/{workspace_id}/intents.
func (c *ConversationClient) ListIntents(ctx context.Context, params models.ParameterSet) (any, error) {
	id, err := requireParam(params, models.ParamWorkspaceID)
	if err != nil {
		return nil, err
	}
	return c.transport.do(ctx, c.creds, request{
		operation: "listIntents",
		method:    http.MethodGet,
		path:      "/v1/workspaces/" + url.PathEscape(id) + "/intents",
		query:     exportQuery(params),
	})
}

// GetIntent calls GET /v1/workspaces/{workspace_id}/intents/{intent}.
func (c *ConversationClient) GetIntent(ctx context.Context, params models.ParameterSet) (any, error) {
	id, err := requireParam(params, models.ParamWorkspaceID)
	if err != nil {
		return nil, err
	}
	intent, err := requireParam(params, models.ParamIntent)
	if err != nil {
		return nil, err
	}
	return c.transport.do(ctx, c.creds, request{
		operation: "getIntent",
		method:    http.MethodGet,
		path:      "/v1/workspaces/" + url.PathEscape(id) + "/intents/" + url.PathEscape(intent),
		query:     exportQuery(params),
	})
}

func requireParam(params models.ParameterSet, key string) (string, error) {
	v, ok := params.String(key)
	if !ok {
		return "", &models.MissingParameterError{Field: key}
	}
	return v, nil
}

func exportQuery(params models.ParameterSet) url.Values {
	query := url.Values{}
	if params.Bool(models.ParamExport) {
		query.Set("export", "true")
	}
	return query
}

// workspaceBody streams a raw document when one was staged, otherwise it encodes
// the parameter set minus the identifiers that belong in the path. It also
// returns the content type of the body.
func workspaceBody(params models.ParameterSet) (io.Reader, string, error) {
	if doc, ok := params[models.ParamDocument].(io.Reader); ok {
		return doc, "application/octet-stream", nil
	}
	body := params.Clone()
	delete(body, models.ParamWorkspaceID)
	delete(body, models.ParamExport)
	r, err := jsonBody(body)
	return r, "application/json", err
}
