package services

import (
	"context"
	"errors"

	"github.com/mshogin/flownodes/internal/domain/models"
	domainServices "github.com/mshogin/flownodes/internal/domain/services"
)

// remoteCall is a method expression on WorkspaceService.
type remoteCall func(domainServices.WorkspaceService, context.Context, models.ParameterSet) (any, error)

// route maps an operation to its remote call and the message field receiving the result.
type route struct {
	call  remoteCall
	field string
	// unwrap names a key whose value replaces the response when present.
	unwrap string
}

var routes = map[models.Operation]route{
	models.OperationListWorkspaces:  {domainServices.WorkspaceService.ListWorkspaces, models.FieldWorkspaces, "workspaces"},
	models.OperationGetWorkspace:    {domainServices.WorkspaceService.GetWorkspace, models.FieldWorkspace, ""},
	models.OperationCreateWorkspace: {domainServices.WorkspaceService.CreateWorkspace, models.FieldWorkspace, ""},
	models.OperationUpdateWorkspace: {domainServices.WorkspaceService.UpdateWorkspace, models.FieldWorkspace, ""},
	models.OperationDeleteWorkspace: {domainServices.WorkspaceService.DeleteWorkspace, models.FieldWorkspace, ""},
	models.OperationListIntents:     {domainServices.WorkspaceService.ListIntents, models.FieldIntents, "intents"},
	// The full response is kept: with export=true the examples sit next to the intent.
	models.OperationGetIntent: {domainServices.WorkspaceService.GetIntent, models.FieldIntent, ""},
}

// Result is the normalized outcome of a dispatched operation.
type Result struct {
	Field string
	Value any
}

// Apply writes the result onto the message.
func (r Result) Apply(msg *models.Message) {
	msg.Set(r.Field, r.Value)
}

// Dispatcher executes one operation against a freshly built client.
type Dispatcher struct {
	newClient domainServices.WorkspaceClientFactory
}

// NewDispatcher creates a dispatcher building clients with factory.
func NewDispatcher(factory domainServices.WorkspaceClientFactory) *Dispatcher {
	return &Dispatcher{newClient: factory}
}

// Execute runs op with the given credentials and parameters. Unknown operations
// fail before any client is built. Remote failures are not retried.
func (d *Dispatcher) Execute(
	ctx context.Context,
	op models.Operation,
	creds models.Credentials,
	params models.ParameterSet,
) (Result, error) {
	r, ok := routes[op]
	if !ok {
		return Result{}, &models.UnknownOperationError{Name: op.String()}
	}

	client := d.newClient(creds)

	resp, err := r.call(client, ctx, params)
	if err != nil {
		return Result{}, remoteError(op, err)
	}

	return Result{Field: r.field, Value: unwrap(resp, r.unwrap)}, nil
}

func unwrap(resp any, key string) any {
	if key == "" {
		return resp
	}
	if obj, ok := resp.(map[string]any); ok {
		if inner, ok := obj[key]; ok && inner != nil {
			return inner
		}
	}
	return resp
}

// remoteError keeps typed domain errors and wraps anything else.
func remoteError(op models.Operation, err error) error {
	var remote *models.RemoteServiceError
	var missing *models.MissingParameterError
	if errors.As(err, &remote) || errors.As(err, &missing) {
		return err
	}
	return &models.RemoteServiceError{Operation: op.String(), Err: err}
}
