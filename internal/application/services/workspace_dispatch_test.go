package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshogin/flownodes/internal/domain/models"
)

var testCreds = models.Credentials{Username: "user", Password: "secret"}

func TestRoutes_CoverEveryOperation(t *testing.T) {
	for _, op := range models.Operations() {
		r, ok := routes[op]
		require.True(t, ok, "no route for %s", op)
		assert.NotNil(t, r.call)
		assert.NotEmpty(t, r.field)
	}
	assert.Len(t, routes, len(models.Operations()))
}

func TestDispatcher_FieldPerOperation(t *testing.T) {
	expected := map[models.Operation]struct {
		method string
		field  string
	}{
		models.OperationListWorkspaces:  {"ListWorkspaces", "workspaces"},
		models.OperationGetWorkspace:    {"GetWorkspace", "workspace"},
		models.OperationCreateWorkspace: {"CreateWorkspace", "workspace"},
		models.OperationUpdateWorkspace: {"UpdateWorkspace", "workspace"},
		models.OperationDeleteWorkspace: {"DeleteWorkspace", "workspace"},
		models.OperationListIntents:     {"ListIntents", "intents"},
		models.OperationGetIntent:       {"GetIntent", "intent"},
	}

	for op, want := range expected {
		t.Run(op.String(), func(t *testing.T) {
			backend := newFakeBackend()
			d := NewDispatcher(backend.factory())

			result, err := d.Execute(context.Background(), op, testCreds, models.ParameterSet{})
			require.NoError(t, err)

			assert.Equal(t, want.field, result.Field)
			calls := backend.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, want.method, calls[0].Method)
			assert.Equal(t, testCreds, calls[0].Creds)
		})
	}
}

func TestDispatcher_ListWorkspaces_Unwraps(t *testing.T) {
	backend := newFakeBackend()
	list := []any{map[string]any{"workspace_id": "w1"}, map[string]any{"workspace_id": "w2"}}
	backend.responses["ListWorkspaces"] = map[string]any{"workspaces": list, "pagination": map[string]any{}}

	result, err := NewDispatcher(backend.factory()).Execute(context.Background(), models.OperationListWorkspaces, testCreds, models.ParameterSet{})
	require.NoError(t, err)
	assert.Equal(t, list, result.Value)
}

func TestDispatcher_ListWorkspaces_BareList(t *testing.T) {
	backend := newFakeBackend()
	list := []any{"w1", "w2"}
	backend.responses["ListWorkspaces"] = list

	result, err := NewDispatcher(backend.factory()).Execute(context.Background(), models.OperationListWorkspaces, testCreds, models.ParameterSet{})
	require.NoError(t, err)
	assert.Equal(t, list, result.Value)
}

func TestDispatcher_ListIntents_Unwraps(t *testing.T) {
	backend := newFakeBackend()
	intents := []any{map[string]any{"intent": "hello"}}
	backend.responses["ListIntents"] = map[string]any{"intents": intents}

	result, err := NewDispatcher(backend.factory()).Execute(context.Background(), models.OperationListIntents, testCreds, models.ParameterSet{"workspace_id": "w1"})
	require.NoError(t, err)
	assert.Equal(t, intents, result.Value)
}

func TestDispatcher_GetIntent_KeepsFullResponse(t *testing.T) {
	backend := newFakeBackend()
	resp := map[string]any{"intent": "hello", "examples": []any{map[string]any{"text": "hi"}}}
	backend.responses["GetIntent"] = resp

	result, err := NewDispatcher(backend.factory()).Execute(context.Background(), models.OperationGetIntent, testCreds, models.ParameterSet{})
	require.NoError(t, err)
	assert.Equal(t, resp, result.Value)
}

func TestDispatcher_UnknownOperation(t *testing.T) {
	backend := newFakeBackend()
	d := NewDispatcher(backend.factory())

	_, err := d.Execute(context.Background(), models.Operation(99), testCreds, models.ParameterSet{})

	var unknown *models.UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 0, backend.Clients(), "no client may be built for an unknown operation")
}

func TestDispatcher_RemoteFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("connection reset")

	_, err := NewDispatcher(backend.factory()).Execute(context.Background(), models.OperationGetWorkspace, testCreds, models.ParameterSet{})

	var remote *models.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "getWorkspace", remote.Operation)
	assert.Equal(t, "connection reset", remote.Message())
	assert.Len(t, backend.Calls(), 1, "remote calls are not retried")
}

func TestDispatcher_RemoteFailureKeepsServiceError(t *testing.T) {
	backend := newFakeBackend()
	serviceErr := &models.RemoteServiceError{Operation: "deleteWorkspace", StatusCode: 404, Payload: map[string]any{"error": "Resource not found"}}
	backend.err = serviceErr

	_, err := NewDispatcher(backend.factory()).Execute(context.Background(), models.OperationDeleteWorkspace, testCreds, models.ParameterSet{})
	assert.Same(t, serviceErr, err)
}

func TestResult_Apply(t *testing.T) {
	msg := models.NewMessage("x")
	Result{Field: models.FieldWorkspace, Value: map[string]any{"name": "demo"}}.Apply(msg)

	v, ok := msg.Get("workspace")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "demo"}, v)
}
