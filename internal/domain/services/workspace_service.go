package services

import (
	"context"

	"github.com/mshogin/flownodes/internal/domain/models"
)

// WorkspaceService defines the remote conversation workspace API.
// It is defined in the domain layer and implemented in the infrastructure layer,
// so the pipeline can be exercised against fakes.
//
// Every call returns the decoded JSON response (an object or a list) unchanged;
// normalization onto the message is the caller's job.
type WorkspaceService interface {
	ListWorkspaces(ctx context.Context, params models.ParameterSet) (any, error)
	GetWorkspace(ctx context.Context, params models.ParameterSet) (any, error)
	CreateWorkspace(ctx context.Context, params models.ParameterSet) (any, error)
	UpdateWorkspace(ctx context.Context, params models.ParameterSet) (any, error)
	DeleteWorkspace(ctx context.Context, params models.ParameterSet) (any, error)
	ListIntents(ctx context.Context, params models.ParameterSet) (any, error)
	GetIntent(ctx context.Context, params models.ParameterSet) (any, error)
}

// WorkspaceClientFactory builds a client bound to one set of credentials.
// A new client is built per message because credentials may differ per message.
type WorkspaceClientFactory func(creds models.Credentials) WorkspaceService
