package models

import "strings"

// Operation is one of the remote actions the workspace manager node can perform.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationListWorkspaces
	OperationGetWorkspace
	OperationCreateWorkspace
	OperationUpdateWorkspace
	OperationDeleteWorkspace
	OperationListIntents
	OperationGetIntent
)

var operationNames = map[Operation]string{
	OperationListWorkspaces:  "listWorkspaces",
	OperationGetWorkspace:    "getWorkspace",
	OperationCreateWorkspace: "createWorkspace",
	OperationUpdateWorkspace: "updateWorkspace",
	OperationDeleteWorkspace: "deleteWorkspace",
	OperationListIntents:     "listIntents",
	OperationGetIntent:       "getIntent",
}

// Operations returns every supported operation in declaration order.
func Operations() []Operation {
	return []Operation{
		OperationListWorkspaces,
		OperationGetWorkspace,
		OperationCreateWorkspace,
		OperationUpdateWorkspace,
		OperationDeleteWorkspace,
		OperationListIntents,
		OperationGetIntent,
	}
}

// String returns the configuration name of the operation.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether o is one of the supported operations.
func (o Operation) Valid() bool {
	_, ok := operationNames[o]
	return ok
}

// NeedsPayload reports whether the operation reads a workspace document from the payload.
func (o Operation) NeedsPayload() bool {
	return o == OperationCreateWorkspace || o == OperationUpdateWorkspace
}

// ParseOperation maps a configured mode name onto an Operation.
func ParseOperation(name string) (Operation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return OperationUnknown, ErrMissingOperation
	}
	for op, n := range operationNames {
		if n == name {
			return op, nil
		}
	}
	return OperationUnknown, &UnknownOperationError{Name: name}
}
