package models

import (
	"errors"
	"fmt"
)

// Domain-level errors for the node pipelines.
// Every failure is terminal for the message being processed.

var (
	// Pre-flight errors
	ErrMissingCredentials = errors.New("missing service credentials")
	ErrMissingOperation   = errors.New("required mode has not been specified")
	ErrUnknownOperation   = errors.New("unknown mode has been specified")

	// Parameter and payload errors
	ErrMissingParameter   = errors.New("missing required parameter")
	ErrInvalidPayloadType = errors.New("json content expected as workspace")
	ErrPayloadWrite       = errors.New("error processing data buffer")

	// Remote service errors
	ErrRemoteService = errors.New("remote service call failed")

	// Feature extraction errors
	ErrMissingPayload = errors.New("missing property: msg.payload")
	ErrNoFeatures     = errors.New("node must have at least one selected feature")
)

// MissingParameterError reports a required parameter that the node configuration did not supply.
type MissingParameterError struct {
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("a value for %s is required", e.Field)
}

func (e *MissingParameterError) Unwrap() error { return ErrMissingParameter }

// InvalidPayloadTypeError reports a workspace payload that is not a JSON object.
type InvalidPayloadTypeError struct {
	Got string
}

func (e *InvalidPayloadTypeError) Error() string {
	return fmt.Sprintf("%s, got %s", ErrInvalidPayloadType.Error(), e.Got)
}

func (e *InvalidPayloadTypeError) Unwrap() error { return ErrInvalidPayloadType }

// PayloadWriteError reports a failure to materialize a binary payload on disk.
type PayloadWriteError struct {
	Path string
	Err  error
}

func (e *PayloadWriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", ErrPayloadWrite.Error(), e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", ErrPayloadWrite.Error(), e.Path, e.Err)
}

func (e *PayloadWriteError) Unwrap() []error { return []error{ErrPayloadWrite, e.Err} }

// UnknownOperationError reports an operation name outside the supported set.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unable to process as unknown mode %q has been specified", e.Name)
}

func (e *UnknownOperationError) Unwrap() error { return ErrUnknownOperation }

// RemoteServiceError carries the error payload returned by (or the transport failure reaching)
// the remote service.
type RemoteServiceError struct {
	Operation  string
	StatusCode int
	Payload    map[string]any
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if msg := e.Message(); msg != "" {
		if e.StatusCode != 0 {
			return fmt.Sprintf("%s failed (status %d): %s", e.Operation, e.StatusCode, msg)
		}
		return fmt.Sprintf("%s failed: %s", e.Operation, msg)
	}
	return fmt.Sprintf("%s failed with status %d", e.Operation, e.StatusCode)
}

// Message returns the most specific human-readable reason available.
func (e *RemoteServiceError) Message() string {
	if e.Payload != nil {
		if msg, ok := e.Payload["error"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := e.Payload["description"].(string); ok && msg != "" {
			return msg
		}
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *RemoteServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRemoteService, e.Err}
	}
	return []error{ErrRemoteService}
}
