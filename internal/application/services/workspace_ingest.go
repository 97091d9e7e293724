package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/logging"
	"github.com/mshogin/flownodes/internal/infrastructure/staging"
)

// PayloadIngestor turns the message payload into the workspace document for
// create and update operations.
type PayloadIngestor struct {
	area *staging.Area
}

// NewPayloadIngestor creates an ingestor that stages binary payloads in area.
func NewPayloadIngestor(area *staging.Area) *PayloadIngestor {
	return &PayloadIngestor{area: area}
}

// Ingest returns the parameter set to dispatch with and a release function the
// caller must invoke once the remote call is done. Operations that take no
// document get params back unchanged.
func (i *PayloadIngestor) Ingest(
	ctx context.Context,
	op models.Operation,
	msg *models.Message,
	params models.ParameterSet,
	log *logging.LoggerContext,
) (models.ParameterSet, func(), error) {
	noop := func() {}

	if !op.NeedsPayload() {
		return params, noop, nil
	}

	if data, ok := msg.Payload.([]byte); ok {
		if err := ctx.Err(); err != nil {
			return nil, noop, err
		}
		return i.ingestBinary(op, data, params, log)
	}

	doc, ok := msg.Payload.(map[string]any)
	if !ok {
		return nil, noop, &models.InvalidPayloadTypeError{Got: describe(msg.Payload)}
	}
	return mergeDocument(op, params, doc), noop, nil
}

func (i *PayloadIngestor) ingestBinary(
	op models.Operation,
	data []byte,
	params models.ParameterSet,
	log *logging.LoggerContext,
) (models.ParameterSet, func(), error) {
	noop := func() {}

	handle, err := i.area.Acquire()
	if err != nil {
		return nil, noop, &models.PayloadWriteError{Err: err}
	}
	release := func() {
		if err := handle.Release(); err != nil {
			log.Warn("failed to release staging file", map[string]interface{}{"path": handle.Path, "error": err.Error()})
		}
	}

	if err := handle.Write(data); err != nil {
		release()
		return nil, noop, &models.PayloadWriteError{Path: handle.Path, Err: err}
	}

	content, err := handle.ReadAll()
	if err != nil {
		release()
		return nil, noop, &models.PayloadWriteError{Path: handle.Path, Err: err}
	}

	var parsed any
	if err := json.Unmarshal(content, &parsed); err == nil {
		release()
		doc, ok := parsed.(map[string]any)
		if !ok {
			return nil, noop, &models.InvalidPayloadTypeError{Got: describe(parsed)}
		}
		return mergeDocument(op, params, doc), noop, nil
	}

	// Not JSON: hand the remote API the raw document as a stream.
	stream, err := handle.Open()
	if err != nil {
		release()
		return nil, noop, &models.PayloadWriteError{Path: handle.Path, Err: err}
	}
	log.Debug("payload is not JSON, streaming raw document", map[string]interface{}{"path": handle.Path, "bytes": len(data)})

	next := preserveWorkspaceID(op, params, models.ParameterSet{models.ParamDocument: stream})
	return next, func() {
		stream.Close()
		release()
	}, nil
}

// mergeDocument replaces params with the workspace document. Only the target
// workspace id of an update survives the replacement.
func mergeDocument(op models.Operation, params models.ParameterSet, doc map[string]any) models.ParameterSet {
	return preserveWorkspaceID(op, params, models.ParameterSet(doc).Clone())
}

func preserveWorkspaceID(op models.Operation, from, to models.ParameterSet) models.ParameterSet {
	if op != models.OperationUpdateWorkspace {
		return to
	}
	if id, ok := from.String(models.ParamWorkspaceID); ok {
		to[models.ParamWorkspaceID] = id
	}
	return to
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case string:
		return "string"
	case []any:
		return "array"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
