package services

import (
	"context"
	"time"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
	"github.com/mshogin/flownodes/internal/infrastructure/logging"
)

// State is a step of the workspace manager pipeline.
type State int

const (
	StateIdle State = iota
	StateCredentialsChecked
	StateParamsBuilt
	StatePayloadResolved
	StateDispatched
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCredentialsChecked:
		return "credentials_checked"
	case StateParamsBuilt:
		return "params_built"
	case StatePayloadResolved:
		return "payload_resolved"
	case StateDispatched:
		return "dispatched"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// invocation is everything one message's pipeline run needs. It is created per
// message and never shared, so concurrent messages cannot see each other's
// credentials or parameters.
type invocation struct {
	msg    *models.Message
	cfg    config.NodeConfig
	log    *logging.LoggerContext
	creds  models.Credentials
	op     models.Operation
	params models.ParameterSet
	result Result

	release func()
	state   State
}

// stage advances an invocation to the next state or fails it.
type stage struct {
	to  State
	run func(ctx context.Context, inv *invocation) error
}

// runStages executes stages in order and stops at the first error.
func runStages(ctx context.Context, inv *invocation, stages []stage) error {
	for _, s := range stages {
		if err := s.run(ctx, inv); err != nil {
			inv.log.Debug("stage failed", map[string]interface{}{"stage": s.to.String(), "from": inv.state.String()})
			inv.state = StateFailed
			return err
		}
		inv.state = s.to
	}
	inv.state = StateCompleted
	return nil
}

// WorkspaceManager is the conversation workspace manager node.
type WorkspaceManager struct {
	*nodeBase
	ingestor   *PayloadIngestor
	dispatcher *Dispatcher
}

// NewWorkspaceManager creates a workspace manager node.
func NewWorkspaceManager(cfg config.NodeConfig, ingestor *PayloadIngestor, dispatcher *Dispatcher, deps Dependencies) *WorkspaceManager {
	if cfg.Type == "" {
		cfg.Type = config.NodeTypeWorkspaceManager
	}
	return &WorkspaceManager{
		nodeBase:   newNodeBase(cfg, deps),
		ingestor:   ingestor,
		dispatcher: dispatcher,
	}
}

// Handle runs the pipeline for one inbound message. On success the message is
// returned with exactly one result field set; on failure nothing is returned
// and the status indicator shows the error.
func (w *WorkspaceManager) Handle(ctx context.Context, msg *models.Message) (*models.Message, error) {
	start := time.Now()
	cfg := w.Config()

	inv := &invocation{
		msg:     msg,
		cfg:     cfg,
		log:     w.logContext(msg, cfg.Mode),
		params:  models.ParameterSet{},
		release: func() {},
		state:   StateIdle,
	}
	defer func() { inv.release() }()

	w.status.SetStatus(w.id, models.StatusBusy())
	inv.log.Debug("message received", map[string]interface{}{"binary_payload": msg.IsBinary()})

	err := runStages(ctx, inv, []stage{
		{StateCredentialsChecked, w.checkCredentials},
		{StateParamsBuilt, w.buildParams},
		{StatePayloadResolved, w.resolvePayload},
		{StateDispatched, w.dispatch},
	})
	w.record(cfg.Mode, start, err)

	if err != nil {
		w.fail(inv.log, err, map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()})
		return nil, err
	}

	inv.result.Apply(msg)
	w.status.SetStatus(w.id, models.StatusIdle())
	inv.log.Info("message processed", map[string]interface{}{
		"result_field": inv.result.Field,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return msg, nil
}

func (w *WorkspaceManager) checkCredentials(_ context.Context, inv *invocation) error {
	creds, err := w.resolveCredentials(inv.cfg)
	if err != nil {
		return err
	}
	op, err := models.ParseOperation(inv.cfg.Mode)
	if err != nil {
		return err
	}
	inv.creds = creds
	inv.op = op
	return nil
}

func (w *WorkspaceManager) buildParams(_ context.Context, inv *invocation) error {
	return BuildParams(inv.op, inv.cfg, inv.params)
}

func (w *WorkspaceManager) resolvePayload(ctx context.Context, inv *invocation) error {
	params, release, err := w.ingestor.Ingest(ctx, inv.op, inv.msg, inv.params, inv.log)
	if err != nil {
		return err
	}
	inv.params = params
	inv.release = release
	return nil
}

func (w *WorkspaceManager) dispatch(ctx context.Context, inv *invocation) error {
	result, err := w.dispatcher.Execute(ctx, inv.op, inv.creds, inv.params)
	if err != nil {
		return err
	}
	inv.result = result
	return nil
}
