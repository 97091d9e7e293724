package services

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mshogin/flownodes/internal/domain/models"
	domainServices "github.com/mshogin/flownodes/internal/domain/services"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
	"github.com/mshogin/flownodes/internal/infrastructure/logging"
	"github.com/mshogin/flownodes/internal/infrastructure/metrics"
)

// Dependencies are the collaborators shared by every node.
type Dependencies struct {
	// Bound holds credentials of a service bound to the environment. When set they
	// take precedence over the node's own credentials.
	Bound   models.Credentials
	Status  domainServices.StatusReporter
	Metrics *metrics.Collector
	Logger  *logging.StructuredLogger
}

// nodeBase carries the configuration snapshot, credential resolution and
// status/error reporting common to both node types.
type nodeBase struct {
	id       string
	nodeType string
	config   atomic.Pointer[config.NodeConfig]
	bound    models.Credentials
	status   domainServices.StatusReporter
	metrics  *metrics.Collector
	logger   *logging.StructuredLogger
}

func newNodeBase(cfg config.NodeConfig, deps Dependencies) *nodeBase {
	b := &nodeBase{
		id:       cfg.ID,
		nodeType: cfg.Type,
		bound:    deps.Bound,
		status:   deps.Status,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	if b.status == nil {
		b.status = domainServices.StatusReporterFunc(func(string, models.Status) {})
	}
	if b.logger == nil {
		b.logger = logging.GetDefaultLogger()
	}
	b.config.Store(&cfg)
	return b
}

// ID returns the node id.
func (b *nodeBase) ID() string { return b.id }

// Type returns the node type.
func (b *nodeBase) Type() string { return b.nodeType }

// Config returns the current configuration snapshot.
func (b *nodeBase) Config() config.NodeConfig { return *b.config.Load() }

// Configure replaces the node configuration. Messages already in flight keep
// the snapshot they started with.
func (b *nodeBase) Configure(cfg config.NodeConfig) error {
	if cfg.ID != b.id {
		return fmt.Errorf("node id mismatch: %q != %q", cfg.ID, b.id)
	}
	if cfg.Type == "" {
		cfg.Type = b.nodeType
	}
	if cfg.Type != b.nodeType {
		return fmt.Errorf("node %s: cannot change type from %q to %q", b.id, b.nodeType, cfg.Type)
	}
	b.config.Store(&cfg)
	return nil
}

// BoundService reports whether credentials are bound from the environment.
func (b *nodeBase) BoundService() bool {
	return b.bound.Username != "" || b.bound.Password != ""
}

func (b *nodeBase) resolveCredentials(cfg config.NodeConfig) (models.Credentials, error) {
	creds := models.ResolveCredentials(b.bound, cfg.Credentials, cfg.Password)
	if !creds.Complete() {
		return models.Credentials{}, models.ErrMissingCredentials
	}
	return creds, nil
}

func (b *nodeBase) logContext(msg *models.Message, operation string) *logging.LoggerContext {
	return b.logger.NewContext(map[string]interface{}{
		"node_id":    b.id,
		"message_id": msg.ID,
		"operation":  operation,
	})
}

// fail surfaces a pipeline failure on the status side channel and in the log.
func (b *nodeBase) fail(log *logging.LoggerContext, err error, fields map[string]interface{}) {
	b.status.SetStatus(b.id, models.StatusError(statusText(err)))
	log.Error("message processing failed", err, fields)
}

func (b *nodeBase) record(operation string, start time.Time, err error) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordExecution(b.id, operation, time.Since(start), err)
}

// statusText picks the message shown on the node status indicator.
func statusText(err error) string {
	var remote *models.RemoteServiceError
	if errors.As(err, &remote) {
		if msg := remote.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
