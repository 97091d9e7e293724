package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mshogin/flownodes/internal/domain/models"
	domainServices "github.com/mshogin/flownodes/internal/domain/services"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
)

// FeatureExtractor is the natural language understanding node: one remote
// analyze call per message, result written to msg.features.
type FeatureExtractor struct {
	*nodeBase
	newAnalyzer domainServices.AnalyzerFactory
}

// NewFeatureExtractor creates a feature extraction node.
func NewFeatureExtractor(cfg config.NodeConfig, factory domainServices.AnalyzerFactory, deps Dependencies) *FeatureExtractor {
	if cfg.Type == "" {
		cfg.Type = config.NodeTypeNLU
	}
	return &FeatureExtractor{
		nodeBase:    newNodeBase(cfg, deps),
		newAnalyzer: factory,
	}
}

// Handle analyzes the message payload.
func (f *FeatureExtractor) Handle(ctx context.Context, msg *models.Message) (*models.Message, error) {
	start := time.Now()
	cfg := f.Config()
	log := f.logContext(msg, "analyze")

	f.status.SetStatus(f.id, models.StatusBusy())

	features, err := f.analyze(ctx, cfg, msg)
	f.record("analyze", start, err)
	if err != nil {
		f.fail(log, err, nil)
		return nil, err
	}

	msg.Set(models.FieldFeatures, features)
	f.status.SetStatus(f.id, models.StatusIdle())
	log.Info("message processed", map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()})
	return msg, nil
}

func (f *FeatureExtractor) analyze(ctx context.Context, cfg config.NodeConfig, msg *models.Message) (map[string]any, error) {
	creds, err := f.resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := BuildAnalyzeOptions(cfg, msg.Payload)
	if err != nil {
		return nil, err
	}

	return f.newAnalyzer(creds).Analyze(ctx, opts)
}

// BuildAnalyzeOptions validates the payload and the enabled features.
func BuildAnalyzeOptions(cfg config.NodeConfig, payload any) (*models.AnalyzeOptions, error) {
	var text string
	switch p := payload.(type) {
	case nil:
		return nil, models.ErrMissingPayload
	case string:
		text = p
	case []byte:
		text = string(p)
	default:
		return nil, &models.InvalidPayloadTypeError{Got: describe(payload)}
	}
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrMissingPayload
	}

	opts := &models.AnalyzeOptions{}
	if isURL(text) {
		opts.URL = strings.TrimSpace(text)
	} else {
		opts.Text = text
	}

	features := make(map[string]map[string]any)
	for _, key := range models.FeatureKeys() {
		if !cfg.FeatureEnabled(key) {
			continue
		}
		name, _ := models.FeatureName(key)
		features[name] = map[string]any{}
	}
	if len(features) == 0 {
		return nil, models.ErrNoFeatures
	}

	if concepts, ok := features["concepts"]; ok {
		limit := cfg.MaxConcepts
		if limit <= 0 {
			limit = models.DefaultMaxConcepts
		}
		concepts["limit"] = limit
	}

	opts.Features = features
	return opts, nil
}

// isURL reports whether s is a single absolute http(s) URL.
func isURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
