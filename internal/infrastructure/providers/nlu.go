package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/domain/services"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
)

// NLUClient implements services.Analyzer against the natural language understanding v1 API.
type NLUClient struct {
	transport *transport
	creds     models.Credentials
}

// NewNLUFactory returns a factory of per-message analyzers. rt may be nil.
func NewNLUFactory(cfg config.ServiceConfig, rt http.RoundTripper) services.AnalyzerFactory {
	t := newTransport(cfg, rt)
	return func(creds models.Credentials) services.Analyzer {
		return &NLUClient{transport: t, creds: creds}
	}
}

// Analyze calls POST /v1/analyze.
func (c *NLUClient) Analyze(ctx context.Context, opts *models.AnalyzeOptions) (map[string]any, error) {
	body, err := jsonBody(opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.do(ctx, c.creds, request{
		operation: "analyze",
		method:    http.MethodPost,
		path:      "/v1/analyze",
		body:      body,
	})
	if err != nil {
		return nil, err
	}

	out, ok := resp.(map[string]any)
	if !ok {
		return nil, &models.RemoteServiceError{
			Operation: "analyze",
			Err:       fmt.Errorf("unexpected response type %T", resp),
		}
	}
	return out, nil
}
