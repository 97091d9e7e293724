package services

import (
	"context"

	"github.com/mshogin/flownodes/internal/domain/models"
)

// Analyzer extracts text features through the remote natural language understanding API.
type Analyzer interface {
	Analyze(ctx context.Context, opts *models.AnalyzeOptions) (map[string]any, error)
}

// AnalyzerFactory builds an analyzer bound to one set of credentials.
type AnalyzerFactory func(creds models.Credentials) Analyzer
