package services

import "github.com/mshogin/flownodes/internal/domain/models"

// StatusReporter receives node status transitions.
type StatusReporter interface {
	SetStatus(nodeID string, status models.Status)
}

// StatusReporterFunc adapts a function to StatusReporter.
type StatusReporterFunc func(nodeID string, status models.Status)

// SetStatus calls f.
func (f StatusReporterFunc) SetStatus(nodeID string, status models.Status) { f(nodeID, status) }
