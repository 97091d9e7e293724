package services

import (
	"context"
	"io"
	"sync"

	"github.com/mshogin/flownodes/internal/domain/models"
	domainServices "github.com/mshogin/flownodes/internal/domain/services"
)

// fakeCall is one recorded call against fakeWorkspaceService.
type fakeCall struct {
	Method   string
	Creds    models.Credentials
	Params   models.ParameterSet
	Document string
}

// fakeWorkspaceService records calls and replies with canned responses.
type fakeWorkspaceService struct {
	creds   models.Credentials
	backend *fakeBackend
}

type fakeBackend struct {
	mu        sync.Mutex
	calls     []fakeCall
	clients   int
	responses map[string]any
	err       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{responses: make(map[string]any)}
}

func (b *fakeBackend) factory() domainServices.WorkspaceClientFactory {
	return func(creds models.Credentials) domainServices.WorkspaceService {
		b.mu.Lock()
		b.clients++
		b.mu.Unlock()
		return &fakeWorkspaceService{creds: creds, backend: b}
	}
}

func (b *fakeBackend) Calls() []fakeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fakeCall(nil), b.calls...)
}

func (b *fakeBackend) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients
}

func (f *fakeWorkspaceService) record(method string, params models.ParameterSet) (any, error) {
	call := fakeCall{Method: method, Creds: f.creds, Params: params}
	if r, ok := params[models.ParamDocument].(io.Reader); ok {
		data, _ := io.ReadAll(r)
		call.Document = string(data)
	}

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	f.backend.calls = append(f.backend.calls, call)
	if f.backend.err != nil {
		return nil, f.backend.err
	}
	if resp, ok := f.backend.responses[method]; ok {
		return resp, nil
	}
	return map[string]any{"method": method}, nil
}

func (f *fakeWorkspaceService) ListWorkspaces(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("ListWorkspaces", p)
}

func (f *fakeWorkspaceService) GetWorkspace(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("GetWorkspace", p)
}

func (f *fakeWorkspaceService) CreateWorkspace(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("CreateWorkspace", p)
}

func (f *fakeWorkspaceService) UpdateWorkspace(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("UpdateWorkspace", p)
}

func (f *fakeWorkspaceService) DeleteWorkspace(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("DeleteWorkspace", p)
}

func (f *fakeWorkspaceService) ListIntents(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("ListIntents", p)
}

func (f *fakeWorkspaceService) GetIntent(_ context.Context, p models.ParameterSet) (any, error) {
	return f.record("GetIntent", p)
}

// statusRecorder keeps every status transition per node.
type statusRecorder struct {
	mu      sync.Mutex
	history map[string][]models.Status
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{history: make(map[string][]models.Status)}
}

func (s *statusRecorder) SetStatus(nodeID string, status models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[nodeID] = append(s.history[nodeID], status)
}

func (s *statusRecorder) History(nodeID string) []models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Status(nil), s.history[nodeID]...)
}

func (s *statusRecorder) Last(nodeID string) models.Status {
	h := s.History(nodeID)
	if len(h) == 0 {
		return models.Status{}
	}
	return h[len(h)-1]
}

// fakeAnalyzer records the options it was called with.
type fakeAnalyzer struct {
	mu    sync.Mutex
	creds []models.Credentials
	opts  []*models.AnalyzeOptions
	resp  map[string]any
	err   error
}

func (a *fakeAnalyzer) factory() domainServices.AnalyzerFactory {
	return func(creds models.Credentials) domainServices.Analyzer {
		a.mu.Lock()
		a.creds = append(a.creds, creds)
		a.mu.Unlock()
		return a
	}
}

func (a *fakeAnalyzer) Analyze(_ context.Context, opts *models.AnalyzeOptions) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts = append(a.opts, opts)
	return a.resp, a.err
}
