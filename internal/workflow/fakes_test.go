package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/shinji-kodama/export-jar/internal/generator"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

var errUnexpectedPrompt = errors.New("unexpected prompt")

// fakeModel serves canned projects and entry points per workspace root.
type fakeModel struct {
	mu          sync.Mutex
	projects    map[string][]model.ProjectRef
	entryPoints map[string][]model.EntryPoint
	listErr     error

	buildOK    bool
	buildErr   error
	buildCalls int
	listCalls  int
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		projects:    make(map[string][]model.ProjectRef),
		entryPoints: make(map[string][]model.EntryPoint),
		buildOK:     true,
	}
}

// withProject registers a project named name under root.
func (m *fakeModel) withProject(root, name string) *fakeModel {
	m.projects[root] = append(m.projects[root], model.ProjectRef{ID: root + "#" + name, Name: name, Root: root})
	return m
}

func (m *fakeModel) withEntryPoints(root string, names ...string) *fakeModel {
	for _, n := range names {
		m.entryPoints[root] = append(m.entryPoints[root], model.EntryPoint{Name: n})
	}
	return m
}

func (m *fakeModel) ListProjects(ctx context.Context, root string) ([]model.ProjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.projects[root], ctx.Err()
}

func (m *fakeModel) Classpaths(context.Context, string, model.Scope) (model.ClasspathResult, error) {
	return model.ClasspathResult{}, nil
}

func (m *fakeModel) ListEntryPoints(_ context.Context, root string) ([]model.EntryPoint, error) {
	return m.entryPoints[root], nil
}

func (m *fakeModel) Build(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildCalls++
	return m.buildOK, m.buildErr
}

func (m *fakeModel) Path(root string) string {
	return filepath.Join(root, "projects.yaml")
}

// fakeResolver returns canned items per workspace root.
type fakeResolver struct {
	items map[string][]model.DependencyItem
	err   error
}

func (r *fakeResolver) Resolve(_ context.Context, root string, _ []model.ProjectRef) ([]model.DependencyItem, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]model.DependencyItem(nil), r.items[root]...), nil
}

type saveReply struct {
	path   string
	action prompt.Action
}

// scriptedPrompter answers prompts from queues and records every request.
// An empty queue fails the prompt.
type scriptedPrompter struct {
	mu     sync.Mutex
	multi  []prompt.Selection
	single []prompt.Selection
	save   []saveReply

	multiReqs  []prompt.MultiSelectRequest
	singleReqs []prompt.SingleSelectRequest
	saveReqs   []prompt.SaveRequest
}

func (p *scriptedPrompter) MultiSelect(_ context.Context, req prompt.MultiSelectRequest) (prompt.Selection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.multiReqs = append(p.multiReqs, req)
	if len(p.multi) == 0 {
		return prompt.Selection{}, errUnexpectedPrompt
	}
	s := p.multi[0]
	p.multi = p.multi[1:]
	return s, nil
}

func (p *scriptedPrompter) SingleSelect(_ context.Context, req prompt.SingleSelectRequest) (prompt.Selection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.singleReqs = append(p.singleReqs, req)
	if len(p.single) == 0 {
		return prompt.Selection{}, errUnexpectedPrompt
	}
	s := p.single[0]
	p.single = p.single[1:]
	return s, nil
}

func (p *scriptedPrompter) SaveLocation(_ context.Context, req prompt.SaveRequest) (string, prompt.Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveReqs = append(p.saveReqs, req)
	if len(p.save) == 0 {
		return "", prompt.ActionCancel, errUnexpectedPrompt
	}
	r := p.save[0]
	p.save = p.save[1:]
	return r.path, r.action, nil
}

func accept(indices ...int) prompt.Selection {
	return prompt.Selection{Action: prompt.ActionAccept, Indices: indices}
}

func back() prompt.Selection {
	return prompt.Selection{Action: prompt.ActionBack}
}

func cancel() prompt.Selection {
	return prompt.Selection{Action: prompt.ActionCancel}
}

// fakeArchive records generation requests. When started is set it is
// closed on the first call, which then blocks until release is closed.
type fakeArchive struct {
	mu       sync.Mutex
	requests []generator.Request
	err      error

	started chan struct{}
	release chan struct{}
}

func (a *fakeArchive) Generate(ctx context.Context, req generator.Request) error {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	started, release := a.started, a.release
	a.started = nil
	a.mu.Unlock()

	if started != nil {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return a.err
}

func (a *fakeArchive) calls() []generator.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]generator.Request(nil), a.requests...)
}

func item(root, rel string, scope model.Scope) model.DependencyItem {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	kind := model.KindInternal
	if filepath.Ext(rel) == model.ArchiveExt {
		kind = model.KindExternal
	}
	return model.DependencyItem{
		Label:        rel,
		Scope:        scope,
		Kind:         kind,
		AbsolutePath: abs,
		Preselected:  scope == model.ScopeRuntime,
	}
}
