package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/export-jar/internal/classpath"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

func TestExpandElements(t *testing.T) {
	items := []model.DependencyItem{
		item(wsApp, "bin/main", model.ScopeRuntime),
		item(wsApp, "lib/b.jar", model.ScopeRuntime),
		item(wsApp, "lib/a.jar", model.ScopeRuntime),
		item(wsApp, "lib/junit.jar", model.ScopeTest),
		item(wsApp, "bin/test", model.ScopeTest),
	}
	abs := func(rel string) string { return filepath.Join(wsApp, filepath.FromSlash(rel)) }

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "runtime placeholder takes runtime archives only",
			patterns: []string{model.RuntimeDependencies},
			want:     []string{abs("lib/a.jar"), abs("lib/b.jar")},
		},
		{
			name:     "test placeholder",
			patterns: []string{model.TestDependencies},
			want:     []string{abs("lib/junit.jar")},
		},
		{
			name:     "relative path and label",
			patterns: []string{"bin/main", "lib/junit.jar"},
			want:     []string{abs("bin/main"), abs("lib/junit.jar")},
		},
		{
			name:     "absolute path",
			patterns: []string{abs("bin/test")},
			want:     []string{abs("bin/test")},
		},
		{
			name:     "duplicates collapse",
			patterns: []string{"bin/main", model.RuntimeDependencies, "lib/a.jar"},
			want:     []string{abs("bin/main"), abs("lib/a.jar"), abs("lib/b.jar")},
		},
		{
			name:     "unmatched patterns are skipped",
			patterns: []string{"missing.jar", "bin/main"},
			want:     []string{abs("bin/main")},
		},
		{
			name:     "nothing matches",
			patterns: []string{"missing.jar"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandElements(tt.patterns, items, wsApp, nil))
		})
	}
}

func TestRun_PresetNeverPrompts(t *testing.T) {
	m, r := appFixture()
	m.withEntryPoints(wsApp, "com.example.Other")
	p := &scriptedPrompter{}
	a := &fakeArchive{}
	out := filepath.FromSlash("/out/app.jar")

	res, err := newTestEngine(Config{Model: m, Resolver: r, Archive: a, Prompter: p}).
		Run(context.Background(), Request{
			Workspaces: []string{wsApp},
			Preset: &model.Preset{
				Label:      "exportjar: app",
				Elements:   []string{"bin/main", model.RuntimeDependencies},
				MainClass:  "com.example.Cli",
				OutputPath: out,
			},
		})
	require.NoError(t, err)

	assert.Equal(t, out, res.OutputPath)
	require.Len(t, a.calls(), 1)
	req := a.calls()[0]
	assert.Equal(t, "com.example.Cli", req.EntryPoint)
	assert.Equal(t, []string{
		filepath.Join(wsApp, "bin", "main"),
		filepath.Join(wsApp, "lib", "guava.jar"),
	}, req.Elements)

	assert.Empty(t, p.multiReqs)
	assert.Empty(t, p.singleReqs)
	assert.Empty(t, p.saveReqs)
}

func TestRun_PresetMatchesNothing(t *testing.T) {
	m, r := appFixture()
	_, err := newTestEngine(Config{Model: m, Resolver: r, Archive: &fakeArchive{}, Prompter: &scriptedPrompter{}}).
		Run(context.Background(), Request{
			Workspaces: []string{wsApp},
			Preset:     &model.Preset{Label: "broken", Elements: []string{"nope.jar"}},
		})

	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, `"broken"`)
}

func TestSelectionStage_SingleItemIsAutoSelected(t *testing.T) {
	r := &fakeResolver{items: map[string][]model.DependencyItem{
		wsApp: {item(wsApp, "lib/only.jar", model.ScopeTest)},
	}}
	p := &scriptedPrompter{}
	s := &selectionStage{resolver: r, prompter: p}

	meta := model.NewStepMetadata(nil, nil)
	meta.WorkspaceRoot = wsApp
	tr, err := s.Execute(context.Background(), meta)
	require.NoError(t, err)

	assert.Equal(t, model.StepResolveEntryPoint, tr.Step())
	assert.Equal(t, []string{filepath.Join(wsApp, "lib", "only.jar")}, meta.Elements)
	assert.Empty(t, p.multiReqs)
}

// TestSelectionStage_MissingPathsNeverOffered runs the real resolver so
// that an entry whose file does not exist is dropped before prompting.
func TestSelectionStage_MissingPathsNeverOffered(t *testing.T) {
	root := t.TempDir()
	present := filepath.Join(root, "lib", "present.jar")
	other := filepath.Join(root, "bin", "main")
	missing := filepath.Join(root, "lib", "missing.jar")

	src := sourceFunc(func(_ context.Context, _ string, scope model.Scope) (model.ClasspathResult, error) {
		if scope == model.ScopeRuntime {
			return model.ClasspathResult{Classpaths: []string{present, missing, other}}, nil
		}
		return model.ClasspathResult{}, nil
	})
	exists := func(p string) bool { return p == present || p == other }

	p := &scriptedPrompter{multi: []prompt.Selection{accept(0, 1)}}
	s := &selectionStage{resolver: classpath.NewResolver(src, exists, nil), prompter: p}

	meta := model.NewStepMetadata(nil, nil)
	meta.WorkspaceRoot = root
	meta.ProjectRoots = []model.ProjectRef{{ID: "app", Root: root}}
	_, err := s.Execute(context.Background(), meta)
	require.NoError(t, err)

	require.Len(t, p.multiReqs, 1)
	var labels []string
	for _, o := range p.multiReqs[0].Options {
		labels = append(labels, o.Label)
	}
	assert.Equal(t, []string{"lib/present.jar", "bin/main"}, labels)
	assert.NotContains(t, meta.Elements, missing)
}

type sourceFunc func(ctx context.Context, projectID string, scope model.Scope) (model.ClasspathResult, error)

func (f sourceFunc) Classpaths(ctx context.Context, projectID string, scope model.Scope) (model.ClasspathResult, error) {
	return f(ctx, projectID, scope)
}

func TestEntryPointStage(t *testing.T) {
	projects := []model.ProjectRef{
		{ID: "a", Root: wsApp},
		{ID: "b", Root: wsApp},
		{ID: "c", Root: wsLib},
	}

	t.Run("none", func(t *testing.T) {
		s := &entryPointStage{model: newFakeModel(), prompter: &scriptedPrompter{}}
		meta := &model.StepMetadata{ProjectRoots: projects}
		tr, err := s.Execute(context.Background(), meta)
		require.NoError(t, err)
		assert.Equal(t, model.StepGenerate, tr.Step())
		assert.Empty(t, meta.SelectedEntryPoint)
	})

	t.Run("one is auto-selected", func(t *testing.T) {
		m := newFakeModel().withEntryPoints(wsLib, "com.example.Lib")
		s := &entryPointStage{model: m, prompter: &scriptedPrompter{}}
		meta := &model.StepMetadata{ProjectRoots: projects}
		_, err := s.Execute(context.Background(), meta)
		require.NoError(t, err)
		assert.Equal(t, "com.example.Lib", meta.SelectedEntryPoint)
	})

	t.Run("several are deduplicated and sorted", func(t *testing.T) {
		m := newFakeModel().
			withEntryPoints(wsApp, "com.example.Zed", "com.example.App").
			withEntryPoints(wsLib, "com.example.App")
		p := &scriptedPrompter{single: []prompt.Selection{accept(1)}}
		s := &entryPointStage{model: m, prompter: p}
		meta := &model.StepMetadata{ProjectRoots: projects, PickedWorkspace: true}

		_, err := s.Execute(context.Background(), meta)
		require.NoError(t, err)
		assert.Equal(t, "com.example.Zed", meta.SelectedEntryPoint)

		require.Len(t, p.singleReqs, 1)
		req := p.singleReqs[0]
		assert.True(t, req.AllowBack)
		require.Len(t, req.Options, 2)
		assert.Equal(t, "com.example.App", req.Options[0].Label)
		assert.Equal(t, "com.example.Zed", req.Options[1].Label)
	})

	t.Run("back", func(t *testing.T) {
		m := newFakeModel().withEntryPoints(wsApp, "a.A", "b.B")
		s := &entryPointStage{model: m, prompter: &scriptedPrompter{single: []prompt.Selection{back()}}}
		tr, err := s.Execute(context.Background(), &model.StepMetadata{ProjectRoots: projects, PickedWorkspace: true})
		require.NoError(t, err)
		assert.False(t, tr.IsAbort())
		assert.Equal(t, model.StepResolveProject, tr.Step())
		assert.Equal(t, "back(resolve-project)", tr.String())
	})

	t.Run("cancel", func(t *testing.T) {
		m := newFakeModel().withEntryPoints(wsApp, "a.A", "b.B")
		s := &entryPointStage{model: m, prompter: &scriptedPrompter{single: []prompt.Selection{cancel()}}}
		tr, err := s.Execute(context.Background(), &model.StepMetadata{ProjectRoots: projects})
		require.NoError(t, err)
		assert.True(t, tr.IsAbort())
	})

	t.Run("preset wins", func(t *testing.T) {
		m := newFakeModel().withEntryPoints(wsApp, "a.A", "b.B")
		p := &scriptedPrompter{}
		s := &entryPointStage{model: m, prompter: p}
		meta := &model.StepMetadata{ProjectRoots: projects, Preset: &model.Preset{MainClass: "c.C"}}
		_, err := s.Execute(context.Background(), meta)
		require.NoError(t, err)
		assert.Equal(t, "c.C", meta.SelectedEntryPoint)
		assert.Empty(t, p.singleReqs)
	})
}

func TestDefaultDestination(t *testing.T) {
	assert.Equal(t, filepath.Join(wsApp, "app.jar"), DefaultDestination(wsApp))
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	release, ok := g.TryAcquire()
	require.True(t, ok)

	_, ok = g.TryAcquire()
	assert.False(t, ok)

	release()
	release()

	release2, ok := g.TryAcquire()
	require.True(t, ok)
	release2()
}

func TestTransition_String(t *testing.T) {
	assert.Equal(t, "advance(generate)", Advance(model.StepGenerate).String())
	assert.Equal(t, "abort", Abort().String())
}
