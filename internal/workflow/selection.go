package workflow

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/export-jar/internal/classpath"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

// selectionStage resolves the dependency set and records the elements to
// package.
type selectionStage struct {
	resolver ItemResolver
	prompter prompt.Prompter
	rem      remediations
	logger   *log.Logger
}

// Execute implements Executor.
func (s *selectionStage) Execute(ctx context.Context, meta *model.StepMetadata) (Transition, error) {
	items, err := s.resolver.Resolve(ctx, meta.WorkspaceRoot, meta.ProjectRoots)
	if err != nil {
		return Transition{}, err
	}
	if len(items) == 0 {
		return Transition{}, &ResolutionError{
			Message:     "no valid classpath found",
			Remediation: s.rem.openDescriptor(meta.WorkspaceRoot),
		}
	}

	next := Advance(model.StepResolveEntryPoint)

	if meta.Preset != nil && len(meta.Preset.Elements) > 0 {
		paths := ExpandElements(meta.Preset.Elements, items, meta.WorkspaceRoot, s.logger)
		if len(paths) == 0 {
			return Transition{}, &ResolutionError{Message: "no elements of task " + quote(meta.Preset.Label) + " match the classpath"}
		}
		for _, p := range paths {
			meta.AddElement(p)
		}
		return next, nil
	}

	if len(items) == 1 {
		meta.AddElement(items[0].AbsolutePath)
		return next, nil
	}

	classpath.SortItems(items)
	opts := make([]prompt.Option, len(items))
	for i, it := range items {
		opts[i] = prompt.Option{
			Label:       it.Label,
			Description: it.Scope.Label(),
			Checked:     it.Preselected,
		}
	}

	sel, err := s.prompter.MultiSelect(ctx, prompt.MultiSelectRequest{
		Title:     "Select the elements to export",
		Options:   opts,
		AllowBack: meta.PickedWorkspace,
	})
	if err != nil {
		return Transition{}, err
	}

	switch sel.Action {
	case prompt.ActionBack:
		return Back(model.StepResolveProject), nil
	case prompt.ActionCancel:
		return Abort(), nil
	}

	if len(sel.Indices) == 0 {
		return Transition{}, &ResolutionError{Message: "no elements selected"}
	}
	for _, i := range sel.Indices {
		meta.AddElement(items[i].AbsolutePath)
	}
	return next, nil
}

// ExpandElements turns task element patterns into absolute paths of
// resolved items, in pattern order. A placeholder expands to every
// external item of its scope in presentation order; any other pattern
// matches an item by label or by path (relative patterns are resolved
// against workspaceRoot). Patterns that match nothing are logged and
// skipped.
func ExpandElements(patterns []string, items []model.DependencyItem, workspaceRoot string, logger *log.Logger) []string {
	sorted := append([]model.DependencyItem(nil), items...)
	classpath.SortItems(sorted)

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pat := range patterns {
		var scope model.Scope
		switch pat {
		case model.RuntimeDependencies:
			scope = model.ScopeRuntime
		case model.TestDependencies:
			scope = model.ScopeTest
		}

		matched := false
		for _, it := range sorted {
			var hit bool
			if scope != "" {
				hit = it.Kind == model.KindExternal && it.Scope == scope
			} else {
				hit = matchesItem(pat, it, workspaceRoot)
			}
			if hit {
				add(it.AbsolutePath)
				matched = true
			}
		}
		if !matched && logger != nil {
			logger.Warn("task element matches no classpath entry", "element", pat)
		}
	}
	return out
}

func matchesItem(pattern string, it model.DependencyItem, workspaceRoot string) bool {
	if filepath.ToSlash(pattern) == it.Label {
		return true
	}
	p := filepath.FromSlash(pattern)
	if !filepath.IsAbs(p) {
		if workspaceRoot == "" {
			return false
		}
		p = filepath.Join(workspaceRoot, p)
	}
	return filepath.Clean(p) == it.AbsolutePath
}

func quote(s string) string {
	return "\"" + s + "\""
}
