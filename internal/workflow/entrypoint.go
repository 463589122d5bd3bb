package workflow

import (
	"context"
	"sort"

	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

// entryPointStage picks the main class.
type entryPointStage struct {
	model    projectmodel.Service
	prompter prompt.Prompter
}

// Execute implements Executor.
func (s *entryPointStage) Execute(ctx context.Context, meta *model.StepMetadata) (Transition, error) {
	next := Advance(model.StepGenerate)

	if meta.Preset != nil && meta.Preset.MainClass != "" {
		meta.SelectedEntryPoint = meta.Preset.MainClass
		return next, nil
	}

	candidates, err := s.candidates(ctx, meta)
	if err != nil {
		return Transition{}, err
	}

	switch len(candidates) {
	case 0:
		meta.SelectedEntryPoint = ""
		return next, nil
	case 1:
		meta.SelectedEntryPoint = candidates[0].Name
		return next, nil
	}

	opts := make([]prompt.Option, len(candidates))
	for i, c := range candidates {
		opts[i] = prompt.Option{Label: c.Name, Description: c.Path}
	}
	sel, err := s.prompter.SingleSelect(ctx, prompt.SingleSelectRequest{
		Title:     "Select the main class",
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
	if len(sel.Indices) != 1 {
		return Abort(), nil
	}
	meta.SelectedEntryPoint = candidates[sel.Indices[0]].Name
	return next, nil
}

// candidates lists the entry points of every workspace folder owning a
// project under export, deduplicated by name and sorted.
func (s *entryPointStage) candidates(ctx context.Context, meta *model.StepMetadata) ([]model.EntryPoint, error) {
	var roots []string
	seenRoot := make(map[string]bool)
	for _, p := range meta.ProjectRoots {
		if p.Root != "" && !seenRoot[p.Root] {
			seenRoot[p.Root] = true
			roots = append(roots, p.Root)
		}
	}
	if len(roots) == 0 && meta.WorkspaceRoot != "" {
		roots = append(roots, meta.WorkspaceRoot)
	}

	seen := make(map[string]bool)
	var out []model.EntryPoint
	for _, root := range roots {
		eps, err := s.model.ListEntryPoints(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, ep := range eps {
			if ep.Name == "" || seen[ep.Name] {
				continue
			}
			seen[ep.Name] = true
			out = append(out, ep)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
