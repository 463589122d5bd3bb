package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

// descriptorLocator is implemented by project models backed by a file.
type descriptorLocator interface {
	Path(root string) string
}

// remediations builds the actions offered with resolution errors.
type remediations struct {
	model projectmodel.Service
	open  OpenFunc
}

// openDescriptor offers to open the project descriptor of root, when the
// model has one and an opener is configured.
func (r remediations) openDescriptor(root string) *Remediation {
	loc, ok := r.model.(descriptorLocator)
	if !ok || r.open == nil || root == "" {
		return nil
	}
	path := loc.Path(root)
	return &Remediation{
		Label: "Open project descriptor",
		Run:   func(ctx context.Context) error { return r.open(ctx, path) },
	}
}

// projectStage picks the workspace folder and lists its projects.
type projectStage struct {
	model    projectmodel.Service
	prompter prompt.Prompter
	rem      remediations
}

// Execute implements Executor.
func (s *projectStage) Execute(ctx context.Context, meta *model.StepMetadata) (Transition, error) {
	var root string
	switch {
	case meta.Entry != nil:
		// An entry without an ID stands for its whole workspace folder.
		root = meta.Entry.Root
	case len(meta.Workspaces) == 1:
		root = meta.Workspaces[0]
	case len(meta.Workspaces) == 0:
		return Transition{}, &ResolutionError{Message: "no workspace folder to export"}
	default:
		opts := make([]prompt.Option, len(meta.Workspaces))
		for i, ws := range meta.Workspaces {
			opts[i] = prompt.Option{Label: filepath.Base(ws), Description: ws}
		}
		sel, err := s.prompter.SingleSelect(ctx, prompt.SingleSelectRequest{
			Title:   "Select the workspace folder to export",
			Options: opts,
		})
		if err != nil {
			return Transition{}, err
		}
		if sel.Action != prompt.ActionAccept || len(sel.Indices) != 1 {
			return Abort(), nil
		}
		root = meta.Workspaces[sel.Indices[0]]
		meta.PickedWorkspace = true
	}

	projects, err := s.model.ListProjects(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return Transition{}, err
		}
		return Transition{}, &ResolutionError{
			Message:     fmt.Sprintf("failed to list projects of %s", root),
			Remediation: s.rem.openDescriptor(root),
			Cause:       err,
		}
	}
	if len(projects) == 0 {
		return Transition{}, &ResolutionError{
			Message:     fmt.Sprintf("no projects found in %s", root),
			Remediation: s.rem.openDescriptor(root),
		}
	}

	if meta.Entry != nil && meta.Entry.ID != "" {
		projects = onlyProject(projects, meta.Entry.ID)
		if len(projects) == 0 {
			return Transition{}, &ResolutionError{
				Message:     fmt.Sprintf("project %s not found in %s", quote(meta.Entry.ID), root),
				Remediation: s.rem.openDescriptor(root),
			}
		}
	}

	meta.WorkspaceRoot = root
	meta.ProjectRoots = projects
	return Advance(model.StepResolveElements), nil
}

// onlyProject keeps the project with id.
func onlyProject(projects []model.ProjectRef, id string) []model.ProjectRef {
	for _, p := range projects {
		if p.ID == id {
			return []model.ProjectRef{p}
		}
	}
	return nil
}
