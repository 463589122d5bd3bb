// Package task handles export tasks: named, reusable export settings.
//
// Tasks are read from .vscode/tasks.json, the file editors already use for
// workspace tasks. That file is JSONC (JSON with comments and trailing
// commas), so this package strips it with github.com/tidwall/jsonc before
// decoding with encoding/json. Only entries whose "type" is "exportjar" are
// export tasks; everything else in the file is ignored.
//
// When a workspace folder has no export task of its own, a default one is
// derived from its project model: every internal classpath entry, plus the
// "Runtime Dependencies" / "Test Dependencies" placeholders standing for all
// external archives of that scope.
package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/export-jar/internal/classpath"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
)

const (
	// Type is the "type" of export tasks in tasks.json.
	Type = "exportjar"

	// DefaultRelPath is the tasks file relative to a workspace folder.
	DefaultRelPath = ".vscode/tasks.json"

	// DefaultTargetPath is the target of generated default tasks.
	DefaultTargetPath = "${workspaceFolder}/${workspaceFolderBasename}.jar"
)

// Variables expanded in task paths.
const (
	varWorkspaceFolder         = "${workspaceFolder}"
	varWorkspaceFolderBasename = "${workspaceFolderBasename}"
)

// Definition is one export task.
type Definition struct {
	Type string `json:"type"`

	// Label names the task; it is what --task matches.
	Label string `json:"label"`

	// Elements are element patterns: workspace-relative or absolute paths,
	// or the dependency placeholders.
	Elements []string `json:"elements,omitempty"`

	// MainClass is the fully-qualified entry point.
	MainClass string `json:"mainClass,omitempty"`

	// TargetPath is the archive to write.
	TargetPath string `json:"targetPath,omitempty"`

	// Manifest optionally replaces the generated manifest.
	Manifest string `json:"manifest,omitempty"`

	// Workspace is the folder the task belongs to.
	Workspace string `json:"-"`

	// Generated is true for default tasks derived from the project model.
	Generated bool `json:"-"`
}

// file is the subset of tasks.json this package reads.
type file struct {
	Version string       `json:"version,omitempty"`
	Tasks   []Definition `json:"tasks"`
}

// Path returns the tasks file of workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, filepath.FromSlash(DefaultRelPath))
}

// Load reads the export tasks of workspace. A missing tasks file yields no
// tasks and no error.
func Load(workspace string) ([]Definition, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}

	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range defs {
		defs[i].Workspace = workspace
	}
	return defs, nil
}

// Parse decodes a JSONC tasks document and returns its export tasks in
// file order.
func Parse(data []byte) ([]Definition, error) {
	var f file
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, fmt.Errorf("failed to parse tasks file: %w", err)
	}

	var defs []Definition
	seen := make(map[string]bool)
	for _, d := range f.Tasks {
		if d.Type != Type {
			continue
		}
		if d.Label == "" {
			return nil, fmt.Errorf("export task #%d has no label", len(defs)+1)
		}
		if seen[d.Label] {
			return nil, fmt.Errorf("duplicate export task label %q", d.Label)
		}
		seen[d.Label] = true
		defs = append(defs, d)
	}
	return defs, nil
}

// Defaults derives one task per workspace folder from the project model.
func Defaults(ctx context.Context, svc projectmodel.Service, workspaces []string) ([]Definition, error) {
	var defs []Definition
	for _, ws := range workspaces {
		d, err := defaultFor(ctx, svc, ws)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func defaultFor(ctx context.Context, svc projectmodel.Service, ws string) (Definition, error) {
	projects, err := svc.ListProjects(ctx, ws)
	if err != nil {
		return Definition{}, err
	}

	seen := make(map[string]bool)
	var elements []string
	external := map[model.Scope]bool{}

	for _, p := range projects {
		for _, scope := range []model.Scope{model.ScopeRuntime, model.ScopeTest} {
			res, err := svc.Classpaths(ctx, p.ID, scope)
			if err != nil {
				return Definition{}, err
			}
			for _, cp := range res.Classpaths {
				if classpath.KindOf(cp) == model.KindExternal {
					external[scope] = true
					continue
				}
				if seen[cp] {
					continue
				}
				seen[cp] = true
				elements = append(elements, relativeTo(ws, cp))
			}
		}
	}

	if external[model.ScopeRuntime] {
		elements = append(elements, model.RuntimeDependencies)
	}
	if external[model.ScopeTest] {
		elements = append(elements, model.TestDependencies)
	}

	return Definition{
		Type:       Type,
		Label:      filepath.Base(ws),
		Elements:   elements,
		TargetPath: DefaultTargetPath,
		Workspace:  ws,
		Generated:  true,
	}, nil
}

// relativeTo returns path relative to root, slash-separated, when it lies
// under root; otherwise path unchanged.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// Find returns the task labelled label. Configured tasks shadow generated
// ones with the same label.
func Find(defs []Definition, label string) (Definition, error) {
	var generated *Definition
	for i := range defs {
		if defs[i].Label != label {
			continue
		}
		if !defs[i].Generated {
			return defs[i], nil
		}
		if generated == nil {
			generated = &defs[i]
		}
	}
	if generated != nil {
		return *generated, nil
	}
	return Definition{}, model.NewCLIError(model.ExitTaskNotFound, fmt.Sprintf("export task %q not found", label))
}

// Merge returns configured tasks followed by the generated tasks whose
// workspace has no configured task.
func Merge(configured, generated []Definition) []Definition {
	has := make(map[string]bool)
	for _, d := range configured {
		has[d.Workspace] = true
	}
	out := append([]Definition(nil), configured...)
	for _, d := range generated {
		if !has[d.Workspace] {
			out = append(out, d)
		}
	}
	return out
}

// Expand substitutes ${workspaceFolder} and ${workspaceFolderBasename}.
func Expand(s, workspace string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	r := strings.NewReplacer(
		varWorkspaceFolderBasename, filepath.Base(workspace),
		varWorkspaceFolder, filepath.ToSlash(workspace),
	)
	return filepath.FromSlash(r.Replace(s))
}

// Preset converts the task into the values fixed for an export run. Paths
// are expanded and made absolute against the task's workspace.
func (d Definition) Preset() *model.Preset {
	elements := make([]string, len(d.Elements))
	for i, e := range d.Elements {
		elements[i] = Expand(e, d.Workspace)
	}
	return &model.Preset{
		Label:      d.Label,
		Elements:   elements,
		MainClass:  d.MainClass,
		OutputPath: d.resolve(d.TargetPath),
	}
}

// ManifestPath returns the expanded, absolute manifest path, or "".
func (d Definition) ManifestPath() string {
	return d.resolve(d.Manifest)
}

func (d Definition) resolve(p string) string {
	if p == "" {
		return ""
	}
	p = Expand(p, d.Workspace)
	if !filepath.IsAbs(p) && d.Workspace != "" {
		p = filepath.Join(d.Workspace, p)
	}
	return filepath.Clean(p)
}
