// Package projectmodel provides the project/build model consumed by the
// export workflow: the projects of a workspace folder, their classpaths per
// scope, their candidate entry points, and the workspace build.
//
// The model is read from a YAML descriptor checked into the workspace
// (.export-jar/projects.yaml by default), usually generated by the build
// tool. Relative paths in the descriptor are resolved against the workspace
// folder that contains it.
package projectmodel

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/export-jar/internal/model"
)

// DefaultDescriptorPath is the descriptor location relative to a workspace root.
const DefaultDescriptorPath = ".export-jar/projects.yaml"

// Service is the contract the export workflow needs from a project model.
type Service interface {
	// ListProjects returns the projects of the workspace folder rootID.
	ListProjects(ctx context.Context, rootID string) ([]model.ProjectRef, error)

	// Classpaths returns the classpath and modulepath entries of a project
	// for one scope.
	Classpaths(ctx context.Context, projectID string, scope model.Scope) (model.ClasspathResult, error)

	// ListEntryPoints returns the candidate main classes of a workspace folder.
	ListEntryPoints(ctx context.Context, rootID string) ([]model.EntryPoint, error)

	// Build builds the whole workspace. It reports false when the build
	// ran and failed; err is reserved for failures to run it at all.
	Build(ctx context.Context) (bool, error)
}

// File is the YAML structure of a descriptor.
type File struct {
	// Build describes how to build the workspace before exporting.
	Build BuildSpec `yaml:"build"`

	// Projects lists the projects of the workspace folder.
	Projects []ProjectSpec `yaml:"projects"`
}

// BuildSpec configures the pre-flight build.
type BuildSpec struct {
	// Command is a shell-style command line, e.g. "./gradlew classes".
	// Empty means there is nothing to build.
	Command string `yaml:"command,omitempty"`

	// Env holds extra environment variables for the build.
	Env map[string]string `yaml:"env,omitempty"`
}

// ProjectSpec describes one project.
type ProjectSpec struct {
	Name        string     `yaml:"name"`
	Path        string     `yaml:"path,omitempty"`
	Classpaths  ScopePaths `yaml:"classpaths"`
	Modulepaths ScopePaths `yaml:"modulepaths,omitempty"`
	MainClasses []string   `yaml:"mainClasses,omitempty"`
}

// ScopePaths lists paths per classpath scope.
type ScopePaths struct {
	Runtime []string `yaml:"runtime,omitempty"`
	Test    []string `yaml:"test,omitempty"`
}

// forScope returns the paths of scope.
func (s ScopePaths) forScope(scope model.Scope) []string {
	if scope == model.ScopeTest {
		return s.Test
	}
	return s.Runtime
}

// ParseFile decodes a descriptor and checks the fields the workflow relies on.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse project descriptor: %w", err)
	}

	seen := make(map[string]bool, len(f.Projects))
	for i, p := range f.Projects {
		if p.Name == "" {
			return nil, fmt.Errorf("project descriptor: project #%d has no name", i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("project descriptor: duplicate project name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return &f, nil
}

// Marshal encodes a descriptor. Projects keep their order.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// folder is one loaded workspace folder.
type folder struct {
	root string
	file *File
}

// Descriptor is a Service backed by descriptor files, one per workspace folder.
type Descriptor struct {
	// relPath is the descriptor path relative to each root.
	relPath string

	// buildOutput receives the build command's stdout and stderr.
	buildOutput io.Writer

	mu      sync.Mutex
	folders map[string]*folder
	order   []string
}

// NewDescriptor creates a descriptor-backed model for the given workspace
// roots. relPath overrides DefaultDescriptorPath when non-empty. Build
// output is streamed to buildOutput (os.Stderr when nil).
func NewDescriptor(roots []string, relPath string, buildOutput io.Writer) *Descriptor {
	if relPath == "" {
		relPath = DefaultDescriptorPath
	}
	if buildOutput == nil {
		buildOutput = os.Stderr
	}
	d := &Descriptor{
		relPath:     relPath,
		buildOutput: buildOutput,
		folders:     make(map[string]*folder),
	}
	for _, r := range roots {
		d.order = append(d.order, filepath.Clean(r))
	}
	return d
}

// Path returns the descriptor file path for root.
func (d *Descriptor) Path(root string) string {
	if filepath.IsAbs(d.relPath) {
		return d.relPath
	}
	return filepath.Join(root, d.relPath)
}

// load reads and caches the descriptor of root.
func (d *Descriptor) load(root string) (*folder, error) {
	root = filepath.Clean(root)

	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.folders[root]; ok {
		return f, nil
	}

	path := d.Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitResolutionFailed,
				fmt.Sprintf("project descriptor not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read project descriptor: %w", err)
	}

	file, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f := &folder{root: root, file: file}
	d.folders[root] = f
	return f, nil
}

// projectID builds the identifier of a project: "<root>#<name>".
func projectID(root, name string) string {
	return root + "#" + name
}

// splitProjectID is the inverse of projectID.
func splitProjectID(id string) (root, name string, err error) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '#' {
			return id[:i], id[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed project id %q", id)
}

// ListProjects implements Service.
func (d *Descriptor) ListProjects(ctx context.Context, rootID string) ([]model.ProjectRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := d.load(rootID)
	if err != nil {
		return nil, err
	}

	refs := make([]model.ProjectRef, 0, len(f.file.Projects))
	for _, p := range f.file.Projects {
		refs = append(refs, model.ProjectRef{
			ID:   projectID(f.root, p.Name),
			Name: p.Name,
			Root: f.root,
		})
	}
	return refs, nil
}

// Classpaths implements Service. Paths are returned absolute and in
// descriptor order; existence is not checked here.
func (d *Descriptor) Classpaths(ctx context.Context, projectID string, scope model.Scope) (model.ClasspathResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ClasspathResult{}, err
	}
	root, name, err := splitProjectID(projectID)
	if err != nil {
		return model.ClasspathResult{}, err
	}
	f, err := d.load(root)
	if err != nil {
		return model.ClasspathResult{}, err
	}

	for _, p := range f.file.Projects {
		if p.Name != name {
			continue
		}
		return model.ClasspathResult{
			Classpaths:  absPaths(f.root, p.Classpaths.forScope(scope)),
			Modulepaths: absPaths(f.root, p.Modulepaths.forScope(scope)),
		}, nil
	}
	return model.ClasspathResult{}, fmt.Errorf("unknown project %q in %s", name, root)
}

// ListEntryPoints implements Service. Names are deduplicated and sorted.
func (d *Descriptor) ListEntryPoints(ctx context.Context, rootID string) ([]model.EntryPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := d.load(rootID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var eps []model.EntryPoint
	for _, p := range f.file.Projects {
		for _, mc := range p.MainClasses {
			if mc == "" || seen[mc] {
				continue
			}
			seen[mc] = true
			eps = append(eps, model.EntryPoint{Name: mc})
		}
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Name < eps[j].Name })
	return eps, nil
}

// Build implements Service. Every workspace folder with a build command is
// built in order; the first failing build stops the sequence.
func (d *Descriptor) Build(ctx context.Context) (bool, error) {
	for _, root := range d.order {
		f, err := d.load(root)
		if err != nil {
			return false, err
		}
		if f.file.Build.Command == "" {
			continue
		}
		ok, err := runBuild(ctx, f.root, f.file.Build, d.buildOutput)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// absPaths resolves paths against root.
func absPaths(root string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, filepath.FromSlash(p))
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
