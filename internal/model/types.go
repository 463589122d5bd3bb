// Package model defines the domain types for the export-jar CLI.
//
// The types here are shared by the dependency resolver, the workflow stages
// and the CLI layer. StepMetadata is the single mutable record threaded
// through one pipeline run; everything else is a transient value.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ArchiveExt is the extension of the archives handled by the tool, both as
// dependency entries and as the generated output.
const ArchiveExt = ".jar"

// ExportStep identifies a stage of the export pipeline.
//
// The happy path is:
//
//	ResolveProject → ResolveElements → ResolveEntryPoint → Generate → Finish
//
// ResolveElements and ResolveEntryPoint may send control back to
// ResolveProject when the operator asks for it.
type ExportStep string

const (
	// StepResolveProject picks the workspace folder and its project roots.
	StepResolveProject ExportStep = "resolve-project"

	// StepResolveElements resolves the dependency set and lets the operator
	// choose which elements go into the archive.
	StepResolveElements ExportStep = "resolve-elements"

	// StepResolveEntryPoint picks the main class written to the manifest.
	StepResolveEntryPoint ExportStep = "resolve-entry-point"

	// StepGenerate chooses the destination and invokes the archive backend.
	StepGenerate ExportStep = "generate"

	// StepFinish is the terminal state.
	StepFinish ExportStep = "finish"
)

// String satisfies fmt.Stringer.
func (s ExportStep) String() string {
	return string(s)
}

// Scope is the classpath scope an entry was discovered under.
type Scope string

const (
	ScopeRuntime Scope = "runtime"
	ScopeTest    Scope = "test"
)

// Label returns the display text used in prompts and for sorting.
// "Runtime" sorts before "Test", which groups runtime entries first.
func (s Scope) Label() string {
	switch s {
	case ScopeRuntime:
		return "Runtime"
	case ScopeTest:
		return "Test"
	default:
		return string(s)
	}
}

// IsValid checks whether the Scope is one of the known scopes.
func (s Scope) IsValid() bool {
	return s == ScopeRuntime || s == ScopeTest
}

// ParseScope converts a string to a Scope.
func ParseScope(s string) (Scope, error) {
	scope := Scope(strings.ToLower(s))
	if !scope.IsValid() {
		return "", fmt.Errorf("invalid scope: %q (valid: runtime, test)", s)
	}
	return scope, nil
}

// Kind classifies a dependency entry by where it lives.
type Kind string

const (
	// KindInternal is a loose output directory produced by the workspace
	// build (e.g. bin/main).
	KindInternal Kind = "internal"

	// KindExternal is a packaged archive (a .jar file).
	KindExternal Kind = "external"
)

// DependencyItem is one resolved classpath or modulepath entry.
type DependencyItem struct {
	// Label is the display path: relative to the workspace root when the
	// entry lives under it, otherwise the base name.
	Label string `json:"label"`

	// Scope is the scope the entry was first discovered under.
	Scope Scope `json:"scope"`

	// Kind is external for archives, internal otherwise.
	Kind Kind `json:"kind"`

	// AbsolutePath is the identity of the entry; no two items in a resolved
	// set share it.
	AbsolutePath string `json:"absolutePath"`

	// Preselected is true for runtime entries.
	Preselected bool `json:"preselected"`
}

// ProjectRef identifies a project inside a workspace folder.
type ProjectRef struct {
	// ID is the identifier understood by the project model service.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Root is the absolute path of the workspace folder that owns the project.
	Root string `json:"root"`
}

// EntryPoint is a candidate program entry point.
type EntryPoint struct {
	// Name is the fully-qualified class name, e.g. "com.example.App".
	Name string `json:"name"`

	// Path is the source file declaring it, when known.
	Path string `json:"path,omitempty"`
}

// ClasspathResult is what the project model returns for one scope query.
type ClasspathResult struct {
	Classpaths  []string `json:"classpaths"`
	Modulepaths []string `json:"modulepaths"`
}

// Preset carries values fixed ahead of time by an export task. Empty fields
// fall back to the interactive behaviour of the corresponding stage.
type Preset struct {
	// Label is the task name, for logging.
	Label string `json:"label,omitempty"`

	// Elements are element patterns: workspace-relative or absolute paths,
	// or the RuntimeDependencies / TestDependencies placeholders.
	Elements []string `json:"elements,omitempty"`

	// MainClass is the fully-qualified entry point.
	MainClass string `json:"mainClass,omitempty"`

	// OutputPath is the destination archive path.
	OutputPath string `json:"outputPath,omitempty"`
}

// IsZero reports whether the preset fixes nothing.
func (p *Preset) IsZero() bool {
	return p == nil || (len(p.Elements) == 0 && p.MainClass == "" && p.OutputPath == "")
}

// Element placeholders used in export tasks. Each expands to every external
// entry of the matching scope.
const (
	RuntimeDependencies = "Runtime Dependencies"
	TestDependencies    = "Test Dependencies"
)

// StepMetadata is the mutable state of one pipeline run. The workflow engine
// owns it; stages receive it by pointer and mutate only the fields they are
// responsible for.
type StepMetadata struct {
	// Entry is a pre-selected project, set for non-interactive invocation.
	Entry *ProjectRef

	// Workspaces are the candidate workspace folders (absolute paths).
	Workspaces []string

	// WorkspaceRoot is the folder chosen by the project stage.
	WorkspaceRoot string

	// PickedWorkspace is true when the project stage prompted the operator.
	// Downstream prompts only offer "go back" in that case.
	PickedWorkspace bool

	// ProjectRoots are the projects under export, in model order.
	ProjectRoots []ProjectRef

	// Elements are the absolute paths chosen for inclusion.
	Elements []string

	// SelectedEntryPoint is the fully-qualified main class, or empty.
	SelectedEntryPoint string

	// ManifestPath optionally overrides the generated manifest.
	ManifestPath string

	// OutputPath is set by the generation stage on success only.
	OutputPath string

	// CompletedSteps records the stages already executed, in order.
	CompletedSteps []ExportStep

	// Preset holds task-provided values, if any.
	Preset *Preset
}

// NewStepMetadata creates the metadata for a fresh pipeline run.
func NewStepMetadata(entry *ProjectRef, workspaces []string) *StepMetadata {
	return &StepMetadata{
		Entry:      entry,
		Workspaces: slices.Clone(workspaces),
	}
}

// Reset returns a fresh instance that keeps only what was supplied by the
// caller (entry handle, workspaces, manifest override and preset).
func (m *StepMetadata) Reset() *StepMetadata {
	fresh := NewStepMetadata(m.Entry, m.Workspaces)
	fresh.ManifestPath = m.ManifestPath
	fresh.Preset = m.Preset
	return fresh
}

// AddElement appends path unless it is already present.
// It reports whether the path was added.
func (m *StepMetadata) AddElement(path string) bool {
	if slices.Contains(m.Elements, path) {
		return false
	}
	m.Elements = append(m.Elements, path)
	return true
}

// MarkCompleted records step as executed.
func (m *StepMetadata) MarkCompleted(step ExportStep) {
	m.CompletedSteps = append(m.CompletedSteps, step)
}

// Rewind drops every completed step from step onwards and clears the state
// those stages produced, so step can run again against a consistent record.
func (m *StepMetadata) Rewind(step ExportStep) {
	idx := slices.Index(m.CompletedSteps, step)
	if idx >= 0 {
		m.CompletedSteps = m.CompletedSteps[:idx]
	}

	switch step {
	case StepResolveProject:
		m.WorkspaceRoot = ""
		m.PickedWorkspace = false
		m.ProjectRoots = nil
		fallthrough
	case StepResolveElements:
		m.Elements = nil
		fallthrough
	case StepResolveEntryPoint:
		m.SelectedEntryPoint = ""
		fallthrough
	case StepGenerate:
		m.OutputPath = ""
	}
}

// ContainerInfo describes a generator container left on the Docker host,
// reconstructed from its labels.
type ContainerInfo struct {
	// ContainerID is the Docker container ID.
	ContainerID string `json:"containerId"`

	// ContainerName is the name without Docker's leading "/".
	ContainerName string `json:"containerName"`

	// Image is the image the container was created from.
	Image string `json:"image"`

	// Status is the Docker state: "running", "exited", "created"...
	Status string `json:"status"`

	// Destination is the archive the container was producing.
	Destination string `json:"destination,omitempty"`

	// CreatedAt is when the container was started by the tool.
	CreatedAt time.Time `json:"createdAt"`

	// Labels holds every Docker label of the container.
	Labels map[string]string `json:"labels,omitempty"`
}

// ExitCode defines the CLI exit codes. Scripts and CI systems can use them
// to tell why an export did not produce an archive.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitResolutionFailed indicates no usable classpath, project or
	// element set could be resolved.
	ExitResolutionFailed ExitCode = 2

	// ExitGenerationFailed indicates the archive backend reported failure.
	ExitGenerationFailed ExitCode = 3

	// ExitBuildFailed indicates the pre-flight workspace build failed.
	ExitBuildFailed ExitCode = 4

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// while the container backend is selected.
	ExitDockerNotRunning ExitCode = 5

	// ExitTaskNotFound indicates the requested export task does not exist.
	ExitTaskNotFound ExitCode = 6

	// ExitUserCancelled indicates the operator cancelled a prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is an error that carries an exit code. It lets the CLI layer
// translate domain errors into process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error

	// Silent suppresses the error message; only the exit code is reported.
	Silent bool
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// SilentCLIError creates a CLIError that exits with code without printing.
func SilentCLIError(code ExitCode, err error) *CLIError {
	return &CLIError{Code: code, Message: "silent exit", Err: err, Silent: true}
}
