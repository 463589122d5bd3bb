// Package workflow drives one export from project resolution to the
// written archive.
//
// The pipeline is a small state machine: each model.ExportStep is handled
// by an Executor, which mutates the shared model.StepMetadata and returns
// a Transition. The Engine owns the metadata, enforces single flight
// through a Guard and turns the outcome into a Result or a typed error.
package workflow

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/shinji-kodama/export-jar/internal/generator"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

// maxRecoveries bounds how often one run restarts after hitting a step
// with no executor.
const maxRecoveries = 3

// Executor runs one pipeline stage.
type Executor interface {
	Execute(ctx context.Context, meta *model.StepMetadata) (Transition, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, meta *model.StepMetadata) (Transition, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, meta *model.StepMetadata) (Transition, error) {
	return f(ctx, meta)
}

// ItemResolver resolves the dependency set of the chosen projects.
type ItemResolver interface {
	Resolve(ctx context.Context, workspaceRoot string, projects []model.ProjectRef) ([]model.DependencyItem, error)
}

// ArchiveService writes the archive.
type ArchiveService interface {
	Generate(ctx context.Context, req generator.Request) error
}

// OpenFunc opens a file or folder with the operating system's default
// application.
type OpenFunc func(ctx context.Context, path string) error

// Config wires an Engine to its collaborators.
type Config struct {
	Model    projectmodel.Service
	Resolver ItemResolver
	Archive  ArchiveService
	Prompter prompt.Prompter

	// Guard defaults to DefaultGuard.
	Guard *Guard

	// Logger defaults to a discarding logger.
	Logger *log.Logger

	// Open backs the "open descriptor" remediation. Nil disables it.
	Open OpenFunc

	// SkipBuild disables the pre-flight build.
	SkipBuild bool

	// DefaultOutputLocation writes to <root>/<base(root)>.jar without asking.
	DefaultOutputLocation bool
}

// Request is the input of one export.
type Request struct {
	// Entry pre-selects the project; its Root decides the workspace folder.
	Entry *model.ProjectRef

	// Workspaces are the candidate workspace folders.
	Workspaces []string

	// Manifest optionally overrides the generated manifest.
	Manifest string

	// Preset fixes values ahead of time, from an export task.
	Preset *model.Preset
}

// Result is the outcome of a completed or skipped export.
type Result struct {
	// OutputPath is the written archive.
	OutputPath string

	// Skipped is true when another export was already running.
	Skipped bool

	// Metadata is the final pipeline state.
	Metadata *model.StepMetadata
}

// Engine runs the export pipeline.
type Engine struct {
	executors map[model.ExportStep]Executor
	build     func(ctx context.Context) (bool, error)
	guard     *Guard
	logger    *log.Logger
	skipBuild bool
}

// NewEngine creates an Engine with the standard stages registered.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	guard := cfg.Guard
	if guard == nil {
		guard = DefaultGuard
	}

	e := &Engine{
		executors: make(map[model.ExportStep]Executor),
		guard:     guard,
		logger:    logger,
		skipBuild: cfg.SkipBuild,
	}
	if cfg.Model != nil {
		e.build = cfg.Model.Build
	}

	rem := remediations{model: cfg.Model, open: cfg.Open}
	e.Register(model.StepResolveProject, &projectStage{model: cfg.Model, prompter: cfg.Prompter, rem: rem})
	e.Register(model.StepResolveElements, &selectionStage{resolver: cfg.Resolver, prompter: cfg.Prompter, rem: rem, logger: logger})
	e.Register(model.StepResolveEntryPoint, &entryPointStage{model: cfg.Model, prompter: cfg.Prompter})
	e.Register(model.StepGenerate, &generateStage{
		archive:       cfg.Archive,
		prompter:      cfg.Prompter,
		defaultOutput: cfg.DefaultOutputLocation,
		logger:        logger,
	})
	return e
}

// Register sets the executor of step, replacing any previous one.
func (e *Engine) Register(step model.ExportStep, x Executor) {
	e.executors[step] = x
}

// Unregister removes the executor of step.
func (e *Engine) Unregister(step model.ExportStep) {
	delete(e.executors, step)
}

// Run executes one export. When another export holds the guard, Run
// returns a skipped Result without doing anything.
//
// Cancellation, whether from ctx or from the operator, yields ErrCancelled.
// Stage failures are returned as *ResolutionError or *GenerationError.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	release, ok := e.guard.TryAcquire()
	if !ok {
		e.logger.Info("an export is already running; not starting another")
		return Result{Skipped: true}, nil
	}
	defer release()

	if err := e.preflight(ctx); err != nil {
		return Result{}, err
	}

	meta := model.NewStepMetadata(req.Entry, req.Workspaces)
	meta.ManifestPath = req.Manifest
	meta.Preset = req.Preset

	recoveries := 0
	step := model.StepResolveProject
	for step != model.StepFinish {
		if ctx.Err() != nil {
			return Result{Metadata: meta}, ErrCancelled
		}

		x, ok := e.executors[step]
		if !ok {
			recoveries++
			if recoveries > maxRecoveries {
				return Result{Metadata: meta}, errors.Errorf("no executor for step %q after %d restarts", step, maxRecoveries)
			}
			e.logger.Warn("no executor registered; restarting export", "step", step, "attempt", recoveries)
			meta = meta.Reset()
			step = model.StepResolveProject
			continue
		}

		e.logger.Debug("entering step", "step", step)
		tr, err := x.Execute(ctx, meta)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return Result{Metadata: meta}, ErrCancelled
			}
			return Result{Metadata: meta}, errors.Wrapf(err, "step %s", step)
		}
		e.logger.Debug("step finished", "step", step, "transition", tr)

		switch tr.kind {
		case kindAdvance:
			meta.MarkCompleted(step)
			step = tr.step
		case kindBack:
			meta.Rewind(tr.step)
			step = tr.step
		case kindAbort:
			return Result{Metadata: meta}, ErrCancelled
		}
	}

	return Result{OutputPath: meta.OutputPath, Metadata: meta}, nil
}

// preflight builds the workspace unless disabled.
func (e *Engine) preflight(ctx context.Context) error {
	if e.skipBuild || e.build == nil {
		return nil
	}

	e.logger.Debug("building workspace")
	ok, err := e.build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return errors.Wrap(err, "pre-flight build")
	}
	if !ok {
		return ErrBuildFailed
	}
	return nil
}
