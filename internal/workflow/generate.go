package workflow

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/export-jar/internal/generator"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

// generateStage chooses the destination and writes the archive.
type generateStage struct {
	archive       ArchiveService
	prompter      prompt.Prompter
	defaultOutput bool
	logger        *log.Logger
}

// DefaultDestination is <root>/<base(root)>.jar.
func DefaultDestination(root string) string {
	return filepath.Join(root, filepath.Base(root)+model.ArchiveExt)
}

// Execute implements Executor.
func (s *generateStage) Execute(ctx context.Context, meta *model.StepMetadata) (Transition, error) {
	dest, ok, err := s.destination(ctx, meta)
	if err != nil {
		return Transition{}, err
	}
	if !ok {
		return Abort(), nil
	}

	s.logger.Info("exporting", "destination", dest, "elements", len(meta.Elements), "mainClass", meta.SelectedEntryPoint)
	err = s.archive.Generate(ctx, generator.Request{
		EntryPoint:  meta.SelectedEntryPoint,
		Elements:    meta.Elements,
		Destination: dest,
		Manifest:    meta.ManifestPath,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Abort(), nil
		}
		return Transition{}, &GenerationError{Message: "export failed", Cause: err}
	}

	meta.OutputPath = dest
	return Advance(model.StepFinish), nil
}

// destination resolves the output path. ok is false when the operator
// dismissed the save prompt.
func (s *generateStage) destination(ctx context.Context, meta *model.StepMetadata) (string, bool, error) {
	if meta.Preset != nil && meta.Preset.OutputPath != "" {
		p, err := filepath.Abs(meta.Preset.OutputPath)
		return p, err == nil, err
	}

	def := DefaultDestination(meta.WorkspaceRoot)
	if s.defaultOutput {
		return def, true, nil
	}

	p, action, err := s.prompter.SaveLocation(ctx, prompt.SaveRequest{
		Title:       "Save the archive as",
		DefaultPath: def,
		Extension:   model.ArchiveExt,
	})
	if err != nil {
		return "", false, err
	}
	if action != prompt.ActionAccept || p == "" {
		return "", false, nil
	}
	return p, true, nil
}
