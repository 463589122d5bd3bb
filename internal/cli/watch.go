// Package cli — watch.go implements the "export-jar watch" command.
//
// The watch command exports once, then watches the output directories that
// went into the archive and exports again whenever they change. Choices made
// by the first export (elements, main class, destination) are pinned for
// the following ones, which never prompt. The pre-flight build is always
// skipped: a build writes to the watched directories and would retrigger
// the watch.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/export-jar/internal/config"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/prompt"
	"github.com/shinji-kodama/export-jar/internal/watch"
	"github.com/shinji-kodama/export-jar/internal/workflow"
)

// watchFlags holds the flag values for the watch command.
type watchFlags struct {
	task          string
	debounce      time.Duration
	defaultOutput bool
	backend       string
}

var watchBindings = map[string]string{
	config.KeyDefaultOutputLocation: "default-output",
	config.KeyBackend:               "backend",
}

// NewWatchCommand creates the "watch" cobra command.
func NewWatchCommand() *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-export whenever build outputs change",
		Long: `Export the workspace, then export again each time one of the exported
output directories changes. Stop with Ctrl-C.

Examples:
  export-jar watch --task app
  export-jar watch --debounce 2s`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.task, "task", "t", "", "Run the export task with this label")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "Quiet period before re-exporting")
	cmd.Flags().BoolVar(&flags.defaultOutput, "default-output", false, "Write <workspace>/<name>.jar without asking")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Archive backend: local or container")

	return cmd
}

func runWatch(cmd *cobra.Command, flags *watchFlags) error {
	ctx := cmd.Context()

	sess, err := newSession(cmd, watchBindings)
	if err != nil {
		return err
	}
	sess.cfg.Build.Skip = true

	req, err := exportRequest(ctx, sess, &exportFlags{task: flags.task})
	if err != nil {
		return err
	}

	archive, release, err := sess.archive(ctx)
	if err != nil {
		return err
	}
	defer release()

	// The first export may prompt; the rest replay its choices.
	p, _, _ := sess.prompters(false)
	res, err := sess.engine(archive, p).Run(ctx, req)
	if err != nil {
		return toCLIError(err)
	}
	printExportResult(sess.out, res.OutputPath)

	req = pinnedRequest(req, res.Metadata)
	engine := sess.engine(archive, prompt.Auto{})

	roots := watchRoots(res.Metadata.Elements)
	w, err := watch.New(watch.Config{
		Roots:    roots,
		Debounce: flags.debounce,
		Logger:   sess.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			sess.logger.Debug("outputs changed", "paths", changed)
			res, err := engine.Run(ctx, req)
			if err != nil {
				return err
			}
			if res.Skipped {
				sess.logger.Info("export still running; change ignored")
				return nil
			}
			printExportResult(sess.out, res.OutputPath)
			return nil
		},
	})
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot watch the exported outputs", err)
	}

	sess.logger.Info("watching for changes", "directories", len(roots))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// pinnedRequest fixes the choices of a completed export so that replays
// never need an operator.
func pinnedRequest(req workflow.Request, meta *model.StepMetadata) workflow.Request {
	pinned := &model.Preset{
		Elements:   append([]string(nil), meta.Elements...),
		MainClass:  meta.SelectedEntryPoint,
		OutputPath: meta.OutputPath,
	}
	if req.Preset != nil {
		pinned.Label = req.Preset.Label
	}
	req.Preset = pinned
	if req.Entry == nil && meta.WorkspaceRoot != "" {
		req.Entry = &model.ProjectRef{Root: meta.WorkspaceRoot}
	}
	return req
}

// watchRoots returns the elements that are directories. Archives are
// skipped: they only change when dependencies are updated.
func watchRoots(elements []string) []string {
	var roots []string
	for _, e := range elements {
		info, err := os.Stat(e)
		if err == nil && info.IsDir() {
			roots = append(roots, e)
		}
	}
	return roots
}
