// Package cli — export.go implements the "export-jar export" command.
//
// The export command runs the export pipeline once: pre-flight build,
// project resolution, element selection, main class selection and archive
// generation. Values can be fixed ahead of time with --task or individual
// flags; whatever is left open is asked for interactively, or decided
// automatically with --yes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/export-jar/internal/config"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
	"github.com/shinji-kodama/export-jar/internal/prompt"
	"github.com/shinji-kodama/export-jar/internal/task"
	"github.com/shinji-kodama/export-jar/internal/workflow"
)

// exportFlags holds the flag values for the export command.
type exportFlags struct {
	project       string
	task          string
	mainClass     string
	output        string
	manifest      string
	defaultOutput bool
	skipBuild     bool
	yes           bool
	backend       string
	reveal        bool
}

// exportBindings maps config keys to the export flags overriding them.
var exportBindings = map[string]string{
	config.KeyDefaultOutputLocation: "default-output",
	config.KeySkipBuild:             "skip-build",
	config.KeyBackend:               "backend",
}

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the workspace to a jar file",
		Long: `Export the compiled classes and dependencies of the workspace to a jar file.

The workspace is built first (see build.command in the project descriptor),
then you choose the elements to include and the main class. Use --task to
replay an export task from .vscode/tasks.json, or --yes to accept the
defaults without prompting.

Examples:
  export-jar export
  export-jar export --default-output --yes
  export-jar export --task cli
  export-jar export --main-class com.example.App --output dist/app.jar`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "Export only this project (name or id)")
	cmd.Flags().StringVarP(&flags.task, "task", "t", "", "Run the export task with this label")
	cmd.Flags().StringVar(&flags.mainClass, "main-class", "", "Main class written to the manifest")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Destination jar file")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "Use this manifest instead of a generated one")
	cmd.Flags().BoolVar(&flags.defaultOutput, "default-output", false, "Write <workspace>/<name>.jar without asking")
	cmd.Flags().BoolVar(&flags.skipBuild, "skip-build", false, "Do not build the workspace first")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Never prompt; accept the default choices")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Archive backend: local or container")
	cmd.Flags().BoolVar(&flags.reveal, "reveal", false, "Show the jar in the file manager when done")

	return cmd
}

// runExport is the main logic function for the export command.
func runExport(cmd *cobra.Command, flags *exportFlags) error {
	ctx := cmd.Context()

	// Step 1: Resolve workspaces, configuration and the project model.
	sess, err := newSession(cmd, exportBindings)
	if err != nil {
		return err
	}

	// Step 2: Build the request from the task and flags.
	req, err := exportRequest(ctx, sess, flags)
	if err != nil {
		return err
	}

	// Step 3: Wire the pipeline.
	p, confirmer, interactive := sess.prompters(flags.yes)
	archive, release, err := sess.archive(ctx)
	if err != nil {
		return err
	}
	defer release()

	// Step 4: Run it.
	res, err := sess.engine(archive, p).Run(ctx, req)
	if err != nil {
		if interactive {
			offerRemediation(ctx, sess, confirmer, err)
		} else if rem := workflow.RemediationOf(err); rem != nil {
			sess.logger.Info("suggested action", "action", rem.Label)
		}
		return toCLIError(err)
	}
	if res.Skipped {
		sess.logger.Warn("another export is already running")
		return nil
	}

	// Step 5: Report.
	printExportResult(sess.out, res.OutputPath)
	if flags.reveal {
		if err := revealPath(ctx, res.OutputPath); err != nil {
			sess.logger.Warn("cannot reveal the jar", "err", err)
		}
	}
	return nil
}

// exportRequest turns the task and flags into a pipeline request.
func exportRequest(ctx context.Context, sess *session, flags *exportFlags) (workflow.Request, error) {
	req := workflow.Request{Workspaces: sess.workspaces}
	preset := &model.Preset{}

	if flags.task != "" {
		defs, err := sess.tasks(ctx)
		if err != nil {
			return req, err
		}
		def, err := task.Find(defs, flags.task)
		if err != nil {
			return req, err
		}
		sess.logger.Debug("using export task", "label", def.Label, "workspace", def.Workspace)
		preset = def.Preset()
		req.Manifest = def.ManifestPath()
		req.Workspaces = []string{def.Workspace}
	}

	if flags.mainClass != "" {
		preset.MainClass = flags.mainClass
	}
	if flags.output != "" {
		abs, err := prompt.EnsureExt(flags.output, model.ArchiveExt)
		if err != nil {
			return req, err
		}
		preset.OutputPath = abs
	}
	if flags.manifest != "" {
		abs, err := filepath.Abs(flags.manifest)
		if err != nil {
			return req, err
		}
		req.Manifest = abs
	}
	if !preset.IsZero() {
		req.Preset = preset
	}

	if flags.project != "" {
		entry, err := findProject(ctx, sess.model, req.Workspaces, flags.project)
		if err != nil {
			return req, err
		}
		req.Entry = entry
	}
	return req, nil
}

// findProject looks a project up by name or id across workspaces.
func findProject(ctx context.Context, svc projectmodel.Service, workspaces []string, name string) (*model.ProjectRef, error) {
	for _, ws := range workspaces {
		projects, err := svc.ListProjects(ctx, ws)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			if p.Name == name || p.ID == name {
				ref := p
				return &ref, nil
			}
		}
	}
	return nil, model.NewCLIError(model.ExitResolutionFailed, fmt.Sprintf("project %q not found", name))
}

// offerRemediation asks whether to run the action attached to err.
func offerRemediation(ctx context.Context, sess *session, confirmer prompt.Confirmer, err error) {
	rem := workflow.RemediationOf(err)
	if rem == nil || rem.Run == nil || ctx.Err() != nil {
		return
	}
	ok, cerr := confirmer.Confirm(ctx, prompt.ConfirmRequest{
		Title:   fmt.Sprintf("%s. %s?", errorMessage(err), rem.Label),
		Default: true,
	})
	if cerr != nil || !ok {
		return
	}
	if rerr := rem.Run(ctx); rerr != nil {
		sess.logger.Warn("remediation failed", "action", rem.Label, "err", rerr)
	}
}

// errorMessage is the operator-facing text of an export error.
func errorMessage(err error) string {
	var re *workflow.ResolutionError
	if errors.As(err, &re) {
		return re.Error()
	}
	var ge *workflow.GenerationError
	if errors.As(err, &ge) {
		return ge.Error()
	}
	return err.Error()
}

// toCLIError maps export errors to exit codes. Cancellation and build
// failures are silent: the operator or the build already said why.
func toCLIError(err error) error {
	if err == nil {
		return nil
	}

	var re *workflow.ResolutionError
	var ge *workflow.GenerationError
	var cliErr *model.CLIError
	switch {
	case errors.Is(err, workflow.ErrCancelled):
		return model.SilentCLIError(model.ExitUserCancelled, err)
	case errors.Is(err, workflow.ErrBuildFailed):
		return model.SilentCLIError(model.ExitBuildFailed, err)
	case errors.As(err, &re):
		return model.WrapCLIError(model.ExitResolutionFailed, re.Message, re.Cause)
	case errors.As(err, &ge):
		return model.WrapCLIError(model.ExitGenerationFailed, ge.Message, ge.Cause)
	case errors.As(err, &cliErr):
		return cliErr
	default:
		return model.WrapCLIError(model.ExitGeneralError, "export failed", err)
	}
}

// exportResultJSON is the JSON output of a successful export.
type exportResultJSON struct {
	OutputPath string `json:"outputPath"`
}

// printExportResult reports the written jar in text or JSON.
func printExportResult(w io.Writer, path string) {
	if IsJSONOutput() {
		printJSON(w, exportResultJSON{OutputPath: path})
		return
	}
	fmt.Fprintf(w, "Successfully exported jar to %s\n", path)
	fmt.Fprintf(w, "  --reveal: %s\n", revealLabel(runtime.GOOS))
}
