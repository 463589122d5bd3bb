package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/shinji-kodama/export-jar/internal/classpath"
	"github.com/shinji-kodama/export-jar/internal/config"
	"github.com/shinji-kodama/export-jar/internal/docker"
	"github.com/shinji-kodama/export-jar/internal/generator"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
	"github.com/shinji-kodama/export-jar/internal/prompt"
	"github.com/shinji-kodama/export-jar/internal/task"
	"github.com/shinji-kodama/export-jar/internal/workflow"
	"github.com/shinji-kodama/export-jar/internal/workspace"
)

// session is what every command resolves before doing work: workspace
// folders, configuration, logger and project model.
type session struct {
	cfg        *config.Config
	logger     *log.Logger
	workspaces []string
	model      *projectmodel.Descriptor

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// newSession resolves the session of cmd. bindings maps config keys to the
// names of cmd's flags overriding them.
func newSession(cmd *cobra.Command, bindings map[string]string) (*session, error) {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	logger := newLogger(errOut, verbose)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	workspaces, err := workspace.Resolve(ctx, workspaceDirs, cwd)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved workspaces", "folders", workspaces)

	flags := make(map[string]*pflag.Flag, len(bindings))
	for key, name := range bindings {
		flags[key] = cmd.Flags().Lookup(name)
	}
	cfg, path, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Workspace:  workspaces[0],
		Flags:      flags,
	})
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "file", path)
	}

	return &session{
		cfg:        cfg,
		logger:     logger,
		workspaces: workspaces,
		model:      projectmodel.NewDescriptor(workspaces, cfg.Project.Descriptor, errOut),
		in:         cmd.InOrStdin(),
		out:        cmd.OutOrStdout(),
		errOut:     errOut,
	}, nil
}

// prompters returns the prompt implementation for this run. Prompts are
// interactive only when asked for and both ends are terminals.
func (s *session) prompters(nonInteractive bool) (prompt.Prompter, prompt.Confirmer, bool) {
	if nonInteractive || jsonOutput || !isTerminal(s.in) || !isTerminal(s.errOut) {
		return prompt.Auto{}, prompt.Auto{}, false
	}
	t := prompt.NewTerminal(s.in, s.errOut)
	return t, t, true
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// archive creates the archive service for the configured backend. The
// returned func releases it.
func (s *session) archive(ctx context.Context) (*generator.Generator, func(), error) {
	if s.cfg.Generator.Backend != config.BackendContainer {
		runner := &generator.LocalRunner{JarPath: s.cfg.Generator.JarPath, Output: s.errOut}
		return generator.New(runner, s.logger), func() {}, nil
	}

	cli, err := docker.NewClient(s.dockerOptions())
	if err != nil {
		return nil, nil, err
	}
	if err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, nil, err
	}
	s.logger.Debug("connected to Docker daemon", "host", cli.Host(), "image", s.cfg.Generator.Image)

	runner := &generator.ContainerRunner{Client: cli, Image: s.cfg.Generator.Image, Output: s.errOut}
	return generator.New(runner, s.logger), func() { _ = cli.Close() }, nil
}

// dockerOptions points the Docker client at the configured daemon.
func (s *session) dockerOptions() docker.Options {
	return docker.Options{Host: s.cfg.Generator.DockerHost}
}

// engine wires the export pipeline.
func (s *session) engine(archive workflow.ArchiveService, p prompt.Prompter) *workflow.Engine {
	return workflow.NewEngine(workflow.Config{
		Model:                 s.model,
		Resolver:              classpath.NewResolver(s.model, nil, s.logger),
		Archive:               archive,
		Prompter:              p,
		Logger:                s.logger,
		Open:                  openPath,
		SkipBuild:             s.cfg.Build.Skip,
		DefaultOutputLocation: s.cfg.Export.DefaultOutputLocation,
	})
}

// tasks returns the configured export tasks of every workspace folder,
// followed by a generated default for each folder without one. Folders
// whose project model cannot be read get no default.
func (s *session) tasks(ctx context.Context) ([]task.Definition, error) {
	var configured, generated []task.Definition
	for _, ws := range s.workspaces {
		defs, err := task.Load(ws)
		if err != nil {
			return nil, err
		}
		configured = append(configured, defs...)

		def, err := task.Defaults(ctx, s.model, []string{ws})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("no default export task", "workspace", ws, "err", err)
			continue
		}
		generated = append(generated, def...)
	}
	return task.Merge(configured, generated), nil
}
