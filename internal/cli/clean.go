// Package cli — clean.go implements the "export-jar clean" command.
//
// The container backend runs the jar tool in short-lived containers that
// are removed as soon as the archive is written. A crash or a killed
// process can leave one behind; clean finds them by their
// "export-jar.managed-by" label and removes them.
//
// By default, the command prompts for confirmation before proceeding.
// The --force flag skips the confirmation prompt.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/export-jar/internal/docker"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/prompt"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// force skips the interactive confirmation prompt when true.
	force bool
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover generator containers",
		Long: `Remove generator containers left on the Docker host by interrupted exports.

Unless --force is specified, the command lists the containers and prompts
for confirmation.

Examples:
  export-jar clean
  export-jar clean --force --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, nil)
			if err != nil {
				return err
			}
			var confirmer prompt.Confirmer
			if isTerminal(cmd.InOrStdin()) && isTerminal(cmd.ErrOrStderr()) && !jsonOutput {
				confirmer = prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			return runClean(cmd.Context(), sess.out, sess.errOut, sess.dockerOptions(), confirmer, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove without confirmation")

	return cmd
}

// runClean connects to Docker, lists the managed containers and removes
// them. A nil confirmer means no operator is available.
func runClean(ctx context.Context, w, errOut io.Writer, opts docker.Options, confirmer prompt.Confirmer, flags *cleanFlags) error {
	// Step 1: Connect to Docker daemon.
	cli, err := docker.NewClient(opts)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	logger := newLogger(errOut, verbose)
	logger.Debug("connected to Docker daemon", "host", cli.Host())

	// Step 2: Find leftovers.
	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		printCleanResult(w, nil)
		return nil
	}

	// Step 3: Confirm unless --force is specified.
	if !flags.force {
		if confirmer == nil {
			return model.NewCLIError(model.ExitGeneralError,
				"refusing to remove containers without a terminal; pass --force")
		}
		for _, c := range containers {
			fmt.Fprintf(errOut, "  %s  %-10s %s\n", shortID(c.ContainerID), c.Status, c.Destination)
		}
		ok, err := confirmer.Confirm(ctx, prompt.ConfirmRequest{
			Title: fmt.Sprintf("Remove %d container(s)?", len(containers)),
		})
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if !ok {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	// Step 4: Remove them. force=true also stops running containers.
	for _, c := range containers {
		logger.Debug("removing container", "id", shortID(c.ContainerID), "name", c.ContainerName)
		if err := docker.RemoveContainer(ctx, cli, c.ContainerID, true); err != nil {
			return model.WrapCLIError(model.ExitDockerNotRunning,
				fmt.Sprintf("failed to remove container %q", c.ContainerName), err)
		}
	}

	printCleanResult(w, containers)
	return nil
}

// shortID returns the 12-character form of a container ID.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// cleanResultJSON is the JSON output of the clean command.
type cleanResultJSON struct {
	Removed []model.ContainerInfo `json:"removed"`
}

// printCleanResult outputs the removed containers in text or JSON format.
func printCleanResult(w io.Writer, removed []model.ContainerInfo) {
	if IsJSONOutput() {
		result := cleanResultJSON{Removed: make([]model.ContainerInfo, 0, len(removed))}
		result.Removed = append(result.Removed, removed...)
		printJSON(w, result)
		return
	}
	if len(removed) == 0 {
		fmt.Fprintln(w, "No leftover generator containers.")
		return
	}
	fmt.Fprintf(w, "Removed %d container(s)\n", len(removed))
}
