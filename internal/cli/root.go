// Package cli implements the cobra-based CLI commands for export-jar.
//
// Each subcommand (export, tasks, watch, clean) is defined in its own file
// within this package. This file defines the root command that owns the
// global flags and turns command errors into exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/export-jar/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// configFile is an explicit config file path.
	configFile string

	// workspaceDirs are the workspace folders given with --workspace.
	workspaceDirs []string
)

// Version, Commit and Date are injected from the main package at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with every subcommand registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "export-jar",
		Short: "Package a Java workspace into a runnable jar",
		Long: `export-jar packages the compiled classes and dependency archives of a
Java workspace into a single jar file.

It builds the workspace, resolves the classpath of every project, lets you
choose what goes into the archive and which main class to use, and writes
the jar with the JDK's own jar tool, locally or inside a container.`,

		// Errors are printed by Execute, in text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: <workspace>/.export-jar.yaml)")
	rootCmd.PersistentFlags().StringArrayVarP(&workspaceDirs, "workspace", "w", nil,
		"Workspace folder (repeatable; default: the git root of the current directory)")

	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewTasksCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command with ctx and exits with the code carried
// by the returned error. Silent errors exit without a message.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		if !cliErr.Silent {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
		}
		os.Exit(int(cliErr.Code))
	}

	printError(os.Stderr, err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError writes an error in text or JSON, depending on --json.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}
