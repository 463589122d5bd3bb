// Package cli — tasks.go implements the "export-jar tasks" command.
//
// Export tasks are read from .vscode/tasks.json in every workspace folder.
// Folders without one get a generated default task derived from their
// project model; "tasks list" shows both, configured tasks first.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/export-jar/internal/task"
)

// NewTasksCommand creates the "tasks" cobra command and its subcommands.
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect export tasks",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newTasksListCommand())
	return cmd
}

func newTasksListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the export tasks of the workspace",
		Long: `List the export tasks of every workspace folder.

Configured tasks come from .vscode/tasks.json (entries with "type": "exportjar").
A folder without any gets a generated default task.

Examples:
  export-jar tasks list
  export-jar tasks list --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, nil)
			if err != nil {
				return err
			}
			defs, err := sess.tasks(cmd.Context())
			if err != nil {
				return err
			}
			printTaskList(sess.out, defs)
			return nil
		},
	}
}

// taskSource names where a task came from.
func taskSource(d task.Definition) string {
	if d.Generated {
		return "generated"
	}
	return "tasks.json"
}

// taskJSON is the JSON output structure for a single task.
type taskJSON struct {
	Label      string   `json:"label"`
	Source     string   `json:"source"`
	Workspace  string   `json:"workspace"`
	Elements   []string `json:"elements"`
	MainClass  string   `json:"mainClass,omitempty"`
	TargetPath string   `json:"targetPath,omitempty"`
}

// printTaskList outputs the tasks in text or JSON format.
//
// The table format is:
//
//	LABEL   SOURCE      WORKSPACE   ELEMENTS  MAIN CLASS
//	app     tasks.json  /ws/app     3         com.example.App
func printTaskList(w io.Writer, defs []task.Definition) {
	if IsJSONOutput() {
		type resultJSON struct {
			Tasks []taskJSON `json:"tasks"`
		}
		result := resultJSON{Tasks: make([]taskJSON, 0, len(defs))}
		for _, d := range defs {
			elements := d.Elements
			if elements == nil {
				elements = []string{}
			}
			result.Tasks = append(result.Tasks, taskJSON{
				Label:      d.Label,
				Source:     taskSource(d),
				Workspace:  d.Workspace,
				Elements:   elements,
				MainClass:  d.MainClass,
				TargetPath: d.TargetPath,
			})
		}
		printJSON(w, result)
		return
	}

	if len(defs) == 0 {
		fmt.Fprintln(w, "No export tasks found.")
		return
	}

	fmt.Fprintf(w, "%-20s %-11s %-30s %-9s %s\n", "LABEL", "SOURCE", "WORKSPACE", "ELEMENTS", "MAIN CLASS")
	for _, d := range defs {
		mainClass := d.MainClass
		if strings.TrimSpace(mainClass) == "" {
			mainClass = "-"
		}
		fmt.Fprintf(w, "%-20s %-11s %-30s %-9d %s\n",
			d.Label, taskSource(d), d.Workspace, len(d.Elements), mainClass)
	}
}
