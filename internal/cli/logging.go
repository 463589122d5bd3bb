package cli

import (
	"io"

	"github.com/charmbracelet/log"
)

// newLogger creates the process logger. Verbose output enables debug
// records and timestamps.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "export-jar",
		Level:           level,
		ReportTimestamp: verbose,
	})
}
