// Package model defines the domain types and value objects for the
// export-jar CLI.
//
// This package contains pure data structures with no external dependencies:
// the pipeline state (StepMetadata), resolved dependency entries
// (DependencyItem), project and entry-point references returned by the
// project model, and the exit codes carried by CLIError.
package model
