// Package docker provides Docker Engine API wrappers for the container
// generator backend of the export-jar CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Container labels that mark generator containers as ours
//   - Running a one-shot command in a container and collecting its output
//   - Listing and removing leftover generator containers
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
