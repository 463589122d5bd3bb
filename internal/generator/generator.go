// Package generator produces the runnable archive. It stages the chosen
// elements into one directory tree and hands that tree to the JDK `jar`
// tool, which runs either on the host (LocalRunner) or in a container
// (ContainerRunner).
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Request is one archive to generate.
type Request struct {
	// EntryPoint is the fully-qualified main class, or empty for none.
	EntryPoint string

	// Elements are absolute paths of output directories and archives, in
	// precedence order: when two elements provide the same entry, the
	// earlier one wins.
	Elements []string

	// Destination is the absolute path of the archive to write.
	Destination string

	// Manifest optionally points to a manifest file merged into the archive.
	Manifest string
}

// Invocation is one run of the `jar` tool.
type Invocation struct {
	// Args are the tool arguments, without the tool name.
	Args []string

	// Dir is the working directory.
	Dir string

	// Paths are the host paths the tool reads or writes besides Dir.
	Paths []string

	// Archive is the archive being read or written, for diagnostics.
	Archive string
}

// Runner executes the `jar` tool.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// Generator implements the archive generation service.
type Generator struct {
	runner Runner
	logger *log.Logger

	// TempDir is where staging directories are created. Empty uses the
	// system default.
	TempDir string
}

// New creates a Generator that invokes the tool through runner.
func New(runner Runner, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{runner: runner, logger: logger}
}

// Generate writes req.Destination. The staging directory is removed on
// every exit path. Cancellation of ctx is returned as ctx.Err().
func (g *Generator) Generate(ctx context.Context, req Request) error {
	if len(req.Elements) == 0 {
		return errors.New("no elements to export")
	}
	if req.Destination == "" {
		return errors.New("no destination given")
	}

	work, err := os.MkdirTemp(g.TempDir, "export-jar-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(work)

	stage := filepath.Join(work, "stage")
	if err := os.Mkdir(stage, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	for i, el := range req.Elements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.stageElement(ctx, work, stage, i, el); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	destDir := filepath.Dir(req.Destination)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := []string{destDir}
	if req.Manifest != "" {
		paths = append(paths, req.Manifest)
	}

	g.logger.Debug("creating archive", "destination", req.Destination, "mainClass", req.EntryPoint)
	return g.runner.Run(ctx, Invocation{
		Args:    CreateArgs(req, stage),
		Dir:     stage,
		Paths:   paths,
		Archive: req.Destination,
	})
}

// stageElement merges element i into stage. Archives are first extracted
// into their own directory under work.
func (g *Generator) stageElement(ctx context.Context, work, stage string, i int, element string) error {
	info, err := os.Stat(element)
	if err != nil {
		return fmt.Errorf("element %s: %w", element, err)
	}

	var st mergeStats
	switch {
	case info.IsDir():
		st, err = mergeTree(element, stage, isManifest)

	case strings.EqualFold(filepath.Ext(element), ".jar"):
		extracted := filepath.Join(work, fmt.Sprintf("extract-%d", i))
		if err := os.Mkdir(extracted, 0o755); err != nil {
			return fmt.Errorf("failed to create extraction directory: %w", err)
		}
		err = g.runner.Run(ctx, Invocation{
			Args:    ExtractArgs(element),
			Dir:     extracted,
			Paths:   []string{element},
			Archive: element,
		})
		if err != nil {
			return err
		}
		st, err = mergeTree(extracted, stage, isArchiveMetadata)

	default:
		st, err = mergeFile(element, filepath.Join(stage, filepath.Base(element)))
	}
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", element, err)
	}

	g.logger.Debug("staged element", "path", element, "copied", st.copied, "shadowed", st.shadowed)
	return nil
}

// ExtractArgs returns the tool arguments that unpack archive into the
// working directory.
func ExtractArgs(archive string) []string {
	return []string{"--extract", "--file", archive}
}

// CreateArgs returns the tool arguments that pack stage into req.Destination.
func CreateArgs(req Request, stage string) []string {
	args := []string{"--create", "--file", req.Destination}
	if req.EntryPoint != "" {
		args = append(args, "--main-class", req.EntryPoint)
	}
	if req.Manifest != "" {
		args = append(args, "--manifest", req.Manifest)
	}
	return append(args, "-C", stage, ".")
}
