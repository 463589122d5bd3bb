package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// DefaultJarPath is the tool looked up on PATH when no path is configured.
const DefaultJarPath = "jar"

// LocalRunner runs the `jar` tool of a JDK installed on the host.
type LocalRunner struct {
	// JarPath is the tool executable. Empty uses DefaultJarPath.
	JarPath string

	// Output receives the tool's output after each run. Nil discards it.
	Output io.Writer
}

// Run implements Runner.
func (r *LocalRunner) Run(ctx context.Context, inv Invocation) error {
	jar := r.JarPath
	if jar == "" {
		jar = DefaultJarPath
	}

	bin, err := exec.LookPath(jar)
	if err != nil {
		return fmt.Errorf("jar tool %q not found (set generator.jar_path or use the container backend): %w", jar, err)
	}

	var out bytes.Buffer
	// #nosec G204 -- the tool path comes from the operator's configuration.
	cmd := exec.CommandContext(ctx, bin, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	if r.Output != nil && out.Len() > 0 {
		_, _ = r.Output.Write(out.Bytes())
	}
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	msg := strings.TrimSpace(out.String())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && msg != "" {
		return fmt.Errorf("jar %s failed for %s: %s", firstArg(inv.Args), inv.Archive, msg)
	}
	return fmt.Errorf("jar %s failed for %s: %w", firstArg(inv.Args), inv.Archive, err)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
