package projectmodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"mvdan.cc/sh/v3/shell"
)

// splitCommand turns a shell-style command line into argv. Variables are
// expanded from env first, then from the process environment.
func splitCommand(command string, env map[string]string) ([]string, error) {
	lookup := func(name string) string {
		if v, ok := env[name]; ok {
			return v
		}
		return os.Getenv(name)
	}

	args, err := shell.Fields(command, lookup)
	if err != nil {
		return nil, fmt.Errorf("invalid build command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("invalid build command %q: empty", command)
	}
	return args, nil
}

// runBuild executes spec in dir. A non-zero exit is reported as (false, nil);
// only failures to start the build, or cancellation, return an error.
func runBuild(ctx context.Context, dir string, spec BuildSpec, output io.Writer) (bool, error) {
	args, err := splitCommand(spec.Command, spec.Env)
	if err != nil {
		return false, err
	}

	// #nosec G204 -- the command comes from the workspace's own descriptor.
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = output
	cmd.Stderr = output

	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	err = cmd.Run()
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("failed to run build command %q: %w", spec.Command, err)
}
