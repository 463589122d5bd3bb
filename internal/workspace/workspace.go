// Package workspace resolves the workspace folders an export works on.
//
// Folders are given explicitly with --workspace or detected from the
// current directory. Detection shells out to `git rev-parse
// --show-toplevel` so that running the tool anywhere inside a repository
// exports the repository root, including from a linked worktree. Outside
// a repository the directory itself is the workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/export-jar/internal/model"
)

// gitBinary is the git executable; tests may point it elsewhere.
var gitBinary = "git"

// Detect returns the workspace folder containing dir: the top level of its
// git working tree, or dir itself when it is not in one or git is missing.
func Detect(ctx context.Context, dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := requireDir(abs); err != nil {
		return "", err
	}

	out, err := runGit(ctx, abs, "rev-parse", "--show-toplevel")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return abs, nil
	}
	top := strings.TrimSpace(out)
	if top == "" {
		return abs, nil
	}
	return filepath.Clean(filepath.FromSlash(top)), nil
}

// Resolve returns the workspace folders to export. Explicit folders are
// made absolute, checked and deduplicated in order; with none, the folder
// containing cwd is detected.
func Resolve(ctx context.Context, explicit []string, cwd string) ([]string, error) {
	if len(explicit) == 0 {
		ws, err := Detect(ctx, cwd)
		if err != nil {
			return nil, err
		}
		return []string{ws}, nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, p := range explicit {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		if err := requireDir(p); err != nil {
			return nil, err
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

func requireDir(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WrapCLIError(model.ExitResolutionFailed, fmt.Sprintf("workspace folder not found: %s", p), err)
		}
		return fmt.Errorf("failed to stat workspace folder: %w", err)
	}
	if !info.IsDir() {
		return model.NewCLIError(model.ExitResolutionFailed, fmt.Sprintf("workspace is not a directory: %s", p))
	}
	return nil
}

// errGitFailed marks a git invocation that ran and exited non-zero.
var errGitFailed = errors.New("git failed")

// runGit runs git with -C dir and returns its stdout. stderr is folded into
// the error on failure.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 -- args are built internally
	cmd := exec.CommandContext(ctx, gitBinary, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: git %s: %s", errGitFailed, strings.Join(args, " "), msg)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}
