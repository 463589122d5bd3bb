package cli

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
)

// startCommand launches a detached helper process. Tests replace it.
var startCommand = func(ctx context.Context, name string, args ...string) error {
	// #nosec G204 -- the helper is fixed per OS; only the path varies.
	return exec.CommandContext(context.WithoutCancel(ctx), name, args...).Start()
}

// revealLabel names the action that shows a file in the OS file manager.
func revealLabel(goos string) string {
	switch goos {
	case "windows":
		return "Reveal in File Explorer"
	case "darwin":
		return "Reveal in Finder"
	default:
		return "Open Containing Folder"
	}
}

// revealCommand returns the command showing path in the file manager.
// Linux file managers cannot select a file, so the folder is opened.
func revealCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{"/select," + path}
	case "darwin":
		return "open", []string{"-R", path}
	default:
		return "xdg-open", []string{filepath.Dir(path)}
	}
}

// openCommand returns the command opening path with its default application.
func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

// revealPath shows path in the file manager.
func revealPath(ctx context.Context, path string) error {
	name, args := revealCommand(runtime.GOOS, path)
	return startCommand(ctx, name, args...)
}

// openPath opens path with its default application.
func openPath(ctx context.Context, path string) error {
	name, args := openCommand(runtime.GOOS, path)
	return startCommand(ctx, name, args...)
}
