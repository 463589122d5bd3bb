package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shinji-kodama/export-jar/internal/docker"
)

// DefaultImage is the JDK image used by the container backend.
const DefaultImage = "eclipse-temurin:21-jdk"

// ContainerRunner runs the `jar` tool inside a throwaway JDK container, for
// hosts without a JDK. Host paths are mounted at the same absolute paths,
// so the arguments need no rewriting.
type ContainerRunner struct {
	Client *docker.Client

	// Image is the JDK image. Empty uses DefaultImage.
	Image string

	// Output receives the tool's output after each run. Nil discards it.
	Output io.Writer

	// now is stubbed in tests.
	now func() time.Time
}

// Run implements Runner.
func (r *ContainerRunner) Run(ctx context.Context, inv Invocation) error {
	image := r.Image
	if image == "" {
		image = DefaultImage
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}

	var out bytes.Buffer
	status, err := docker.RunToCompletion(ctx, r.Client, docker.RunSpec{
		Image:      image,
		Cmd:        append([]string{"jar"}, inv.Args...),
		WorkingDir: inv.Dir,
		Binds:      bindPaths(inv),
		User:       hostUser(),
		Labels:     docker.BuildLabels(inv.Archive, now()),
		Output:     &out,
	})
	if r.Output != nil && out.Len() > 0 {
		_, _ = r.Output.Write(out.Bytes())
	}
	if err != nil {
		return err
	}
	if status != 0 {
		msg := strings.TrimSpace(out.String())
		return fmt.Errorf("jar %s failed for %s in container (exit status %d): %s",
			firstArg(inv.Args), inv.Archive, status, msg)
	}
	return nil
}

// bindPaths returns the distinct host paths an invocation touches, with
// Dir first.
func bindPaths(inv Invocation) []string {
	seen := make(map[string]bool)
	var binds []string
	for _, p := range append([]string{inv.Dir}, inv.Paths...) {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		binds = append(binds, p)
	}
	return binds
}

// hostUser returns "uid:gid" of the current process so files written into
// mounted directories stay owned by the operator. Empty where uids do not
// exist.
func hostUser() string {
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}
