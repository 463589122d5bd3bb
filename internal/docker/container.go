// container.go implements the container operations of the generator
// backend: running a one-shot command to completion, and finding and
// removing containers left behind by interrupted runs.
//
// All containers created here carry the "export-jar.managed-by" label,
// which separates them from unrelated containers on the same host.
package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/shinji-kodama/export-jar/internal/model"
)

// ListManagedContainers returns every container carrying the export-jar
// management label, including stopped ones. Filtering happens server-side.
func ListManagedContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	filterArgs := filters.NewArgs()
	for k, v := range FilterLabels() {
		filterArgs.Add("label", k+"="+v)
	}

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}

	return result, nil
}

// containerToInfo converts a Docker API container summary to the domain
// model. Docker reports names with a leading "/", which is stripped.
// Unparseable labels leave Destination and CreatedAt empty.
func containerToInfo(c container.Summary) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	info := model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Image:         c.Image,
		Status:        string(c.State),
		Labels:        c.Labels,
	}
	if run, err := ParseLabels(c.Labels); err == nil {
		info.Destination = run.Destination
		info.CreatedAt = run.CreatedAt
	}
	return info
}

// RunSpec describes a one-shot command run in a fresh container.
type RunSpec struct {
	// Image is the image reference; it is pulled when not present locally.
	Image string

	// Cmd is the command and its arguments.
	Cmd []string

	// WorkingDir is the working directory inside the container.
	WorkingDir string

	// Binds are host paths mounted read-write at the same absolute path
	// inside the container, so paths in Cmd need no translation.
	Binds []string

	// User is the "uid:gid" the command runs as. Empty keeps the image default.
	User string

	// Labels are attached to the container; callers normally pass BuildLabels.
	Labels map[string]string

	// Output receives the command's stdout and stderr. Nil discards them.
	Output io.Writer
}

// RunToCompletion creates a container for spec, starts it, waits for the
// command to exit and copies its output to spec.Output. The container is
// always removed, also when ctx is cancelled mid-run.
//
// It returns the command's exit status. A non-zero status is not an error;
// errors are reserved for failures talking to the daemon.
func RunToCompletion(ctx context.Context, cli *Client, spec RunSpec) (int64, error) {
	if err := ensureImage(ctx, cli, spec.Image); err != nil {
		return -1, err
	}

	mounts := make([]mount.Mount, 0, len(spec.Binds))
	for _, p := range spec.Binds {
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: p, Target: p})
	}

	created, err := cli.Inner().ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Cmd:        spec.Cmd,
			WorkingDir: spec.WorkingDir,
			User:       spec.User,
			Labels:     spec.Labels,
		},
		&container.HostConfig{Mounts: mounts},
		nil, nil, "",
	)
	if err != nil {
		return -1, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container from image %q", spec.Image),
			err,
		)
	}

	defer func() {
		// The removal must survive cancellation of the run itself.
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		_ = RemoveContainer(rmCtx, cli, created.ID, true)
	}()

	// Registering the wait before starting avoids missing a fast exit.
	waitCh, errCh := cli.Inner().ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := cli.Inner().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return -1, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", created.ID),
			err,
		)
	}

	var status int64
	select {
	case resp := <-waitCh:
		if resp.Error != nil && resp.Error.Message != "" {
			return -1, fmt.Errorf("container %q: %s", created.ID, resp.Error.Message)
		}
		status = resp.StatusCode
	case err := <-errCh:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, ctxErr
		}
		return -1, fmt.Errorf("failed waiting for container %q: %w", created.ID, err)
	}

	if err := copyLogs(ctx, cli, created.ID, spec.Output); err != nil {
		return status, err
	}
	return status, nil
}

// ensureImage pulls ref unless an image with that reference exists locally.
func ensureImage(ctx context.Context, cli *Client, ref string) error {
	images, err := cli.Inner().ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker images",
			err,
		)
	}
	if len(images) > 0 {
		return nil
	}

	rc, err := cli.Inner().ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %q: %w", ref, err)
	}
	defer rc.Close()

	// The pull only completes once its progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull image %q: %w", ref, err)
	}
	return nil
}

// copyLogs demultiplexes the container's stdout and stderr into out.
func copyLogs(ctx context.Context, cli *Client, containerID string, out io.Writer) error {
	if out == nil {
		return nil
	}

	rc, err := cli.Inner().ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to read logs of container %q: %w", containerID, err)
	}
	defer rc.Close()

	if _, err := stdcopy.StdCopy(out, out, rc); err != nil {
		return fmt.Errorf("failed to read logs of container %q: %w", containerID, err)
	}
	return nil
}

// RemoveContainer removes a container by its ID. The container must be
// stopped first unless force is true, in which case Docker kills it.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}
