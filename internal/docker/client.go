// Package docker provides a wrapper around the Docker Engine SDK client
// for running the archive tool inside throwaway containers.
//
// The primary purpose of this package is to abstract Docker API interactions
// and provide export-jar-specific functionality such as label-based
// container filtering and automatic Docker socket detection.
package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/export-jar/internal/model"
)

// DefaultPingTimeout bounds Ping when Options.PingTimeout is zero. Docker
// Desktop on macOS can be slower to answer than native Linux Docker.
const DefaultPingTimeout = 5 * time.Second

// windowsPipe is the Docker Desktop named pipe.
const windowsPipe = `//./pipe/docker_engine`

// Options configures NewClient.
type Options struct {
	// Host is the daemon address from generator.docker_host. It wins over
	// DOCKER_HOST and socket detection.
	Host string

	// PingTimeout defaults to DefaultPingTimeout.
	PingTimeout time.Duration
}

// Client is a Docker SDK client bound to the daemon the container backend
// runs the jar tool on.
type Client struct {
	// inner is held as the SDK's APIClient interface so tests can
	// substitute a fake daemon.
	inner       client.APIClient
	host        string
	pingTimeout time.Duration
}

// NewClient connects to the daemon chosen by resolveHost.
//
// Returns a model.CLIError with ExitDockerNotRunning if no daemon address
// can be found or the client cannot be created.
func NewClient(opts Options) (*Client, error) {
	host, err := resolveHost(opts.Host, os.Getenv("DOCKER_HOST"), detectDockerHost)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}

	// API version negotiation keeps the client compatible with older
	// daemons without pinning a version.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}

	cli := NewClientFromAPI(c)
	cli.host = host
	if opts.PingTimeout > 0 {
		cli.pingTimeout = opts.PingTimeout
	}
	return cli, nil
}

// NewClientFromAPI wraps an existing SDK client, typically a test double.
func NewClientFromAPI(api client.APIClient) *Client {
	return &Client{inner: api, pingTimeout: DefaultPingTimeout}
}

// resolveHost picks the daemon address: configured host, then DOCKER_HOST,
// then the first platform socket that exists.
func resolveHost(configured, env string, detect func() (string, error)) (string, error) {
	switch {
	case configured != "":
		return configured, nil
	case env != "":
		return env, nil
	default:
		return detect()
	}
}

// socketCandidates lists the unix sockets to look for on goos, in order.
// Newer Docker Desktop versions on macOS may only create the per-user one.
func socketCandidates(goos, home string) []string {
	switch goos {
	case "linux":
		return []string{"/var/run/docker.sock"}
	case "darwin":
		if home == "" {
			return []string{"/var/run/docker.sock"}
		}
		return []string{"/var/run/docker.sock", filepath.Join(home, ".docker", "run", "docker.sock")}
	default:
		return nil
	}
}

// detectDockerHost finds the daemon of the current platform. Connectivity
// is verified separately by Ping.
func detectDockerHost() (string, error) {
	if runtime.GOOS == "windows" {
		// os.Stat does not work on named pipes, so try a brief dial.
		conn, err := net.DialTimeout("pipe", windowsPipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", windowsPipe, err)
		}
		conn.Close()
		return "npipe://" + windowsPipe, nil
	}

	home, _ := os.UserHomeDir()
	paths := socketCandidates(runtime.GOOS, home)
	if len(paths) == 0 {
		return "", fmt.Errorf("unsupported platform: %s (set generator.docker_host)", runtime.GOOS)
	}
	return detectUnixSocket(paths)
}

// detectUnixSocket returns the Docker host URI for the first socket in
// paths that exists on the filesystem.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Host returns the daemon address, empty for wrapped test doubles.
func (c *Client) Host() string {
	return c.host
}

// Ping verifies that the daemon answers within the ping timeout.
//
// Returns a model.CLIError with ExitDockerNotRunning otherwise.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		msg := "Docker daemon is not responding (is Docker running?)"
		if c.host != "" {
			msg = fmt.Sprintf("Docker daemon at %s is not responding (is Docker running?)", c.host)
		}
		return model.WrapCLIError(model.ExitDockerNotRunning, msg, err)
	}
	return nil
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the underlying SDK client for the container helpers.
func (c *Client) Inner() client.APIClient {
	return c.inner
}
