package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/export-jar/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, path, err := Load(LoadOptions{Workspace: t.TempDir(), UserConfigDir: t.TempDir()})
	require.NoError(t, err)

	assert.Empty(t, path)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_WorkspaceFile(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), `
export:
  default_output_location: true
generator:
  backend: container
  image: eclipse-temurin:17-jdk
`)

	cfg, path, err := Load(LoadOptions{Workspace: ws, UserConfigDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws, WorkspaceFileName), path)
	assert.True(t, cfg.Export.DefaultOutputLocation)
	assert.Equal(t, BackendContainer, cfg.Generator.Backend)
	assert.Equal(t, "eclipse-temurin:17-jdk", cfg.Generator.Image)
	assert.Equal(t, "jar", cfg.Generator.JarPath, "unset keys keep their default")
}

func TestLoad_UserFileIsFallback(t *testing.T) {
	userDir := t.TempDir()
	writeFile(t, filepath.Join(userDir, UserFileName), "build:\n  skip: true\n")

	cfg, path, err := Load(LoadOptions{Workspace: t.TempDir(), UserConfigDir: userDir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(userDir, UserFileName), path)
	assert.True(t, cfg.Build.Skip)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.yaml")
	writeFile(t, explicit, "generator:\n  jar_path: /opt/jdk/bin/jar\n")

	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), "generator:\n  jar_path: ignored\n")

	cfg, path, err := Load(LoadOptions{ConfigFile: explicit, Workspace: ws})
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, "/opt/jdk/bin/jar", cfg.Generator.JarPath)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, _, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), "generator:\n  backend: local\n")
	t.Setenv("EXPORTJAR_GENERATOR_BACKEND", "container")

	cfg, _, err := Load(LoadOptions{Workspace: ws, UserConfigDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendContainer, cfg.Generator.Backend)
}

func TestLoad_DockerHost(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), "generator:\n  docker_host: tcp://build-host:2375\n")

	cfg, _, err := Load(LoadOptions{Workspace: ws, UserConfigDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "tcp://build-host:2375", cfg.Generator.DockerHost)

	t.Setenv("EXPORTJAR_GENERATOR_DOCKER_HOST", "unix:///tmp/docker.sock")
	cfg, _, err = Load(LoadOptions{Workspace: ws, UserConfigDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "unix:///tmp/docker.sock", cfg.Generator.DockerHost)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("EXPORTJAR_BUILD_SKIP", "false")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("skip-build", false, "")
	require.NoError(t, fs.Parse([]string{"--skip-build"}))

	cfg, _, err := Load(LoadOptions{
		Workspace:     t.TempDir(),
		UserConfigDir: t.TempDir(),
		Flags:         map[string]*pflag.Flag{KeySkipBuild: fs.Lookup("skip-build")},
	})
	require.NoError(t, err)
	assert.True(t, cfg.Build.Skip)
}

func TestLoad_UnchangedFlagKeepsFileValue(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), "export:\n  default_output_location: true\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("default-output", false, "")
	require.NoError(t, fs.Parse(nil))

	cfg, _, err := Load(LoadOptions{
		Workspace:     ws,
		UserConfigDir: t.TempDir(),
		Flags:         map[string]*pflag.Flag{KeyDefaultOutputLocation: fs.Lookup("default-output")},
	})
	require.NoError(t, err)
	assert.True(t, cfg.Export.DefaultOutputLocation)
}

func TestLoad_InvalidYAML(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), "generator: [unterminated\n")

	_, _, err := Load(LoadOptions{Workspace: ws, UserConfigDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), WorkspaceFileName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Generator.Backend = "podman" },
			wantErr: "invalid generator.backend",
		},
		{
			name: "container without image",
			mutate: func(c *Config) {
				c.Generator.Backend = BackendContainer
				c.Generator.Image = ""
			},
			wantErr: "generator.image",
		},
		{
			name:    "empty descriptor",
			mutate:  func(c *Config) { c.Project.Descriptor = "" },
			wantErr: "project.descriptor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
