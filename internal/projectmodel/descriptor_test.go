package projectmodel

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/export-jar/internal/model"
)

const sampleDescriptor = `
build:
  command: ./gradlew classes
projects:
  - name: app
    path: app
    classpaths:
      runtime: [app/bin/main, lib/guava.jar]
      test: [app/bin/test, lib/junit.jar]
    modulepaths:
      runtime: [/opt/mods/jfx.jar]
    mainClasses: [com.example.b.Main, com.example.a.App]
  - name: util
    classpaths:
      runtime: [util/bin/main]
    mainClasses: [com.example.a.App]
`

// writeDescriptor writes content to the default descriptor location of a
// fresh workspace root and returns the root.
func writeDescriptor(t *testing.T, content string) string {
	t.Helper()

	root := t.TempDir()
	path := filepath.Join(root, DefaultDescriptorPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return root
}

func TestParseFile(t *testing.T) {
	f, err := ParseFile([]byte(sampleDescriptor))
	require.NoError(t, err)

	assert.Equal(t, "./gradlew classes", f.Build.Command)
	require.Len(t, f.Projects, 2)
	assert.Equal(t, "app", f.Projects[0].Name)
	assert.Equal(t, []string{"app/bin/main", "lib/guava.jar"}, f.Projects[0].Classpaths.Runtime)
	assert.Equal(t, []string{"/opt/mods/jfx.jar"}, f.Projects[0].Modulepaths.Runtime)
	assert.Empty(t, f.Projects[1].Classpaths.Test)
}

func TestParseFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "projects: [",
			wantErr: "failed to parse project descriptor",
		},
		{
			name:    "missing name",
			content: "projects:\n  - path: app\n",
			wantErr: "has no name",
		},
		{
			name:    "duplicate name",
			content: "projects:\n  - name: app\n  - name: app\n",
			wantErr: "duplicate project name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDescriptor_ListProjects(t *testing.T) {
	root := writeDescriptor(t, sampleDescriptor)
	d := NewDescriptor([]string{root}, "", nil)

	projects, err := d.ListProjects(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "app", projects[0].Name)
	assert.Equal(t, root, projects[0].Root)
	assert.Equal(t, root+"#app", projects[0].ID)
	assert.Equal(t, "util", projects[1].Name)
}

func TestDescriptor_MissingFile(t *testing.T) {
	root := t.TempDir()
	d := NewDescriptor([]string{root}, "", nil)

	_, err := d.ListProjects(context.Background(), root)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitResolutionFailed, cliErr.Code)
}

func TestDescriptor_Classpaths(t *testing.T) {
	root := writeDescriptor(t, sampleDescriptor)
	d := NewDescriptor([]string{root}, "", nil)
	ctx := context.Background()

	runtimeCP, err := d.Classpaths(ctx, root+"#app", model.ScopeRuntime)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "app", "bin", "main"),
		filepath.Join(root, "lib", "guava.jar"),
	}, runtimeCP.Classpaths)
	assert.Equal(t, []string{filepath.Clean("/opt/mods/jfx.jar")}, runtimeCP.Modulepaths)

	testCP, err := d.Classpaths(ctx, root+"#app", model.ScopeTest)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "app", "bin", "test"),
		filepath.Join(root, "lib", "junit.jar"),
	}, testCP.Classpaths)
	assert.Empty(t, testCP.Modulepaths)

	_, err = d.Classpaths(ctx, root+"#missing", model.ScopeRuntime)
	assert.Error(t, err)

	_, err = d.Classpaths(ctx, "no-separator", model.ScopeRuntime)
	assert.Error(t, err)
}

func TestDescriptor_ListEntryPoints(t *testing.T) {
	root := writeDescriptor(t, sampleDescriptor)
	d := NewDescriptor([]string{root}, "", nil)

	eps, err := d.ListEntryPoints(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []model.EntryPoint{
		{Name: "com.example.a.App"},
		{Name: "com.example.b.Main"},
	}, eps)
}

func TestDescriptor_CancelledContext(t *testing.T) {
	root := writeDescriptor(t, sampleDescriptor)
	d := NewDescriptor([]string{root}, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.ListProjects(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescriptor_Build(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("build commands in this test use POSIX utilities")
	}

	tests := []struct {
		name    string
		command string
		wantOK  bool
	}{
		{name: "no command", command: "", wantOK: true},
		{name: "succeeding command", command: "true", wantOK: true},
		{name: "failing command", command: "false", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "projects:\n  - name: app\n"
			if tt.command != "" {
				content = "build:\n  command: " + tt.command + "\n" + content
			}
			root := writeDescriptor(t, content)

			d := NewDescriptor([]string{root}, "", &bytes.Buffer{})
			ok, err := d.Build(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestDescriptor_BuildStreamsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("build commands in this test use POSIX utilities")
	}

	root := writeDescriptor(t, "build:\n  command: echo \"$GREETING world\"\n  env:\n    GREETING: hello\nprojects:\n  - name: app\n")
	var out bytes.Buffer

	ok, err := NewDescriptor([]string{root}, "", &out).Build(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello world\n", out.String())
}

func TestSplitCommand(t *testing.T) {
	args, err := splitCommand(`mvn -q "-Dskip tests" compile`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mvn", "-q", "-Dskip tests", "compile"}, args)

	args, err = splitCommand("$TOOL build", map[string]string{"TOOL": "./gradlew"})
	require.NoError(t, err)
	assert.Equal(t, []string{"./gradlew", "build"}, args)

	_, err = splitCommand(`echo "unterminated`, nil)
	assert.Error(t, err)
}
