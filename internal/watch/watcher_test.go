package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 100 * time.Millisecond

// startWatcher runs a watcher over root and returns the channel receiving
// each callback's paths.
func startWatcher(t *testing.T, roots ...string) <-chan []string {
	t.Helper()

	calls := make(chan []string, 10)
	w, err := New(Config{
		Roots:    roots,
		Debounce: testDebounce,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return calls
}

func waitCall(t *testing.T, calls <-chan []string) []string {
	t.Helper()
	select {
	case c := <-calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
		return nil
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	a := filepath.Join(root, "A.class")
	b := filepath.Join(root, "B.class")
	require.NoError(t, os.WriteFile(a, []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("2"), 0o644))

	changed := waitCall(t, calls)
	assert.Contains(t, changed, a)
	assert.Contains(t, changed, b)

	select {
	case extra := <-calls:
		t.Fatalf("burst produced a second callback: %v", extra)
	case <-time.After(3 * testDebounce):
	}
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	pkg := filepath.Join(root, "com", "example")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	waitCall(t, calls)

	cls := filepath.Join(pkg, "App.class")
	require.NoError(t, os.WriteFile(cls, []byte("x"), 0o644))
	assert.Contains(t, waitCall(t, calls), cls)
}

func TestWatcher_ExistingSubdirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	calls := startWatcher(t, root)

	f := filepath.Join(sub, "C.class")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	assert.Contains(t, waitCall(t, calls), f)
}

func TestNew_SkipsMissingRoots(t *testing.T) {
	root := t.TempDir()
	w, err := New(Config{Roots: []string{filepath.Join(root, "missing"), root}})
	require.NoError(t, err)
	require.NoError(t, w.fsw.Close())
}

func TestNew_NothingToWatch(t *testing.T) {
	_, err := New(Config{Roots: []string{filepath.Join(t.TempDir(), "missing")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no existing directory")
}

func TestRun_Twice(t *testing.T) {
	w, err := New(Config{Roots: []string{t.TempDir()}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, w.Run(ctx))
}
