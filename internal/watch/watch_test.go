package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/testutil"
)

func TestIsRuleFile(t *testing.T) {
	assert.True(t, IsRuleFile("rules/a.yml"))
	assert.True(t, IsRuleFile("rules/a.YAML"))
	assert.False(t, IsRuleFile("rules/a.json"))
	assert.False(t, IsRuleFile("rules"))
}

func TestWatcher_ReportsDebouncedBatches(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{"style/a.yml": "name: a\n"})
	w := New(root, WithDebounce(100*time.Millisecond), WithLogger(testutil.NewTestLogger(t)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { batches <- paths })
	}()

	// fsnotify needs the watches registered before the writes below.
	time.Sleep(100 * time.Millisecond)

	a := filepath.Join(root, "style", "a.yml")
	b := filepath.Join(root, "style", "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("name: a2\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("name: b\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))

	select {
	case paths := <-batches:
		assert.Equal(t, []string{a, b}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"))
	err := w.Run(context.Background(), func([]string) {})
	assert.ErrorContains(t, err, "failed to watch")
}
