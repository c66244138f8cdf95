package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, events <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
		return ChangeEvent{}
	}
}

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "domains"), 0o755))

	w, err := NewWatcher(WatcherConfig{
		Root:          root,
		DebounceDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	path := filepath.Join(root, "domains", "programming.yaml")

	t.Run("create emits event with domain ID", func(t *testing.T) {
		writeDoc(t, path, "programming")
		ev := waitForEvent(t, w.Events())
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, "programming", ev.DomainID)
		assert.False(t, ev.Removed)
	})

	t.Run("non-matching files are ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
		writeDoc(t, path, "programming")

		ev := waitForEvent(t, w.Events())
		assert.Equal(t, path, ev.Path, "only the domain document is reported")
	})

	t.Run("remove emits removal event", func(t *testing.T) {
		require.NoError(t, os.Remove(path))
		ev := waitForEvent(t, w.Events())
		assert.Equal(t, path, ev.Path)
		assert.True(t, ev.Removed)
	})
}
