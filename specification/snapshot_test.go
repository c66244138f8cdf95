package specification

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	spec1, err := store.Create("proj-1", "performance", "latency", "100ms")
	require.NoError(t, err)
	_, err = store.TransitionStatus(spec1.ID, StatusApproved)
	require.NoError(t, err)
	_, err = store.CreateVersion("proj-1", "latency", "150ms")
	require.NoError(t, err)
	_, err = store.Create("proj-2", "security", "auth", "oauth2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "specs.yaml")
	require.NoError(t, store.SaveSnapshot(path))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)

	current, err := loaded.Current("proj-1", "latency")
	require.NoError(t, err)
	assert.Equal(t, 2, current.Version)
	assert.Equal(t, "150ms", current.Value)
	assert.True(t, current.IsCurrent)

	hist, err := loaded.History("proj-1", "latency")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, StatusApproved, hist[0].Status)
	assert.False(t, hist[0].IsCurrent)

	// The full log survives intact.
	assert.Equal(t, store.Export(), loaded.Export())
}

func TestImportRejectsBadInput(t *testing.T) {
	base := Specification{
		ID: "spec-1", ProjectID: "p", Category: "c", Key: "k",
		Value: "v", Status: StatusDraft, Version: 1, IsCurrent: true,
	}

	t.Run("non-empty store", func(t *testing.T) {
		store := NewStore()
		_, err := store.Create("p", "c", "k", "v")
		require.NoError(t, err)
		assert.Error(t, store.Import([]Specification{base}))
	})

	t.Run("missing identity fields", func(t *testing.T) {
		bad := base
		bad.Key = ""
		assert.Error(t, NewStore().Import([]Specification{bad}))
	})

	t.Run("unknown status", func(t *testing.T) {
		bad := base
		bad.Status = "archived"
		assert.Error(t, NewStore().Import([]Specification{bad}))
	})

	t.Run("duplicate ID", func(t *testing.T) {
		other := base
		other.Key = "k2"
		assert.Error(t, NewStore().Import([]Specification{base, other}))
	})

	t.Run("two current versions for one key", func(t *testing.T) {
		second := base
		second.ID = "spec-2"
		second.Version = 2
		assert.Error(t, NewStore().Import([]Specification{base, second}))
	})

	t.Run("repeated version", func(t *testing.T) {
		second := base
		second.ID = "spec-2"
		second.IsCurrent = false
		assert.Error(t, NewStore().Import([]Specification{base, second}))
	})

	t.Run("superseded current flag honored", func(t *testing.T) {
		old := base
		old.IsCurrent = false
		cur := base
		cur.ID = "spec-2"
		cur.Version = 2

		store := NewStore()
		require.NoError(t, store.Import([]Specification{cur, old}))
		got, err := store.Current("p", "k")
		require.NoError(t, err)
		assert.Equal(t, "spec-2", got.ID)
	})
}
