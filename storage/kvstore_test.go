package storage

import (
	"testing"

	"github.com/c360studio/specintel/specification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryKey(t *testing.T) {
	t.Run("valid tokens", func(t *testing.T) {
		key, err := entryKey("p1", "auth-method")
		require.NoError(t, err)
		assert.Equal(t, "p1.auth-method", key)
	})

	tests := []struct {
		name      string
		projectID string
		key       string
	}{
		{"space in project", "p 1", "auth"},
		{"dot in key", "p1", "auth.method"},
		{"empty project", "", "auth"},
		{"empty key", "p1", ""},
		{"slash in key", "p1", "auth/method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entryKey(tt.projectID, tt.key)
			require.Error(t, err)
		})
	}
}

func TestHistoryCurrent(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		h := history{ProjectID: "p1", Key: "auth"}
		assert.Nil(t, h.current())
	})

	t.Run("last version is current", func(t *testing.T) {
		h := history{
			ProjectID: "p1",
			Key:       "auth",
			Versions: []specification.Specification{
				{ID: "spec-1", Version: 1, IsCurrent: false},
				{ID: "spec-2", Version: 2, IsCurrent: true},
			},
		}
		current := h.current()
		require.NotNil(t, current)
		assert.Equal(t, "spec-2", current.ID)

		// current() returns a pointer into the slice so lifecycle
		// mutations land in the stored history.
		current.Status = specification.StatusApproved
		assert.Equal(t, specification.StatusApproved, h.Versions[1].Status)
	})
}
