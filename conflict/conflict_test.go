package conflict

import (
	"testing"
	"time"

	"github.com/c360studio/specintel/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedConflict(id string, severity domain.Severity) Conflict {
	return Conflict{
		ID:        id,
		RuleID:    "r1",
		ProjectID: "p1",
		RunID:     "run-1",
		SpecIDs:   []string{"s1"},
		Severity:  severity,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

func TestLog_Resolve(t *testing.T) {
	log := NewLog()
	log.Append([]Conflict{loggedConflict("c1", domain.SeverityError)})

	resolved, err := log.Resolve("c1", "superseded by new latency target")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)
	assert.Equal(t, "superseded by new latency target", resolved.Resolution)
	require.NotNil(t, resolved.ResolvedAt)

	t.Run("resolution is one-way", func(t *testing.T) {
		_, err := log.Resolve("c1", "again")
		assert.ErrorIs(t, err, ErrAlreadyResolved)
	})

	t.Run("unknown conflict", func(t *testing.T) {
		_, err := log.Resolve("c-missing", "x")
		assert.ErrorIs(t, err, ErrConflictNotFound)
	})
}

func TestLog_Queries(t *testing.T) {
	log := NewLog()
	log.Append([]Conflict{
		loggedConflict("c1", domain.SeverityError),
		loggedConflict("c2", domain.SeverityError),
		loggedConflict("c3", domain.SeverityWarning),
	})
	other := loggedConflict("c4", domain.SeverityError)
	other.ProjectID = "p2"
	log.Append([]Conflict{other})

	_, err := log.Resolve("c2", "fixed")
	require.NoError(t, err)

	assert.Len(t, log.ForProject("p1"), 3)
	assert.Len(t, log.Open("p1"), 2)
	assert.Equal(t, 1, log.OpenErrorCount("p1"))
	assert.Equal(t, 1, log.OpenErrorCount("p2"))
	assert.Equal(t, 0, log.OpenErrorCount("p3"))

	t.Run("get returns a copy", func(t *testing.T) {
		c, err := log.Get("c1")
		require.NoError(t, err)
		c.Resolution = "mutated"

		again, err := log.Get("c1")
		require.NoError(t, err)
		assert.Empty(t, again.Resolution)
	})
}
