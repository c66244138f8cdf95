package domain

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConstructor(t *testing.T) Constructor {
	t.Helper()
	return func() (*Domain, error) {
		return New(testDocument())
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register("programming", testConstructor(t)))
	assert.True(t, r.Has("programming"))
	assert.False(t, r.Has("writing"))

	t.Run("duplicate registration fails", func(t *testing.T) {
		err := r.Register("programming", testConstructor(t))
		var dupErr *DuplicateDomainError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "programming", dupErr.DomainID)
	})

	t.Run("empty ID rejected", func(t *testing.T) {
		require.Error(t, r.Register("", testConstructor(t)))
	})

	t.Run("nil constructor rejected", func(t *testing.T) {
		require.Error(t, r.Register("writing", nil))
	})
}

func TestRegistry_Get(t *testing.T) {
	t.Run("lazy construction, then identical cached instance", func(t *testing.T) {
		r := NewRegistry(nil)
		calls := 0
		require.NoError(t, r.Register("programming", func() (*Domain, error) {
			calls++
			return New(testDocument())
		}))
		assert.Equal(t, 0, calls, "registration must not construct")

		first, err := r.Get("programming")
		require.NoError(t, err)
		second, err := r.Get("programming")
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Same(t, first, second)
	})

	t.Run("unregistered ID", func(t *testing.T) {
		r := NewRegistry(nil)
		_, err := r.Get("nope")
		var notReg *NotRegisteredError
		require.ErrorAs(t, err, &notReg)
		assert.Equal(t, "nope", notReg.DomainID)
	})

	t.Run("invalid domain fails with every issue and is not cached", func(t *testing.T) {
		r := NewRegistry(nil)

		broken := true
		require.NoError(t, r.Register("programming", func() (*Domain, error) {
			doc := testDocument()
			if broken {
				doc.ConflictRules = append(doc.ConflictRules,
					ConflictRule{RuleID: "perf_conflict", Name: "dup", Condition: "x", Severity: SeverityInfo},
					ConflictRule{RuleID: "no_sev", Name: "no severity", Condition: "y"},
				)
			}
			return New(doc)
		}))

		_, err := r.Get("programming")
		var cfgErr *DomainConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Len(t, cfgErr.Issues, 2, "all issues reported, not just the first")

		// Fix the configuration; the retry succeeds because nothing
		// broken was cached.
		broken = false
		dom, err := r.Get("programming")
		require.NoError(t, err)
		assert.Equal(t, "programming", dom.ID())
	})

	t.Run("constructor error propagates", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Register("programming", func() (*Domain, error) {
			return nil, errors.New("boom")
		}))
		_, err := r.Get("programming")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `construct domain "programming"`)
	})

	t.Run("constructor producing wrong ID rejected", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Register("writing", testConstructor(t)))
		_, err := r.Get("writing")
		require.Error(t, err)
	})
}

func TestRegistry_GetConcurrent(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	require.NoError(t, r.Register("programming", func() (*Domain, error) {
		calls++
		return New(testDocument())
	}))

	const workers = 16
	results := make([]*Domain, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dom, err := r.Get("programming")
			require.NoError(t, err)
			results[i] = dom
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, calls, "construction must happen exactly once")
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("programming", testConstructor(t)))

	old, err := r.Get("programming")
	require.NoError(t, err)

	require.NoError(t, r.Replace("programming", func() (*Domain, error) {
		doc := testDocument()
		doc.Version = "2.0"
		return New(doc)
	}))

	fresh, err := r.Get("programming")
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, "2.0", fresh.Version())
}

func TestRegistry_ListIDs(t *testing.T) {
	r := NewRegistry(nil)
	for _, id := range []string{"writing", "programming", "design"} {
		id := id
		require.NoError(t, r.Register(id, func() (*Domain, error) {
			doc := testDocument()
			doc.DomainID = id
			return New(doc)
		}))
	}
	assert.Equal(t, []string{"design", "programming", "writing"}, r.ListIDs())
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobal()
	t.Cleanup(ResetGlobal)

	first := Global()
	second := Global()
	assert.Same(t, first, second)

	t.Run("InitGlobal after first Global has no effect", func(t *testing.T) {
		InitGlobal(NewRegistry(nil))
		assert.Same(t, first, Global())
	})
}
