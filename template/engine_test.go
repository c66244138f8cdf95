package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widget is a minimal record kind used to exercise the engine without
// depending on the real domain kinds.
type widget struct {
	ID    string   `yaml:"id"`
	Color string   `yaml:"color"`
	Size  string   `yaml:"size,omitempty"`
	Tags  []string `yaml:"tags,omitempty"`
}

var widgetSizes = []string{"small", "medium", "large"}

func widgetKind() Kind[widget] {
	return Kind[widget]{
		Name:     "widget",
		KeyField: "id",
		Key:      func(w widget) string { return w.ID },
		Check: func(w widget) []ValidationIssue {
			var issues []ValidationIssue
			if w.ID == "" {
				issues = append(issues, MissingField(w.ID, "id"))
			}
			if w.Color == "" {
				issues = append(issues, MissingField(w.ID, "color"))
			}
			if w.Size != "" {
				legal := false
				for _, s := range widgetSizes {
					if w.Size == s {
						legal = true
						break
					}
				}
				if !legal {
					issues = append(issues, IllegalValue(w.ID, "size", w.Size, widgetSizes))
				}
			}
			return issues
		},
		Fields: map[string]func(widget) []string{
			"id":    func(w widget) []string { return []string{w.ID} },
			"color": func(w widget) []string { return []string{w.Color} },
			"size":  func(w widget) []string { return []string{w.Size} },
			"tags":  func(w widget) []string { return w.Tags },
		},
	}
}

func TestEngine_LoadFromYAML(t *testing.T) {
	e := NewEngine(widgetKind())

	t.Run("valid set", func(t *testing.T) {
		records, err := e.LoadFromYAML([]byte(`
- id: w1
  color: red
- id: w2
  color: blue
  size: large
`))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "w1", records[0].ID)
		assert.Equal(t, "large", records[1].Size)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := e.LoadFromYAML([]byte("{{not yaml"))
		var cfgErr *ConfigError
		require.True(t, AsConfigError(err, &cfgErr))
		assert.True(t, cfgErr.Parse)
		assert.Empty(t, cfgErr.Issues)
	})

	t.Run("validation failure is fail-fast for the set", func(t *testing.T) {
		_, err := e.LoadFromYAML([]byte(`
- id: w1
  color: red
- id: w2
  size: enormous
`))
		var cfgErr *ConfigError
		require.True(t, AsConfigError(err, &cfgErr))
		assert.False(t, cfgErr.Parse)
		require.Len(t, cfgErr.Issues, 2)
		assert.Equal(t, IssueMissingField, cfgErr.Issues[0].Code)
		assert.Equal(t, IssueIllegalValue, cfgErr.Issues[1].Code)
		assert.Equal(t, "w2", cfgErr.Issues[1].RecordID)
	})
}

func TestEngine_LoadFromDocument(t *testing.T) {
	e := NewEngine(widgetKind())

	t.Run("reads and validates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "widgets.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- id: w1\n  color: red\n"), 0o644))

		records, err := e.LoadFromDocument(path)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("missing file is a parse-class error with path", func(t *testing.T) {
		_, err := e.LoadFromDocument(filepath.Join(t.TempDir(), "absent.yaml"))
		var cfgErr *ConfigError
		require.True(t, AsConfigError(err, &cfgErr))
		assert.True(t, cfgErr.Parse)
		assert.Contains(t, cfgErr.Path, "absent.yaml")
	})

	t.Run("validation failure carries path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "widgets.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- id: w1\n"), 0o644))

		_, err := e.LoadFromDocument(path)
		var cfgErr *ConfigError
		require.True(t, AsConfigError(err, &cfgErr))
		assert.False(t, cfgErr.Parse)
		assert.Equal(t, path, cfgErr.Path)
	})
}

func TestEngine_Validate_DuplicateKeys(t *testing.T) {
	e := NewEngine(widgetKind())

	issues := e.Validate([]widget{
		{ID: "w1", Color: "red"},
		{ID: "w2", Color: "blue"},
		{ID: "w1", Color: "green"},
	})

	require.Len(t, issues, 1)
	assert.Equal(t, IssueDuplicateID, issues[0].Code)
	assert.Equal(t, "w1", issues[0].RecordID)
	// The issue names both colliding records.
	assert.Contains(t, issues[0].Message, "records 0 and 2")
}

func TestEngine_Validate_Clean(t *testing.T) {
	e := NewEngine(widgetKind())

	issues := e.Validate([]widget{
		{ID: "w1", Color: "red", Size: "small"},
		{ID: "w2", Color: "blue"},
	})
	assert.Empty(t, issues)
}

func TestEngine_FilterBy(t *testing.T) {
	e := NewEngine(widgetKind())
	records := []widget{
		{ID: "w1", Color: "red", Tags: []string{"a", "b"}},
		{ID: "w2", Color: "blue", Tags: []string{"b"}},
		{ID: "w3", Color: "red"},
	}

	t.Run("scalar field preserves order", func(t *testing.T) {
		got, err := e.FilterBy(records, "color", "red")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "w1", got[0].ID)
		assert.Equal(t, "w3", got[1].ID)
	})

	t.Run("collection field matches any value", func(t *testing.T) {
		got, err := e.FilterBy(records, "tags", "b")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("case sensitive", func(t *testing.T) {
		got, err := e.FilterBy(records, "color", "Red")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no match is empty, not error", func(t *testing.T) {
		got, err := e.FilterBy(records, "color", "mauve")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := e.FilterBy(records, "weight", "1")
		var fieldErr *UnknownFieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "weight", fieldErr.Field)
	})
}

func TestEngine_GroupBy(t *testing.T) {
	e := NewEngine(widgetKind())
	records := []widget{
		{ID: "w1", Color: "red", Tags: []string{"a", "b"}},
		{ID: "w2", Color: "blue", Tags: []string{"b"}},
		{ID: "w3", Color: "red"},
	}

	t.Run("scalar field", func(t *testing.T) {
		groups, err := e.GroupBy(records, "color")
		require.NoError(t, err)
		assert.Len(t, groups["red"], 2)
		assert.Len(t, groups["blue"], 1)
	})

	t.Run("collection field places record under every value", func(t *testing.T) {
		groups, err := e.GroupBy(records, "tags")
		require.NoError(t, err)
		assert.Len(t, groups["a"], 1)
		assert.Len(t, groups["b"], 2)
	})
}

func TestEngine_RoundTrip(t *testing.T) {
	e := NewEngine(widgetKind())
	records := []widget{
		{ID: "w1", Color: "red", Size: "small", Tags: []string{"a", "b"}},
		{ID: "w2", Color: "blue"},
		{ID: "w3", Color: "green", Tags: []string{"c"}},
	}

	data, err := e.ToYAML(records)
	require.NoError(t, err)

	back, err := e.LoadFromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}
