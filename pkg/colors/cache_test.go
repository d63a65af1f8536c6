package colors

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColorIDStableAndDistinct(t *testing.T) {
	c, err := NewColorCache(filepath.Join(t.TempDir(), "colors.json"))
	require.NoError(t, err)

	a := c.GetColorID("task-a")
	b := c.GetColorID("task-b")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c.GetColorID("task-a"))
	assert.Equal(t, DefaultColorID, c.GetColorID(""))
}

func TestGetColorIDEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewColorCache(filepath.Join(t.TempDir(), "colors.json"))
	require.NoError(t, err)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for i := 0; i < paletteSize; i++ {
		c.GetColorID(fmt.Sprintf("task-%d", i))
	}
	first := c.GetColorID("task-0") // task-0 is now the most recent
	victim := c.Tasks["task-1"].ColorID

	got := c.GetColorID("task-new")
	assert.Equal(t, victim, got)
	assert.NotContains(t, c.Tasks, "task-1")
	assert.Equal(t, first, c.Tasks["task-0"].ColorID)
}

func TestColorCachePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.json")
	c, err := NewColorCache(path)
	require.NoError(t, err)
	id := c.GetColorID("task-a")
	require.NoError(t, c.Save())

	reopened, err := NewColorCache(path)
	require.NoError(t, err)
	assert.Equal(t, id, reopened.GetColorID("task-a"))
}

func TestLoadDropsNullEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"task-a": null, "task-b": {"color_id": "3", "last_used": "2024-01-01T00:00:00Z"}}`), 0600))

	c, err := NewColorCache(path)
	require.NoError(t, err)
	assert.NotContains(t, c.Tasks, "task-a")
	assert.Equal(t, "3", c.GetColorID("task-b"))
	assert.NotEqual(t, "3", c.GetColorID("task-a"))
	assert.NotEqual(t, "3", c.GetColorID("task-c"))
}

func TestLoadNullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0600))

	c, err := NewColorCache(path)
	require.NoError(t, err)
	assert.NotEmpty(t, c.GetColorID("task-a"))
}
