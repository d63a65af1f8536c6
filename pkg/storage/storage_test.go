package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Run("ReadMissing", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		data, err := s.Read("timers")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")
		s := NewFileStore(dir)
		require.NoError(t, s.Write("timers", []byte(`[{"id":"a"}]`)))

		data, err := s.Read("timers")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"a"}]`, string(data))

		info, err := os.Stat(filepath.Join(dir, "timers.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("OverwriteLeavesNoTempFiles", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFileStore(dir)
		require.NoError(t, s.Write("timers", []byte("first")))
		require.NoError(t, s.Write("timers", []byte("second")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "timers.json", entries[0].Name())

		data, err := s.Read("timers")
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Write("k", []byte("1")))
	require.NoError(t, m.Write("k", []byte("2")))

	data, err := m.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))

	writes := m.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "1", string(writes[0].Data))
	assert.Equal(t, "2", string(writes[1].Data))

	m.FailWrites = errors.New("quota exceeded")
	assert.ErrorContains(t, m.Write("k", []byte("3")), "quota")
	data, _ = m.Read("k")
	assert.Equal(t, "2", string(data))
}
