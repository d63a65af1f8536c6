package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Tasks", cfg.Calendar)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, []string{"status:pending"}, cfg.TaskFilter)
	assert.Equal(t, ReporterJournal, cfg.Reporter)
	assert.Equal(t, 9, cfg.DayStartHour)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "tally"), cfg.StateDir)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
calendar: Billing
state_dir: /var/lib/tally
tick_interval: 2s
task_filter: [project:work, status:pending]
reporter: calendar
day_start_hour: 8
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Billing", cfg.Calendar)
	assert.Equal(t, "/var/lib/tally", cfg.StateDir)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, []string{"project:work", "status:pending"}, cfg.TaskFilter)
	assert.Equal(t, ReporterCalendar, cfg.Reporter)
	assert.Equal(t, 8, cfg.DayStartHour)
}

func TestLoadRejectsUnknownReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reporter: fax\n"), 0600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown reporter")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := &Config{
		Calendar:     "Work",
		StateDir:     "/tmp/state",
		TickInterval: 500 * time.Millisecond,
		TaskFilter:   []string{"+next"},
		Reporter:     ReporterCalendar,
		DayStartHour: 10,
		Quiet:        true,
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
