package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.True(t, s.Worker.Enabled)
	assert.Equal(t, 60*time.Second, s.Worker.CheckInterval.Std())
	assert.Equal(t, time.Minute, s.Worker.SnapshotInterval.Std())
	assert.InDelta(t, 0.5, s.Detection.MinSampleRatio, 0.001)
	assert.Equal(t, 30*time.Second, s.Container.QueryTimeout.Std())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOSTWARDEN_WORKER_ENABLED", "false")
	t.Setenv("HOSTWARDEN_WORKER_CHECK_INTERVAL", "30s")
	t.Setenv("HOSTWARDEN_DATABASE_DRIVER", "mysql")
	t.Setenv("HOSTWARDEN_DATABASE_DSN", "user:pass@tcp(db:3306)/hostwarden")
	t.Setenv("HOSTWARDEN_LOG_LEVEL", "debug")

	s, err := Load("")
	require.NoError(t, err)
	assert.False(t, s.Worker.Enabled)
	assert.Equal(t, 30*time.Second, s.Worker.CheckInterval.Std())
	assert.Equal(t, "mysql", s.Database.Driver)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
worker:
  check_interval: 2m
  snapshot_interval: 30s
detection:
  min_sample_ratio: 0.75
notify:
  push_urls:
    - ntfy://ntfy.example/hostwarden
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, 2*time.Minute, s.Worker.CheckInterval.Std())
	assert.Equal(t, 30*time.Second, s.Worker.SnapshotInterval.Std())
	assert.InDelta(t, 0.75, s.Detection.MinSampleRatio, 0.001)
	assert.Equal(t, []string{"ntfy://ntfy.example/hostwarden"}, s.Notify.PushURLs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	valid := func() *Settings {
		s, err := Load("")
		require.NoError(t, err)
		return s
	}

	s := valid()
	s.Database.Driver = "postgres"
	assert.Error(t, s.Validate())

	s = valid()
	s.Database.DSN = ""
	assert.Error(t, s.Validate())

	s = valid()
	s.Worker.CheckInterval = Duration(100 * time.Millisecond)
	assert.Error(t, s.Validate())

	s = valid()
	s.Detection.MinSampleRatio = 1.5
	assert.Error(t, s.Validate())

	s = valid()
	s.Detection.MinSampleRatio = 0
	assert.Error(t, s.Validate())
}
