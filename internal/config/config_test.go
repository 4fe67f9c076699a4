package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 30, cfg.SessionRetentionDays)
	assert.True(t, cfg.RulesEnabled)
	assert.NotNil(t, cfg.Location())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iris.yaml")
	payload := `
data_dir: /var/lib/iris
timezone: America/New_York
allowed_senders:
  - user@example.com
session_retention_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/iris", cfg.DataDir)
	assert.Equal(t, "America/New_York", cfg.Location().String())
	assert.Equal(t, []string{"user@example.com"}, cfg.AllowedSenders)
	assert.Equal(t, 7, cfg.SessionRetentionDays)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iris.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\n"), 0o644))

	t.Setenv("IRIS_DATA_DIR", "/from/env")
	t.Setenv("IRIS_ALLOWED_SENDERS", " a@example.com , b@example.com ")
	t.Setenv("IRIS_RULES_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AllowedSenders)
	assert.False(t, cfg.RulesEnabled)
}

func TestLoad_OptionsWinOverEverything(t *testing.T) {
	t.Setenv("IRIS_DATA_DIR", "/from/env")

	cfg, err := Load("", WithDataDir("/from/option"), WithTimezone("UTC"), WithAllowedSenders([]string{"x@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, "/from/option", cfg.DataDir)
	assert.Equal(t, "UTC", cfg.Location().String())
	assert.Equal(t, []string{"x@example.com"}, cfg.AllowedSenders)
}

func TestLoad_BadTimezone(t *testing.T) {
	_, err := Load("", WithTimezone("Mars/Olympus_Mons"))
	assert.Error(t, err)
}

func TestConfig_Paths(t *testing.T) {
	cfg, err := Load("", WithDataDir("/srv/iris"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/iris/reminders.json", cfg.RemindersPath())
	assert.Equal(t, "/srv/iris/memory", cfg.MemoryDir())
	assert.Equal(t, "/srv/iris/user_data.json", cfg.UserDataPath())
	assert.Equal(t, "/srv/iris/diary.json", cfg.DiaryPath())
	assert.Equal(t, "/srv/iris/reminder_activity.json", cfg.ActivityPath())
	assert.Equal(t, "/srv/iris/rules.json", cfg.RulesPath())
	assert.Equal(t, "/srv/iris/sessions.json", cfg.SessionsPath())
	assert.Equal(t, "/srv/iris/inputs", cfg.TaskInboxDir())
}
