package config_test

import (
	"path/filepath"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/scoring-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "scoring.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 90, cfg.StreakWindowDays)
	assert.Equal(t, 3, cfg.MaxConflictRetries)
	assert.True(t, cfg.SchedulerEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCORING_ADDR", ":9999")
	t.Setenv("SCORING_DB_PATH", ":memory:")
	t.Setenv("SCORING_LOG_LEVEL", "debug")
	t.Setenv("SCORING_STREAK_WINDOW_DAYS", "30")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.StreakWindowDays)
}

func TestLoad_YAMLFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	yaml := "addr: \":7070\"\nlog_level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("SCORING_CONFIG", path)
	t.Setenv("SCORING_LOG_LEVEL", "error")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr, "file overrides default")
	assert.Equal(t, "error", cfg.LogLevel, "env overrides file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("SCORING_CONFIG", "/does/not/exist.yaml")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := config.New()
	require.NoError(t, base.Validate())

	broken := *base
	broken.Addr = ""
	assert.Error(t, broken.Validate())

	broken = *base
	broken.StreakWindowDays = 0
	assert.Error(t, broken.Validate())

	broken = *base
	broken.MaxConflictRetries = -1
	assert.Error(t, broken.Validate())

	broken = *base
	broken.RefreshInterval = -time.Minute
	assert.Error(t, broken.Validate())
}
