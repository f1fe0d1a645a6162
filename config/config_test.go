package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, calendar.ModeBS, cfg.Calendar.Mode)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 24*time.Hour, cfg.Leave.RecomputeInterval)
}

func TestLoad_PostgresFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
calendar:
  mode: AD
database:
  driver: postgres
  host: db
  user: leave
  password: secret
  name: leave
  max_open_conns: 10
  conn_max_lifetime: 30m
log:
  level: debug
  format: JSON
leave:
  require_assigned_balance: true
  recompute_interval: 6h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, calendar.ModeAD, cfg.Calendar.Mode)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "postgres://leave:secret@db:5432/leave?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Leave.RequireAssignedBalance)
	assert.Equal(t, 6*time.Hour, cfg.Leave.RecomputeInterval)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad mode":     "calendar:\n  mode: julian\n",
		"bad driver":   "database:\n  driver: mongo\n",
		"pg no host":   "database:\n  driver: postgres\n  user: u\n  name: n\n",
		"bad duration": "server:\n  read_timeout: soon\n",
		"bad port":     "server:\n  port: 70000\n",
		"bad format":   "log:\n  format: xml\n",
		"bad interval": "leave:\n  recompute_interval: daily\n",
		"bad level":    "log:\n  level: loud\n",
		"bad yaml":     "server: [\n",
	}
	for name, content := range cases {
		_, err := Load(writeFile(t, "c.yaml", content))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.ApplyEnv(envMap(map[string]string{
		"LEAVE_CALENDAR_MODE":            "ad",
		"DATABASE_URL":                   "postgres://u:p@h:5432/d",
		"PORT":                           "7000",
		"LOG_LEVEL":                      "warn",
		"LEAVE_REQUIRE_ASSIGNED_BALANCE": "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, calendar.ModeAD, cfg.Calendar.Mode)
	// DATABASE_URL alone implies postgres
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@h:5432/d", cfg.Database.DSN())
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Leave.RequireAssignedBalance)
}

func TestApplyEnv_Rejects(t *testing.T) {
	for _, env := range []map[string]string{
		{"PORT": "eighty"},
		{"LEAVE_CALENDAR_MODE": "lunar"},
		{"LEAVE_REQUIRE_ASSIGNED_BALANCE": "maybe"},
	} {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Error(t, cfg.ApplyEnv(envMap(env)), "%v", env)
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))

	path := writeFile(t, ".env", "LEAVE_TEST_DOTENV=bs\n")
	t.Cleanup(func() { os.Unsetenv("LEAVE_TEST_DOTENV") })
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "bs", os.Getenv("LEAVE_TEST_DOTENV"))
}

func TestNewLogger(t *testing.T) {
	logger := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	logger = LogConfig{Level: "nonsense", Format: "text"}.NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
