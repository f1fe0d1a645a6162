/*
config.go - Process configuration for the leave engine server

PURPOSE:
  Resolves every deployment setting exactly once at startup: the display
  calendar, the record store, the HTTP listener and logging. Nothing in
  the core reads configuration globally; cmd/server hands the resolved
  values to the components that need them.

SOURCES (later wins):
  1. Built-in defaults (Default)
  2. YAML file (Load)
  3. .env file, then process environment (ApplyEnv)

ENVIRONMENT:
  LEAVE_CALENDAR_MODE   ad | bs
  DATABASE_DRIVER       memory | sqlite | postgres
  DATABASE_URL          full postgres DSN (overrides host/port/...)
  DATABASE_PATH         sqlite file
  PORT                  HTTP port
  LOG_LEVEL, LOG_FORMAT logrus level, text | json
  LEAVE_REQUIRE_ASSIGNED_BALANCE  true | false

SEE ALSO:
  - cmd/server/main.go: flag overrides and wiring
  - store/postgres/pool.go: consumes DatabaseConfig
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/calendar"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Calendar CalendarConfig `yaml:"calendar"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Leave    LeaveConfig    `yaml:"leave"`
}

type ServerConfig struct {
	Port               int           `yaml:"port"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout"`
	WriteTimeoutRaw    string        `yaml:"write_timeout"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

type CalendarConfig struct {
	ModeRaw string        `yaml:"mode"`
	Mode    calendar.Mode `yaml:"-"`
}

// DatabaseConfig selects and configures the record store. Host/Port/User/
// Password/Name/SSLMode and the pool settings only matter for postgres.
type DatabaseConfig struct {
	Driver             string        `yaml:"driver"`
	Path               string        `yaml:"path"`
	URL                string        `yaml:"url"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LeaveConfig holds policy switches that are deployment decisions.
type LeaveConfig struct {
	// RequireAssignedBalance limits requests to leave types the employee has
	// an active balance for in the current fiscal year.
	RequireAssignedBalance bool `yaml:"require_assigned_balance"`
	// RecomputeInterval spaces the background entitlement passes; 0 disables them.
	RecomputeInterval    time.Duration `yaml:"-"`
	RecomputeIntervalRaw string        `yaml:"recompute_interval"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns a runnable configuration: BS calendar, sqlite file store.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			AllowedOrigins:     []string{"http://localhost:*", "http://127.0.0.1:*"},
			ReadTimeoutRaw:     "15s",
			WriteTimeoutRaw:    "15s",
			ShutdownTimeoutRaw: "10s",
		},
		Calendar: CalendarConfig{ModeRaw: string(calendar.DefaultMode)},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "leave.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Leave:    LeaveConfig{RecomputeIntervalRaw: "24h"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. A missing file
// is not an error; variables already set are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logrus.WithField("file", f).Debug("no env file")
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from lookup (os.LookupEnv in production) and
// re-validates.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LEAVE_CALENDAR_MODE"); ok {
		c.Calendar.ModeRaw = v
	}
	if v, ok := lookup("DATABASE_DRIVER"); ok {
		c.Database.Driver = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Database.URL = v
		if _, set := lookup("DATABASE_DRIVER"); !set {
			c.Database.Driver = DriverPostgres
		}
	}
	if v, ok := lookup("DATABASE_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := lookup("LEAVE_REQUIRE_ASSIGNED_BALANCE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LEAVE_REQUIRE_ASSIGNED_BALANCE: %w", err)
		}
		c.Leave.RequireAssignedBalance = b
	}
	return c.validateAndNormalize()
}

// =============================================================================
// VALIDATION
// =============================================================================

func (c *Config) validateAndNormalize() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be in 1..65535, got %d", c.Server.Port)
	}
	var err error
	if c.Server.ReadTimeout, err = parseDurationAllowEmpty(c.Server.ReadTimeoutRaw); err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	if c.Server.WriteTimeout, err = parseDurationAllowEmpty(c.Server.WriteTimeoutRaw); err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}
	if c.Server.ShutdownTimeout, err = parseDurationAllowEmpty(c.Server.ShutdownTimeoutRaw); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}

	if c.Leave.RecomputeInterval, err = parseDurationAllowEmpty(c.Leave.RecomputeIntervalRaw); err != nil {
		return fmt.Errorf("config: leave.recompute_interval: %w", err)
	}

	mode, err := calendar.ParseMode(c.Calendar.ModeRaw)
	if err != nil {
		return fmt.Errorf("config: calendar.mode: %w", err)
	}
	c.Calendar.Mode = mode

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	switch d.Driver {
	case "", DriverSQLite:
		d.Driver = DriverSQLite
		if d.Path == "" {
			return fmt.Errorf("config: database.path must be set for sqlite")
		}
		return nil
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("config: unknown database.driver %q", d.Driver)
	}

	if d.URL == "" {
		if d.Host == "" {
			return fmt.Errorf("config: database.host must be set")
		}
		if d.Port == 0 {
			d.Port = 5432
		}
		if d.User == "" {
			return fmt.Errorf("config: database.user must be set")
		}
		if d.Name == "" {
			return fmt.Errorf("config: database.name must be set")
		}
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

// DSN returns the pgx connection string. URL wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// =============================================================================
// LOGGING
// =============================================================================

// NewLogger builds a logrus logger from the log section.
func (l LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
