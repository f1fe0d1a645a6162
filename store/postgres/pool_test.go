package postgres

import (
	"testing"
	"time"

	"github.com/warp/leave-engine/config"
)

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	dbCfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            "localhost",
		Port:            15432,
		User:            "leave",
		Password:        "secret",
		Name:            "leave",
		SSLMode:         "disable",
		MaxOpenConns:    12,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 5 * time.Minute,
	}

	poolCfg, err := BuildPoolConfig(dbCfg)
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}
	if poolCfg.MaxConns != 12 {
		t.Errorf("expected MaxConns 12, got %d", poolCfg.MaxConns)
	}
	if poolCfg.MinConns != 2 {
		t.Errorf("expected MinConns 2, got %d", poolCfg.MinConns)
	}
	if poolCfg.MaxConnLifetime != time.Hour {
		t.Errorf("unexpected MaxConnLifetime: %v", poolCfg.MaxConnLifetime)
	}
	if poolCfg.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("unexpected MaxConnIdleTime: %v", poolCfg.MaxConnIdleTime)
	}
	if poolCfg.ConnConfig.Port != 15432 || poolCfg.ConnConfig.Database != "leave" {
		t.Errorf("unexpected conn config: port %d database %s", poolCfg.ConnConfig.Port, poolCfg.ConnConfig.Database)
	}
}

func TestBuildPoolConfig_URLWins(t *testing.T) {
	t.Parallel()

	poolCfg, err := BuildPoolConfig(config.DatabaseConfig{
		URL:  "postgres://app:pw@db.internal:6543/leaves?sslmode=disable",
		Host: "ignored",
	})
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}
	if poolCfg.ConnConfig.Host != "db.internal" || poolCfg.ConnConfig.Database != "leaves" {
		t.Errorf("expected URL settings, got host %s database %s", poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database)
	}
}

func TestBuildPoolConfig_InvalidDSN(t *testing.T) {
	t.Parallel()

	if _, err := BuildPoolConfig(config.DatabaseConfig{URL: "postgres://%zz"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
