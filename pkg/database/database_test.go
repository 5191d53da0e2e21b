package database_test

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/docket/pkg/database"
)

func TestNewSQLiteSystem(t *testing.T) {
	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "docket.db"),
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Close()

	if err := sys.Connection().Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if sys.Driver() != database.DriverSQLite {
		t.Errorf("Driver() = %q, want %q", sys.Driver(), database.DriverSQLite)
	}

	stats := sys.Connection().Stats()
	if stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", stats.MaxOpenConnections)
	}

	query := "SELECT 1 WHERE ? = ?"
	if got := sys.Rebind(query); got != query {
		t.Errorf("sqlite Rebind() = %q, want unchanged", got)
	}
}

func TestNewPostgresSetsPoolParams(t *testing.T) {
	cfg := database.Config{
		Driver:          database.DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Name:            "docket",
		User:            "docket",
		SSLMode:         "disable",
		MaxOpenConns:    42,
		MaxIdleConns:    7,
		ConnMaxLifetime: "10m",
		ConnTimeout:     "3s",
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Close()

	if got := sys.Connection().Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
	if got := sys.Rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres Rebind() = %q", got)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"none", "SELECT 1", "SELECT 1"},
		{"ordered", "INSERT INTO t (a, b, c) VALUES (?, ?, ?)", "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"},
		{"quoted literal", "SELECT '?' WHERE a = ?", "SELECT '?' WHERE a = $1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := database.Rebind(tt.query); got != tt.want {
				t.Errorf("Rebind(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr bool
	}{
		{"sqlite defaults", database.Config{}, false},
		{"postgres missing name", database.Config{Driver: database.DriverPostgres, User: "u"}, true},
		{"postgres complete", database.Config{Driver: database.DriverPostgres, Name: "n", User: "u"}, false},
		{"unknown driver", database.Config{Driver: "mysql"}, true},
		{"bad lifetime", database.Config{ConnMaxLifetime: "soon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "postgres")
	t.Setenv("TEST_DB_NAME", "records")
	t.Setenv("TEST_DB_USER", "svc")

	cfg := database.Config{}
	env := &database.Env{
		Driver: "TEST_DB_DRIVER",
		Name:   "TEST_DB_NAME",
		User:   "TEST_DB_USER",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Driver != database.DriverPostgres || cfg.Name != "records" || cfg.User != "svc" {
		t.Errorf("env not applied: %+v", cfg)
	}
}
