package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Database      struct {
		DSN          string `mapstructure:"dsn"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
	} `mapstructure:"database"`
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "scribe-api"}, ""},
		{"missing name", ServiceConfig{}, "config.name is required"},
		{"bad environment", ServiceConfig{Name: "x", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestServiceConfig_DevelopmentDebug(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("expected development with debug, got %q debug=%v", cfg.Environment, cfg.Debug)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
name: scribe-api
environment: staging
database:
  dsn: "file.db"
  max_open_conns: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCRIBE_DATABASE_MAX_OPEN_CONNS", "12")

	var cfg testConfig
	if err := Load("scribe-api", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "scribe-api" || cfg.Environment != "staging" {
		t.Errorf("service fields not loaded: %+v", cfg.ServiceConfig)
	}
	if cfg.Database.DSN != "file.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 12 {
		t.Errorf("env override not applied, max_open_conns = %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("SCRIBE_TEST_ENVFILE_NAME=from-env-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SCRIBE_TEST_ENVFILE_NAME") })

	var cfg struct {
		Test struct {
			Envfile struct {
				Name string `mapstructure:"name"`
			} `mapstructure:"envfile"`
		} `mapstructure:"test"`
	}
	if err := Load("scribe", &cfg, WithConfigFile(""), WithEnvFile(envPath)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Test.Envfile.Name != "from-env-file" {
		t.Errorf("name = %q", cfg.Test.Envfile.Name)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := Load("scribe", &cfg, WithConfigFile(filepath.Join(t.TempDir(), "nope.yml")))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestKeyVariants(t *testing.T) {
	got := keyVariants("DATABASE_MAX_OPEN_CONNS")
	for _, want := range []string{"database_max_open_conns", "database.max_open_conns"} {
		if !slices.Contains(got, want) {
			t.Errorf("variants %v missing %q", got, want)
		}
	}
	if v := keyVariants("PORT"); len(v) != 1 || v[0] != "port" {
		t.Errorf("single part variants = %v", v)
	}
}
