package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9090\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Backend.Type != "memory" {
		t.Errorf("Backend.Type = %q, want memory", cfg.Backend.Type)
	}
	if cfg.Freshness.Rooms != 4*time.Hour {
		t.Errorf("Freshness.Rooms = %v, want 4h", cfg.Freshness.Rooms)
	}
	if cfg.Freshness.Schedules != 2*time.Hour {
		t.Errorf("Freshness.Schedules = %v, want 2h", cfg.Freshness.Schedules)
	}
	if cfg.Search.MaxIterations != 15 {
		t.Errorf("Search.MaxIterations = %d, want 15", cfg.Search.MaxIterations)
	}
	if cfg.Search.BatchSize != 6 {
		t.Errorf("Search.BatchSize = %d, want 6", cfg.Search.BatchSize)
	}
	if cfg.Transit.Timezone != "Europe/Stockholm" {
		t.Errorf("Transit.Timezone = %q", cfg.Transit.Timezone)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("PENDLA_TEST_KEY", "secret-key-123")

	path := writeConfig(t, "places:\n  api_key: ${PENDLA_TEST_KEY}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Places.APIKey != "secret-key-123" {
		t.Errorf("Places.APIKey = %q, want secret-key-123", cfg.Places.APIKey)
	}
}

func TestLoadEnvMissingKeptLiteral(t *testing.T) {
	path := writeConfig(t, "places:\n  api_key: ${PENDLA_UNSET_VAR_XYZ}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Places.APIKey != "${PENDLA_UNSET_VAR_XYZ}" {
		t.Errorf("Places.APIKey = %q, want literal placeholder", cfg.Places.APIKey)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend.Type = "redis" },
			wantErr: "unknown backend type",
		},
		{
			name:    "docstore without base url",
			mutate:  func(c *Config) { c.Backend.Type = "docstore" },
			wantErr: "base_url",
		},
		{
			name: "docstore with base url",
			mutate: func(c *Config) {
				c.Backend.Type = "docstore"
				c.Backend.Docstore.BaseURL = "https://docs.example.com"
			},
		},
		{
			name:    "zero iterations",
			mutate:  func(c *Config) { c.Search.MaxIterations = 0 },
			wantErr: "max_iterations",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Search.BatchSize = 0 },
			wantErr: "batch_size",
		},
		{
			name:    "negative window",
			mutate:  func(c *Config) { c.Search.HoursBefore = -1 },
			wantErr: "window hours",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Transit.Timezone = "Mars/Olympus" },
			wantErr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() on missing file succeeded, want error")
	}
}
