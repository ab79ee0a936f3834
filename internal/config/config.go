// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Freshness FreshnessConfig `yaml:"freshness"`
	Places    PlacesConfig    `yaml:"places"`
	Transit   TransitConfig   `yaml:"transit"`
	Search    SearchConfig    `yaml:"search"`
	Prewarm   PrewarmConfig   `yaml:"prewarm"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BackendConfig selects and configures the cache storage backend.
type BackendConfig struct {
	Type       string         `yaml:"type"` // "memory", "sqlite", "docstore"
	DSN        string         `yaml:"dsn"`  // sqlite file path or ":memory:"
	MaxEntries int            `yaml:"max_entries"`
	Docstore   DocstoreConfig `yaml:"docstore"`
}

// DocstoreConfig configures the REST document-store backend.
type DocstoreConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// FreshnessConfig sets per key-type update intervals.
type FreshnessConfig struct {
	Rooms     time.Duration `yaml:"rooms"`     // how often to re-sync room records
	Schedules time.Duration `yaml:"schedules"` // how often to re-sync calendar feeds
}

// PlacesConfig configures the room-directory client.
type PlacesConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// TransitConfig configures the journey-planner client.
type TransitConfig struct {
	BaseURL    string        `yaml:"base_url"`
	PlannerKey string        `yaml:"planner_key"`
	LookupKey  string        `yaml:"lookup_key"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	Timezone   string        `yaml:"timezone"` // planner-local timezone
}

// SearchConfig tunes the trip search loop.
type SearchConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	BatchSize     int     `yaml:"batch_size"`
	HoursBefore   float64 `yaml:"hours_before"` // default window before target arrival
	HoursAfter    float64 `yaml:"hours_after"`  // default window after target arrival
}

// PrewarmConfig configures the background room prewarm worker.
type PrewarmConfig struct {
	Rooms    []string      `yaml:"rooms"`
	Interval time.Duration `yaml:"interval"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every field at its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Type:       "memory",
			DSN:        "pendla.db",
			MaxEntries: 10_000,
			Docstore: DocstoreConfig{
				Timeout: 10 * time.Second,
			},
		},
		Freshness: FreshnessConfig{
			Rooms:     4 * time.Hour,
			Schedules: 2 * time.Hour,
		},
		Places: PlacesConfig{
			Timeout: 10 * time.Second,
		},
		Transit: TransitConfig{
			Timeout:  15 * time.Second,
			Timezone: "Europe/Stockholm",
		},
		Search: SearchConfig{
			MaxIterations: 15,
			BatchSize:     6,
			HoursBefore:   1,
			HoursAfter:    1,
		},
		Prewarm: PrewarmConfig{
			Interval: 30 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: true},
			Tracing: TracingConfig{SampleRate: 0.1},
		},
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case "memory", "sqlite":
	case "docstore":
		if c.Backend.Docstore.BaseURL == "" {
			return fmt.Errorf("config: docstore backend requires backend.docstore.base_url")
		}
	default:
		return fmt.Errorf("config: unknown backend type %q", c.Backend.Type)
	}

	if c.Search.MaxIterations <= 0 {
		return fmt.Errorf("config: search.max_iterations must be positive")
	}
	if c.Search.BatchSize <= 0 {
		return fmt.Errorf("config: search.batch_size must be positive")
	}
	if c.Search.HoursBefore < 0 || c.Search.HoursAfter < 0 {
		return fmt.Errorf("config: search window hours must not be negative")
	}

	if _, err := time.LoadLocation(c.Transit.Timezone); err != nil {
		return fmt.Errorf("config: transit.timezone: %w", err)
	}
	return nil
}
