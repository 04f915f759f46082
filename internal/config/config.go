// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigFile names the environment variable holding the config file path.
	EnvConfigFile = "LOCATION_API_CONFIG"
	// EnvAddr overrides server.addr.
	EnvAddr = "LOCATION_API_ADDR"
	// EnvProjectID overrides events.project_id.
	EnvProjectID = "GCP_PROJECT_ID"

	DefaultConfigFile = "configs/config.yaml"
)

// User is one basic-auth principal.
type User struct {
	Name         string `yaml:"name"`          // Login name
	PasswordHash string `yaml:"password_hash"` // bcrypt hash of the password
}

// Config represents the structure of the configuration file.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`             // Listen address, e.g. ":8080"
		TLSCertFile     string        `yaml:"tls_cert_file"`    // Serve TLS when both cert and key are set
		TLSKeyFile      string        `yaml:"tls_key_file"`     // Private key for the TLS certificate
		PageSize        int           `yaml:"page_size"`        // Locations per listing page
		ReadTimeout     time.Duration `yaml:"read_timeout"`     // Maximum duration for reading a request
		WriteTimeout    time.Duration `yaml:"write_timeout"`    // Maximum duration for writing a response
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period for in-flight requests
	} `yaml:"server"`

	Security struct {
		Enabled    bool   `yaml:"enabled"`     // Require basic authentication
		Realm      string `yaml:"realm"`       // Realm reported in WWW-Authenticate
		RequireTLS bool   `yaml:"require_tls"` // Reject requests that did not arrive over TLS
		Users      []User `yaml:"users"`       // Accepted principals
	} `yaml:"security"`

	Metrics struct {
		Enabled        bool          `yaml:"enabled"`         // Periodically log a metrics snapshot
		ReportInterval time.Duration `yaml:"report_interval"` // Interval between snapshots
	} `yaml:"metrics"`

	Events struct {
		Enabled   bool   `yaml:"enabled"`    // Publish location change events
		ProjectID string `yaml:"project_id"` // Google Cloud project hosting the topic
		TopicID   string `yaml:"topic_id"`   // Pub/Sub topic receiving change events
	} `yaml:"events"`

	Logging struct {
		Level  string `yaml:"level"`  // zerolog level name
		Pretty bool   `yaml:"pretty"` // Human readable console output
	} `yaml:"logging"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads the YAML configuration from the specified file, applies
// defaults and environment overrides, and validates the result.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// TLSEnabled reports whether the server should terminate TLS itself.
func (c *Config) TLSEnabled() bool {
	return c.Server.TLSCertFile != "" && c.Server.TLSKeyFile != ""
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.PageSize < 1 {
		errs = append(errs, fmt.Errorf("server.page_size must be at least 1, got %d", c.Server.PageSize))
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
	}
	if c.Security.Enabled && len(c.Security.Users) == 0 {
		errs = append(errs, errors.New("security.enabled requires at least one user"))
	}
	for i, u := range c.Security.Users {
		if u.Name == "" || u.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("security.users[%d] needs both name and password_hash", i))
		}
	}
	if c.Metrics.Enabled && c.Metrics.ReportInterval <= 0 {
		errs = append(errs, errors.New("metrics.report_interval must be positive"))
	}
	if c.Events.Enabled && (c.Events.ProjectID == "" || c.Events.TopicID == "") {
		errs = append(errs, errors.New("events.enabled requires project_id and topic_id"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PageSize == 0 {
		c.Server.PageSize = 10
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Security.Realm == "" {
		c.Security.Realm = "location-api"
	}
	if c.Metrics.ReportInterval == 0 {
		c.Metrics.ReportInterval = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Server.Addr = addr
	}
	if projectID := os.Getenv(EnvProjectID); projectID != "" {
		c.Events.ProjectID = projectID
	}
}
