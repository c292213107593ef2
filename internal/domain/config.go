package domain

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized as overrides for the Bugzilla section.
// These take precedence over values from the YAML file, so an env-only
// deployment (no config file at all) is supported.
const (
	EnvBugzillaAPIURL = "BUGZILLA_API_URL"
	EnvBugzillaAPIKey = "BUGZILLA_API_KEY"
)

// Default HTTP transport settings used when no config file is present.
const (
	DefaultHTTPHost = "127.0.0.1"
	DefaultHTTPPort = 4200
)

// DefaultTimeoutSeconds bounds every outbound Bugzilla call.
const DefaultTimeoutSeconds = 30

// Config represents the server configuration.
// This is the root configuration structure loaded from YAML files.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Bugzilla  BugzillaConfig  `yaml:"bugzilla"`
}

// TransportConfig defines transport settings.
// Specifies whether to use stdio or HTTP transport.
type TransportConfig struct {
	Type string     `yaml:"type"` // "stdio" or "http"
	HTTP HTTPConfig `yaml:"http,omitempty"`
}

// HTTPConfig defines HTTP transport settings.
// Only used when transport type is "http".
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BugzillaConfig defines the connection to the Bugzilla backend.
type BugzillaConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// TimeoutSeconds bounds each outbound request. Zero means the default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// InsecureSkipVerify disables TLS certificate verification.
	// Some internal Bugzilla instances run with self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`
}

// LoadConfig reads and validates configuration.
// The YAML file is optional: when it does not exist, defaults are used and
// the Bugzilla section must be supplied entirely via environment variables.
// A .env file in the working directory is honored if present.
func LoadConfig(path string) (*Config, error) {
	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("invalid YAML syntax in configuration file: %w", err)
		}
	case os.IsNotExist(err):
		// env-only deployment
	default:
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// defaultConfig returns the configuration used when no file is present.
func defaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Type: "http",
			HTTP: HTTPConfig{
				Host: DefaultHTTPHost,
				Port: DefaultHTTPPort,
			},
		},
		Bugzilla: BugzillaConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// applyEnvOverrides overlays environment variables onto the loaded config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvBugzillaAPIURL); v != "" {
		c.Bugzilla.BaseURL = v
	}
	if v := os.Getenv(EnvBugzillaAPIKey); v != "" {
		c.Bugzilla.APIKey = v
	}
}

// Validate checks the configuration for completeness and correctness.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateTransport(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Bugzilla.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// validateTransport validates the transport configuration.
func (c *Config) validateTransport() error {
	var errors []string

	if c.Transport.Type == "" {
		errors = append(errors, "transport type is required")
	} else if c.Transport.Type != "stdio" && c.Transport.Type != "http" {
		errors = append(errors, fmt.Sprintf("invalid transport type '%s': must be 'stdio' or 'http'", c.Transport.Type))
	}

	if c.Transport.Type == "http" {
		if c.Transport.HTTP.Host == "" {
			errors = append(errors, "HTTP host is required when transport type is 'http'")
		}
		if c.Transport.HTTP.Port <= 0 || c.Transport.HTTP.Port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid HTTP port %d: must be between 1 and 65535", c.Transport.HTTP.Port))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates the Bugzilla backend configuration.
// The process refuses to start when the base URL or API key is missing.
func (bc *BugzillaConfig) Validate() error {
	var errors []string

	if bc.BaseURL == "" {
		errors = append(errors, fmt.Sprintf("bugzilla base_url is required (or set %s)", EnvBugzillaAPIURL))
	} else {
		parsedURL, err := url.Parse(bc.BaseURL)
		if err != nil {
			errors = append(errors, fmt.Sprintf("bugzilla base_url is invalid: %v", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, "bugzilla base_url must use http or https scheme")
		} else if parsedURL.Host == "" {
			errors = append(errors, "bugzilla base_url must include a host")
		}
	}

	if bc.APIKey == "" {
		errors = append(errors, fmt.Sprintf("bugzilla api_key is required (or set %s)", EnvBugzillaAPIKey))
	}

	if bc.TimeoutSeconds < 0 {
		errors = append(errors, fmt.Sprintf("invalid timeout_seconds %d: must not be negative", bc.TimeoutSeconds))
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}
