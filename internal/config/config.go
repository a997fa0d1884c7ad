package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration loaded from environment variables.
// This provides a centralized way to manage all configuration settings.
type Config struct {
	// EdgePort is the HTTP port where the edge router listens for incoming requests.
	// Default: 4443
	EdgePort int

	// EnabledServices is a comma-separated list of service names to enable at startup.
	// Example: "storage,query,secrets"
	// Default: all three
	EnabledServices []string

	// StrictMode makes lookups of missing buckets/datasets/secrets fail with
	// a not-found error instead of auto-creating the entity.
	// Default: false
	StrictMode bool

	// SeedFile is an optional YAML or JSON file describing buckets, datasets,
	// queries and secrets to pre-populate at startup.
	SeedFile string

	// ProjectID is the project name used when rendering secret resource paths.
	// Default: "local-project"
	ProjectID string

	// LogLevel controls the verbosity of logging (debug, info, warn, error).
	// Default: "info"
	LogLevel string
}

// Load creates a Config instance by reading environment variables.
// Missing values are replaced with sensible defaults.
func Load() *Config {
	cfg := &Config{
		EdgePort:        4443,
		EnabledServices: []string{"storage", "query", "secrets"},
		StrictMode:      false,
		ProjectID:       "local-project",
		LogLevel:        "info",
	}

	// Load EDGE_PORT
	if portStr := os.Getenv("EDGE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port < 65536 {
			cfg.EdgePort = port
		}
	}

	// Load ENABLED_SERVICES
	if servicesStr := os.Getenv("ENABLED_SERVICES"); servicesStr != "" {
		services := strings.Split(servicesStr, ",")
		enabled := make([]string, 0, len(services))
		for _, s := range services {
			s = strings.TrimSpace(s)
			if s != "" {
				enabled = append(enabled, s)
			}
		}
		if len(enabled) > 0 {
			cfg.EnabledServices = enabled
		}
	}

	// Load STRICT_MODE
	if strictStr := os.Getenv("STRICT_MODE"); strictStr != "" {
		if strict, err := strconv.ParseBool(strictStr); err == nil {
			cfg.StrictMode = strict
		}
	}

	// Load SEED_FILE
	if seedFile := os.Getenv("SEED_FILE"); seedFile != "" {
		cfg.SeedFile = seedFile
	}

	// Load PROJECT_ID
	if projectID := os.Getenv("PROJECT_ID"); projectID != "" {
		cfg.ProjectID = projectID
	}

	// Load LOG_LEVEL
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

// IsServiceEnabled checks if a given service name is in the EnabledServices list.
func (c *Config) IsServiceEnabled(serviceName string) bool {
	for _, s := range c.EnabledServices {
		if s == serviceName {
			return true
		}
	}
	return false
}

// Validate performs basic validation on the configuration.
// Returns an error if any invalid settings are detected.
func (c *Config) Validate() error {
	if c.EdgePort <= 0 || c.EdgePort >= 65536 {
		return fmt.Errorf("invalid EDGE_PORT: %d (must be 1-65535)", c.EdgePort)
	}
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID cannot be empty")
	}
	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			return fmt.Errorf("SEED_FILE not readable: %w", err)
		}
	}
	return nil
}
