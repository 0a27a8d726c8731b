// Package config loads application configuration. Precedence is
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Workspace storage
	ProjectsRoot   string `yaml:"projects_root"`
	CheckpointPath string `yaml:"checkpoint_path"`

	// Persistence coordinator
	FlushDebounce      time.Duration `yaml:"flush_debounce"`
	FlushRetryAttempts int           `yaml:"flush_retry_attempts"`

	// Feature flags
	EnableDriftWatcher bool `yaml:"enable_drift_watcher"`
	EnableRuntimeProbe bool `yaml:"enable_runtime_probe"`
	EnableMetrics      bool `yaml:"enable_metrics"`
	EnableCORS         bool `yaml:"enable_cors"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// LoadConfig loads configuration from an optional YAML file named by
// ATELIER_CONFIG, then applies environment variable overrides.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("ATELIER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func defaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		ServerAddress:      getEnv("SERVER_ADDRESS", ":8080"),
		Environment:        "development",
		ProjectsRoot:       filepath.Join(home, ".atelier", "projects"),
		CheckpointPath:     filepath.Join(home, ".atelier", "workspace.db"),
		FlushDebounce:      500 * time.Millisecond,
		FlushRetryAttempts: 3,
		EnableDriftWatcher: true,
		EnableRuntimeProbe: true,
		EnableMetrics:      true,
		EnableCORS:         true,
		LogLevel:           "info",
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ProjectsRoot = getEnv("PROJECTS_ROOT", c.ProjectsRoot)
	c.CheckpointPath = getEnv("CHECKPOINT_PATH", c.CheckpointPath)
	c.FlushDebounce = getEnvDuration("FLUSH_DEBOUNCE", c.FlushDebounce)
	c.FlushRetryAttempts = getEnvInt("FLUSH_RETRY_ATTEMPTS", c.FlushRetryAttempts)
	c.EnableDriftWatcher = getEnvBool("ENABLE_DRIFT_WATCHER", c.EnableDriftWatcher)
	c.EnableRuntimeProbe = getEnvBool("ENABLE_RUNTIME_PROBE", c.EnableRuntimeProbe)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration and ensures the storage locations
// are usable, creating the projects root if it does not exist.
func (c *Config) Validate() error {
	if c.ProjectsRoot == "" {
		return fmt.Errorf("projects root is required")
	}
	if c.FlushDebounce <= 0 {
		return fmt.Errorf("flush debounce must be positive")
	}
	if c.FlushRetryAttempts < 1 {
		return fmt.Errorf("flush retry attempts must be at least 1")
	}

	if err := os.MkdirAll(c.ProjectsRoot, 0o755); err != nil {
		return fmt.Errorf("projects root %s is not creatable: %w", c.ProjectsRoot, err)
	}
	probe := filepath.Join(c.ProjectsRoot, ".atelier-write-check")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("projects root %s is not writable: %w", c.ProjectsRoot, err)
	}
	_ = os.Remove(probe)

	if c.CheckpointPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.CheckpointPath), 0o755); err != nil {
			return fmt.Errorf("checkpoint directory is not creatable: %w", err)
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
