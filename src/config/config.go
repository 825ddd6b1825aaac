package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"stream-operators/src/helpers"
	"stream-operators/src/models"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey fills reasoning.api_key when the file leaves it empty.
const EnvAPIKey = "OPENAI_API_KEY"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns a runnable configuration: swim stream, OpenAI reasoning, no storage.
func Default() *Config {
	cfg := &Config{MConfig: &models.MConfig{
		Name:               "stream-operators",
		Host:               "127.0.0.1",
		Port:               8090,
		LogLevel:           "INFO",
		GrpcHost:           "127.0.0.1",
		GrpcPort:           50061,
		DataRetentionDays:  7,
		EmissionsPerSymbol: 500,
		Storage: models.MStorageConfig{
			DBType: "none",
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 60,
			UserAgent:      "stream-operators/1.0",
		},
		Reasoning: models.MReasoningConfig{
			Provider:     "openai",
			BaseURL:      "https://api.openai.com/v1",
			Model:        "gpt-4o-mini",
			MaxTokens:    1024,
			MaxRetries:   3,
			RetryDelayMs: 1000,
		},
		Stream: models.MStreamConfig{
			Type:                "swim",
			HostURI:             "wss://stocks-simulated.nstream-demo.io",
			NodePattern:         "/stock/%s",
			Lane:                "status",
			SyncTimeoutSeconds:  10,
			SimulatedIntervalMs: 500,
		},
		Router: models.MRouterConfig{
			MaxAttempts: 3,
			MaxRetries:  3,
		},
	}}
	cfg.applyEnv()
	return cfg
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal over the defaults so partial files stay runnable
	config := Default()
	if err := yaml.Unmarshal(data, config.MConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}
	config.applyEnv()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Load reads configPath when it exists and falls back to Default otherwise.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return NewConfig(configPath)
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if c.Reasoning.APIKey == "" {
		c.Reasoning.APIKey = os.Getenv(EnvAPIKey)
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return helpers.NewConfigurationError("application name cannot be empty", nil)
	}

	// Server
	if c.Host == "" {
		return helpers.NewConfigurationError("server host cannot be empty", nil)
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port), nil)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort), nil)
	}

	if c.MaxMemoryMB < 0 {
		return helpers.NewConfigurationError("max_memory_mb cannot be negative", nil)
	}
	if c.EmissionsPerSymbol < 0 {
		return helpers.NewConfigurationError("emissions_per_symbol cannot be negative", nil)
	}

	// Storage
	switch strings.ToLower(c.Storage.DBType) {
	case "none", "":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return helpers.NewConfigurationError("database path cannot be empty for sqlite", nil)
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return helpers.NewConfigurationError("connection string cannot be empty for postgres", nil)
		}
	default:
		return helpers.NewConfigurationError(fmt.Sprintf("unsupported database type: %s", c.Storage.DBType), nil)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return helpers.NewConfigurationError("request timeout must be greater than 0", nil)
	}

	// Reasoning
	if c.Reasoning.BaseURL == "" {
		return helpers.NewConfigurationError("reasoning base_url cannot be empty", nil)
	}
	if c.Reasoning.Model == "" {
		return helpers.NewConfigurationError("reasoning model cannot be empty", nil)
	}
	if c.Reasoning.MaxRetries < 1 {
		return helpers.NewConfigurationError("reasoning max_retries must be at least 1", nil)
	}
	if c.Reasoning.RetryDelayMs < 0 {
		return helpers.NewConfigurationError("reasoning retry_delay_ms cannot be negative", nil)
	}

	// Stream
	switch c.Stream.Type {
	case "swim":
		if c.Stream.HostURI == "" {
			return helpers.NewConfigurationError("stream host_uri cannot be empty for swim", nil)
		}
		if !strings.Contains(c.Stream.NodePattern, "%s") {
			return helpers.NewConfigurationError("stream node_pattern must contain %s", nil)
		}
	case "simulated":
		if c.Stream.SimulatedIntervalMs <= 0 {
			return helpers.NewConfigurationError("simulated_interval_ms must be greater than 0", nil)
		}
	default:
		return helpers.NewConfigurationError(fmt.Sprintf("unsupported stream type: %s", c.Stream.Type), nil)
	}
	if c.Stream.SyncTimeoutSeconds <= 0 {
		return helpers.NewConfigurationError("sync_timeout_seconds must be greater than 0", nil)
	}

	// Router
	if c.Router.MaxAttempts < 1 {
		return helpers.NewConfigurationError("router max_attempts must be at least 1", nil)
	}

	// Declared operators
	for i, op := range c.Operators {
		if op.Symbol == "" {
			return helpers.NewConfigurationError(fmt.Sprintf("operator %d must have a symbol", i), nil)
		}
		if op.StreamingOperator == "" {
			return helpers.NewConfigurationError(fmt.Sprintf("operator %d must have a streaming_operator", i), nil)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
