package models

// MConfig Structure
type MConfig struct {
	Name               string            `yaml:"name"`
	Host               string            `yaml:"host"`
	Port               int               `yaml:"port"`
	LogLevel           string            `yaml:"log_level"`
	GrpcHost           string            `yaml:"grpc_host"`
	GrpcPort           int               `yaml:"grpc_port"`
	DataRetentionDays  int               `yaml:"data_retention_days"`
	MaxMemoryMB        int               `yaml:"max_memory_mb"`        // 0 picks 75% of system RAM
	EmissionsPerSymbol int               `yaml:"emissions_per_symbol"` // dashboard ring buffer size
	Storage            MStorageConfig    `yaml:"storage"`
	Network            MNetworkConfig    `yaml:"network"`
	Reasoning          MReasoningConfig  `yaml:"reasoning"`
	Stream             MStreamConfig     `yaml:"stream"`
	Router             MRouterConfig     `yaml:"router"`
	Operators          []MOperatorConfig `yaml:"operators"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	UserAgent      string `yaml:"user_agent"`
	Proxy          string `yaml:"proxy"` // optional egress proxy URL
}

type MReasoningConfig struct {
	Provider     string `yaml:"provider"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelayMs int    `yaml:"retry_delay_ms"`
}

type MStreamConfig struct {
	Type                string `yaml:"type"` // swim or simulated
	HostURI             string `yaml:"host_uri"`
	NodePattern         string `yaml:"node_pattern"`
	Lane                string `yaml:"lane"`
	SyncTimeoutSeconds  int    `yaml:"sync_timeout_seconds"`
	SimulatedIntervalMs int    `yaml:"simulated_interval_ms"`
}

type MRouterConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	MaxRetries  int `yaml:"max_retries"`
}

// MOperatorConfig declares an operator to launch under `serve`.
type MOperatorConfig struct {
	Kind              string                 `yaml:"kind"`
	Mode              string                 `yaml:"mode"`
	Symbol            string                 `yaml:"symbol"`
	StreamingOperator string                 `yaml:"streaming_operator"`
	OperationConfig   map[string]interface{} `yaml:"operation_config"`
}

// LogLevelName returns the configured log level; it lets the logger read the level from any config wrapper.
func (c *MConfig) LogLevelName() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
