package models

// Config holds the application configuration
type Config struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Relay    RelayConfig    `json:"relay" yaml:"relay"`
	Retry    RetryConfig    `json:"retry" yaml:"retry"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// TelegramConfig holds Bot API related configurations.
// The token is never read from the config file; it comes from BOT_TOKEN.
type TelegramConfig struct {
	APIBaseURL     string `json:"api_base_url" yaml:"api_base_url"`
	Token          string `json:"-" yaml:"-"`
	PollTimeoutSec int    `json:"poll_timeout_sec" yaml:"poll_timeout_sec"`
	HTTPTimeoutSec int    `json:"http_timeout_sec" yaml:"http_timeout_sec"`
}

// ServerConfig holds the liveness HTTP server configuration
type ServerConfig struct {
	Port                int  `json:"port" yaml:"port"`
	ReadTimeoutSec      int  `json:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec     int  `json:"write_timeout_sec" yaml:"write_timeout_sec"`
	IdleTimeoutSec      int  `json:"idle_timeout_sec" yaml:"idle_timeout_sec"`
	MetricsEnabled      bool `json:"metrics_enabled" yaml:"metrics_enabled"`
	GracefulShutdownSec int  `json:"graceful_shutdown_sec" yaml:"graceful_shutdown_sec"`
}

const (
	StorageBackendFile   = "file"
	StorageBackendSQLite = "sqlite"
)

// StorageConfig selects where the destination lives and whether decisions are journaled
type StorageConfig struct {
	Backend         string `json:"backend" yaml:"backend"`
	DestinationFile string `json:"destination_file" yaml:"destination_file"`
	DatabasePath    string `json:"database_path" yaml:"database_path"`
	JournalEnabled  bool   `json:"journal_enabled" yaml:"journal_enabled"`
}

// RelayConfig holds pending-entry housekeeping settings
type RelayConfig struct {
	PendingTTLMinutes      int `json:"pending_ttl_minutes" yaml:"pending_ttl_minutes"`
	RetentionDays          int `json:"retention_days" yaml:"retention_days"`
	CleanupIntervalMinutes int `json:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
	// StaleWarnMinutes is the age at which an undecided entry is logged as stale
	StaleWarnMinutes int `json:"stale_warn_minutes" yaml:"stale_warn_minutes"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMs     int `json:"max_backoff_ms" yaml:"max_backoff_ms"`
	MaxAttempts      int `json:"max_attempts" yaml:"max_attempts"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	ServiceName    string  `json:"service_name" yaml:"service_name"`
	ServiceVersion string  `json:"service_version" yaml:"service_version"`
	Environment    string  `json:"environment" yaml:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate" yaml:"sample_rate"`
	UseStdout      bool    `json:"use_stdout" yaml:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
