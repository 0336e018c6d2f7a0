package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tgrelay/internal/constants"
	"tgrelay/internal/models"
	"tgrelay/internal/security"
	"tgrelay/pkg/telegram"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingToken     = models.ConfigError{Message: "missing bot token (set the BOT_TOKEN environment variable)"}
	ErrPlaceholderToken = models.ConfigError{Message: "bot token is a placeholder value"}
)

// LoadConfig reads the optional config file, fills defaults, applies
// environment overrides and validates the result. An empty path runs on
// defaults and environment alone.
func LoadConfig(path string) (*models.Config, error) {
	var config models.Config

	if path != "" {
		if err := security.ValidateFilePath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
		if err != nil {
			return nil, err
		}

		if err := decode(path, file, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyDefaults(&config)
	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func decode(path string, data []byte, config *models.Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func applyDefaults(c *models.Config) {
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = telegram.DefaultBaseURL
	}
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = constants.DefaultPollTimeoutSec
	}
	if c.Telegram.HTTPTimeoutSec <= 0 {
		c.Telegram.HTTPTimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	// the HTTP timeout has to outlast a long poll
	if c.Telegram.HTTPTimeoutSec <= c.Telegram.PollTimeoutSec {
		c.Telegram.HTTPTimeoutSec = c.Telegram.PollTimeoutSec + 10
	}

	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.GracefulShutdownSec <= 0 {
		c.Server.GracefulShutdownSec = constants.DefaultGracefulShutdownSec
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = constants.DefaultStorageBackend
	}
	if c.Storage.DestinationFile == "" {
		c.Storage.DestinationFile = constants.DefaultDestinationFile
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = constants.DefaultDatabasePath
	}

	if c.Relay.RetentionDays <= 0 {
		c.Relay.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Relay.CleanupIntervalMinutes <= 0 {
		c.Relay.CleanupIntervalMinutes = constants.DefaultCleanupIntervalMinutes
	}
	if c.Relay.PendingTTLMinutes < 0 {
		c.Relay.PendingTTLMinutes = constants.DefaultPendingTTLMinutes
	}
	if c.Relay.StaleWarnMinutes <= 0 {
		c.Relay.StaleWarnMinutes = constants.DefaultStaleWarnMinutes
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "tgrelay"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(c *models.Config) error {
	// SECURITY: the token only ever comes from the environment
	c.Telegram.Token = strings.TrimSpace(os.Getenv(constants.EnvBotToken))

	if port := os.Getenv(constants.EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %s value %q", constants.EnvPort, port)}
		}
		c.Server.Port = p
	}
	if url := os.Getenv(constants.EnvTelegramAPIURL); url != "" {
		c.Telegram.APIBaseURL = url
	}
	if path := os.Getenv(constants.EnvDestinationFile); path != "" {
		c.Storage.DestinationFile = path
	}
	if path := os.Getenv(constants.EnvDatabasePath); path != "" {
		c.Storage.DatabasePath = path
	}
	if backend := os.Getenv(constants.EnvStorageBackend); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if level := os.Getenv(constants.EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	return nil
}

func validate(c *models.Config) error {
	if err := ValidateToken(c.Telegram.Token); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid server port %d", c.Server.Port)}
	}

	switch c.Storage.Backend {
	case models.StorageBackendFile:
		if err := security.ValidateFilePath(c.Storage.DestinationFile); err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid destination file: %v", err)}
		}
	case models.StorageBackendSQLite:
	default:
		return models.ConfigError{Message: fmt.Sprintf("unknown storage backend %q (want %q or %q)",
			c.Storage.Backend, models.StorageBackendFile, models.StorageBackendSQLite)}
	}

	if c.Storage.Backend == models.StorageBackendSQLite || c.Storage.JournalEnabled {
		if err := security.ValidateFilePath(c.Storage.DatabasePath); err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid database path: %v", err)}
		}
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return models.ConfigError{Message: "tracing sample_rate must be between 0 and 1"}
	}
	return nil
}

// ValidateToken rejects an empty token and the well-known placeholders
func ValidateToken(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	for _, placeholder := range constants.PlaceholderTokens {
		if strings.EqualFold(token, placeholder) {
			return ErrPlaceholderToken
		}
	}
	return nil
}
