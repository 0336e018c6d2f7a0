package constants

// Default storage locations
const (
	DefaultDestinationFile = "/data/chat_config.json"
	DefaultDatabasePath    = "/data/tgrelay.db"
	DefaultStorageBackend  = "file"
)

// Default Telegram transport values
const (
	DefaultPollTimeoutSec = 30
	DefaultHTTPTimeoutSec = 60
)

// Default server values
const (
	DefaultServerPort            = 10000
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default retry values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// Relay housekeeping
const (
	DefaultRetentionDays          = 30
	DefaultCleanupIntervalMinutes = 60
	DefaultPendingTTLMinutes      = 0 // disabled
	DefaultStaleWarnMinutes       = 60
	DefaultStaleCheckMinutes      = 5
	DefaultConfigWatchIntervalSec = 5
)

// Prompt rendering limits
const (
	PreviewMaxChars      = 150
	ErrorSummaryMaxChars = 100
)

// Placeholder tokens that must never reach the Bot API
var PlaceholderTokens = []string{
	"YOUR_BOT_TOKEN",
	"YOUR_TOKEN",
	"changeme",
	"<token>",
	"ТВОЙ_ТОКЕН",
}

// Environment variables
const (
	EnvBotToken        = "BOT_TOKEN"
	EnvPort            = "PORT"
	EnvTelegramAPIURL  = "TELEGRAM_API_URL"
	EnvDestinationFile = "DESTINATION_FILE"
	EnvDatabasePath    = "DB_PATH"
	EnvStorageBackend  = "STORAGE_BACKEND"
	EnvLogLevel        = "LOG_LEVEL"
	EnvEncryption      = "TGRELAY_ENABLE_ENCRYPTION"
	EnvEncryptionKey   = "TGRELAY_ENCRYPTION_SECRET"
)

// EncryptionSalt is mixed into the PBKDF2 derivation of the journal key
const EncryptionSalt = "tgrelay-journal-salt-v1"
