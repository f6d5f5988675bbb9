// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Mail     MailConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds the initial connect and ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// DefaultPath is the CSV file used when no path argument is given
	DefaultPath string `env:"IMPORT_DEFAULT_PATH" default:"sample_data.csv"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// MaxReportedErrors caps the error lines printed in the summary (default: 20)
	MaxReportedErrors int `env:"IMPORT_MAX_REPORTED_ERRORS" default:"20"`

	// ProgressInterval is how many rows pass between progress log entries (default: 100)
	ProgressInterval int `env:"IMPORT_PROGRESS_INTERVAL" default:"100"`

	// Timeout is the maximum duration of a whole import run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	// Transport selects the delivery backend: smtp or console (default: smtp)
	Transport string `env:"MAIL_TRANSPORT" default:"smtp"`

	// Host is the SMTP server host (default: localhost)
	Host string `env:"MAIL_HOST" default:"localhost"`

	// Port is the SMTP server port (default: 587)
	Port int `env:"MAIL_PORT" default:"587"`

	// Username enables SMTP PLAIN auth when set
	Username string `env:"MAIL_USERNAME"`

	// Password is the SMTP auth password
	Password string `env:"MAIL_PASSWORD"`

	// TLSPolicy is one of opportunistic, mandatory, none (default: opportunistic)
	TLSPolicy string `env:"MAIL_TLS_POLICY" default:"opportunistic"`

	// Timeout bounds a single message delivery (default: 30s)
	Timeout time.Duration `env:"MAIL_TIMEOUT" default:"30s"`

	// From is the sender address of review emails
	From string `env:"MAIL_FROM" default:"noreply@inflate.review"`

	// Subject is a fmt format receiving the order reference
	Subject string `env:"MAIL_SUBJECT" default:"Partagez votre avis sur votre commande %s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
