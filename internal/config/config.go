// Package config loads application settings from environment variables.
// Every setting has a default except the database URL and the session
// signing secret; Load fails fast on anything invalid.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Upstream  UpstreamConfig
	Retention RetentionConfig
	Bootstrap BootstrapConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envAlt:"PORT" default:"3000"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a whole request, including both upstream calls.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"75s"`
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies embedded migrations on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// UploadConfig holds score-import settings.
type UploadConfig struct {
	MaxFileSize   int64         `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`
	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" default:"3"`
	MaxWaitTime   time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"20s"`
	Extensions    []string      `env:"UPLOAD_EXTENSIONS" default:".xlsx,.xlsm,.csv"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
	UploadLimit       int  `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds session and transport hardening settings.
type SecurityConfig struct {
	TrustedProxies []string      `env:"TRUSTED_PROXIES"`
	EnableCSP      bool          `env:"SECURITY_ENABLE_CSP" default:"true"`
	JWTSecret      string        `env:"JWT_SECRET" envAlt:"SESSION_SECRET" required:"true"`
	TokenTTL       time.Duration `env:"JWT_TOKEN_TTL" default:"12h"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// UpstreamConfig holds the task API and LMS endpoints.
type UpstreamConfig struct {
	TaskAPIURL     string        `env:"TASK_API_URL" envAlt:"JIRA_BASE_URL" default:"https://jira.shlx.vn/v1"`
	LMSURL         string        `env:"LMS_URL" envAlt:"LMS_BASE_URL" default:"https://admin.lms.shlx.vn/v1"`
	LMSTemplateID  int           `env:"LMS_REPORT_TEMPLATE_ID" default:"3"`
	TaskLoginPath  string        `env:"TASK_API_LOGIN_PATH" default:"auth/login"`
	LMSLoginPath   string        `env:"LMS_LOGIN_PATH" default:"auth/login"`
	Retries        int           `env:"UPSTREAM_RETRIES" default:"2"`
	Timeout        time.Duration `env:"UPSTREAM_TIMEOUT" default:"30s"`
	MaxPages       int           `env:"UPSTREAM_MAX_PAGES" default:"50"`
	MaxReportBytes int64         `env:"UPSTREAM_MAX_REPORT_BYTES" default:"20971520"`
}

// RetentionConfig holds the import-history purge settings.
type RetentionConfig struct {
	ImportHistoryDays int           `env:"RETENTION_IMPORT_HISTORY_DAYS" default:"365"`
	CheckInterval     time.Duration `env:"RETENTION_CHECK_INTERVAL" default:"24h"`
}

// BootstrapConfig creates the first admin account when the users table is
// empty. Leave AdminPassword unset to skip.
type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME" default:"admin"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	SeedStandards bool   `env:"SEED_STANDARDS" default:"true"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a loggable summary with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: {Addr: %q}, Database: {URL: [MASKED], MaxConns: %d}, "+
			"Upload: {MaxFileSize: %d, MaxConcurrent: %d}, Security: {JWTSecret: [MASKED], TokenTTL: %s}, "+
			"Upstream: {TaskAPI: %q, LMS: %q, Timeout: %s, MaxPages: %d}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Database.MaxConns,
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Security.TokenTTL,
		c.Upstream.TaskAPIURL, c.Upstream.LMSURL, c.Upstream.Timeout, c.Upstream.MaxPages,
		c.Logging.Level, c.Logging.Format,
	)
}
