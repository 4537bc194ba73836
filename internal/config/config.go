package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Withdrawal WithdrawalConfig `yaml:"withdrawal"`
	Payment    PaymentConfig    `yaml:"payment"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains access-token validation settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// WebhookConfig contains provider callback settings
type WebhookConfig struct {
	Secret string `yaml:"secret"` // HMAC key for callback signatures
}

// WithdrawalConfig contains the withdrawal ceilings. It is passed to the
// withdrawal service at construction, never read from the environment at
// request time.
type WithdrawalConfig struct {
	MaxPerRequest  float64 `yaml:"max_per_request"`
	MaxDailyCount  int     `yaml:"max_daily_count"`
	MaxDailyAmount float64 `yaml:"max_daily_amount"`
}

// PaymentConfig contains payment lifecycle settings
type PaymentConfig struct {
	PendingTTLMinutes int `yaml:"pending_ttl_minutes"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpireStalePayments string `yaml:"expire_stale_payments"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Secrets
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}
	if val := os.Getenv("WEBHOOK_SECRET"); val != "" {
		c.Webhook.Secret = val
	}

	// Withdrawal ceilings
	if val := os.Getenv("WITHDRAW_MAX_PER_REQUEST"); val != "" {
		fmt.Sscanf(val, "%f", &c.Withdrawal.MaxPerRequest)
	}
	if val := os.Getenv("WITHDRAW_MAX_DAILY_COUNT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Withdrawal.MaxDailyCount)
	}
	if val := os.Getenv("WITHDRAW_MAX_DAILY_AMOUNT"); val != "" {
		fmt.Sscanf(val, "%f", &c.Withdrawal.MaxDailyAmount)
	}

	// Payment
	if val := os.Getenv("PAYMENT_PENDING_TTL_MINUTES"); val != "" {
		fmt.Sscanf(val, "%d", &c.Payment.PendingTTLMinutes)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Webhook validation
	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook secret is required")
	}

	// Withdrawal defaults
	if c.Withdrawal.MaxPerRequest == 0 {
		c.Withdrawal.MaxPerRequest = 1_000_000
	}
	if c.Withdrawal.MaxDailyCount == 0 {
		c.Withdrawal.MaxDailyCount = 3
	}
	if c.Withdrawal.MaxDailyAmount == 0 {
		c.Withdrawal.MaxDailyAmount = 2_000_000
	}

	// Payment defaults
	if c.Payment.PendingTTLMinutes == 0 {
		c.Payment.PendingTTLMinutes = 60
	}

	// Scheduler defaults
	if c.Scheduler.ExpireStalePayments == "" {
		c.Scheduler.ExpireStalePayments = "0 */15 * * * *" // every 15 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
