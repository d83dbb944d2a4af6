package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Stripe    StripeConfig    `yaml:"stripe"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	JWT       JWTConfig       `yaml:"jwt"`
	Lease     LeaseConfig     `yaml:"lease"`
	Queue     QueueConfig     `yaml:"queue"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
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

// RedisConfig contains cache and queue connection settings
type RedisConfig struct {
	// URL accepts redis://host:port/db or a bare host:port.
	URL          string `yaml:"url"`
	CacheTTLHrs  int    `yaml:"cache_ttl_hours"`
}

// StripeConfig contains payment gateway settings
type StripeConfig struct {
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	Currency       string `yaml:"currency"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SendGridConfig contains email delivery settings
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// JWTConfig contains bearer-token validation settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LeaseConfig contains lifecycle tuning parameters
type LeaseConfig struct {
	// HoldTimeoutMinutes is how long a pending lease may wait for payment
	// confirmation before the reaper releases the car.
	HoldTimeoutMinutes int `yaml:"hold_timeout_minutes"`
	// ReminderThrottleHours is the minimum gap between reminders per lease.
	ReminderThrottleHours int `yaml:"reminder_throttle_hours"`
}

// QueueConfig contains notification queue settings
type QueueConfig struct {
	Name           string `yaml:"name"`
	Workers        int    `yaml:"workers"`
	MaxAttempts    int    `yaml:"max_attempts"`
	BackoffSeconds int    `yaml:"backoff_seconds"`
}

// SchedulerConfig contains cron schedule settings (6-field specs, UTC)
type SchedulerConfig struct {
	ExpireLeases      string `yaml:"expire_leases"`
	SendReminders     string `yaml:"send_reminders"`
	ReleaseStaleHolds string `yaml:"release_stale_holds"`
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

	// Redis
	if val := os.Getenv("REDIS_URL"); val != "" {
		c.Redis.URL = val
	}

	// Stripe
	if val := os.Getenv("STRIPE_SERVER_KEY"); val != "" {
		c.Stripe.SecretKey = val
	}
	if val := os.Getenv("STRIPE_WEBHOOK_SECRET"); val != "" {
		c.Stripe.WebhookSecret = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("SENDGRID_FROM_EMAIL"); val != "" {
		c.SendGrid.FromEmail = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}
	if c.Redis.CacheTTLHrs == 0 {
		c.Redis.CacheTTLHrs = 24
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	// A missing webhook secret would make every delivery unverifiable;
	// refuse to start rather than reject every event at runtime.
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}
	if c.Stripe.TimeoutSeconds == 0 {
		c.Stripe.TimeoutSeconds = 10
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Lease defaults
	if c.Lease.HoldTimeoutMinutes == 0 {
		c.Lease.HoldTimeoutMinutes = 30
	}
	if c.Lease.ReminderThrottleHours == 0 {
		c.Lease.ReminderThrottleHours = 2
	}

	// Queue defaults mirror the gateway-side retry policy: 3 attempts,
	// exponential backoff from 5s.
	if c.Queue.Name == "" {
		c.Queue.Name = "emailQueue"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.BackoffSeconds == 0 {
		c.Queue.BackoffSeconds = 5
	}

	// Scheduler defaults
	if c.Scheduler.ExpireLeases == "" {
		c.Scheduler.ExpireLeases = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.SendReminders == "" {
		c.Scheduler.SendReminders = "0 0 * * * *" // hourly
	}
	if c.Scheduler.ReleaseStaleHolds == "" {
		c.Scheduler.ReleaseStaleHolds = "0 */10 * * * *" // every 10 minutes
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
