package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"rentops-backend/internal/storage"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	SendGrid    SendGridConfig    `yaml:"sendgrid"`
	JWT         JWTConfig         `yaml:"jwt"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Storage     storage.Config    `yaml:"storage"`
	Secrets     SecretsConfig     `yaml:"secrets"`
	Billing     BillingConfig     `yaml:"billing"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Log         LogConfig         `yaml:"log"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings. Driver "memory"
// runs without a database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// SendGridConfig contains email settings. Without an API key notifications
// are only logged.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// GatewayConfig selects the payment gateway. Only the in-memory mock ships
// with this service.
type GatewayConfig struct {
	Type string `yaml:"type"`
}

// SecretsConfig points at an SSM Parameter Store path whose parameters
// override file values.
type SecretsConfig struct {
	SSMPath  string `yaml:"ssm_path"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// BillingConfig contains invoice and enrollment settings
type BillingConfig struct {
	AdminEmail           string `yaml:"admin_email"`
	InvoiceDueDays       int    `yaml:"invoice_due_days"`
	ClaimTimeoutMinutes  int    `yaml:"claim_timeout_minutes"`
	ReminderIntervalDays int    `yaml:"reminder_interval_days"`
	BatchSize            int32  `yaml:"batch_size"`
}

// MaintenanceConfig contains request lifecycle settings
type MaintenanceConfig struct {
	GracePeriodDays int   `yaml:"grace_period_days"`
	PurgeBatchSize  int32 `yaml:"purge_batch_size"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PurgeDeletedRequests string `yaml:"purge_deleted_requests"`
	SendInvoiceReminders string `yaml:"send_invoice_reminders"`
	RefreshRentStanding  string `yaml:"refresh_rent_standing"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
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
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.MockDir = val
	}
	if val := os.Getenv("PHOTO_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}

	// Secrets
	if val := os.Getenv("SSM_PATH"); val != "" {
		c.Secrets.SSMPath = val
	}

	// Billing
	if val := os.Getenv("ADMIN_EMAIL"); val != "" {
		c.Billing.AdminEmail = val
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

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Gateway
	if c.Gateway.Type == "" {
		c.Gateway.Type = "mock"
	}
	if c.Gateway.Type != "mock" {
		return fmt.Errorf("unsupported payment gateway %q", c.Gateway.Type)
	}

	// Storage validation
	if c.Storage.Type == "" {
		c.Storage.Type = "mock"
	}
	if c.Storage.Type == "mock" && c.Storage.MockDir == "" {
		return fmt.Errorf("upload directory is required")
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}

	// SendGrid
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an API key is set")
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "RentOps"
	}

	// Billing defaults
	if c.Billing.InvoiceDueDays <= 0 {
		c.Billing.InvoiceDueDays = 30
	}
	if c.Billing.ClaimTimeoutMinutes <= 0 {
		c.Billing.ClaimTimeoutMinutes = 10
	}
	if c.Billing.ReminderIntervalDays <= 0 {
		c.Billing.ReminderIntervalDays = 7
	}
	if c.Billing.BatchSize <= 0 {
		c.Billing.BatchSize = 100
	}

	// Maintenance defaults
	if c.Maintenance.GracePeriodDays <= 0 {
		c.Maintenance.GracePeriodDays = 14
	}
	if c.Maintenance.PurgeBatchSize <= 0 {
		c.Maintenance.PurgeBatchSize = 100
	}

	// Scheduler defaults
	if c.Scheduler.PurgeDeletedRequests == "" {
		c.Scheduler.PurgeDeletedRequests = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.SendInvoiceReminders == "" {
		c.Scheduler.SendInvoiceReminders = "0 0 9 * * *" // Daily at 9 AM UTC
	}
	if c.Scheduler.RefreshRentStanding == "" {
		c.Scheduler.RefreshRentStanding = "0 30 0 * * *" // 12:30 AM UTC
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

// GetGRPCAddress returns the gRPC health server address; empty when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Maintenance.GracePeriodDays) * 24 * time.Hour
}

func (c *Config) ClaimTimeout() time.Duration {
	return time.Duration(c.Billing.ClaimTimeoutMinutes) * time.Minute
}

func (c *Config) ReminderInterval() time.Duration {
	return time.Duration(c.Billing.ReminderIntervalDays) * 24 * time.Hour
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}

// applyParameter sets the field a parameter store key maps to. Keys are the
// last path segment, e.g. /rentops/prod/jwt_secret.
func (c *Config) applyParameter(name, value string) bool {
	key := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		key = name[i+1:]
	}
	switch strings.ToLower(key) {
	case "db_password":
		c.Database.Password = value
	case "db_user":
		c.Database.User = value
	case "db_host":
		c.Database.Host = value
	case "jwt_secret":
		c.JWT.Secret = value
	case "sendgrid_api_key":
		c.SendGrid.APIKey = value
	case "admin_email":
		c.Billing.AdminEmail = value
	default:
		return false
	}
	return true
}
