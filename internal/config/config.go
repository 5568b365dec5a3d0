package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		DBName          string `yaml:"dbname"`
		SSLMode         string `yaml:"sslmode"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	} `yaml:"database"`

	// Warehouse is the read-only institutional directory database.
	Warehouse struct {
		DSN string `yaml:"dsn"`
	} `yaml:"warehouse"`

	Canvas CanvasConfig `yaml:"canvas"`

	Provision ProvisionConfig `yaml:"provision"`

	JWT struct {
		Secret          string `yaml:"secret"`
		TokenExpiration string `yaml:"token_expiration"`
		Issuer          string `yaml:"issuer"`
	} `yaml:"jwt"`

	Scheduler struct {
		Enabled       bool   `yaml:"enabled"`
		ProvisionCron string `yaml:"provision_cron"`
		SyncCron      string `yaml:"sync_cron"`
	} `yaml:"scheduler"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// CanvasConfig holds connection settings for the LMS API.
type CanvasConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	AccountID int64  `yaml:"account_id"`
}

// ProvisionConfig holds the site-provisioning policy knobs. Defaults mirror
// the institution's production setup.
type ProvisionConfig struct {
	SISPrefix          string `yaml:"sis_prefix"`
	StorageQuotaMB     int    `yaml:"storage_quota_mb"`
	ReservesTabID      string `yaml:"reserves_tab_id"`
	LibrarianRoleID    int64  `yaml:"librarian_role_id"`
	OnlineSubAccountID int64  `yaml:"online_sub_account_id"`
	OnlineSchoolCode   string `yaml:"online_school_code"`
	PollInterval       string `yaml:"poll_interval"`
	MaxPollAttempts    int    `yaml:"max_poll_attempts"`
	CurrentTerm        int    `yaml:"current_term"`
	NextTerm           int    `yaml:"next_term"`
}

// PollIntervalDuration parses the poll interval, falling back to five seconds.
func (p ProvisionConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(p.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	loadFromEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "courseflow"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Canvas.AccountID = 96678

	config.Provision.SISPrefix = "BAN"
	config.Provision.StorageQuotaMB = 2000
	config.Provision.ReservesTabID = "context_external_tool_139969"
	config.Provision.LibrarianRoleID = 1383
	config.Provision.OnlineSubAccountID = 132413
	config.Provision.OnlineSchoolCode = "A"
	config.Provision.PollInterval = "5s"
	config.Provision.MaxPollAttempts = 180

	config.JWT.TokenExpiration = "12h"
	config.JWT.Issuer = "courseflow"

	config.Scheduler.ProvisionCron = "@every 15m"
	config.Scheduler.SyncCron = "0 3 * * *"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) {
	config.Server.Port = GetEnv("SERVER_PORT", config.Server.Port)
	config.Server.Mode = GetEnv("SERVER_MODE", config.Server.Mode)

	config.Database.Host = GetEnv("DB_HOST", config.Database.Host)
	config.Database.Port = GetEnv("DB_PORT", config.Database.Port)
	config.Database.User = GetEnv("DB_USER", config.Database.User)
	config.Database.Password = GetEnv("DB_PASSWORD", config.Database.Password)
	config.Database.DBName = GetEnv("DB_NAME", config.Database.DBName)
	config.Database.SSLMode = GetEnv("DB_SSLMODE", config.Database.SSLMode)

	config.Warehouse.DSN = GetEnv("WAREHOUSE_DSN", config.Warehouse.DSN)

	config.Canvas.BaseURL = GetEnv("CANVAS_BASE_URL", config.Canvas.BaseURL)
	config.Canvas.Token = GetEnv("CANVAS_TOKEN", config.Canvas.Token)
	config.Canvas.AccountID = GetEnvAsInt64("CANVAS_ACCOUNT_ID", config.Canvas.AccountID)

	config.JWT.Secret = GetEnv("JWT_SECRET", config.JWT.Secret)
	config.JWT.Issuer = GetEnv("JWT_ISSUER", config.JWT.Issuer)

	config.Logging.Level = GetEnv("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = GetEnv("LOG_FORMAT", config.Logging.Format)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.Canvas.BaseURL == "" {
		return fmt.Errorf("canvas base URL is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.TokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT token expiration format: %w", err)
	}

	if config.Provision.MaxPollAttempts <= 0 {
		return fmt.Errorf("max poll attempts must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns the application database connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt64 gets an environment variable as an int64 or returns a default value
func GetEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := GetEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}
