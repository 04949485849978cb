package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"min=1,max=65535"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
	MigrationsURL  string `mapstructure:"migrations_url"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecurityConfig carries the master secret and key cache tuning. The secret
// is configuration only: it must never be written to the database.
type SecurityConfig struct {
	MasterSecret string        `mapstructure:"master_secret" validate:"required,min=16"`
	KeyCacheTTL  time.Duration `mapstructure:"key_cache_ttl" validate:"gt=0"`
	KeyCacheSize int           `mapstructure:"key_cache_size" validate:"gt=0"`
}

type SessionsConfig struct {
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	GuidedSessionTTL time.Duration `mapstructure:"guided_session_ttl" validate:"gt=0"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration. A missing or short master secret
// is fatal at startup: every wrapped key in the store depends on it.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chatvault")
	v.SetDefault("database.database", "chatvault")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.migrate_on_start", false)
	v.SetDefault("database.migrations_url", "file://migrations")

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Security
	v.SetDefault("security.key_cache_ttl", "10m")
	v.SetDefault("security.key_cache_size", 1024)

	// Sessions
	v.SetDefault("sessions.idle_timeout", "30m")
	v.SetDefault("sessions.guided_session_ttl", "1h")
	v.SetDefault("sessions.sweep_interval", "1m")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Security
	v.BindEnv("security.master_secret", "MASTER_SECRET")
}
