package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Taskbus TaskbusConfig `mapstructure:"taskbus"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type SlackConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
}

// TaskbusConfig selects and configures the run ledger backend.
// Backend is one of "http", "postgres", "jetstream".
type TaskbusConfig struct {
	Backend  string                `mapstructure:"backend"`
	HTTP     TaskbusHTTPConfig     `mapstructure:"http"`
	Postgres TaskbusPostgresConfig `mapstructure:"postgres"`
	NatsURL  string                `mapstructure:"nats_url"`
}

type TaskbusHTTPConfig struct {
	URL         string        `mapstructure:"url"`
	TokenSecret string        `mapstructure:"token_secret"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TaskbusPostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ConnString builds the postgres connection string.
func (c TaskbusPostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8807)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("slack.signing_secret", "")
	v.SetDefault("taskbus.backend", "http")
	v.SetDefault("taskbus.http.url", "http://localhost:8090")
	v.SetDefault("taskbus.http.timeout", "10s")
	v.SetDefault("taskbus.postgres.host", "localhost")
	v.SetDefault("taskbus.postgres.port", 5432)
	v.SetDefault("taskbus.postgres.user", "slack_agent")
	v.SetDefault("taskbus.postgres.database", "ops")
	v.SetDefault("taskbus.postgres.ssl_mode", "disable")
	v.SetDefault("taskbus.nats_url", "nats://localhost:4222")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.rate_limit_requests", 600)
	v.SetDefault("redis.rate_limit_window", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/slack-agent")
	}

	// Environment variables override
	v.SetEnvPrefix("SLACK_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
