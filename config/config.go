package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerHost string `mapstructure:"server_host"`
	ServerPort string `mapstructure:"server_port"`

	DBDriver   string `mapstructure:"db_driver"` // postgres or sqlite
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_ssl_mode"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// MediaDir is used by the local image store; S3Bucket switches storage
	// to S3 when set.
	MediaDir     string `mapstructure:"media_dir"`
	MediaBaseURL string `mapstructure:"media_base_url"`
	S3Bucket     string `mapstructure:"s3_bucket"`
	AWSRegion    string `mapstructure:"aws_region"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	PageSize       int      `mapstructure:"page_size"`
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment wins.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8080")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "platefeed")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "platefeed")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("media_dir", "media")
	v.SetDefault("media_base_url", "/media")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("page_size", 6)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("platefeed")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("unsupported db_driver: %q", c.DBDriver)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be positive")
	}
	return nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}
