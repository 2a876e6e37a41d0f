package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvConfigPath = "DATING_CONFIG"
	EnvJWTSecret  = "DATING_JWT_SECRET"
	EnvDBPassword = "DATING_DB_PASSWORD"
)

// DefaultPath is used when DATING_CONFIG is unset
const DefaultPath = "config.yaml"

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	AWS        AWSConfig        `yaml:"aws"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        LogConfig        `yaml:"log"`
	Pagination PaginationConfig `yaml:"pagination"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	APNs       APNsConfig       `yaml:"apns"`
	CORS       CORSConfig       `yaml:"cors"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	SSLMode     string `yaml:"sslmode"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// AWSConfig holds the media bucket configuration
type AWSConfig struct {
	Region        string        `yaml:"region"`
	S3Bucket      string        `yaml:"s3_bucket"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Endpoint      string        `yaml:"endpoint"`
	PublicBaseURL string        `yaml:"public_base_url"`
	UploadExpiry  time.Duration `yaml:"upload_expiry"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	Issuer string        `yaml:"issuer"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// PaginationConfig bounds page sizes
type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// RateLimitConfig is the per-account token bucket
type RateLimitConfig struct {
	Disabled          bool    `yaml:"disabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// APNsConfig enables push notifications when KeyPath is set
type APNsConfig struct {
	KeyPath    string `yaml:"key_path"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// Enabled reports whether push delivery is configured
func (c APNsConfig) Enabled() bool {
	return c.KeyPath != ""
}

// CORSConfig lists the allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// PathFromEnv returns the config path selected by DATING_CONFIG
func PathFromEnv() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "dating-backend"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Pagination.DefaultPageSize == 0 {
		c.Pagination.DefaultPageSize = 10
	}
	if c.Pagination.MaxPageSize == 0 {
		c.Pagination.MaxPageSize = 50
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.AWS.UploadExpiry == 0 {
		c.AWS.UploadExpiry = 5 * time.Minute
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.Database.Password = v
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Pagination.DefaultPageSize > c.Pagination.MaxPageSize {
		errs = append(errs, errors.New("pagination.default_page_size exceeds max_page_size"))
	}
	if c.APNs.Enabled() && (c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		errs = append(errs, errors.New("apns key_id, team_id and topic are required with key_path"))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the pgx5:// URL used by golang-migrate
func (c *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
