package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURL is returned when the postgres store is selected
// without a DSN.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const (
	defaultServerPort     = "8080"
	defaultUserAgent      = "tvcatalog/1.0"
	defaultTimeout        = 30 * time.Second
	defaultMaxUploadBytes = 20 << 20
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Config holds application configuration.
type Config struct {
	StoreDriver    string        `yaml:"store_driver" env:"STORE_DRIVER"`
	DatabaseURL    string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL       string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort     string        `yaml:"server_port" env:"SERVER_PORT"`
	UserAgent      string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout        time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	UploadDir      string        `yaml:"upload_dir" env:"UPLOAD_DIR"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat      string        `yaml:"log_format" env:"LOG_FORMAT"`
	RefreshWorker  bool          `yaml:"refresh_worker" env:"REFRESH_WORKER"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the current directory.
// DATABASE_URL is required unless STORE_DRIVER=memory.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		StoreDriver: os.Getenv("STORE_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		ServerPort:  os.Getenv("SERVER_PORT"),
		UserAgent:   os.Getenv("FETCHER_USER_AGENT"),
		UploadDir:   os.Getenv("UPLOAD_DIR"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFormat:   os.Getenv("LOG_FORMAT"),
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if s := os.Getenv("MAX_UPLOAD_BYTES"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			c.MaxUploadBytes = n
		}
	}
	if s := os.Getenv("REFRESH_WORKER"); s != "" {
		c.RefreshWorker, _ = strconv.ParseBool(s)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.StoreDriver == "" {
		c.StoreDriver = StoreDriverPostgres
	}
	if c.ServerPort == "" {
		c.ServerPort = defaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory:
		return nil
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
		return nil
	default:
		return errors.New("unknown STORE_DRIVER " + strconv.Quote(c.StoreDriver))
	}
}
