package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	StoreDriver    string `yaml:"store_driver"`
	DatabaseURL    string `yaml:"database_url"`
	RedisURL       string `yaml:"redis_url"`
	ServerPort     string `yaml:"server_port"`
	UserAgent      string `yaml:"user_agent"`
	Timeout        string `yaml:"timeout"`
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	RefreshWorker  bool   `yaml:"refresh_worker"`
}

// LoadFromFile loads config from a YAML file. database_url is required
// unless store_driver is memory.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := &Config{
		StoreDriver:    f.StoreDriver,
		DatabaseURL:    f.DatabaseURL,
		RedisURL:       f.RedisURL,
		ServerPort:     f.ServerPort,
		UserAgent:      f.UserAgent,
		UploadDir:      f.UploadDir,
		MaxUploadBytes: f.MaxUploadBytes,
		LogLevel:       f.LogLevel,
		LogFormat:      f.LogFormat,
		RefreshWorker:  f.RefreshWorker,
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
