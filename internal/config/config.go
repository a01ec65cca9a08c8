package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Port               int    `mapstructure:"port"`
	SourceDir          string `mapstructure:"source_dir"`
	InfoCacheDir       string `mapstructure:"info_cache_dir"`
	InfoCacheSize      int    `mapstructure:"info_cache_size"`
	DerivativeCacheDir string `mapstructure:"derivative_cache_dir"`
	VipsMaxCacheMB     int    `mapstructure:"vips_max_cache_mb"`
	VipsConcurrency    int    `mapstructure:"vips_concurrency"`
	LogLevel           string `mapstructure:"log_level"`
	LogFile            string `mapstructure:"log_file"`
	LogMaxSizeMB       int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups      int    `mapstructure:"log_max_backups"`
	AllowedOrigin      string `mapstructure:"allowed_origin"`
	PublicBaseURL      string `mapstructure:"public_base_url"`
}

// Load reads configuration from the environment, with an optional config
// file named by CONFIG_FILE layered underneath.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("source_dir", "/data/images")
	v.SetDefault("info_cache_dir", "/data/cache/info")
	v.SetDefault("info_cache_size", 500)
	v.SetDefault("derivative_cache_dir", "/data/cache/derivatives")
	v.SetDefault("vips_max_cache_mb", 256)
	v.SetDefault("vips_concurrency", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 100)
	v.SetDefault("log_max_backups", 10)
	v.SetDefault("allowed_origin", "")
	v.SetDefault("public_base_url", "http://localhost:8080")

	v.AutomaticEnv()

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.InfoCacheSize < 1 {
		return fmt.Errorf("info_cache_size must be at least 1, got %d", c.InfoCacheSize)
	}
	if c.SourceDir == "" {
		return fmt.Errorf("source_dir must not be empty")
	}
	return nil
}
