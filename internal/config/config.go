package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all CloudSaver configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Query   QueryConfig   `mapstructure:"query"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Source  SourceConfig  `mapstructure:"source"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines query API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// QueryConfig bounds the size of cost listings.
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// AuthConfig selects how bearer tokens are verified. StaticTokens take
// precedence over URL.
type AuthConfig struct {
	URL          string        `mapstructure:"url"`
	APIKey       string        `mapstructure:"api_key"`
	StaticTokens []StaticToken `mapstructure:"static_tokens"`
}

// StaticToken is a pre-shared bearer token. Kept as a list because viper
// lowercases map keys.
type StaticToken struct {
	Token string `mapstructure:"token"`
	Email string `mapstructure:"email"`
}

// SourceConfig defines raw usage sources.
type SourceConfig struct {
	Default string     `mapstructure:"default"`
	AWS     AWSConfig  `mapstructure:"aws"`
	Mock    MockConfig `mapstructure:"mock"`
}

// AWSConfig defines Cost Explorer access.
type AWSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Profile string `mapstructure:"profile"`
}

// MockConfig defines the synthetic usage generator.
type MockConfig struct {
	Services []string `mapstructure:"services"`
	Seed     uint64   `mapstructure:"seed"`
}

// IngestConfig defines ingestion defaults.
type IngestConfig struct {
	Days int `mapstructure:"days"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack             SlackConfig   `mapstructure:"slack"`
	Webhook           WebhookConfig `mapstructure:"webhook"`
	DailyThresholdUSD string        `mapstructure:"daily_threshold_usd"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".cloudsaver"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".cloudsaver", "cloudsaver.db"))
	v.SetDefault("server.listen", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("query.default_limit", 100)
	v.SetDefault("query.max_limit", 1000)
	v.SetDefault("auth.url", "")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("source.default", "mock")
	v.SetDefault("source.aws.enabled", false)
	v.SetDefault("source.aws.profile", "")
	v.SetDefault("source.mock.seed", 42)
	v.SetDefault("ingest.days", 1)
	v.SetDefault("alerts.slack.channel", "#cloud-costs")
	v.SetDefault("alerts.daily_threshold_usd", "0")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("CLOUDSAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query.default_limit must be positive, got %d", c.Query.DefaultLimit)
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("query.max_limit (%d) must be at least query.default_limit (%d)",
			c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	if c.Ingest.Days <= 0 {
		return fmt.Errorf("ingest.days must be positive, got %d", c.Ingest.Days)
	}
	return nil
}
