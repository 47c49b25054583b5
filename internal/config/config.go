package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Twitter   TwitterConfig   `mapstructure:"twitter"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Quality   QualityConfig   `mapstructure:"quality"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Export    ExportConfig    `mapstructure:"export"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TwitterConfig holds recent-search API configuration
type TwitterConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	Username       string        `mapstructure:"username"`
	BearerToken    string        `mapstructure:"bearer_token"`
	MaxResults     int           `mapstructure:"max_results"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ResolverConfig holds link resolution configuration
type ResolverConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExtractorConfig holds event extraction rules
type ExtractorConfig struct {
	Categories      []string `mapstructure:"categories"`
	LinkPrefix      string   `mapstructure:"link_prefix"`
	RetailHost      string   `mapstructure:"retail_host"`
	ProductIDLength int      `mapstructure:"product_id_length"`
	ProductIDPrefix string   `mapstructure:"product_id_prefix"`
	NameDelimiters  []string `mapstructure:"name_delimiters"`
}

// QualityConfig holds anomaly-ratio thresholds
type QualityConfig struct {
	BadPostThreshold  float64 `mapstructure:"bad_post_threshold"`
	BadEventThreshold float64 `mapstructure:"bad_event_threshold"`
}

// StorageConfig holds drop history persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ExportConfig holds spreadsheet export configuration
type ExportConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CSVPath         string `mapstructure:"csv_path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// PipelineConfig holds run scheduling configuration
type PipelineConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("DROPSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Twitter defaults
	v.SetDefault("twitter.api_url", "https://api.twitter.com/2/tweets/search/recent")
	v.SetDefault("twitter.max_results", 100)
	v.SetDefault("twitter.timeout", "30s")
	v.SetDefault("twitter.max_retries", 3)
	v.SetDefault("twitter.retry_delay_base", "1s")

	// Resolver defaults
	v.SetDefault("resolver.timeout", "15s")

	// Extractor defaults
	v.SetDefault("extractor.categories", []string{"RTX3070", "RTX3080"})
	v.SetDefault("extractor.link_prefix", "https://t.co")
	v.SetDefault("extractor.retail_host", "amazon.com")
	v.SetDefault("extractor.product_id_length", 10)
	v.SetDefault("extractor.product_id_prefix", "B0")
	v.SetDefault("extractor.name_delimiters", []string{" is now available", " is in stock", " in stock at"})

	// Quality defaults
	v.SetDefault("quality.bad_post_threshold", 0.05)
	v.SetDefault("quality.bad_event_threshold", 0.05)

	// Storage defaults (empty db_path falls back to a temp-dir database)
	v.SetDefault("storage.db_path", "./data/dropstats.db")

	// Export defaults
	v.SetDefault("export.enabled", false)
	v.SetDefault("export.sheet_name", "Sheet1")

	// Telegram defaults
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Pipeline defaults
	v.SetDefault("pipeline.interval", "6h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Twitter config
	if c.Twitter.APIURL == "" {
		return fmt.Errorf("twitter.api_url is required")
	}
	if c.Twitter.Username == "" {
		return fmt.Errorf("twitter.username is required")
	}
	if c.Twitter.MaxResults < 10 || c.Twitter.MaxResults > 100 {
		return fmt.Errorf("twitter.max_results must be between 10 and 100")
	}
	if c.Twitter.Timeout < 1*time.Second {
		return fmt.Errorf("twitter.timeout must be at least 1 second")
	}
	if c.Twitter.MaxRetries < 1 {
		return fmt.Errorf("twitter.max_retries must be at least 1")
	}

	// Validate Resolver config
	if c.Resolver.Timeout < 1*time.Second {
		return fmt.Errorf("resolver.timeout must be at least 1 second")
	}

	// Validate Extractor config
	if len(c.Extractor.Categories) == 0 {
		return fmt.Errorf("extractor.categories must contain at least one category")
	}
	if c.Extractor.LinkPrefix == "" {
		return fmt.Errorf("extractor.link_prefix is required")
	}
	if c.Extractor.RetailHost == "" {
		return fmt.Errorf("extractor.retail_host is required")
	}
	if c.Extractor.ProductIDLength < 1 {
		return fmt.Errorf("extractor.product_id_length must be at least 1")
	}
	if len(c.Extractor.NameDelimiters) == 0 {
		return fmt.Errorf("extractor.name_delimiters must contain at least one delimiter")
	}

	// Validate Quality config
	if c.Quality.BadPostThreshold < 0.0 || c.Quality.BadPostThreshold > 1.0 {
		return fmt.Errorf("quality.bad_post_threshold must be between 0.0 and 1.0")
	}
	if c.Quality.BadEventThreshold < 0.0 || c.Quality.BadEventThreshold > 1.0 {
		return fmt.Errorf("quality.bad_event_threshold must be between 0.0 and 1.0")
	}

	// Validate Export config
	if c.Export.Enabled {
		if c.Export.SpreadsheetID == "" {
			return fmt.Errorf("export.spreadsheet_id is required when export is enabled")
		}
		if c.Export.SheetName == "" {
			return fmt.Errorf("export.sheet_name is required when export is enabled")
		}
		if c.Export.CredentialsFile == "" {
			return fmt.Errorf("export.credentials_file is required when export is enabled")
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
			return fmt.Errorf("telegram.chat_id must be a numeric chat identifier")
		}
	}

	// Validate Pipeline config
	if c.Pipeline.Interval < 1*time.Minute {
		return fmt.Errorf("pipeline.interval must be at least 1 minute")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
