package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
twitter:
  username: "SnailMonitor"
  bearer_token: "test_token"
  max_results: 50
  timeout: 10s

extractor:
  categories:
    - RTX3070
    - RTX3080

quality:
  bad_post_threshold: 0.1

storage:
  db_path: "./data/test.db"

logging:
  level: "info"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Twitter.Username != "SnailMonitor" {
		t.Errorf("Unexpected username: %q", cfg.Twitter.Username)
	}

	if cfg.Twitter.MaxResults != 50 {
		t.Errorf("Unexpected max results: %d", cfg.Twitter.MaxResults)
	}

	if cfg.Twitter.Timeout != 10*time.Second {
		t.Errorf("Unexpected timeout: %v", cfg.Twitter.Timeout)
	}

	if cfg.Quality.BadPostThreshold != 0.1 {
		t.Errorf("Unexpected bad post threshold: %f", cfg.Quality.BadPostThreshold)
	}

	if len(cfg.Extractor.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %d", len(cfg.Extractor.Categories))
	}

	// Defaults fill everything the file omits
	if cfg.Twitter.APIURL == "" {
		t.Error("Expected default api_url, got empty")
	}

	if cfg.Extractor.ProductIDLength != 10 {
		t.Errorf("Unexpected default product ID length: %d", cfg.Extractor.ProductIDLength)
	}

	if cfg.Quality.BadEventThreshold != 0.05 {
		t.Errorf("Unexpected default bad event threshold: %f", cfg.Quality.BadEventThreshold)
	}

	if cfg.Pipeline.Interval != 6*time.Hour {
		t.Errorf("Unexpected default interval: %v", cfg.Pipeline.Interval)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			APIURL:         "https://api.twitter.com/2/tweets/search/recent",
			Username:       "SnailMonitor",
			BearerToken:    "token",
			MaxResults:     100,
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryDelayBase: time.Second,
		},
		Resolver: ResolverConfig{
			Timeout: 15 * time.Second,
		},
		Extractor: ExtractorConfig{
			Categories:      []string{"RTX3070", "RTX3080"},
			LinkPrefix:      "https://t.co",
			RetailHost:      "amazon.com",
			ProductIDLength: 10,
			ProductIDPrefix: "B0",
			NameDelimiters:  []string{" in stock at"},
		},
		Quality: QualityConfig{
			BadPostThreshold:  0.05,
			BadEventThreshold: 0.05,
		},
		Storage: StorageConfig{
			DBPath: "./data/dropstats.db",
		},
		Export: ExportConfig{
			Enabled:         true,
			SpreadsheetID:   "sheet-id",
			SheetName:       "Sheet1",
			CredentialsFile: "credentials.json",
		},
		Telegram: TelegramConfig{
			Enabled:        true,
			BotToken:       "bot-token",
			ChatID:         "123456789",
			MaxRetries:     3,
			RetryDelayBase: time.Second,
		},
		Pipeline: PipelineConfig{
			Interval: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing username",
			mutate:  func(c *Config) { c.Twitter.Username = "" },
			wantErr: true,
		},
		{
			name:    "max results out of range",
			mutate:  func(c *Config) { c.Twitter.MaxResults = 500 },
			wantErr: true,
		},
		{
			name:    "no categories",
			mutate:  func(c *Config) { c.Extractor.Categories = nil },
			wantErr: true,
		},
		{
			name:    "no name delimiters",
			mutate:  func(c *Config) { c.Extractor.NameDelimiters = nil },
			wantErr: true,
		},
		{
			name:    "bad post threshold above 1",
			mutate:  func(c *Config) { c.Quality.BadPostThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative bad event threshold",
			mutate:  func(c *Config) { c.Quality.BadEventThreshold = -0.1 },
			wantErr: true,
		},
		{
			name:    "missing spreadsheet ID when export enabled",
			mutate:  func(c *Config) { c.Export.SpreadsheetID = "" },
			wantErr: true,
		},
		{
			name: "export disabled needs no spreadsheet ID",
			mutate: func(c *Config) {
				c.Export.Enabled = false
				c.Export.SpreadsheetID = ""
				c.Export.CredentialsFile = ""
			},
			wantErr: false,
		},
		{
			name:    "missing telegram token when enabled",
			mutate:  func(c *Config) { c.Telegram.BotToken = "" },
			wantErr: true,
		},
		{
			name:    "non-numeric telegram chat ID",
			mutate:  func(c *Config) { c.Telegram.ChatID = "not-a-number" },
			wantErr: true,
		},
		{
			name:    "interval too short",
			mutate:  func(c *Config) { c.Pipeline.Interval = 10 * time.Second },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
