package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration, loaded from YAML with
// environment overrides for deployment-specific values.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Window  WindowConfig  `yaml:"window"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatasetConfig identifies the Socrata resource the dashboard reads from.
type DatasetConfig struct {
	Domain     string `yaml:"domain"`      // e.g. data.cityofnewyork.us
	ResourceID string `yaml:"resource_id"` // e.g. qyyg-4tf5
	AppToken   string `yaml:"app_token,omitempty"`

	// Default query bounds applied when the caller does not narrow them.
	LookbackDays int     `yaml:"lookback_days"`
	MinAmount    float64 `yaml:"min_amount"`
}

// FetchConfig bounds the pagination loop against the data source.
type FetchConfig struct {
	PageSize       int     `yaml:"page_size"`
	MaxRecords     int     `yaml:"max_records"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	CacheTTLSecs   int     `yaml:"cache_ttl_seconds"`
}

// WindowConfig caps how many entities and links the visual projections keep.
type WindowConfig struct {
	MaxVendors  int `yaml:"max_vendors"`
	MaxAgencies int `yaml:"max_agencies"`
	MaxLinks    int `yaml:"max_links"`
}

// Load reads configuration from path. An empty path returns pure defaults,
// so the service can start without a config file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8081"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:4200"}
	}
	if c.Dataset.Domain == "" {
		c.Dataset.Domain = "data.cityofnewyork.us"
	}
	if c.Dataset.ResourceID == "" {
		c.Dataset.ResourceID = "qyyg-4tf5"
	}
	if c.Dataset.LookbackDays <= 0 {
		c.Dataset.LookbackDays = 365
	}
	if c.Fetch.PageSize <= 0 {
		c.Fetch.PageSize = 10000
	}
	if c.Fetch.MaxRecords <= 0 {
		c.Fetch.MaxRecords = 100000
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = 60
	}
	if c.Fetch.RateLimitRPS <= 0 {
		c.Fetch.RateLimitRPS = 2.0
	}
	if c.Fetch.CacheTTLSecs <= 0 {
		c.Fetch.CacheTTLSecs = 300
	}
	if c.Window.MaxVendors <= 0 {
		c.Window.MaxVendors = 50
	}
	if c.Window.MaxAgencies <= 0 {
		c.Window.MaxAgencies = 30
	}
	if c.Window.MaxLinks <= 0 {
		c.Window.MaxLinks = 100
	}
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if token := os.Getenv("SODA_APP_TOKEN"); token != "" {
		c.Dataset.AppToken = token
	}
}
