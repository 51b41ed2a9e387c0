package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Provider   ProviderConfig   `yaml:"provider"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Database   DatabaseConfig   `yaml:"database"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// ProviderConfig describes the upstream access-control system.
type ProviderConfig struct {
	BaseURL       string            `yaml:"base_url"`
	LoginPagePath string            `yaml:"login_page_path"`
	LoginPath     string            `yaml:"login_path"`
	SearchPath    string            `yaml:"search_path"`
	Username      string            `yaml:"username"`
	Password      string            `yaml:"password"`
	LoginMarker   string            `yaml:"login_marker"`
	RowLimit      int               `yaml:"row_limit"`
	Headers       map[string]string `yaml:"headers"`
	HTTPProxy     string            `yaml:"http_proxy"`
	TimeoutSecs   int               `yaml:"timeout_seconds"`
}

// IngestConfig holds the scheduler configuration.
type IngestConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	Timezone        string        `yaml:"timezone"`
}

// DatabaseConfig holds both database connections: the movement-event store
// (owned by this service, migrated at startup) and the product-status store
// (owned by the refurbishment system, read-only here).
type DatabaseConfig struct {
	EventDSN               string `yaml:"event_dsn"`
	ProductDSN             string `yaml:"product_dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// WebhookConfig holds the outbound run-report channel.
type WebhookConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Ingest.IntervalSeconds <= 0 {
		cfg.Ingest.IntervalSeconds = 300
	}
	cfg.Ingest.Interval = time.Duration(cfg.Ingest.IntervalSeconds) * time.Second

	if cfg.Ingest.Timezone == "" {
		cfg.Ingest.Timezone = "UTC"
	}

	if cfg.Provider.RowLimit <= 0 {
		cfg.Provider.RowLimit = 1000
	}
	if cfg.Provider.TimeoutSecs <= 0 {
		cfg.Provider.TimeoutSecs = 30
	}
	if cfg.Provider.LoginMarker == "" {
		cfg.Provider.LoginMarker = "loginForm"
	}

	if cfg.Webhook.TimeoutSecs <= 0 {
		cfg.Webhook.TimeoutSecs = 10
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
