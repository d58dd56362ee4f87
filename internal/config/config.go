package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/elonfeng/xpulse/pkg/producer"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Producers ProducersConfig `yaml:"producers"`
	Compare   CompareConfig   `yaml:"compare"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Cache     CacheConfig     `yaml:"cache"`
	Watch     WatchConfig     `yaml:"watch"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProducersConfig selects and configures the data backend.
type ProducersConfig struct {
	// Backend is the active producer: apify, rapidapi, nitter, or synthetic.
	Backend  string         `yaml:"backend"`
	Apify    ApifyConfig    `yaml:"apify"`
	RapidAPI RapidAPIConfig `yaml:"rapidapi"`
	Nitter   NitterConfig   `yaml:"nitter"`
}

// ApifyConfig for the Apify actor backend.
type ApifyConfig struct {
	APIToken string `yaml:"api_token"`
	ActorID  string `yaml:"actor_id"`
}

// RapidAPIConfig for the XScraper-via-RapidAPI backend.
type RapidAPIConfig struct {
	APIKey string `yaml:"api_key"`
	Host   string `yaml:"host"`
}

// NitterConfig for the Nitter RSS backend.
type NitterConfig struct {
	URL string `yaml:"url"`
}

// CompareConfig bounds a comparison request. The handle limits are product
// policy, not a technical constraint.
type CompareConfig struct {
	MinHandles      int    `yaml:"min_handles"`
	MaxHandles      int    `yaml:"max_handles"`
	TweetsPerHandle int    `yaml:"tweets_per_handle"`
	FetchTimeout    string `yaml:"fetch_timeout"`
	Fallback        bool   `yaml:"fallback"`
	DropRetweets    bool   `yaml:"drop_retweets"`
	DropPromoted    bool   `yaml:"drop_promoted"`
}

// ParseFetchTimeout returns the per-handle fetch timeout as time.Duration.
func (c CompareConfig) ParseFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 3 * time.Minute
	}
	return d
}

// ScoringConfig holds the single-post score weights.
type ScoringConfig struct {
	LikeWeight     float64 `yaml:"like_weight"`
	RetweetWeight  float64 `yaml:"retweet_weight"`
	ReplyWeight    float64 `yaml:"reply_weight"`
	BookmarkWeight float64 `yaml:"bookmark_weight"`
	ViewWeight     float64 `yaml:"view_weight"`
}

// CacheConfig configures the SQLite fetch cache. An empty path disables
// caching entirely.
type CacheConfig struct {
	Path string `yaml:"path"`
	TTL  string `yaml:"ttl"`
}

// ParseTTL returns the cache TTL as time.Duration.
func (c CacheConfig) ParseTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// WatchConfig configures the periodic comparison daemon.
type WatchConfig struct {
	Interval string     `yaml:"interval"`
	Groups   [][]string `yaml:"groups"`
}

// ParseInterval returns the watch interval as time.Duration.
func (w WatchConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(w.Interval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Producers: ProducersConfig{
			Backend: "apify",
			Nitter:  NitterConfig{URL: "https://nitter.net"},
		},
		Compare: CompareConfig{
			MinHandles:      2,
			MaxHandles:      3,
			TweetsPerHandle: 25,
			FetchTimeout:    "3m",
			Fallback:        true,
			DropRetweets:    true,
			DropPromoted:    true,
		},
		Scoring: ScoringConfig{
			LikeWeight:     1.0,
			RetweetWeight:  3.0,
			ReplyWeight:    2.0,
			BookmarkWeight: 0.5,
			ViewWeight:     0.01,
		},
		Cache: CacheConfig{
			Path: "./xpulse.db",
			TTL:  "15m",
		},
		Watch: WatchConfig{Interval: "30m"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that yaml parsing cannot.
func (c *Config) Validate() error {
	if c.Compare.MinHandles < 2 {
		return fmt.Errorf("compare.min_handles must be at least 2, got %d", c.Compare.MinHandles)
	}
	if c.Compare.MaxHandles < c.Compare.MinHandles {
		return fmt.Errorf("compare.max_handles (%d) below compare.min_handles (%d)",
			c.Compare.MaxHandles, c.Compare.MinHandles)
	}
	for _, pt := range producer.AllProducerTypes() {
		if c.Producers.Backend == string(pt) {
			return nil
		}
	}
	return fmt.Errorf("unknown producer backend %q", c.Producers.Backend)
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("XPULSE_BACKEND"); v != "" {
		cfg.Producers.Backend = v
	}
	if v := os.Getenv("APIFY_API_TOKEN"); v != "" {
		cfg.Producers.Apify.APIToken = v
	}
	if v := os.Getenv("RAPIDAPI_KEY"); v != "" {
		cfg.Producers.RapidAPI.APIKey = v
	}
	if v := os.Getenv("RAPIDAPI_HOST"); v != "" {
		cfg.Producers.RapidAPI.Host = v
	}
	if v := os.Getenv("NITTER_URL"); v != "" {
		cfg.Producers.Nitter.URL = v
	}
	if v := os.Getenv("XPULSE_DB_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
