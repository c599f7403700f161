// Package config loads application settings from a YAML file or from
// command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the gateway and the market data client.
type Config struct {
	BaseURL           string
	VsCurrency        string
	RateLimitInterval time.Duration
	RequestTimeout    time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
}

type configTmp struct {
	BaseURL           string        `yaml:"base_url,omitempty"`
	VsCurrency        string        `yaml:"vs_currency,omitempty"`
	RateLimitInterval time.Duration `yaml:"rate_limit_interval,omitempty"`
	RequestTimeout    time.Duration `yaml:"request_timeout,omitempty"`
	MaxAttempts       int           `yaml:"max_attempts,omitempty"`
	InitialBackoff    time.Duration `yaml:"initial_backoff,omitempty"`
}

// Defaults mirror the CoinGecko free tier: generous spacing, short
// retry budget.
func defaults() Config {
	return Config{
		BaseURL:           "https://api.coingecko.com/api/v3",
		VsCurrency:        "usd",
		RateLimitInterval: 2 * time.Second,
		RequestTimeout:    10 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
	}
}

// Get loads configuration from --config when given, otherwise from the
// remaining flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	baseURL := flag.String("baseurl", "", "price service base URL")
	vsCurrency := flag.String("currency", "", "quote currency, example: usd")
	interval := flag.Duration("ratelimit", 0, "minimum interval between requests")
	timeout := flag.Duration("timeout", 0, "per-request timeout")
	attempts := flag.Int("attempts", 0, "max attempts per request")
	backoff := flag.Duration("backoff", 0, "initial retry backoff")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := defaults()
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *vsCurrency != "" {
		cfg.VsCurrency = strings.ToLower(*vsCurrency)
	}
	if *interval > 0 {
		cfg.RateLimitInterval = *interval
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}
	if *attempts > 0 {
		cfg.MaxAttempts = *attempts
	}
	if *backoff > 0 {
		cfg.InitialBackoff = *backoff
	}
	return validate(cfg)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("parse yaml config %s: %w", path, err)
	}

	cfg := defaults()
	if tmp.BaseURL != "" {
		cfg.BaseURL = tmp.BaseURL
	}
	if tmp.VsCurrency != "" {
		cfg.VsCurrency = strings.ToLower(tmp.VsCurrency)
	}
	if tmp.RateLimitInterval > 0 {
		cfg.RateLimitInterval = tmp.RateLimitInterval
	}
	if tmp.RequestTimeout > 0 {
		cfg.RequestTimeout = tmp.RequestTimeout
	}
	if tmp.MaxAttempts > 0 {
		cfg.MaxAttempts = tmp.MaxAttempts
	}
	if tmp.InitialBackoff > 0 {
		cfg.InitialBackoff = tmp.InitialBackoff
	}
	return validate(cfg)
}

func validate(cfg Config) (Config, error) {
	if cfg.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("max_attempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.RateLimitInterval < 0 {
		return Config{}, fmt.Errorf("rate_limit_interval must not be negative, got %s", cfg.RateLimitInterval)
	}
	return cfg, nil
}
