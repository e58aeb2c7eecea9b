// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	UpstreamURL string
	DBPath      string

	CacheDir      string
	CachePrefix   string
	SweepInterval time.Duration

	ChatHistoryLimit int

	PrecacheAssets []string
	BypassMarkers  []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		UpstreamURL:      getEnv("UPSTREAM_URL", "http://localhost:8000"),
		DBPath:           getEnv("DB_PATH", "./data/assistant.db"),
		CacheDir:         getEnv("CACHE_DIR", "./data/cache"),
		CachePrefix:      getEnv("CACHE_PREFIX", "smart-assistant-v1"),
		SweepInterval:    getEnvDuration("CACHE_SWEEP_INTERVAL", 24*time.Hour),
		ChatHistoryLimit: getEnvInt("CHAT_HISTORY_LIMIT", 50),
		PrecacheAssets: getEnvList("PRECACHE_ASSETS", []string{
			"/", "/index.html", "/manifest.json", "/icon-192.png", "/icon-512.png",
		}),
		BypassMarkers: getEnvList("API_PATH_MARKERS", []string{"/api/", "localhost:8000"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("CACHE_DIR cannot be empty")
	}
	if c.CachePrefix == "" {
		return fmt.Errorf("CACHE_PREFIX cannot be empty")
	}
	if c.ChatHistoryLimit < 1 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be > 0")
	}
	if _, err := c.Upstream(); err != nil {
		return err
	}
	if len(c.PrecacheAssets) == 0 {
		return fmt.Errorf("PRECACHE_ASSETS cannot be empty")
	}
	return nil
}

// Upstream parses the configured upstream origin.
func (c *Config) Upstream() (*url.URL, error) {
	u, err := url.Parse(c.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse UPSTREAM_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("UPSTREAM_URL must be http or https, got %q", c.UpstreamURL)
	}
	return u, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
