package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the server, the terminal client and the digest bot.
type Config struct {
	DatabaseURL        string        `yaml:"database_url"`
	ListenAddr         string        `yaml:"listen_addr"`
	RedisURL           string        `yaml:"redis_url"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	SessionCookie      string        `yaml:"session_cookie"`
	CookieSecure       bool          `yaml:"cookie_secure"`
	BcryptCost         int           `yaml:"bcrypt_cost"`
	LoginRatePerMinute int           `yaml:"login_rate_per_minute"`
	TelegramToken      string        `yaml:"telegram_token"`
	DigestInterval     time.Duration `yaml:"digest_interval"`
	SessionPurgeAt     string        `yaml:"session_purge_at"`
	Debug              bool          `yaml:"debug"`
}

const (
	defaultDatabaseURL    = "taskboard.db"
	defaultListenAddr     = ":8080"
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultSessionCookie  = "session"
	defaultBcryptCost     = 10
	defaultLoginRate      = 20
	defaultDigestInterval = 24 * time.Hour
	defaultSessionPurgeAt = "03:30"
)

// Load reads the optional YAML file named by TASKBOARD_CONFIG, then applies
// environment variables on top and fills sane defaults.
func Load() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv("TASKBOARD_CONFIG")); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.ListenAddr, "LISTEN_ADDR")
	overrideString(&cfg.RedisURL, "REDIS_URL")
	overrideString(&cfg.SessionCookie, "SESSION_COOKIE")
	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.SessionPurgeAt, "SESSION_PURGE_AT")
	overrideBool(&cfg.CookieSecure, "COOKIE_SECURE")
	overrideBool(&cfg.Debug, "DEBUG")

	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		cfg.SessionTTL = parseDuration(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("DIGEST_INTERVAL_HOURS")); raw != "" {
		cfg.DigestInterval = parseInterval(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("BCRYPT_COST")); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("BCRYPT_COST must be a number: %w", err)
		}
		cfg.BcryptCost = cost
	}
	if raw := strings.TrimSpace(os.Getenv("LOGIN_RATE_PER_MINUTE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("LOGIN_RATE_PER_MINUTE must be a number: %w", err)
		}
		cfg.LoginRatePerMinute = n
	}

	applyDefaults(&cfg)

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return cfg, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return cfg, nil
}

// LoadFile parses a YAML config file. Durations use Go syntax ("168h").
func LoadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// RedisEnabled reports whether sessions and board views go through Redis.
func (c Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// BotEnabled reports whether the Telegram digest bot should run.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = defaultSessionCookie
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	if cfg.LoginRatePerMinute <= 0 {
		cfg.LoginRatePerMinute = defaultLoginRate
	}
	if cfg.DigestInterval <= 0 {
		cfg.DigestInterval = defaultDigestInterval
	}
	if cfg.SessionPurgeAt == "" {
		cfg.SessionPurgeAt = defaultSessionPurgeAt
	}
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func overrideBool(dst *bool, key string) {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		*dst = v
	}
}

func parseDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
