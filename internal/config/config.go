package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Provider struct {
		Name              string        `yaml:"name" validate:"oneof=yahoo mock"`
		BaseURL           string        `yaml:"base_url" validate:"required,url"`
		CookieURL         string        `yaml:"cookie_url" validate:"omitempty,url"`
		SymbolSuffix      string        `yaml:"symbol_suffix"`
		Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
		RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
		Burst             int           `yaml:"burst" validate:"gte=1"`
		LookbackYears     int           `yaml:"lookback_years" validate:"gte=1,lte=100"`
		Timezone          string        `yaml:"timezone" validate:"required"`
	} `yaml:"provider"`
	Growth struct {
		MaxFallbackDays int `yaml:"max_fallback_days" validate:"gte=-1,lte=366"`
	} `yaml:"growth"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
		TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	} `yaml:"cache"`
	Dashboard struct {
		Addr           string   `yaml:"addr" validate:"required"`
		DefaultStart   string   `yaml:"default_start" validate:"datetime=2006-01-02"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"dashboard"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RefreshCron        string `yaml:"refresh_cron"`
		DigestCron         string `yaml:"digest_cron"`
		RefreshConcurrency int    `yaml:"refresh_concurrency" validate:"gte=1"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Watchlist []string `yaml:"watchlist"`
	Logging   struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
		Format string `yaml:"format" validate:"oneof=text json"`
		Output string `yaml:"output" validate:"required"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads a .env file if present, then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Variables already in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PROVIDER_NAME"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_COOKIE_URL"); v != "" {
		cfg.Provider.CookieURL = v
	}
	if v := os.Getenv("PROVIDER_SYMBOL_SUFFIX"); v != "" {
		cfg.Provider.SymbolSuffix = v
	}
	if v := os.Getenv("LOOKBACK_YEARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.LookbackYears = n
		}
	}
	if v := os.Getenv("GROWTH_MAX_FALLBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Growth.MaxFallbackDays = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.Dashboard.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("CRON_DIGEST"); v != "" {
		cfg.Schedule.DigestCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Watchlist = append(cfg.Watchlist, s)
			}
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "yahoo"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Provider.CookieURL == "" {
		cfg.Provider.CookieURL = "https://fc.yahoo.com"
	}
	if cfg.Provider.SymbolSuffix == "" {
		cfg.Provider.SymbolSuffix = ".SA"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 30 * time.Second
	}
	if cfg.Provider.RequestsPerSecond == 0 {
		cfg.Provider.RequestsPerSecond = 5
	}
	if cfg.Provider.Burst == 0 {
		cfg.Provider.Burst = 2
	}
	if cfg.Provider.LookbackYears == 0 {
		cfg.Provider.LookbackYears = 30
	}
	if cfg.Provider.Timezone == "" {
		cfg.Provider.Timezone = "America/Sao_Paulo"
	}
	if cfg.Growth.MaxFallbackDays == 0 {
		cfg.Growth.MaxFallbackDays = 7
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 24 * time.Hour
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8080"
	}
	if cfg.Dashboard.DefaultStart == "" {
		cfg.Dashboard.DefaultStart = "2019-01-01"
	}
	if cfg.Schedule.RefreshConcurrency == 0 {
		cfg.Schedule.RefreshConcurrency = 4
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// Validate checks field constraints and that the timezone resolves.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Provider.Timezone); err != nil {
		return fmt.Errorf("provider.timezone: %w", err)
	}
	return nil
}

// Location returns the exchange timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Provider.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
