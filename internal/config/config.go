package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"nearnio/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Price      PriceConfig      `yaml:"price"`
	Notify     NotifyConfig     `yaml:"notify"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type UpstreamConfig struct {
	BaseURL    string        `yaml:"base_url"`
	ListingURL string        `yaml:"listing_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PriceConfig struct {
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	SendDelay  time.Duration `yaml:"send_delay"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	Lookback   time.Duration `yaml:"lookback"`
}

type SchedulerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	SyncInterval   time.Duration `yaml:"sync_interval"`
	NotifyInterval time.Duration `yaml:"notify_interval"`
	RemindInterval time.Duration `yaml:"remind_interval"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	// Token guards the cron trigger endpoints: Authorization: Bearer <token>.
	Token string `yaml:"token"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; config values reference it via ${VAR} expansion.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Enabled && c.API.Auth.Token == "" {
		return errors.New("api.auth.token is required when the trigger API is enabled")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://nearn.io"
	}
	if c.Upstream.ListingURL == "" {
		c.Upstream.ListingURL = c.Upstream.BaseURL + "/api/listings"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}

	if c.Price.BaseURL == "" {
		c.Price.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Price.CacheTTL == 0 {
		c.Price.CacheTTL = models.DefaultPriceCacheTTL
	}
	if c.Price.Timeout == 0 {
		c.Price.Timeout = 10 * time.Second
	}

	if c.Notify.SendDelay == 0 {
		c.Notify.SendDelay = models.DefaultSendDelay
	}
	if c.Notify.RunTimeout == 0 {
		c.Notify.RunTimeout = models.DefaultRunTimeout
	}
	if c.Notify.Lookback == 0 {
		c.Notify.Lookback = models.DefaultNotifyLookback
	}

	if c.Scheduler.SyncInterval == 0 {
		c.Scheduler.SyncInterval = time.Hour
	}
	if c.Scheduler.NotifyInterval == 0 {
		c.Scheduler.NotifyInterval = 5 * time.Minute
	}
	if c.Scheduler.RemindInterval == 0 {
		c.Scheduler.RemindInterval = 15 * time.Minute
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
