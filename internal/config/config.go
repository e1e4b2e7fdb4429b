package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"TickerTracker/internal/news"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"` // sqlite or postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	DataSource struct {
		Provider       string `yaml:"provider"` // yahoo, rest or mock
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		LookbackDays   int    `yaml:"lookback_days"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	News struct {
		Providers   []string    `yaml:"providers"` // rss, scrape, mock
		Feeds       []string    `yaml:"feeds"`
		Sites       []news.Site `yaml:"sites"`
		MaxArticles int         `yaml:"max_articles"`
	} `yaml:"news"`
	Indicators struct {
		RSIPeriod   int `yaml:"rsi_period"`
		ShortWindow int `yaml:"short_window"`
		LongWindow  int `yaml:"long_window"`
	} `yaml:"indicators"`
	Sentiment struct {
		WindowSize    int    `yaml:"window_size"`
		LexiconPath   string `yaml:"lexicon_path"`
		BackfillBatch int    `yaml:"backfill_batch"`
	} `yaml:"sentiment"`
	Pipeline struct {
		Concurrency int                 `yaml:"concurrency"`
		Instruments map[string][]string `yaml:"instruments"`
	} `yaml:"pipeline"`
	Schedule struct {
		IngestCron   string `yaml:"ingest_cron"`
		BackfillCron string `yaml:"backfill_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		Tracing bool   `yaml:"tracing"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
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

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("SERVER_ADDR", &c.Server.Addr)
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DATABASE_URL", &c.Database.DSN)
	setString("DATA_PROVIDER", &c.DataSource.Provider)
	setString("DATA_BASE_URL", &c.DataSource.BaseURL)
	setString("DATA_API_KEY", &c.DataSource.APIKey)
	setInt("LOOKBACK_DAYS", &c.DataSource.LookbackDays)
	if v := os.Getenv("NEWS_PROVIDERS"); v != "" {
		c.News.Providers = splitList(v)
	}
	if v := os.Getenv("NEWS_FEEDS"); v != "" {
		c.News.Feeds = splitList(v)
	}
	setInt("PIPELINE_CONCURRENCY", &c.Pipeline.Concurrency)
	setString("CRON_INGEST", &c.Schedule.IngestCron)
	setString("CRON_BACKFILL", &c.Schedule.BackfillCron)
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	if v := os.Getenv("LOG_TRACING_ENABLED"); v != "" {
		c.Logging.Tracing = v == "true" || v == "1"
	}
	setString("HTTPS_PROXY", &c.Proxy)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/tickertracker.db"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.TimeoutSeconds == 0 {
		c.DataSource.TimeoutSeconds = 30
	}
	if len(c.News.Providers) == 0 {
		c.News.Providers = []string{"mock"}
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.ShortWindow == 0 {
		c.Indicators.ShortWindow = 20
	}
	if c.Indicators.LongWindow == 0 {
		c.Indicators.LongWindow = 50
	}
	if c.Sentiment.WindowSize == 0 {
		c.Sentiment.WindowSize = 5
	}
	if c.Sentiment.BackfillBatch == 0 {
		c.Sentiment.BackfillBatch = 500
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Schedule.IngestCron == "" {
		c.Schedule.IngestCron = "0 0 */1 * * *"
	}
	if c.Schedule.BackfillCron == "" {
		c.Schedule.BackfillCron = "0 */15 * * * *"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	for _, p := range c.News.Providers {
		switch p {
		case "mock":
		case "rss":
			if len(c.News.Feeds) == 0 {
				return fmt.Errorf("news.feeds is required for the rss provider")
			}
		case "scrape":
			if len(c.News.Sites) == 0 {
				return fmt.Errorf("news.sites is required for the scrape provider")
			}
			for _, s := range c.News.Sites {
				if s.BaseURL == "" || s.Selectors.Article == "" || s.Selectors.Title == "" || s.Selectors.Link == "" {
					return fmt.Errorf("news site %q needs base_url and article/title/link selectors", s.Name)
				}
			}
		default:
			return fmt.Errorf("unknown news provider %q", p)
		}
	}
	ind := c.Indicators
	if ind.RSIPeriod <= 0 || ind.ShortWindow <= 0 || ind.LongWindow <= 0 {
		return fmt.Errorf("indicator windows must be positive")
	}
	if ind.ShortWindow >= ind.LongWindow {
		return fmt.Errorf("indicators.short_window must be less than long_window")
	}
	if c.Sentiment.WindowSize <= 0 {
		return fmt.Errorf("sentiment.window_size must be positive")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
