package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	RedisAddr   string
	ListenAddr  string
	JWTSecret   string
	BaseURL     string // public URL used in verification links
	LogLevel    string

	Scheduler SchedulerConfig
	Scraper   ScraperConfig
	Telegram  TelegramConfig
	Email     EmailConfig

	Marketplaces map[string]*MarketplaceConfig
}

type SchedulerConfig struct {
	Cron          string
	Workers       int
	ScrapeTimeout time.Duration
	LeaseTTL      time.Duration
	FailThreshold int
}

type ScraperConfig struct {
	ProxyURL   string
	CacheTTL   time.Duration
	UseBrowser bool // enable Playwright fallback on blocked fetches
}

type TelegramConfig struct {
	BotToken string
}

type EmailConfig struct {
	BrevoAPIKey string
	FromAddress string
	FromName    string
}

// MarketplaceConfig describes how to scrape one marketplace. Selector lists
// are tried in order; the first match wins.
type MarketplaceConfig struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Domains            []string `yaml:"domains"`
	TitleSelectors     []string `yaml:"title_selectors"`
	PriceSelectors     []string `yaml:"price_selectors"`
	PromoSelectors     []string `yaml:"promo_selectors"`
	PreviousSelectors  []string `yaml:"previous_selectors"`
	DiscountSelectors  []string `yaml:"discount_selectors"`
	ImageSelectors     []string `yaml:"image_selectors"`
	RateLimitMS        int      `yaml:"rate_limit_ms"`
	BrowserFallback    bool     `yaml:"browser_fallback"`
	BrowserWaitMS      int      `yaml:"browser_wait_ms"`
	AcceptLanguage     string   `yaml:"accept_language"`
	UserAgentOverride  string   `yaml:"user_agent"`
	JSONLDPriceEnabled bool     `yaml:"jsonld_price_enabled"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Scheduler: SchedulerConfig{
			Cron:          getEnv("CHECK_CRON", "*/30 * * * *"),
			Workers:       getEnvInt("SCRAPE_WORKERS", 4),
			ScrapeTimeout: getEnvDuration("SCRAPE_TIMEOUT", 30*time.Second),
			LeaseTTL:      getEnvDuration("SCRAPE_LEASE_TTL", 2*time.Minute),
			FailThreshold: getEnvInt("SCRAPE_FAIL_THRESHOLD", 5),
		},
		Scraper: ScraperConfig{
			ProxyURL:   os.Getenv("SCRAPE_PROXY_URL"),
			CacheTTL:   getEnvDuration("SCRAPE_CACHE_TTL", time.Hour),
			UseBrowser: os.Getenv("SCRAPE_BROWSER_FALLBACK") == "true",
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Email: EmailConfig{
			BrevoAPIKey: os.Getenv("BREVO_API_KEY"),
			FromAddress: getEnv("EMAIL_FROM", "alerts@pricemonitor.local"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Price Monitor"),
		},
		Marketplaces: make(map[string]*MarketplaceConfig),
	}

	if err := cfg.loadMarketplaceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadMarketplaceConfigs() error {
	configDir := getEnv("MARKETPLACE_CONFIG_DIR", "config/marketplaces")
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return err
		}

		var mp MarketplaceConfig
		if err := yaml.Unmarshal(data, &mp); err != nil {
			return err
		}

		c.Marketplaces[mp.ID] = &mp
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
