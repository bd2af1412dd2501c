package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"home_scout/extract"
)

type Config struct {
	Index     IndexConfig
	Insights  InsightsConfig
	Postgres  PostgresConfig
	S3        S3Config
	Scheduler SchedulerConfig
	Collector CollectorConfig
	API       APIConfig
	DBPath    string
	LogLevel  string
	Sites     map[string]*SiteConfig
}

// IndexConfig points at the external search-index service that receives
// record batches and serves queries.
type IndexConfig struct {
	URL       string
	APIKey    string
	IndexName string
}

type InsightsConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type PostgresConfig struct {
	DSN string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type CollectorConfig struct {
	DelayMS  int
	MaxCount int
}

type APIConfig struct {
	Addr string
}

// SiteConfig is one listings site: where to search, what to wait for before
// reading the DOM, and the extraction pipeline tuned for its markup.
type SiteConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	SearchURL   string   `yaml:"search_url"`
	WaitFor     string   `yaml:"wait_for"`
	RateLimitMS int      `yaml:"rate_limit_ms"`
	Markets     []Market `yaml:"markets"`

	Pipeline extract.Pipeline `yaml:"pipeline"`
}

type Market struct {
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Index: IndexConfig{
			URL:       os.Getenv("INDEX_URL"),
			APIKey:    os.Getenv("INDEX_API_KEY"),
			IndexName: getEnv("INDEX_NAME", "properties"),
		},
		Insights: InsightsConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			BaseURL:   os.Getenv("OPENAI_BASE_URL"),
			Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 512),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("COLLECT_CRON"),
		},
		Collector: CollectorConfig{
			DelayMS:  getEnvInt("COLLECT_DELAY_MS", 500),
			MaxCount: getEnvInt("COLLECT_MAX_COUNT", 20),
		},
		API: APIConfig{
			Addr: getEnv("API_ADDR", ":8080"),
		},
		DBPath:   getEnv("DB_PATH", "home_scout.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Sites:    make(map[string]*SiteConfig),
	}

	if interval := os.Getenv("COLLECT_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSiteConfigs("config/sites"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs reads every YAML file in dir. Each site starts from the
// default pipeline, so a site file only specifies what differs.
func (c *Config) loadSiteConfigs(dir string) error {
	entries, err := os.ReadDir(dir)
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

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		site := SiteConfig{Pipeline: extract.DefaultPipeline()}
		if err := yaml.Unmarshal(data, &site); err != nil {
			return err
		}

		c.Sites[site.ID] = &site
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
