package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FailOpen = "open"
	FailFast = "fast"
)

type Config struct {
	// Sources
	CryptoAPIEndpoint string `yaml:"crypto_api_endpoint"`
	ArticlesLink      string `yaml:"articles_link"`
	HeadlineTag       string `yaml:"headline_tag"`
	HeadlineClass     string `yaml:"headline_class"`

	// Raw files
	CryptoFile      string `yaml:"crypto_filepath"`
	ArticlesFile    string `yaml:"scraped_articles_filepath"`
	SP500File       string `yaml:"sp500_filepath"`
	SP500IndexFile  string `yaml:"sp500_index_filepath"`
	SP500StocksFile string `yaml:"sp500_stocks_filepath"`
	MVRFile         string `yaml:"mvr_filepath"`

	// Transformed files
	TransformedDir string `yaml:"transformed_data_dir"`

	// Database
	DBHost           string        `yaml:"db_host"`
	DBPort           int           `yaml:"db_port"`
	DBName           string        `yaml:"db_name"`
	DBUser           string        `yaml:"db_user"`
	DBPassword       string        `yaml:"db_password"`
	DBSSLMode        string        `yaml:"db_sslmode"`
	DBConnectTimeout time.Duration `yaml:"db_connect_timeout"`

	// Orchestration
	Schedule    string        `yaml:"schedule"`
	Retries     int           `yaml:"task_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Parallelism int           `yaml:"parallelism"`
	FailPolicy  string        `yaml:"fail_policy"`

	// Network
	APITimeout    time.Duration `yaml:"api_timeout"`
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`

	// Notifications
	WebhookURL   string `yaml:"webhook_url"`
	PipelineName string `yaml:"pipeline_name"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

func defaults() *Config {
	return &Config{
		HeadlineTag:      "h3",
		HeadlineClass:    "Mb(5px)",
		CryptoFile:       filepath.Join("data", "crypto.csv"),
		ArticlesFile:     filepath.Join("data", "scraped_articles.csv"),
		SP500File:        filepath.Join("data", "sp500_companies.csv"),
		SP500IndexFile:   filepath.Join("data", "sp500_index.csv"),
		SP500StocksFile:  filepath.Join("data", "sp500_stocks.csv"),
		MVRFile:          filepath.Join("data", "MVR.csv"),
		TransformedDir:   filepath.Join("data", "transformed"),
		DBHost:           "localhost",
		DBPort:           5432,
		DBName:           "finance",
		DBSSLMode:        "disable",
		DBConnectTimeout: 5 * time.Second,
		Schedule:         "@daily",
		Retries:          1,
		RetryDelay:       5 * time.Minute,
		Parallelism:      4,
		FailPolicy:       FailOpen,
		APITimeout:       30 * time.Second,
		ScrapeTimeout:    10 * time.Second,
		PipelineName:     "finance_etl_pipeline",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_PATH, and finally the environment (a local .env is honoured).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Sources
	cfg.CryptoAPIEndpoint = envStr("CRYPTO_API_ENDPOINT", cfg.CryptoAPIEndpoint)
	cfg.ArticlesLink = envStr("ARTICLES_LINK", cfg.ArticlesLink)
	cfg.HeadlineTag = envStr("HEADLINE_TAG", cfg.HeadlineTag)
	cfg.HeadlineClass = envStr("HEADLINE_CLASS", cfg.HeadlineClass)

	// Files
	cfg.CryptoFile = envStr("CRYPTO_FILEPATH", cfg.CryptoFile)
	cfg.ArticlesFile = envStr("SCRAPED_ARTICLES_FILEPATH", cfg.ArticlesFile)
	cfg.SP500File = envStr("SP500_FILEPATH", cfg.SP500File)
	cfg.SP500IndexFile = envStr("SP500_INDEX_FILEPATH", cfg.SP500IndexFile)
	cfg.SP500StocksFile = envStr("SP500_STOCKS_FILEPATH", cfg.SP500StocksFile)
	cfg.MVRFile = envStr("MVR_FILEPATH", cfg.MVRFile)
	cfg.TransformedDir = envStr("TRANSFORMED_DATA_DIR", cfg.TransformedDir)

	// Database
	cfg.DBHost = envStr("DB_HOST", cfg.DBHost)
	cfg.DBPort = envInt("DB_PORT", cfg.DBPort)
	cfg.DBName = envStr("DB_NAME", cfg.DBName)
	cfg.DBUser = envStr("DB_USER", cfg.DBUser)
	cfg.DBPassword = envStr("DB_PASSWORD", cfg.DBPassword)
	cfg.DBSSLMode = envStr("DB_SSLMODE", cfg.DBSSLMode)
	cfg.DBConnectTimeout = envDuration("DB_CONNECT_TIMEOUT", cfg.DBConnectTimeout)

	// Orchestration
	cfg.Schedule = envStr("PIPELINE_SCHEDULE", cfg.Schedule)
	cfg.Retries = envInt("TASK_RETRIES", cfg.Retries)
	cfg.RetryDelay = envDuration("RETRY_DELAY", cfg.RetryDelay)
	cfg.Parallelism = envInt("PARALLELISM", cfg.Parallelism)
	cfg.FailPolicy = strings.ToLower(envStr("FAIL_POLICY", cfg.FailPolicy))

	// Network
	cfg.APITimeout = envDuration("API_TIMEOUT", cfg.APITimeout)
	cfg.ScrapeTimeout = envDuration("SCRAPE_TIMEOUT", cfg.ScrapeTimeout)

	// Notifications
	cfg.WebhookURL = envStr("WEBHOOK_URL", cfg.WebhookURL)
	cfg.PipelineName = envStr("PIPELINE_NAME", cfg.PipelineName)

	// Logging
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envStr("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = envStr("LOG_FILE", cfg.LogFile)

	return cfg, nil
}

// Validate collects every problem so operators see them all at once. Missing
// source URLs are warnings: their pipelines run and load nothing.
func (c *Config) Validate(logger *slog.Logger) error {
	var errs []string

	if c.DBHost == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if c.DBName == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.DBPort < 1 || c.DBPort > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be between 1 and 65535, got %d", c.DBPort))
	}
	if c.Retries < 0 {
		errs = append(errs, "TASK_RETRIES must be >= 0")
	}
	if c.Parallelism < 1 {
		errs = append(errs, "PARALLELISM must be >= 1")
	}
	if c.FailPolicy != FailOpen && c.FailPolicy != FailFast {
		errs = append(errs, fmt.Sprintf("FAIL_POLICY must be %q or %q, got %q", FailOpen, FailFast, c.FailPolicy))
	}
	if c.ScrapeTimeout <= 0 {
		errs = append(errs, "SCRAPE_TIMEOUT must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if logger != nil {
		if c.CryptoAPIEndpoint == "" {
			logger.Warn("CRYPTO_API_ENDPOINT not set, crypto extract will produce an empty dataset")
		}
		if c.ArticlesLink == "" {
			logger.Warn("ARTICLES_LINK not set, article scrape will produce an empty dataset")
		}
		if c.DBPassword == "" {
			logger.Warn("DB_PASSWORD not set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// LogValue keeps secrets out of structured logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("db", fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName)),
		slog.String("schedule", c.Schedule),
		slog.Int("retries", c.Retries),
		slog.Duration("retry_delay", c.RetryDelay),
		slog.Int("parallelism", c.Parallelism),
		slog.String("fail_policy", c.FailPolicy),
		slog.String("transformed_dir", c.TransformedDir),
		slog.Bool("webhook", c.WebhookURL != ""),
	)
}

func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBSSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.DBSSLMode)
	}
	return u.String()
}

// TransformedPath places a normalized dataset file under TransformedDir.
func (c *Config) TransformedPath(name string) string {
	return filepath.Join(c.TransformedDir, name)
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, errors.New("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return lvl, nil
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
