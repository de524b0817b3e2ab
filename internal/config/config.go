package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds settings for OpenAI chat completions.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds settings for Gemini's OpenAI-compatible endpoint.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds Notion API credentials used as an item source.
type NotionConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	TitleProperty string `yaml:"title_property" mapstructure:"title_property"`
	URLProperty   string `yaml:"url_property" mapstructure:"url_property"`
}

// BrowserConfig configures the headless browser scraper.
type BrowserConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Headless  bool   `yaml:"headless" mapstructure:"headless"`
	NoSandbox bool   `yaml:"no_sandbox" mapstructure:"no_sandbox"`
	Bin       string `yaml:"bin" mapstructure:"bin"`
}

// CrawlConfig controls page fetching.
type CrawlConfig struct {
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
}

// LLMConfig controls calls to the extraction model.
type LLMConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxOutputTokens   int64   `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BatchConfig controls the sequential batch driver.
type BatchConfig struct {
	IntervalSecs    int    `yaml:"interval_secs" mapstructure:"interval_secs"`
	Adaptive        bool   `yaml:"adaptive" mapstructure:"adaptive"`
	MaxIntervalSecs int    `yaml:"max_interval_secs" mapstructure:"max_interval_secs"`
	OutputFormat    string `yaml:"output_format" mapstructure:"output_format"`
	JobsDir         string `yaml:"jobs_dir" mapstructure:"jobs_dir"`
}

// ServerConfig configures the read-only run API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PricingConfig overrides the built-in per-model token pricing. Keys are
// model names; viper splits keys on dots, so use names without them.
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Validate checks that the fields a command needs are present. The mode
// names the command: "extract", "batch", or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "extract", "batch":
		if c.Batch.IntervalSecs < 0 {
			errs = append(errs, "batch.interval_secs must be >= 0")
		}
		if c.Batch.Adaptive && c.Batch.MaxIntervalSecs < c.Batch.IntervalSecs {
			errs = append(errs, "batch.max_interval_secs must be >= batch.interval_secs")
		}
		if c.LLM.MaxOutputTokens <= 0 {
			errs = append(errs, "llm.max_output_tokens must be > 0")
		}
		if c.LLM.RequestsPerMinute < 0 {
			errs = append(errs, "llm.requests_per_minute must be >= 0")
		}
		switch c.Batch.OutputFormat {
		case "", "json", "xlsx":
		default:
			errs = append(errs, fmt.Sprintf("batch.output_format %q must be json or xlsx", c.Batch.OutputFormat))
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from config.yaml in the working directory and
// EXTRACT_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1/")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("notion.title_property", "Title")
	v.SetDefault("notion.url_property", "URL")
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("crawl.timeout_secs", 0)
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("crawl.max_body_bytes", 8<<20)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; extract-cli/1.0)")
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("llm.max_output_tokens", 8192)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout_secs", 300)
	v.SetDefault("batch.interval_secs", 11)
	v.SetDefault("batch.adaptive", false)
	v.SetDefault("batch.max_interval_secs", 120)
	v.SetDefault("batch.output_format", "json")
	v.SetDefault("batch.jobs_dir", "jobs")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger sets up the global zap logger based on config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
