package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Foreplay   ForeplayConfig   `yaml:"foreplay" mapstructure:"foreplay"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Coda       CodaConfig       `yaml:"coda" mapstructure:"coda"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Publish    PublishConfig    `yaml:"publish" mapstructure:"publish"`
	Jobs       JobsConfig       `yaml:"jobs" mapstructure:"jobs"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings used for all generative text.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings (secondary competitor search).
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ForeplayConfig holds Foreplay ad-library settings.
type ForeplayConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApifyConfig holds Apify settings for the Reddit scraper actor.
type ApifyConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	ActorID  string `yaml:"actor_id" mapstructure:"actor_id"`
	MaxItems int    `yaml:"max_items" mapstructure:"max_items"`
}

// CodaConfig holds Coda publishing settings.
type CodaConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TemplateDocID string `yaml:"template_doc_id" mapstructure:"template_doc_id"`
	FolderID      string `yaml:"folder_id" mapstructure:"folder_id"`
}

// NotionConfig holds Notion publishing settings.
type NotionConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BriefDB string `yaml:"brief_db" mapstructure:"brief_db"`
}

// PublishConfig selects where finished briefs go.
type PublishConfig struct {
	Destination string `yaml:"destination" mapstructure:"destination"`
}

// JobsConfig configures the executor.
type JobsConfig struct {
	Workers          int `yaml:"workers" mapstructure:"workers"`
	TTLMinutes       int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	StageTimeoutSecs int `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
}

// ResilienceConfig tunes retries and circuit breakers around remote calls.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variable names deployments
// already export.
var legacyEnv = map[string]string{
	"anthropic.key":        "ANTHROPIC_API_KEY",
	"jina.key":             "JINA_API_KEY",
	"perplexity.key":       "PERPLEXITY_API_KEY",
	"foreplay.key":         "FOREPLAY_API_KEY",
	"apify.token":          "APIFY_API_TOKEN",
	"coda.token":           "CODA_API_TOKEN",
	"coda.template_doc_id": "CODA_DOC_TEMPLATE_ID",
	"notion.token":         "NOTION_TOKEN",
	"server.port":          "PORT",
}

// Load reads configuration from .env, config.yaml and the environment.
// BRIEF_-prefixed variables win over the legacy names.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "BRIEF_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1500)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("foreplay.base_url", "https://public.api.foreplay.co/api")
	v.SetDefault("foreplay.rate_limit", 5)
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor_id", "trudax~reddit-scraper-lite")
	v.SetDefault("apify.max_items", 50)
	v.SetDefault("coda.base_url", "https://coda.io/apis/v1")
	v.SetDefault("coda.folder_id", "")
	v.SetDefault("notion.brief_db", "")
	v.SetDefault("publish.destination", "coda")
	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.ttl_minutes", 0)
	v.SetDefault("jobs.stage_timeout_secs", 90)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 10000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks values that would make the service misbehave rather than
// merely degrade. Missing API credentials are not errors.
func (c *Config) Validate() error {
	var errs []string
	if c.Jobs.Workers < 1 || c.Jobs.Workers > 64 {
		errs = append(errs, "jobs.workers must be between 1 and 64")
	}
	if c.Jobs.TTLMinutes < 0 {
		errs = append(errs, "jobs.ttl_minutes must be >= 0")
	}
	if c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}
	switch c.Publish.Destination {
	case "coda", "notion":
	default:
		errs = append(errs, "publish.destination must be coda or notion")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Credentials lists every external dependency with its configured secret.
func (c *Config) Credentials() []errlog.Credential {
	return []errlog.Credential{
		{Name: "Anthropic", Value: c.Anthropic.Key, Placeholders: []string{"sk-ant-...", "sk-..."}},
		{Name: "Jina", Value: c.Jina.Key, Placeholders: []string{"your_jina_api_key_here"}},
		{Name: "Perplexity", Value: c.Perplexity.Key, Placeholders: []string{"pplx-..."}},
		{Name: "Foreplay", Value: c.Foreplay.Key, Placeholders: []string{"your_foreplay_api_key_here"}},
		{Name: "Apify", Value: c.Apify.Token, Placeholders: []string{"your_apify_token_here"}},
		{Name: "Coda", Value: c.Coda.Token, Placeholders: []string{"your_coda_token_here"}},
		{Name: "Notion", Value: c.Notion.Token, Placeholders: []string{"your_notion_token_here"}},
	}
}

// InitLogger initializes the global zap logger.
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
