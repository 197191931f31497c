package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Providers ProviderConfig  `yaml:"providers" mapstructure:"providers"`
	Prompt    PromptConfig    `yaml:"prompt" mapstructure:"prompt"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeneratorConfig selects and configures the text-generation backend.
type GeneratorConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	Model             string `yaml:"model" mapstructure:"model"`
	AnthropicKey      string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	OpenAIKey         string `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIBaseURL     string `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	MaxOutputTokens   int    `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ProviderConfig holds the per-provider chunking thresholds: the maximum
// effective character budget before a document must be segmented.
type ProviderConfig struct {
	Thresholds       map[string]int `yaml:"thresholds" mapstructure:"thresholds"`
	DefaultThreshold int            `yaml:"default_threshold" mapstructure:"default_threshold"`
}

// Threshold resolves the character budget for a provider id: exact match
// first, then the longest configured prefix, then the default. It never
// fails; unknown providers get the documented fallback.
func (p ProviderConfig) Threshold(providerID string) int {
	id := strings.ToLower(strings.TrimSpace(providerID))
	if t, ok := p.Thresholds[id]; ok && t > 0 {
		return t
	}
	bestLen, bestVal := 0, 0
	for key, t := range p.Thresholds {
		if t > 0 && strings.HasPrefix(id, key) && len(key) > bestLen {
			bestLen, bestVal = len(key), t
		}
	}
	if bestLen > 0 {
		return bestVal
	}
	if p.DefaultThreshold > 0 {
		return p.DefaultThreshold
	}
	return 150000
}

// PromptConfig configures prompt construction policy.
type PromptConfig struct {
	// ProfileStrategy is one of "always", "never", "auto".
	ProfileStrategy string `yaml:"profile_strategy" mapstructure:"profile_strategy"`
}

// ModelPricing holds per-1K-token pricing (USD) for cost estimation.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k" mapstructure:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k" mapstructure:"output_per_1k"`
}

// PricingConfig maps model ids to pricing.
type PricingConfig struct {
	Models  map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	Default ModelPricing            `yaml:"default" mapstructure:"default"`
}

// ForModel returns pricing for a model id, falling back to the default.
func (p PricingConfig) ForModel(model string) ModelPricing {
	if mp, ok := p.Models[strings.ToLower(model)]; ok {
		return mp
	}
	return p.Default
}

// RetryConfig configures the generator-call retry policy.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig configures multi-document processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("generator.provider", "anthropic")
	v.SetDefault("generator.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("generator.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("generator.max_output_tokens", 4096)
	v.SetDefault("generator.requests_per_minute", 60)

	// Character budgets derived from published context windows. Unknown
	// providers fall back to default_threshold.
	v.SetDefault("providers.thresholds", map[string]int{
		"anthropic":        150000,
		"claude":           150000,
		"openai":           96000,
		"gpt-4":            96000,
		"gpt-4o":           96000,
		"gpt-3.5-turbo":    12000,
		"grok":             96000,
		"gemini":           1500000,
		"gemini-2.5-pro":   1500000,
		"gemini-2.5-flash": 750000,
	})
	v.SetDefault("providers.default_threshold", 150000)

	v.SetDefault("prompt.profile_strategy", "auto")

	v.SetDefault("pricing.default.input_per_1k", 0.003)
	v.SetDefault("pricing.default.output_per_1k", 0.015)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "docextract.db")
	v.SetDefault("batch.max_concurrent_documents", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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
