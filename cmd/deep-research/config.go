package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/deep-research/internal/secrets"
	"github.com/pdiddy/deep-research/pkg/types"
)

// setDefaults registers every configuration default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("secrets_dir", ".secrets/")

	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("http.user_agent", "deep-research/0.1")
	v.SetDefault("http.max_retries", 5)

	v.SetDefault("search.providers", []string{})
	v.SetDefault("search.default_max_results", types.DefaultMaxResults)
	v.SetDefault("search.per_provider_cap", 20)
	v.SetDefault("search.provider_timeout", 30*time.Second)
	v.SetDefault("search.arxiv_interval", 3*time.Second)
	v.SetDefault("search.serpapi_api_key", "")
	v.SetDefault("search.pubmed_api_key", "")

	v.SetDefault("ai.provider", string(types.AIOpenAI))
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.max_tokens", 4000)
	v.SetDefault("ai.max_retries", 3)

	v.SetDefault("research.max_steps", 8)
	v.SetDefault("research.step_max_results", 15)
	v.SetDefault("research.follow_ups_per_gap", 2)
	v.SetDefault("research.max_sources", 50)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", ".cache/deep-research.db")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("delivery.notion_api_key", "")
	v.SetDefault("delivery.notion_database_id", "")
	v.SetDefault("delivery.output_dir", "reports")
	v.SetDefault("delivery.format", "markdown")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.research_timeout", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// loadConfig decodes the merged configuration and fills credentials that
// the config file left empty from the secrets store.
func loadConfig(v *viper.Viper, store *secrets.Store) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.Search.SerpAPIKey = secretDefault(store, secrets.SerpAPI, cfg.Search.SerpAPIKey)
	cfg.Search.PubmedAPIKey = secretDefault(store, secrets.Pubmed, cfg.Search.PubmedAPIKey)

	cfg.AI.Provider = types.AIProvider(strings.ToLower(string(cfg.AI.Provider)))
	switch cfg.AI.Provider {
	case types.AIAnthropic:
		cfg.AI.APIKey = secretDefault(store, secrets.Anthropic, cfg.AI.APIKey)
	case types.AIOpenAI, "":
		cfg.AI.APIKey = secretDefault(store, secrets.OpenAI, cfg.AI.APIKey)
	default:
		return cfg, &types.ValidationError{Field: "ai.provider", Message: fmt.Sprintf("unknown provider %q (want openai or anthropic)", cfg.AI.Provider)}
	}

	cfg.Delivery.NotionAPIKey = secretDefault(store, secrets.Notion, cfg.Delivery.NotionAPIKey)
	cfg.Delivery.NotionDatabaseID = secretDefault(store, secrets.NotionDatabaseID, cfg.Delivery.NotionDatabaseID)
	return cfg, nil
}

// secretDefault returns value when set, otherwise the credential from store.
func secretDefault(store *secrets.Store, c secrets.Credential, value string) string {
	if value != "" {
		return value
	}
	return store.Get(c)
}

// newLogger builds a zap logger. Console output is for interactive use;
// json suits log collection.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var config zap.Config
	switch strings.ToLower(format) {
	case "json":
		config = zap.NewProductionConfig()
	case "console", "":
		config = zap.NewDevelopmentConfig()
		config.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("invalid log format %q (want console or json)", format)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
