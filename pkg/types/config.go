package types

import "time"

// HTTPConfig holds shared HTTP settings used by every outbound client.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds 429/503 retries (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SearchConfig holds settings for the unified search aggregator and its
// provider adapters.
type SearchConfig struct {
	// Providers lists the providers to construct. Empty means all four.
	Providers []Source `json:"providers" yaml:"providers" mapstructure:"providers"`

	// DefaultMaxResults applies when a request leaves maxResults unset (default 20).
	DefaultMaxResults int `json:"default_max_results" yaml:"default_max_results" mapstructure:"default_max_results"`

	// PerProviderCap bounds each provider dispatch (default 20).
	PerProviderCap int `json:"per_provider_cap" yaml:"per_provider_cap" mapstructure:"per_provider_cap"`

	// ProviderTimeout bounds one provider call inside the fan-out (default 30s).
	ProviderTimeout time.Duration `json:"provider_timeout" yaml:"provider_timeout" mapstructure:"provider_timeout"`

	// SerpAPIKey authenticates the citation-index and web adapters.
	SerpAPIKey string `json:"-" yaml:"-" mapstructure:"serpapi_api_key"`

	// PubmedAPIKey is optional and raises the biomedical rate limit.
	PubmedAPIKey string `json:"-" yaml:"-" mapstructure:"pubmed_api_key"`

	// ArxivInterval is the minimum spacing between preprint requests (default 3s).
	ArxivInterval time.Duration `json:"arxiv_interval" yaml:"arxiv_interval" mapstructure:"arxiv_interval"`
}

// AIProvider selects the language-model backend.
type AIProvider string

const (
	AIOpenAI    AIProvider = "openai"
	AIAnthropic AIProvider = "anthropic"
)

// AIConfig holds settings for the language-model collaborator.
type AIConfig struct {
	// Provider is openai or anthropic (default openai).
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (default "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the selected provider.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Temperature is the sampling temperature (default 0.2).
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens bounds each completion (default 4000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	// Schema violations are never retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ResearchConfig holds the orchestrator's budgets.
type ResearchConfig struct {
	// MaxSteps is the hard ceiling on executed steps per run (default 8).
	MaxSteps int `json:"max_steps" yaml:"max_steps" mapstructure:"max_steps"`

	// StepMaxResults is the aggregator ceiling per step (default 15).
	StepMaxResults int `json:"step_max_results" yaml:"step_max_results" mapstructure:"step_max_results"`

	// FollowUpsPerGap bounds follow-ups injected after one gap analysis (default 2).
	FollowUpsPerGap int `json:"follow_ups_per_gap" yaml:"follow_ups_per_gap" mapstructure:"follow_ups_per_gap"`

	// MaxSources caps the consolidated source list (default 50).
	MaxSources int `json:"max_sources" yaml:"max_sources" mapstructure:"max_sources"`
}

// CacheConfig holds settings for the SQLite result cache.
type CacheConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string        `json:"path" yaml:"path" mapstructure:"path"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// DeliveryConfig holds settings for report delivery.
type DeliveryConfig struct {
	// NotionAPIKey authenticates the Notion delivery client.
	NotionAPIKey string `json:"-" yaml:"-" mapstructure:"notion_api_key"`

	// NotionDatabaseID is the default parent database for report pages.
	NotionDatabaseID string `json:"notion_database_id" yaml:"notion_database_id" mapstructure:"notion_database_id"`

	// OutputDir is the default directory for file delivery (default "reports").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Format is the file delivery format: markdown, json, or yaml (default markdown).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ResearchTimeout bounds one deep-research request (default 15m).
	ResearchTimeout time.Duration `json:"research_timeout" yaml:"research_timeout" mapstructure:"research_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every section of the configuration file.
type Config struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	AI       AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
	Delivery DeliveryConfig `json:"delivery" yaml:"delivery" mapstructure:"delivery"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}
