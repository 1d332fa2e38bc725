package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single outbound request, including retries.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "kit-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMProvider selects the generative backend.
type LLMProvider string

const (
	// ProviderOpenAI is any OpenAI-compatible chat completions API (Groq by default).
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// AIConfig holds settings for stages that call a Generative AI API.
type AIConfig struct {
	Provider LLMProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "llama-3.3-70b-versatile").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint for OpenAI-compatible APIs.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxRetries is the number of repair attempts after a malformed or
	// schema-invalid response (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds a single provider call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// SearchConfig holds settings for the search aggregator.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the shopping search URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults caps candidates taken from one source response (default 8).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinInterval is the minimum spacing between outbound calls (default 500ms).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// RetriesOn429 is how many times a rate-limited response is retried
	// within Timeout.
	RetriesOn429 int `json:"retries_on_429" yaml:"retries_on_429"`
}

// CacheBackend selects the search cache store.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
	CacheMongo  CacheBackend = "mongo"
)

// CacheConfig holds settings for the search cache.
type CacheConfig struct {
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// TTL is the retention window for cache entries (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	RedisURL        string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	MongoURI        string `json:"mongo_uri,omitempty" yaml:"mongo_uri,omitempty"`
	MongoDatabase   string `json:"mongo_database,omitempty" yaml:"mongo_database,omitempty"`
	MongoCollection string `json:"mongo_collection,omitempty" yaml:"mongo_collection,omitempty"`
}

// ClarifyConfig holds settings for the clarification stage.
type ClarifyConfig struct {
	// MaxRounds caps clarification rounds before the pipeline proceeds anyway.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
}

// FallbackPolicy decides what an item gets when no candidate ranks above zero.
type FallbackPolicy string

const (
	FallbackFirstResult FallbackPolicy = "first_result"
	FallbackSearchLink  FallbackPolicy = "search_link"
	FallbackNone        FallbackPolicy = "none"
)

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	// Concurrency bounds how many items are searched and ranked at once.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	Fallback FallbackPolicy `json:"fallback" yaml:"fallback"`
}

// StoreConfig holds settings for finished-kit persistence.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path"`
}

// TelemetryConfig holds tracing settings. An empty Endpoint disables tracing.
type TelemetryConfig struct {
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Headers        string `json:"headers,omitempty" yaml:"headers,omitempty"`
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`
}

// Enabled reports whether an exporter endpoint is configured.
func (c TelemetryConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Config groups all stage configurations.
type Config struct {
	LLM       AIConfig        `json:"llm" yaml:"llm"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Clarify   ClarifyConfig   `json:"clarify" yaml:"clarify"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}
