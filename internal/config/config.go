// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config maps layered settings (config file, KIT_ENGINE_ environment
// variables, .secrets/ key files) onto types.Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/kit-engine/internal/secrets"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// EnvPrefix is prepended to every environment override, e.g.
// KIT_ENGINE_LLM_MODEL for llm.model.
const EnvPrefix = "KIT_ENGINE"

// ErrMissingLLMKey is returned by RequireLLM when no credential is set for
// the selected provider.
var ErrMissingLLMKey = errors.New("no API key configured for the LLM provider")

var defaults = map[string]any{
	"llm.provider":           string(types.ProviderOpenAI),
	"llm.model":              "",
	"llm.base_url":           "",
	"llm.api_key":            "",
	"llm.temperature":        0.2,
	"llm.max_retries":        2,
	"llm.timeout":            60 * time.Second,
	"search.endpoint":        "https://google.serper.dev/shopping",
	"search.api_key":         "",
	"search.user_agent":      "kit-engine",
	"search.max_results":     8,
	"search.min_interval":    500 * time.Millisecond,
	"search.timeout":         10 * time.Second,
	"search.retries_on_429":  2,
	"cache.backend":          string(types.CacheMemory),
	"cache.ttl":              24 * time.Hour,
	"cache.redis_url":        "",
	"cache.mongo_uri":        "",
	"cache.mongo_database":   "kit_engine",
	"cache.mongo_collection": "search_cache",
	"clarify.max_rounds":     3,
	"pipeline.concurrency":   4,
	"pipeline.fallback":      string(types.FallbackFirstResult),
	"store.path":             "data/kits.db",
	"telemetry.endpoint":     "",
	"telemetry.headers":      "",
	"telemetry.service_name": "kit-engine",
}

// NewViper returns a viper instance with environment overrides enabled and
// the config file loaded. An explicit cfgFile must exist; otherwise
// kit-engine.yaml is looked up in . and ~/.config/kit-engine/ and its
// absence is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("kit-engine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "kit-engine"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Load applies defaults to v and builds the configuration. Explicit
// settings win over key files in s. Unknown provider, backend or fallback
// values are errors.
func Load(v *viper.Viper, s map[string]string) (types.Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	cfg := types.Config{
		LLM: types.AIConfig{
			Provider:    types.LLMProvider(strings.ToLower(v.GetString("llm.provider"))),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxRetries:  v.GetInt("llm.max_retries"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("search.timeout"),
				UserAgent: v.GetString("search.user_agent"),
			},
			Endpoint:     v.GetString("search.endpoint"),
			APIKey:       v.GetString("search.api_key"),
			MaxResults:   v.GetInt("search.max_results"),
			MinInterval:  v.GetDuration("search.min_interval"),
			RetriesOn429: v.GetInt("search.retries_on_429"),
		},
		Cache: types.CacheConfig{
			Backend:         types.CacheBackend(strings.ToLower(v.GetString("cache.backend"))),
			TTL:             v.GetDuration("cache.ttl"),
			RedisURL:        v.GetString("cache.redis_url"),
			MongoURI:        v.GetString("cache.mongo_uri"),
			MongoDatabase:   v.GetString("cache.mongo_database"),
			MongoCollection: v.GetString("cache.mongo_collection"),
		},
		Clarify: types.ClarifyConfig{
			MaxRounds: v.GetInt("clarify.max_rounds"),
		},
		Pipeline: types.PipelineConfig{
			Concurrency: v.GetInt("pipeline.concurrency"),
			Fallback:    types.FallbackPolicy(strings.ToLower(v.GetString("pipeline.fallback"))),
		},
		Store: types.StoreConfig{
			Path: v.GetString("store.path"),
		},
		Telemetry: types.TelemetryConfig{
			Endpoint:    v.GetString("telemetry.endpoint"),
			Headers:     v.GetString("telemetry.headers"),
			ServiceName: v.GetString("telemetry.service_name"),
		},
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = llmSecret(cfg.LLM, s)
	}
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = secrets.First(s, secrets.SerperAPIKey)
	}

	if err := validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// llmSecret picks the key file matching the provider. An OpenAI-compatible
// provider on the default (Groq) base URL prefers the Groq key.
func llmSecret(c types.AIConfig, s map[string]string) string {
	switch c.Provider {
	case types.ProviderGemini:
		return secrets.First(s, secrets.GeminiAPIKey)
	default:
		if c.BaseURL == "" || strings.Contains(c.BaseURL, "groq.com") {
			return secrets.First(s, secrets.GroqAPIKey, secrets.OpenAIAPIKey)
		}
		return secrets.First(s, secrets.OpenAIAPIKey, secrets.GroqAPIKey)
	}
}

func validate(cfg types.Config) error {
	var problems []string
	switch cfg.LLM.Provider {
	case types.ProviderOpenAI, types.ProviderGemini:
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not one of openai, gemini", cfg.LLM.Provider))
	}
	switch cfg.Cache.Backend {
	case types.CacheMemory, types.CacheRedis, types.CacheMongo:
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q is not one of memory, redis, mongo", cfg.Cache.Backend))
	}
	switch cfg.Pipeline.Fallback {
	case types.FallbackFirstResult, types.FallbackSearchLink, types.FallbackNone:
	default:
		problems = append(problems, fmt.Sprintf("pipeline.fallback %q is not one of first_result, search_link, none", cfg.Pipeline.Fallback))
	}
	if cfg.LLM.MaxRetries < 0 {
		problems = append(problems, "llm.max_retries must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireLLM reports a configuration error when the LLM has no credential.
func RequireLLM(cfg types.Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("%w (%s): set llm.api_key, %s_LLM_API_KEY, or a key file in %s",
			ErrMissingLLMKey, cfg.LLM.Provider, EnvPrefix, secrets.DefaultDir)
	}
	return nil
}
