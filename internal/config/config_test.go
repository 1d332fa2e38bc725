// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kit-engine/internal/secrets"
	"github.com/pdiddy/kit-engine/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), nil)
	require.NoError(t, err)

	assert.Equal(t, types.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "https://google.serper.dev/shopping", cfg.Search.Endpoint)
	assert.Equal(t, 8, cfg.Search.MaxResults)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.MinInterval)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 2, cfg.Search.RetriesOn429)
	assert.Equal(t, types.CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "kit_engine", cfg.Cache.MongoDatabase)
	assert.Equal(t, "search_cache", cfg.Cache.MongoCollection)
	assert.Equal(t, 3, cfg.Clarify.MaxRounds)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, types.FallbackFirstResult, cfg.Pipeline.Fallback)
	assert.Equal(t, "data/kits.db", cfg.Store.Path)
	assert.False(t, cfg.Telemetry.Enabled())
	assert.ErrorIs(t, RequireLLM(cfg), ErrMissingLLMKey)
}

func TestLoadSecrets(t *testing.T) {
	all := map[string]string{
		secrets.GroqAPIKey:   "gsk",
		secrets.OpenAIAPIKey: "sk",
		secrets.GeminiAPIKey: "gem",
		secrets.SerperAPIKey: "serp",
	}
	tests := []struct {
		name     string
		set      map[string]any
		secrets  map[string]string
		wantLLM  string
		wantSerp string
	}{
		{"groq preferred on default base url", nil, all, "gsk", "serp"},
		{"openai key when groq absent", nil, map[string]string{secrets.OpenAIAPIKey: "sk"}, "sk", ""},
		{"openai preferred on other base url", map[string]any{"llm.base_url": "https://api.openai.com/v1"}, all, "sk", "serp"},
		{"gemini", map[string]any{"llm.provider": "gemini"}, all, "gem", "serp"},
		{"explicit key wins", map[string]any{"llm.api_key": "explicit", "search.api_key": "mine"}, all, "explicit", "mine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			cfg, err := Load(v, tt.secrets)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLLM, cfg.LLM.APIKey)
			assert.Equal(t, tt.wantSerp, cfg.Search.APIKey)
			assert.NoError(t, RequireLLM(cfg))
		})
	}
}

func TestLoadRejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"llm.provider", "anthropic", "llm.provider"},
		{"cache.backend", "memcached", "cache.backend"},
		{"pipeline.fallback", "random", "pipeline.fallback"},
		{"llm.max_retries", "-1", "llm.max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)
			_, err := Load(v, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnvironmentAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kit-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: llama-3.1-8b-instant
  timeout: 30s
cache:
  backend: redis
  redis_url: redis://localhost:6379/0
pipeline:
  fallback: search_link
`), 0o644))
	t.Setenv("KIT_ENGINE_PIPELINE_CONCURRENCY", "8")
	t.Setenv("KIT_ENGINE_CACHE_BACKEND", "Mongo")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v, nil)
	require.NoError(t, err)

	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, types.CacheMongo, cfg.Cache.Backend, "environment overrides the file")
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, types.FallbackSearchLink, cfg.Pipeline.Fallback)
}

func TestNewViperMissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
