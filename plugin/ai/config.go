package ai

import (
	"errors"
	"time"

	"github.com/hrygo/quillnote/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	Embedding EmbeddingConfig
	LLM       LLMConfig
	Retry     RetryConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // siliconflow, openai, ollama
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
}

// LLMConfig represents chat completion configuration.
type LLMConfig struct {
	Provider string // deepseek, openai, siliconflow, ollama
	Model    string // gpt-4o-mini
	APIKey   string
	BaseURL  string
}

// RetryConfig bounds how hard the ports push on a struggling provider.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Timeout applies to each attempt, not to the whole call.
	Timeout time.Duration
	// RequestsPerSecond throttles calls to the provider; <= 0 disables throttling.
	RequestsPerSecond float64
}

// DefaultRetryConfig returns the retry settings used when the profile says nothing.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialInterval:   500 * time.Millisecond,
		MaxInterval:       8 * time.Second,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
	}
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.AIEnabled,
		Retry:   DefaultRetryConfig(),
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.AIEmbeddingProvider,
		Model:      p.AIEmbeddingModel,
		Dimensions: p.AIEmbeddingDimensions,
	}
	cfg.Embedding.APIKey, cfg.Embedding.BaseURL = credentialsFor(p, p.AIEmbeddingProvider)

	cfg.LLM = LLMConfig{
		Provider: p.AILLMProvider,
		Model:    p.AILLMModel,
	}
	cfg.LLM.APIKey, cfg.LLM.BaseURL = credentialsFor(p, p.AILLMProvider)

	cfg.Retry.MaxRetries = max(p.AIMaxRetries, 0)
	cfg.Retry.RequestsPerSecond = p.AIRequestsPerSecond

	return cfg
}

func credentialsFor(p *profile.Profile, provider string) (apiKey, baseURL string) {
	switch provider {
	case "siliconflow":
		return p.AISiliconFlowAPIKey, p.AISiliconFlowBaseURL
	case "deepseek":
		return p.AIDeepSeekAPIKey, p.AIDeepSeekBaseURL
	case "openai":
		return p.AIOpenAIAPIKey, p.AIOpenAIBaseURL
	case "ollama":
		return "", p.AIOllamaBaseURL
	}
	return "", ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}

	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}

	if c.Embedding.Dimensions < 0 {
		return errors.New("embedding dimensions must not be negative")
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.Retry.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}

	return nil
}
