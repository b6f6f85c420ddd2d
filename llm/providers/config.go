package providers

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelflux/modelflux/llm"
)

// BaseConfig carries the configuration fields every adapter shares.
// Embedding it gives each provider config APIKey, BaseURL, Model,
// Temperature, and Timeout without repetition.
type BaseConfig struct {
	APIKey      string        `json:"api_key" yaml:"api_key"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	Model       string        `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	Temperature float32       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	BaseConfig   `yaml:",inline"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// GeminiConfig configures the Google Gemini adapter.
type GeminiConfig struct {
	BaseConfig `yaml:",inline"`
}

// ClaudeConfig configures the Anthropic Claude adapter.
type ClaudeConfig struct {
	BaseConfig `yaml:",inline"`
	// MaxTokens is required by the Anthropic messages API; defaulted by
	// the adapter when zero.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// DeepSeekConfig configures the DeepSeek adapter.
type DeepSeekConfig struct {
	BaseConfig `yaml:",inline"`
}

// BaseFromModelConfig maps the router's untyped ModelConfig onto the shared
// config fields. The "provider" key has already been stripped by the
// router; unknown keys are ignored here and picked up by the provider
// packages that care about them.
func BaseFromModelConfig(cfg llm.ModelConfig) BaseConfig {
	return BaseConfig{
		APIKey:      cfg.APIKey(),
		BaseURL:     cfg.BaseURL(),
		Model:       cfg.ModelName(),
		Temperature: cfg.Temperature(),
		Timeout:     cfg.Timeout(),
	}
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// conventional environment variable. An empty result is a construction
// error: an adapter without a credential must not silently exist.
func ResolveAPIKey(configured, envVar, provider string) (string, error) {
	if k := strings.TrimSpace(configured); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(os.Getenv(envVar)); k != "" {
		return k, nil
	}
	return "", &llm.Error{
		Code:     llm.ErrConstruction,
		Message:  fmt.Sprintf("%s: no API key in config and %s is not set", provider, envVar),
		Provider: provider,
	}
}
