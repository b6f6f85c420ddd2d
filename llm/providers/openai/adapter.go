// Package openai implements the adapter for the OpenAI chat-completions
// API. OpenAI is the baseline provider: the router substitutes it for
// unknown providers and uses it for the last-resort fallback construction.
package openai

import (
	"net/http"

	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/providers"
	"github.com/modelflux/modelflux/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com"
	apiKeyEnvVar   = "OPENAI_API_KEY"
)

// Adapter is the OpenAI model adapter.
type Adapter struct {
	*openaicompat.Adapter
}

// New creates an OpenAI adapter. Fails when no API key can be resolved
// from the config or OPENAI_API_KEY.
func New(cfg providers.OpenAIConfig, logger *zap.Logger) (*Adapter, error) {
	apiKey, err := providers.ResolveAPIKey(cfg.APIKey, apiKeyEnvVar, "openai")
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := openaicompat.NewClient(openaicompat.Config{
		ProviderName:  "openai",
		APIKey:        apiKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: llm.DefaultModelName,
		Timeout:       cfg.Timeout,
		BuildHeaders: func(req *http.Request, key string) {
			req.Header.Set("Authorization", "Bearer "+key)
			if cfg.Organization != "" {
				req.Header.Set("OpenAI-Organization", cfg.Organization)
			}
			req.Header.Set("Content-Type", "application/json")
		},
	}, logger)

	return &Adapter{Adapter: openaicompat.NewAdapter(client, cfg.Temperature)}, nil
}

// FromConfig is the registry constructor for the "openai" provider key.
func FromConfig(cfg llm.ModelConfig, logger *zap.Logger) (llm.Model, error) {
	oc := providers.OpenAIConfig{BaseConfig: providers.BaseFromModelConfig(cfg)}
	if org, ok := cfg["organization"].(string); ok {
		oc.Organization = org
	}
	return New(oc, logger)
}
