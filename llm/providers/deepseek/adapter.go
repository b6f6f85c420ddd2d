// Package deepseek implements the adapter for the DeepSeek API, which is
// OpenAI-compatible end to end.
package deepseek

import (
	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/providers"
	"github.com/modelflux/modelflux/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"
	apiKeyEnvVar   = "DEEPSEEK_API_KEY"
)

// Adapter is the DeepSeek model adapter.
type Adapter struct {
	*openaicompat.Adapter
}

// New creates a DeepSeek adapter. Fails when no API key can be resolved
// from the config or DEEPSEEK_API_KEY.
func New(cfg providers.DeepSeekConfig, logger *zap.Logger) (*Adapter, error) {
	apiKey, err := providers.ResolveAPIKey(cfg.APIKey, apiKeyEnvVar, "deepseek")
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := openaicompat.NewClient(openaicompat.Config{
		ProviderName:  "deepseek",
		APIKey:        apiKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: defaultModel,
		Timeout:       cfg.Timeout,
	}, logger)

	return &Adapter{Adapter: openaicompat.NewAdapter(client, cfg.Temperature)}, nil
}

// FromConfig is the registry constructor for the "deepseek" provider key.
func FromConfig(cfg llm.ModelConfig, logger *zap.Logger) (llm.Model, error) {
	return New(providers.DeepSeekConfig{BaseConfig: providers.BaseFromModelConfig(cfg)}, logger)
}
