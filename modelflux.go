// Package modelflux provides a top-level convenience entry point for
// creating a model router with minimal boilerplate.
//
// Usage:
//
//	import "github.com/modelflux/modelflux"
//
//	r := modelflux.New(modelflux.WithOpenAI("gpt-4o-mini"))
//	r := modelflux.New(modelflux.WithAnthropic("claude-sonnet-4-20250514"), modelflux.WithTemperature(0.2))
//
//	m, err := r.GetDefaultModel()
//
// This is a thin wrapper around [factory.NewRouter]; both produce identical
// results. Use this package when you prefer the shorter import path.
package modelflux

import (
	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/factory"
	"go.uber.org/zap"
)

type options struct {
	cfg    llm.ModelConfig
	logger *zap.Logger
}

// Option configures the router created by [New].
type Option func(*options)

// WithOpenAI selects OpenAI as the default provider with the given model.
func WithOpenAI(model string) Option {
	return withProvider("openai", model)
}

// WithAnthropic selects Anthropic as the default provider with the given
// model.
func WithAnthropic(model string) Option {
	return withProvider("anthropic", model)
}

// WithGemini selects Google Gemini as the default provider with the given
// model.
func WithGemini(model string) Option {
	return withProvider("gemini", model)
}

// WithDeepSeek selects DeepSeek as the default provider with the given
// model.
func WithDeepSeek(model string) Option {
	return withProvider("deepseek", model)
}

func withProvider(provider, model string) Option {
	return func(o *options) {
		o.cfg["provider"] = provider
		if model != "" {
			o.cfg["model_name"] = model
		}
	}
}

// WithAPIKey sets the default model's API key explicitly, instead of the
// provider's environment variable.
func WithAPIKey(key string) Option {
	return func(o *options) { o.cfg["api_key"] = key }
}

// WithTemperature sets the default model's sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *options) { o.cfg["temperature"] = t }
}

// WithLogger sets the router's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDefaultConfig replaces the whole default-model config. Later options
// still apply on top of it.
func WithDefaultConfig(cfg llm.ModelConfig) Option {
	return func(o *options) {
		for k, v := range cfg {
			o.cfg[k] = v
		}
	}
}

// New creates a [llm.Router] with every built-in provider registered and
// the default model described by the options. The default model itself is
// constructed lazily on first use.
func New(opts ...Option) *llm.Router {
	o := &options{cfg: llm.ModelConfig{}}
	for _, opt := range opts {
		opt(o)
	}
	var cfg llm.ModelConfig
	if len(o.cfg) > 0 {
		cfg = o.cfg
	}
	return factory.NewRouter(cfg, o.logger)
}
