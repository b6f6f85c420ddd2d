// Package factory assembles routers with the built-in provider
// constructors. It imports every provider subpackage and maps provider
// keys to their FromConfig constructors, breaking the import cycle that
// would occur if this wiring lived in the llm package directly.
package factory

import (
	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/providers/anthropic"
	"github.com/modelflux/modelflux/llm/providers/deepseek"
	"github.com/modelflux/modelflux/llm/providers/gemini"
	"github.com/modelflux/modelflux/llm/providers/openai"
	"go.uber.org/zap"
)

// Constructors returns the built-in provider→constructor table.
// Keys are the canonical lower-case provider names.
func Constructors() map[string]llm.Constructor {
	return map[string]llm.Constructor{
		"openai":    openai.FromConfig,
		"anthropic": anthropic.FromConfig,
		"gemini":    gemini.FromConfig,
		"deepseek":  deepseek.FromConfig,
	}
}

// NewRouter creates a Router with every built-in provider registered.
// defaultCfg drives the lazily constructed default model; nil selects the
// baseline provider with the hard-coded default model name.
func NewRouter(defaultCfg llm.ModelConfig, logger *zap.Logger) *llm.Router {
	r := llm.NewRouter(defaultCfg, logger)
	for provider, ctor := range Constructors() {
		r.RegisterModelClass(provider, ctor)
	}
	return r
}
