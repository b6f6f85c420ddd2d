package llm

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultProvider is the baseline provider substituted on any resolution
// failure and used for the last-resort fallback construction.
const DefaultProvider = "openai"

// DefaultModelName is the hard-coded model used for the last-resort
// fallback construction on the baseline provider.
const DefaultModelName = "gpt-4o"

// ModelConfig is the transient, caller-supplied model specification.
// Recognized keys: provider, model_name, temperature, api_key, base_url,
// timeout. Any additional keys are forwarded untouched to the provider
// constructor.
type ModelConfig map[string]any

// Constructor builds a provider adapter from a ModelConfig whose
// "provider" key has already been stripped. Construction that cannot
// establish a usable remote client must return an error; a non-functional
// adapter must not silently exist, since the Router relies on construction
// failure to decide fallback.
type Constructor func(cfg ModelConfig, logger *zap.Logger) (Model, error)

// Provider returns the lower-cased provider key, or "" when absent.
func (c ModelConfig) Provider() string {
	return strings.ToLower(c.str("provider"))
}

// ModelName returns the model_name key, or "" when absent.
func (c ModelConfig) ModelName() string { return c.str("model_name") }

// APIKey returns the api_key key, or "" when absent.
func (c ModelConfig) APIKey() string { return c.str("api_key") }

// BaseURL returns the base_url key, or "" when absent.
func (c ModelConfig) BaseURL() string { return c.str("base_url") }

// Temperature returns the temperature key, tolerating the numeric types
// produced by YAML and JSON decoding. Zero when absent.
func (c ModelConfig) Temperature() float32 {
	switch v := c["temperature"].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	default:
		return 0
	}
}

// Timeout returns the timeout key as a duration. Accepts a time.Duration,
// a duration string ("30s"), or a number of seconds. Zero when absent or
// unparseable.
func (c ModelConfig) Timeout() time.Duration {
	switch v := c["timeout"].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0
		}
		return d
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return 0
	}
}

// WithoutProvider returns a copy of the config with the "provider" key
// removed, ready to forward to a Constructor.
func (c ModelConfig) WithoutProvider() ModelConfig {
	out := make(ModelConfig, len(c))
	for k, v := range c {
		if k == "provider" {
			continue
		}
		out[k] = v
	}
	return out
}

func (c ModelConfig) str(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}
