// Package config loads router configuration from YAML files with
// environment-variable overrides, plus optional .env loading for local
// development.
//
// Precedence: defaults → YAML file → environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelflux/modelflux/llm"
	"gopkg.in/yaml.v3"
)

// ProviderCredentials holds per-provider connection settings.
type ProviderCredentials struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// DefaultModel is the configuration of the router's default model.
type DefaultModel struct {
	Provider    string  `yaml:"provider"`
	ModelName   string  `yaml:"model_name"`
	Temperature float32 `yaml:"temperature"`
}

// Config is the full router configuration.
type Config struct {
	DefaultModel DefaultModel                   `yaml:"default_model"`
	Providers    map[string]ProviderCredentials `yaml:"providers"`
}

// Default returns the built-in configuration: the baseline provider with
// the hard-coded default model name and temperature zero.
func Default() *Config {
	return &Config{
		DefaultModel: DefaultModel{
			Provider:  llm.DefaultProvider,
			ModelName: llm.DefaultModelName,
		},
		Providers: map[string]ProviderCredentials{},
	}
}

// LoadEnvFile loads a .env file into the process environment when present.
// A missing file is not an error; credentials commonly come from the real
// environment in production.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// Load reads a YAML config file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

// FromEnv builds a config from defaults and environment variables alone.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg
}

// applyEnvOverrides merges environment variables over the loaded values.
// MODELFLUX_DEFAULT_PROVIDER and MODELFLUX_DEFAULT_MODEL override the
// default model; <PROVIDER>_API_KEY fills missing provider credentials.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MODELFLUX_DEFAULT_PROVIDER"); v != "" {
		c.DefaultModel.Provider = v
	}
	if v := os.Getenv("MODELFLUX_DEFAULT_MODEL"); v != "" {
		c.DefaultModel.ModelName = v
	}
	for _, provider := range []string{"openai", "anthropic", "gemini", "deepseek"} {
		creds := c.Providers[provider]
		if creds.APIKey == "" {
			creds.APIKey = os.Getenv(strings.ToUpper(provider) + "_API_KEY")
		}
		if creds != (ProviderCredentials{}) {
			if c.Providers == nil {
				c.Providers = map[string]ProviderCredentials{}
			}
			c.Providers[provider] = creds
		}
	}
}

// normalize lower-cases provider keys, matching the router's registries.
func (c *Config) normalize() {
	c.DefaultModel.Provider = strings.ToLower(c.DefaultModel.Provider)
	providers := make(map[string]ProviderCredentials, len(c.Providers))
	for name, creds := range c.Providers {
		providers[strings.ToLower(name)] = creds
	}
	c.Providers = providers
}

// DefaultModelConfig returns the default model as a router ModelConfig,
// merged with that provider's credentials.
func (c *Config) DefaultModelConfig() llm.ModelConfig {
	return c.ModelConfig(c.DefaultModel.Provider, c.DefaultModel.ModelName, c.DefaultModel.Temperature)
}

// ModelConfig builds a router ModelConfig for a provider, merging in the
// configured credentials for that provider.
func (c *Config) ModelConfig(provider, modelName string, temperature float32) llm.ModelConfig {
	provider = strings.ToLower(provider)
	out := llm.ModelConfig{
		"provider":    provider,
		"temperature": temperature,
	}
	if modelName != "" {
		out["model_name"] = modelName
	}
	if creds, ok := c.Providers[provider]; ok {
		if creds.APIKey != "" {
			out["api_key"] = creds.APIKey
		}
		if creds.BaseURL != "" {
			out["base_url"] = creds.BaseURL
		}
		if creds.Timeout != 0 {
			out["timeout"] = creds.Timeout
		}
	}
	return out
}
