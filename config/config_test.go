package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelflux/modelflux/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MODELFLUX_DEFAULT_PROVIDER", "MODELFLUX_DEFAULT_MODEL",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "DEEPSEEK_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, llm.DefaultProvider, cfg.DefaultModel.Provider)
	assert.Equal(t, llm.DefaultModelName, cfg.DefaultModel.ModelName)
	assert.Empty(t, cfg.Providers)
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
default_model:
  provider: Anthropic
  model_name: claude-sonnet-4-20250514
  temperature: 0.2
providers:
  Anthropic:
    api_key: file-key
    timeout: 45s
  openai:
    base_url: https://proxy.example.test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.DefaultModel.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.DefaultModel.ModelName)
	assert.InDelta(t, 0.2, float64(cfg.DefaultModel.Temperature), 1e-6)

	require.Contains(t, cfg.Providers, "anthropic")
	assert.Equal(t, "file-key", cfg.Providers["anthropic"].APIKey)
	assert.Equal(t, 45*time.Second, cfg.Providers["anthropic"].Timeout)
	assert.Equal(t, "https://proxy.example.test", cfg.Providers["openai"].BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODELFLUX_DEFAULT_PROVIDER", "gemini")
	t.Setenv("MODELFLUX_DEFAULT_MODEL", "gemini-2.5-pro")
	t.Setenv("DEEPSEEK_API_KEY", "env-key")

	path := writeFile(t, "config.yaml", `
default_model:
  provider: openai
  model_name: gpt-4o
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.DefaultModel.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.DefaultModel.ModelName)
	assert.Equal(t, "env-key", cfg.Providers["deepseek"].APIKey)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := FromEnv()
	assert.Equal(t, llm.DefaultProvider, cfg.DefaultModel.Provider)
	assert.Equal(t, "env-key", cfg.Providers["openai"].APIKey)
	assert.NotContains(t, cfg.Providers, "gemini")
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", "OPENAI_API_KEY=dotenv-key\n")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "dotenv-key", os.Getenv("OPENAI_API_KEY"))
}

func TestLoadEnvFile_MissingIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}

func TestDefaultModelConfig_MergesCredentials(t *testing.T) {
	cfg := &Config{
		DefaultModel: DefaultModel{Provider: "anthropic", ModelName: "claude-test", Temperature: 0.5},
		Providers: map[string]ProviderCredentials{
			"anthropic": {APIKey: "k", BaseURL: "https://anthropic.example.test", Timeout: 30 * time.Second},
		},
	}

	mc := cfg.DefaultModelConfig()
	assert.Equal(t, "anthropic", mc.Provider())
	assert.Equal(t, "claude-test", mc.ModelName())
	assert.Equal(t, "k", mc.APIKey())
	assert.Equal(t, "https://anthropic.example.test", mc.BaseURL())
	assert.Equal(t, 30*time.Second, mc.Timeout())
	assert.InDelta(t, 0.5, float64(mc.Temperature()), 1e-6)
}

func TestModelConfig_NoCredentials(t *testing.T) {
	cfg := Default()
	mc := cfg.ModelConfig("Gemini", "", 0)
	assert.Equal(t, "gemini", mc.Provider())
	assert.Empty(t, mc.ModelName())
	assert.NotContains(t, mc, "api_key")
	assert.NotContains(t, mc, "model_name")
}
