package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// Resolution must be case-insensitive over provider keys: registering a
// provider under any casing and requesting it under any other casing
// yields an instance of that provider.
func TestRouterResolution_CaseInsensitive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9_-]{0,15}`).Draw(rt, "provider")

		r := NewRouter(nil, zap.NewNop())
		r.RegisterModelClass(DefaultProvider, stubConstructor(DefaultProvider))
		r.RegisterModelClass(name, stubConstructor(strings.ToLower(name)))

		requested := name
		if rapid.Bool().Draw(rt, "upper") {
			requested = strings.ToUpper(name)
		}
		m, err := r.createModelFromConfig(ModelConfig{"provider": requested})
		require.NoError(rt, err)
		assert.Equal(rt, strings.ToLower(name), m.ModelDetails().Provider)
	})
}

// Any unknown registered name resolves to the one memoized default
// instance, never to a fresh construction and never to an error.
func TestRouterResolution_UnknownNamesShareDefault(t *testing.T) {
	r := NewRouter(nil, zap.NewNop())
	r.RegisterModelClass(DefaultProvider, stubConstructor(DefaultProvider))
	def, err := r.GetDefaultModel()
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[a-z0-9 ._-]{1,32}`).Draw(rt, "name")
		m, err := r.GetModel(ByName(name))
		require.NoError(rt, err)
		assert.Same(rt, def, m)
	})
}

// Unknown providers always silently substitute the baseline, regardless of
// the rest of the config.
func TestRouterResolution_UnknownProviderSubstitutesBaseline(t *testing.T) {
	r := NewRouter(nil, zap.NewNop())
	r.RegisterModelClass(DefaultProvider, stubConstructor(DefaultProvider))

	rapid.Check(t, func(rt *rapid.T) {
		provider := rapid.StringMatching(`[a-z]{1,12}`).
			Filter(func(s string) bool { return s != DefaultProvider }).
			Draw(rt, "provider")
		model := rapid.StringMatching(`[a-z0-9-]{0,16}`).Draw(rt, "model")

		m, err := r.createModelFromConfig(ModelConfig{
			"provider":   provider,
			"model_name": model,
		})
		require.NoError(rt, err)
		assert.Equal(rt, DefaultProvider, m.ModelDetails().Provider)
	})
}
