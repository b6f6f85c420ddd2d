package llm

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type refKind int

const (
	refInvalid refKind = iota
	refByName
	refByConfig
)

// ModelRef is a model request: either the name of a registered instance or
// an ad-hoc configuration. The zero value is invalid and resolves to the
// default model.
type ModelRef struct {
	kind refKind
	name string
	cfg  ModelConfig
}

// ByName requests a previously registered model instance.
func ByName(name string) ModelRef {
	return ModelRef{kind: refByName, name: name}
}

// ByConfig requests a fresh adapter constructed from the given config.
func ByConfig(cfg ModelConfig) ModelRef {
	return ModelRef{kind: refByConfig, cfg: cfg}
}

// ModelInfo describes one entry of ListAvailableModels: either a registered
// instance (with live details) or a registered provider with no instance.
type ModelInfo struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	ModelName string  `json:"model_name,omitempty"`
	Details   Details `json:"details"`
}

// Router resolves model requests to concrete adapters. It owns two
// registries, name→instance and provider→constructor, plus one lazily
// constructed default instance. All three are guarded by a mutex; a single
// long-lived Router per process is the expected usage.
type Router struct {
	mu           sync.Mutex
	models       map[string]Model
	order        []string
	classes      map[string]Constructor
	defaultCfg   ModelConfig
	defaultModel Model
	logger       *zap.Logger
}

// NewRouter creates a Router with empty registries. defaultCfg drives the
// lazily constructed default model; when nil, the baseline provider with
// the hard-coded default model name is used. Constructors are registered
// separately (see RegisterModelClass and the factory package).
func NewRouter(defaultCfg ModelConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCfg == nil {
		defaultCfg = ModelConfig{
			"provider":    DefaultProvider,
			"model_name":  DefaultModelName,
			"temperature": float32(0),
		}
	}
	return &Router{
		models:     make(map[string]Model),
		classes:    make(map[string]Constructor),
		defaultCfg: defaultCfg,
		logger:     logger,
	}
}

// RegisterModel registers a live instance under a name, overwriting any
// previous registration of the same name.
func (r *Router) RegisterModel(name string, m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[name]; !exists {
		r.order = append(r.order, name)
	}
	r.models[name] = m
	r.logger.Info("registered model", zap.String("name", name))
}

// RegisterModelClass registers a constructor for a provider, overwriting
// any previous registration. Provider keys are case-normalized, so new
// providers can be added without touching the router.
func (r *Router) RegisterModelClass(provider string, ctor Constructor) {
	provider = strings.ToLower(provider)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[provider] = ctor
	r.logger.Info("registered model class", zap.String("provider", provider))
}

// GetModel resolves a ModelRef to a live adapter. An unknown name or an
// invalid ref logs and falls back to the default model rather than failing;
// a config ref constructs a fresh adapter. The returned error is non-nil
// only when the last-resort fallback construction fails.
func (r *Router) GetModel(ref ModelRef) (Model, error) {
	switch ref.kind {
	case refByName:
		r.mu.Lock()
		m, ok := r.models[ref.name]
		r.mu.Unlock()
		if ok {
			return m, nil
		}
		r.logger.Warn("model not registered, using default",
			zap.String("name", ref.name))
		observeRouterFallback(fallbackUnknownName)
		return r.GetDefaultModel()
	case refByConfig:
		return r.createModelFromConfig(ref.cfg)
	default:
		r.logger.Error("invalid model reference, using default")
		observeRouterFallback(fallbackInvalidRef)
		return r.GetDefaultModel()
	}
}

// GetDefaultModel returns the memoized default instance, constructing it
// from the router's default config on first call. Subsequent calls return
// the same instance.
func (r *Router) GetDefaultModel() (Model, error) {
	r.mu.Lock()
	if r.defaultModel != nil {
		m := r.defaultModel
		r.mu.Unlock()
		return m, nil
	}
	cfg := r.defaultCfg
	r.mu.Unlock()

	m, err := r.createModelFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.defaultModel == nil {
		r.defaultModel = m
	}
	m = r.defaultModel
	r.mu.Unlock()
	return m, nil
}

// SelectModelForTask selects a model for a task description. Non-nil
// requirements always construct a fresh instance; otherwise the default
// model is returned.
//
// task is currently advisory only: no routing logic keys off its content.
// It is kept as an extension point for capability-based selection.
func (r *Router) SelectModelForTask(task string, requirements ModelConfig) (Model, error) {
	_ = task
	if requirements != nil {
		return r.createModelFromConfig(requirements)
	}
	return r.GetDefaultModel()
}

// createModelFromConfig constructs an adapter from config. Unknown
// providers are forced to the baseline; a missing credential is a logged
// warning deferred to construction time; a construction failure triggers
// one last-resort baseline construction before the final ErrConfig.
func (r *Router) createModelFromConfig(cfg ModelConfig) (Model, error) {
	provider := cfg.Provider()
	if provider == "" {
		provider = DefaultProvider
	}

	r.mu.Lock()
	ctor, known := r.classes[provider]
	baseline := r.classes[DefaultProvider]
	r.mu.Unlock()

	if !known {
		r.logger.Error("unknown model provider, using baseline",
			zap.String("provider", provider),
			zap.String("baseline", DefaultProvider))
		observeRouterFallback(fallbackUnknownProvider)
		provider = DefaultProvider
		ctor = baseline
	}
	if ctor == nil {
		return nil, &Error{
			Code:    ErrConfig,
			Message: fmt.Sprintf("no constructor registered for provider %q", provider),
		}
	}

	// Non-fatal: construction may still resolve a credential from the
	// environment, and if it cannot, it fails loudly there.
	if cfg.APIKey() == "" {
		r.logger.Error("no api_key in config, deferring to construction",
			zap.String("provider", provider))
	}

	m, err := ctor(cfg.WithoutProvider(), r.logger)
	if err == nil {
		return m, nil
	}

	r.logger.Error("model construction failed, attempting baseline fallback",
		zap.String("provider", provider),
		zap.Error(err))
	observeConstructionFailure(provider)
	observeRouterFallback(fallbackConstruction)

	if baseline == nil {
		return nil, &Error{
			Code:    ErrConfig,
			Message: fmt.Sprintf("failed to create model for provider %q: %v (no baseline registered)", provider, err),
		}
	}
	fallback, ferr := baseline(ModelConfig{"model_name": DefaultModelName}, r.logger)
	if ferr != nil {
		observeConstructionFailure(DefaultProvider)
		return nil, &Error{
			Code:     ErrConfig,
			Message:  fmt.Sprintf("failed to create model: %v (baseline fallback: %v)", err, ferr),
			Provider: provider,
		}
	}
	return fallback, nil
}

// ListAvailableModels describes every registered instance, in registration
// order, followed by every registered provider not already represented
// among the instances' provider details.
func (r *Router) ListAvailableModels() []ModelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]ModelInfo, 0, len(r.order)+len(r.classes))
	seen := make(map[string]bool, len(r.order))
	for _, name := range r.order {
		m := r.models[name]
		details := m.ModelDetails()
		infos = append(infos, ModelInfo{
			Name:      name,
			Type:      fmt.Sprintf("%T", m),
			ModelName: details.ModelName,
			Details:   details,
		})
		seen[details.Provider] = true
	}

	providers := make([]string, 0, len(r.classes))
	for provider := range r.classes {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	for _, provider := range providers {
		if seen[provider] {
			continue
		}
		infos = append(infos, ModelInfo{
			Name:    provider,
			Type:    constructorName(r.classes[provider]),
			Details: Details{Provider: provider},
		})
	}
	return infos
}

// constructorName reports a short, human-readable name for a registered
// constructor, e.g. "openai.FromConfig".
func constructorName(ctor Constructor) string {
	if ctor == nil {
		return ""
	}
	full := runtime.FuncForPC(reflect.ValueOf(ctor).Pointer()).Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return full
}
