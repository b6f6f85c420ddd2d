package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	modelRouterFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_router_fallbacks_total",
			Help: "Total router fallbacks to the default model, by reason.",
		},
		[]string{"reason"},
	)
	modelConstructionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_model_construction_failures_total",
			Help: "Total adapter construction failures.",
		},
		[]string{"provider"},
	)
	modelGenerationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_generation_failures_total",
			Help: "Total generation and chat failures degraded to empty results.",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		modelRouterFallbacksTotal,
		modelConstructionFailuresTotal,
		modelGenerationFailuresTotal,
	)
}

const (
	fallbackUnknownName     = "unknown_name"
	fallbackUnknownProvider = "unknown_provider"
	fallbackInvalidRef      = "invalid_ref"
	fallbackConstruction    = "construction"
)

func observeRouterFallback(reason string) {
	modelRouterFallbacksTotal.WithLabelValues(reason).Inc()
}

func observeConstructionFailure(provider string) {
	if provider == "" {
		provider = "unknown"
	}
	modelConstructionFailuresTotal.WithLabelValues(provider).Inc()
}

// RecordGenerationFailure is the single place the degrade-to-empty policy
// reports through. Adapters call it before returning an empty result so the
// failure is visible in logs and metrics even though it never reaches the
// caller.
func RecordGenerationFailure(logger *zap.Logger, provider, model string, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Warn("generation failed, degrading to empty result",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Error(err),
	)
	if provider == "" {
		provider = "unknown"
	}
	modelGenerationFailuresTotal.WithLabelValues(provider).Inc()
}
