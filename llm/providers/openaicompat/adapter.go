package openaicompat

import (
	"context"

	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/providers"
	"go.uber.org/zap"
)

// Adapter implements llm.Model on top of Client for any OpenAI-compatible
// provider. Provider packages embed it and supply their own constructors.
type Adapter struct {
	client      *Client
	temperature float32
	logger      *zap.Logger
}

// NewAdapter wraps a Client in the uniform capability surface.
func NewAdapter(client *Client, temperature float32) *Adapter {
	return &Adapter{
		client:      client,
		temperature: temperature,
		logger:      client.Logger,
	}
}

// Client exposes the wire layer, mainly for tests and embedders.
func (a *Adapter) Client() *Client { return a.client }

// GenerateText produces a completion for the prompt. Returns "" on any
// underlying failure.
func (a *Adapter) GenerateText(ctx context.Context, prompt llm.Prompt) string {
	model := a.client.Model()
	a.logger.Debug("generate",
		zap.String("provider", a.client.Cfg.ProviderName),
		zap.String("model", model),
		zap.Int("est_prompt_tokens", providers.EstimateTokens(model, prompt.Joined())),
	)

	text, err := a.client.Complete(ctx, []providers.CompatMessage{providers.PromptToCompatMessage(prompt)}, a.temperature)
	if err != nil {
		llm.RecordGenerationFailure(a.logger, a.client.Cfg.ProviderName, model, err)
		return ""
	}
	return text
}

// GenerateTextStream produces a stream of text fragments. A start failure
// yields an immediately closed channel; a mid-stream failure closes the
// channel after the fragments already produced.
func (a *Adapter) GenerateTextStream(ctx context.Context, prompt llm.Prompt) <-chan string {
	ch, err := a.client.Stream(ctx, []providers.CompatMessage{providers.PromptToCompatMessage(prompt)}, a.temperature)
	if err != nil {
		llm.RecordGenerationFailure(a.logger, a.client.Cfg.ProviderName, a.client.Model(), err)
		closed := make(chan string)
		close(closed)
		return closed
	}
	return ch
}

// CreateChat opens a client-side chat session bound to this adapter's
// configured model.
func (a *Adapter) CreateChat(ctx context.Context) (llm.ChatSession, error) {
	_ = ctx
	return providers.NewChat(a.client.Cfg.ProviderName, a.client.Model(), a.completeTurns, a.logger), nil
}

func (a *Adapter) completeTurns(ctx context.Context, turns []llm.Turn) (string, error) {
	return a.client.Complete(ctx, providers.TurnsToCompatMessages(turns), a.temperature)
}

// ModelDetails reports provider, model, and temperature.
func (a *Adapter) ModelDetails() llm.Details {
	return llm.Details{
		Provider:    a.client.Cfg.ProviderName,
		ModelName:   a.client.Model(),
		Temperature: a.temperature,
	}
}
