package providers

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelflux/modelflux/llm"
	"go.uber.org/zap"
)

// CompleteFunc produces the model's reply for a full conversation history.
// Provider adapters supply one when opening a chat.
type CompleteFunc func(ctx context.Context, turns []llm.Turn) (string, error)

// Chat is the client-side chat session shared by all adapters. The wire
// protocols here are stateless, so the session keeps the history locally
// and replays it on every send.
//
// Not safe for concurrent SendMessage calls.
type Chat struct {
	id       string
	provider string
	model    string
	logger   *zap.Logger
	complete CompleteFunc
	turns    []llm.Turn
}

// NewChat opens a client-side chat session.
func NewChat(provider, model string, complete CompleteFunc, logger *zap.Logger) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		id:       uuid.NewString(),
		provider: provider,
		model:    model,
		logger:   logger,
		complete: complete,
	}
}

// ID returns the session identifier.
func (c *Chat) ID() string { return c.id }

// SendMessage sends text as the next user turn and returns the model's
// reply. On success both turns are appended to the history; on failure the
// history is left untouched and "" is returned.
func (c *Chat) SendMessage(ctx context.Context, text string) string {
	turns := make([]llm.Turn, len(c.turns), len(c.turns)+1)
	copy(turns, c.turns)
	turns = append(turns, llm.Turn{Role: llm.RoleUser, Text: text})

	reply, err := c.complete(ctx, turns)
	if err != nil {
		llm.RecordGenerationFailure(c.logger.With(zap.String("chat_id", c.id)), c.provider, c.model, err)
		return ""
	}

	c.turns = append(c.turns,
		llm.Turn{Role: llm.RoleUser, Text: text},
		llm.Turn{Role: llm.RoleAssistant, Text: reply},
	)
	return reply
}

// History returns a snapshot of the conversation so far.
func (c *Chat) History() []llm.Turn {
	out := make([]llm.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}
