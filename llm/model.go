package llm

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one normalized conversation turn. Provider-specific structured
// turn representations are flattened into role/text pairs.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// InlineData is raw media content embedded in a prompt part, base64 encoded.
type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Part is a single piece of prompt content, either text or inline media.
// Exactly one field should be set.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// Prompt is the input to a generation call: an ordered list of content
// parts. Most callers build one with Text.
type Prompt []Part

// Text builds a single-part text prompt.
func Text(s string) Prompt {
	return Prompt{{Text: s}}
}

// Image builds an inline-image part from base64-encoded data.
func Image(mimeType, base64Data string) Part {
	return Part{InlineData: &InlineData{MIMEType: mimeType, Data: base64Data}}
}

// Joined returns the concatenated text of all text parts. Media parts are
// skipped. Used for token estimation and client-side chat history.
func (p Prompt) Joined() string {
	var out string
	for _, part := range p {
		out += part.Text
	}
	return out
}

// Details is the side-effect-free introspection result of a model adapter.
type Details struct {
	Provider    string  `json:"provider"`
	ModelName   string  `json:"model_name"`
	Temperature float32 `json:"temperature"`
}

// Model is the uniform capability set every provider adapter satisfies.
//
// GenerateText and GenerateTextStream never surface errors: an upstream
// failure degrades to an empty string (or a closed channel) and is recorded
// as a log event, so best-effort generation pipelines keep running.
// CreateChat propagates failure, since requesting a chat that cannot be
// opened is a caller error that must be visible.
type Model interface {
	// GenerateText produces a single completion for the prompt.
	// Returns "" on any underlying failure.
	GenerateText(ctx context.Context, prompt Prompt) string

	// GenerateTextStream produces a finite, non-restartable sequence of
	// text fragments in emission order. The channel is closed immediately
	// on a start or mid-stream failure, after any fragments already
	// produced.
	GenerateTextStream(ctx context.Context, prompt Prompt) <-chan string

	// CreateChat opens a new multi-turn conversation bound to this
	// adapter's configured model.
	CreateChat(ctx context.Context) (ChatSession, error)

	// ModelDetails reports the adapter's provider, model name, and
	// temperature. Pure; no remote calls.
	ModelDetails() Details
}

// ChatSession is an ordered, append-only conversation owned by one Model.
// Implementations are not safe for concurrent SendMessage calls.
type ChatSession interface {
	// ID returns a stable identifier for log correlation.
	ID() string

	// SendMessage appends the caller turn and the model turn and returns
	// the model's reply. Returns "" on failure; nothing is appended.
	SendMessage(ctx context.Context, text string) string

	// History returns a snapshot of the conversation so far.
	History() []Turn
}
