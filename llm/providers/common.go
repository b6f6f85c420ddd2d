package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/modelflux/modelflux/llm"
)

// MapHTTPError maps an upstream HTTP status to an llm.Error with the
// appropriate retryability. Shared by every adapter.
func MapHTTPError(status int, msg, provider string) *llm.Error {
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{Code: llm.ErrUnauthorized, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusForbidden:
		return &llm.Error{Code: llm.ErrForbidden, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &llm.Error{Code: llm.ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusBadRequest:
		msgLower := strings.ToLower(msg)
		if strings.Contains(msgLower, "quota") ||
			strings.Contains(msgLower, "credit") ||
			strings.Contains(msgLower, "limit") {
			return &llm.Error{Code: llm.ErrQuotaExceeded, Message: msg, HTTPStatus: status, Provider: provider}
		}
		return &llm.Error{Code: llm.ErrInvalidRequest, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusGatewayTimeout:
		return &llm.Error{Code: llm.ErrUpstreamTimeout, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &llm.Error{Code: llm.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case 529: // model overloaded, used by some providers
		return &llm.Error{Code: llm.ErrModelOverloaded, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		return &llm.Error{Code: llm.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: status >= 500, Provider: provider}
	}
}

// ReadErrorMessage extracts the error message from an upstream response
// body, falling back to the raw text when it is not the common JSON shape.
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return string(data)
}

// OpenAI-compatible wire types, shared by OpenAI, DeepSeek, and every other
// provider that speaks the chat-completions dialect.

// CompatMessage is an OpenAI-compatible chat message. Content is a plain
// string for text-only messages and a []CompatContentPart when the message
// carries media.
type CompatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// CompatContentPart is one element of a structured message content array.
type CompatContentPart struct {
	Type     string          `json:"type"` // text, image_url
	Text     string          `json:"text,omitempty"`
	ImageURL *CompatImageURL `json:"image_url,omitempty"`
}

// CompatImageURL carries image content as a URL or data URL.
type CompatImageURL struct {
	URL string `json:"url"`
}

// CompatRequest is an OpenAI-compatible chat-completions request.
type CompatRequest struct {
	Model       string          `json:"model"`
	Messages    []CompatMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	TopP        float32         `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// CompatChoice is a single completion choice. Delta is set on stream chunks.
type CompatChoice struct {
	Index        int            `json:"index"`
	FinishReason string         `json:"finish_reason"`
	Message      CompatMessage  `json:"message"`
	Delta        *CompatMessage `json:"delta,omitempty"`
}

// CompatUsage reports token usage of a completion.
type CompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompatResponse is an OpenAI-compatible chat-completions response.
type CompatResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []CompatChoice `json:"choices"`
	Usage   *CompatUsage   `json:"usage,omitempty"`
	Created int64          `json:"created,omitempty"`
}

// MessageText returns the textual content of a CompatMessage, handling both
// the plain-string and the content-array encodings.
func MessageText(m CompatMessage) string {
	switch c := m.Content.(type) {
	case string:
		return c
	case []any:
		var out string
		for _, raw := range c {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := part["text"].(string); ok {
				out += t
			}
		}
		return out
	default:
		return ""
	}
}

// PromptToCompatMessage converts a prompt into a single user message,
// using the content-array encoding only when media parts are present.
// Inline data is carried as a data URL.
func PromptToCompatMessage(prompt llm.Prompt) CompatMessage {
	hasMedia := false
	for _, p := range prompt {
		if p.InlineData != nil {
			hasMedia = true
			break
		}
	}
	if !hasMedia {
		return CompatMessage{Role: string(llm.RoleUser), Content: prompt.Joined()}
	}

	parts := make([]CompatContentPart, 0, len(prompt))
	for _, p := range prompt {
		if p.InlineData != nil {
			parts = append(parts, CompatContentPart{
				Type: "image_url",
				ImageURL: &CompatImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", p.InlineData.MIMEType, p.InlineData.Data),
				},
			})
			continue
		}
		if p.Text != "" {
			parts = append(parts, CompatContentPart{Type: "text", Text: p.Text})
		}
	}
	return CompatMessage{Role: string(llm.RoleUser), Content: parts}
}

// TurnsToCompatMessages converts normalized chat turns into the
// OpenAI-compatible message encoding.
func TurnsToCompatMessages(turns []llm.Turn) []CompatMessage {
	out := make([]CompatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, CompatMessage{Role: string(t.Role), Content: t.Text})
	}
	return out
}

// ChooseModel picks the model for a request: configured default first,
// then the provider's fallback.
func ChooseModel(defaultModel, fallbackModel string) string {
	if defaultModel != "" {
		return defaultModel
	}
	return fallbackModel
}

// SafeCloseBody closes an HTTP response body, ignoring errors.
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
