// Package anthropic implements the adapter for the Anthropic messages API.
//
// Differences from the OpenAI dialect: authentication uses the x-api-key
// and anthropic-version headers, message content is an array of typed
// blocks, max_tokens is mandatory, and the SSE stream carries typed events
// (content_block_delta and friends) rather than chat-completion chunks.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelflux/modelflux/internal/tlsutil"
	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/providers"
	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1024
	apiVersion       = "2023-06-01"
	apiKeyEnvVar     = "ANTHROPIC_API_KEY"
)

// Adapter is the Anthropic Claude model adapter.
type Adapter struct {
	cfg       providers.ClaudeConfig
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	logger    *zap.Logger
}

// New creates an Anthropic adapter. Fails when no API key can be resolved
// from the config or ANTHROPIC_API_KEY.
func New(cfg providers.ClaudeConfig, logger *zap.Logger) (*Adapter, error) {
	apiKey, err := providers.ResolveAPIKey(cfg.APIKey, apiKeyEnvVar, "anthropic")
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Claude responses can be slow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Adapter{
		cfg:       cfg,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    tlsutil.SecureHTTPClient(timeout),
		logger:    logger,
	}, nil
}

// FromConfig is the registry constructor for the "anthropic" provider key.
func FromConfig(cfg llm.ModelConfig, logger *zap.Logger) (llm.Model, error) {
	cc := providers.ClaudeConfig{BaseConfig: providers.BaseFromModelConfig(cfg)}
	switch v := cfg["max_tokens"].(type) {
	case int:
		cc.MaxTokens = v
	case float64:
		cc.MaxTokens = int(v)
	}
	return New(cc, logger)
}

// Claude wire types.

type claudeMessage struct {
	Role    string          `json:"role"` // user or assistant
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string        `json:"type"` // text, image
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"` // base64
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type claudeResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []claudeContent `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
}

type claudeStreamEvent struct {
	Type  string       `json:"type"` // message_start, content_block_delta, message_stop, ...
	Index int          `json:"index,omitempty"`
	Delta *claudeDelta `json:"delta,omitempty"`
}

type claudeDelta struct {
	Type string `json:"type"` // text_delta
	Text string `json:"text,omitempty"`
}

type claudeErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (a *Adapter) endpoint() string {
	return fmt.Sprintf("%s/v1/messages", strings.TrimRight(a.cfg.BaseURL, "/"))
}

func promptToMessages(prompt llm.Prompt) []claudeMessage {
	content := make([]claudeContent, 0, len(prompt))
	for _, p := range prompt {
		if p.InlineData != nil {
			content = append(content, claudeContent{
				Type: "image",
				Source: &claudeSource{
					Type:      "base64",
					MediaType: p.InlineData.MIMEType,
					Data:      p.InlineData.Data,
				},
			})
			continue
		}
		if p.Text != "" {
			content = append(content, claudeContent{Type: "text", Text: p.Text})
		}
	}
	return []claudeMessage{{Role: "user", Content: content}}
}

func turnsToMessages(turns []llm.Turn) []claudeMessage {
	out := make([]claudeMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, claudeMessage{
			Role:    string(t.Role),
			Content: []claudeContent{{Type: "text", Text: t.Text}},
		})
	}
	return out
}

func responseText(r claudeResponse) string {
	var out string
	for _, c := range r.Content {
		if c.Type == "text" {
			out += c.Text
		}
	}
	return out
}

func (a *Adapter) request(messages []claudeMessage, stream bool) claudeRequest {
	return claudeRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.cfg.Temperature,
		Stream:      stream,
	}
}

// complete is the wire call shared by GenerateText and the chat session.
func (a *Adapter) complete(ctx context.Context, messages []claudeMessage) (string, error) {
	payload, err := json.Marshal(a.request(messages, false))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	a.buildHeaders(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: "anthropic",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "anthropic")
	}

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: "anthropic",
		}
	}
	return responseText(cr), nil
}

// GenerateText produces a completion for the prompt. Returns "" on any
// underlying failure.
func (a *Adapter) GenerateText(ctx context.Context, prompt llm.Prompt) string {
	a.logger.Debug("generate",
		zap.String("provider", "anthropic"),
		zap.String("model", a.model),
		zap.Int("est_prompt_tokens", providers.EstimateTokens(a.model, prompt.Joined())),
	)
	text, err := a.complete(ctx, promptToMessages(prompt))
	if err != nil {
		llm.RecordGenerationFailure(a.logger, "anthropic", a.model, err)
		return ""
	}
	return text
}

// GenerateTextStream produces a stream of text fragments from the SSE
// event stream. A start failure yields an immediately closed channel; a
// mid-stream failure closes the channel after the fragments already
// produced.
func (a *Adapter) GenerateTextStream(ctx context.Context, prompt llm.Prompt) <-chan string {
	closed := func(err error) <-chan string {
		llm.RecordGenerationFailure(a.logger, "anthropic", a.model, err)
		ch := make(chan string)
		close(ch)
		return ch
	}

	payload, err := json.Marshal(a.request(promptToMessages(prompt), true))
	if err != nil {
		return closed(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return closed(err)
	}
	a.buildHeaders(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return closed(err)
	}
	if resp.StatusCode >= 400 {
		defer providers.SafeCloseBody(resp.Body)
		return closed(providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "anthropic"))
	}

	ch := make(chan string)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					a.logger.Warn("stream terminated",
						zap.String("provider", "anthropic"),
						zap.Error(err))
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var event claudeStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}
			switch event.Type {
			case "message_stop":
				return
			case "content_block_delta":
				if event.Delta == nil || event.Delta.Text == "" {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case ch <- event.Delta.Text:
				}
			}
		}
	}()
	return ch
}

// CreateChat opens a chat session bound to this adapter's configured model.
func (a *Adapter) CreateChat(ctx context.Context) (llm.ChatSession, error) {
	_ = ctx
	return providers.NewChat("anthropic", a.model, a.completeTurns, a.logger), nil
}

func (a *Adapter) completeTurns(ctx context.Context, turns []llm.Turn) (string, error) {
	return a.complete(ctx, turnsToMessages(turns))
}

// ModelDetails reports provider, model, and temperature.
func (a *Adapter) ModelDetails() llm.Details {
	return llm.Details{
		Provider:    "anthropic",
		ModelName:   a.model,
		Temperature: a.cfg.Temperature,
	}
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp claudeErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return string(data)
}
