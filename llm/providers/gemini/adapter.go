// Package gemini implements the adapter for the Google Gemini API.
//
// Gemini differs from the OpenAI dialect in every way that matters here:
// authentication uses the x-goog-api-key header, the assistant role is
// named "model", content is a parts array with native inlineData support,
// and streaming emits one JSON object per line rather than SSE.
package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
	apiKeyEnvVar   = "GEMINI_API_KEY"
)

// Adapter is the Gemini model adapter.
type Adapter struct {
	cfg    providers.GeminiConfig
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini adapter. Fails when no API key can be resolved from
// the config or GEMINI_API_KEY.
func New(cfg providers.GeminiConfig, logger *zap.Logger) (*Adapter, error) {
	apiKey, err := providers.ResolveAPIKey(cfg.APIKey, apiKeyEnvVar, "gemini")
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Adapter{
		cfg:    cfg,
		apiKey: apiKey,
		model:  model,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger,
	}, nil
}

// FromConfig is the registry constructor for the "gemini" provider key.
func FromConfig(cfg llm.ModelConfig, logger *zap.Logger) (llm.Model, error) {
	return New(providers.GeminiConfig{BaseConfig: providers.BaseFromModelConfig(cfg)}, logger)
}

// Gemini wire types.

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiGenerationConfig struct {
	Temperature float32 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	ResponseID string            `json:"responseId,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (a *Adapter) buildHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", a.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (a *Adapter) endpoint(method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", strings.TrimRight(a.cfg.BaseURL, "/"), a.model, method)
}

func promptToContents(prompt llm.Prompt) []geminiContent {
	parts := make([]geminiPart, 0, len(prompt))
	for _, p := range prompt {
		if p.InlineData != nil {
			parts = append(parts, geminiPart{
				InlineData: &geminiInlineData{
					MimeType: p.InlineData.MIMEType,
					Data:     p.InlineData.Data,
				},
			})
			continue
		}
		if p.Text != "" {
			parts = append(parts, geminiPart{Text: p.Text})
		}
	}
	return []geminiContent{{Role: "user", Parts: parts}}
}

// turnsToContents maps normalized turns to Gemini contents. Gemini names
// the assistant role "model".
func turnsToContents(turns []llm.Turn) []geminiContent {
	out := make([]geminiContent, 0, len(turns))
	for _, t := range turns {
		role := string(t.Role)
		if t.Role == llm.RoleAssistant {
			role = "model"
		}
		out = append(out, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: t.Text}},
		})
	}
	return out
}

func candidateText(c geminiCandidate) string {
	var out string
	for _, part := range c.Content.Parts {
		out += part.Text
	}
	return out
}

func (a *Adapter) generationConfig() *geminiGenerationConfig {
	if a.cfg.Temperature == 0 {
		return nil
	}
	return &geminiGenerationConfig{Temperature: a.cfg.Temperature}
}

// generateContent is the wire call shared by GenerateText and the chat
// session.
func (a *Adapter) generateContent(ctx context.Context, contents []geminiContent) (string, error) {
	body := geminiRequest{
		Contents:         contents,
		GenerationConfig: a.generationConfig(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("generateContent"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	a.buildHeaders(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: "gemini",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "gemini")
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: "gemini",
		}
	}
	if len(gr.Candidates) == 0 {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: "response contained no candidates",
			HTTPStatus: http.StatusBadGateway, Provider: "gemini",
		}
	}
	return candidateText(gr.Candidates[0]), nil
}

// GenerateText produces a completion for the prompt. Returns "" on any
// underlying failure.
func (a *Adapter) GenerateText(ctx context.Context, prompt llm.Prompt) string {
	a.logger.Debug("generate",
		zap.String("provider", "gemini"),
		zap.String("model", a.model),
		zap.Int("est_prompt_tokens", providers.EstimateTokens(a.model, prompt.Joined())),
	)
	text, err := a.generateContent(ctx, promptToContents(prompt))
	if err != nil {
		llm.RecordGenerationFailure(a.logger, "gemini", a.model, err)
		return ""
	}
	return text
}

// GenerateTextStream produces a stream of text fragments via
// streamGenerateContent, which emits one JSON object per line. A start
// failure yields an immediately closed channel; a mid-stream failure
// closes the channel after the fragments already produced.
func (a *Adapter) GenerateTextStream(ctx context.Context, prompt llm.Prompt) <-chan string {
	closed := func(err error) <-chan string {
		llm.RecordGenerationFailure(a.logger, "gemini", a.model, err)
		ch := make(chan string)
		close(ch)
		return ch
	}

	body := geminiRequest{
		Contents:         promptToContents(prompt),
		GenerationConfig: a.generationConfig(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return closed(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("streamGenerateContent"), bytes.NewReader(payload))
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
		return closed(providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "gemini"))
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
						zap.String("provider", "gemini"),
						zap.Error(err))
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			var gr geminiResponse
			if err := json.Unmarshal([]byte(line), &gr); err != nil {
				continue
			}
			for _, candidate := range gr.Candidates {
				fragment := candidateText(candidate)
				if fragment == "" {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case ch <- fragment:
				}
			}
		}
	}()
	return ch
}

// CreateChat opens a chat session bound to this adapter's configured model.
func (a *Adapter) CreateChat(ctx context.Context) (llm.ChatSession, error) {
	_ = ctx
	return providers.NewChat("gemini", a.model, a.completeTurns, a.logger), nil
}

func (a *Adapter) completeTurns(ctx context.Context, turns []llm.Turn) (string, error) {
	return a.generateContent(ctx, turnsToContents(turns))
}

// ModelDetails reports provider, model, and temperature.
func (a *Adapter) ModelDetails() llm.Details {
	return llm.Details{
		Provider:    "gemini",
		ModelName:   a.model,
		Temperature: a.cfg.Temperature,
	}
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp geminiErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status)
	}
	return string(data)
}
