package openaicompat

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

// Config holds the wire-level configuration of an OpenAI-compatible client.
type Config struct {
	// ProviderName is the unique identifier for this provider
	// (e.g. "openai", "deepseek").
	ProviderName string

	// APIKey authenticates against the provider's API.
	APIKey string

	// BaseURL is the API base (e.g. "https://api.deepseek.com").
	BaseURL string

	// DefaultModel is used when the adapter was configured without one.
	DefaultModel string

	// FallbackModel is used when DefaultModel is also empty.
	FallbackModel string

	// Timeout is the HTTP client timeout. Defaults to 30s when zero.
	Timeout time.Duration

	// EndpointPath is the chat-completions path.
	// Defaults to "/v1/chat/completions".
	EndpointPath string

	// BuildHeaders optionally sets custom headers per request. When nil,
	// the standard "Authorization: Bearer <apiKey>" header is used.
	BuildHeaders func(req *http.Request, apiKey string)
}

// Client is the wire layer for OpenAI-compatible chat completions.
type Client struct {
	Cfg        Config
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a Client with defaults applied.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Cfg:        cfg,
		HTTPClient: tlsutil.SecureHTTPClient(timeout),
		Logger:     logger,
	}
}

func (c *Client) buildHeaders(req *http.Request, apiKey string) {
	if c.Cfg.BuildHeaders != nil {
		c.Cfg.BuildHeaders(req, apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s%s", strings.TrimRight(c.Cfg.BaseURL, "/"), c.Cfg.EndpointPath)
}

// Model resolves the model name for requests.
func (c *Client) Model() string {
	return providers.ChooseModel(c.Cfg.DefaultModel, c.Cfg.FallbackModel)
}

// Complete performs a non-streaming chat completion and returns the first
// choice's text.
func (c *Client) Complete(ctx context.Context, messages []providers.CompatMessage, temperature float32) (string, error) {
	body := providers.CompatRequest{
		Model:       c.Model(),
		Messages:    messages,
		Temperature: temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq, c.Cfg.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: c.Cfg.ProviderName,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return "", providers.MapHTTPError(resp.StatusCode, msg, c.Cfg.ProviderName)
	}

	var oaResp providers.CompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: c.Cfg.ProviderName,
		}
	}
	if len(oaResp.Choices) == 0 {
		return "", &llm.Error{
			Code: llm.ErrUpstreamError, Message: "response contained no choices",
			HTTPStatus: http.StatusBadGateway, Provider: c.Cfg.ProviderName,
		}
	}
	return providers.MessageText(oaResp.Choices[0].Message), nil
}

// Stream performs a streaming chat completion. The returned channel yields
// text fragments in emission order and is closed on [DONE], on context
// cancellation, or on any failure after the fragments already produced.
// A start failure is returned as an error instead.
func (c *Client) Stream(ctx context.Context, messages []providers.CompatMessage, temperature float32) (<-chan string, error) {
	body := providers.CompatRequest{
		Model:       c.Model(),
		Messages:    messages,
		Temperature: temperature,
		Stream:      true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq, c.Cfg.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: c.Cfg.ProviderName,
		}
	}
	if resp.StatusCode >= 400 {
		defer providers.SafeCloseBody(resp.Body)
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, c.Cfg.ProviderName)
	}

	return streamSSE(ctx, resp.Body, c.Cfg.ProviderName, c.Logger), nil
}

// streamSSE parses an OpenAI-compatible SSE stream into text fragments.
// Mid-stream failures are logged and terminate the channel; they carry no
// error value because the stream contract degrades rather than propagates.
func streamSSE(ctx context.Context, body io.ReadCloser, providerName string, logger *zap.Logger) <-chan string {
	ch := make(chan string)
	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					logger.Warn("stream terminated",
						zap.String("provider", providerName),
						zap.Error(err))
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp providers.CompatResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				logger.Warn("stream chunk unparseable, terminating",
					zap.String("provider", providerName),
					zap.Error(err))
				return
			}

			for _, choice := range oaResp.Choices {
				if choice.Delta == nil {
					continue
				}
				fragment := providers.MessageText(*choice.Delta)
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
