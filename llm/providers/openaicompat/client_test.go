package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelflux/modelflux/llm"
	"github.com/modelflux/modelflux/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		ProviderName: "testprov",
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		DefaultModel: "test-model",
	}, zaptest.NewLogger(t))
}

func completionJSON(text string) string {
	resp := providers.CompatResponse{
		ID: "cmpl-1",
		Choices: []providers.CompatChoice{
			{Message: providers.CompatMessage{Role: "assistant", Content: text}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestClient_Complete(t *testing.T) {
	var gotReq providers.CompatRequest
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("the answer")))
	})

	text, err := client.Complete(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "question"}}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "the answer", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "question", gotReq.Messages[0].Content)
}

func TestClient_CompleteMapsUpstreamErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	})

	_, err := client.Complete(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "q"}}, 0)
	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, llm.ErrRateLimited, le.Code)
	assert.True(t, le.Retryable)
	assert.Equal(t, "testprov", le.Provider)
	assert.Contains(t, le.Message, "rate limit reached")
}

func TestClient_CompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cmpl-1","choices":[]}`))
	})

	_, err := client.Complete(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "q"}}, 0)
	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, llm.ErrUpstreamError, le.Code)
}

func TestClient_CompleteConnectionRefused(t *testing.T) {
	client := NewClient(Config{
		ProviderName: "testprov",
		APIKey:       "k",
		BaseURL:      "http://127.0.0.1:1",
		DefaultModel: "m",
	}, zaptest.NewLogger(t))

	_, err := client.Complete(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "q"}}, 0)
	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, llm.ErrUpstreamError, le.Code)
	assert.True(t, le.Retryable)
}

func streamChunk(text string) string {
	resp := providers.CompatResponse{
		Choices: []providers.CompatChoice{
			{Delta: &providers.CompatMessage{Content: text}},
		},
	}
	data, _ := json.Marshal(resp)
	return "data: " + string(data) + "\n\n"
}

func TestClient_Stream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req providers.CompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(streamChunk("Hel")))
		_, _ = w.Write([]byte(streamChunk("lo")))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	})

	ch, err := client.Stream(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "q"}}, 0)
	require.NoError(t, err)

	var got []string
	for fragment := range ch {
		got = append(got, fragment)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestClient_StreamStartFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := client.Stream(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "q"}}, 0)
	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, llm.ErrUnauthorized, le.Code)
}

func TestClient_StreamMidStreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(streamChunk("partial")))
		flusher.Flush()
		_, _ = w.Write([]byte("data: {not json\n\n"))
		flusher.Flush()
		_, _ = w.Write([]byte(streamChunk("never delivered")))
	})

	ch, err := client.Stream(context.Background(),
		[]providers.CompatMessage{{Role: "user", Content: "q"}}, 0)
	require.NoError(t, err)

	var got []string
	for fragment := range ch {
		got = append(got, fragment)
	}
	assert.Equal(t, []string{"partial"}, got)
}

func TestClient_ModelFallback(t *testing.T) {
	c := NewClient(Config{DefaultModel: "configured", FallbackModel: "fallback"}, nil)
	assert.Equal(t, "configured", c.Model())

	c = NewClient(Config{FallbackModel: "fallback"}, nil)
	assert.Equal(t, "fallback", c.Model())
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, nil)
	assert.Equal(t, "/v1/chat/completions", c.Cfg.EndpointPath)
	assert.NotNil(t, c.HTTPClient)
	assert.NotNil(t, c.Logger)
}
