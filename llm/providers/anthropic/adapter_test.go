package anthropic

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

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	adapter, err := New(providers.ClaudeConfig{
		BaseConfig: providers.BaseConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return adapter
}

func messageJSON(text string) []byte {
	resp := claudeResponse{
		ID:      "msg_1",
		Type:    "message",
		Role:    "assistant",
		Content: []claudeContent{{Type: "text", Text: text}},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestNew_MissingKeyFails(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := New(providers.ClaudeConfig{}, zaptest.NewLogger(t))
	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, llm.ErrConstruction, le.Code)
	assert.Equal(t, "anthropic", le.Provider)
}

func TestNew_Defaults(t *testing.T) {
	adapter, err := New(providers.ClaudeConfig{
		BaseConfig: providers.BaseConfig{APIKey: "k"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, defaultModel, adapter.ModelDetails().ModelName)
	assert.Equal(t, defaultMaxTokens, adapter.maxTokens)
}

func TestGenerateText(t *testing.T) {
	var gotKey, gotVersion, gotPath string
	var gotReq claudeRequest
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write(messageJSON("claude says hi"))
	})

	text := adapter.GenerateText(context.Background(), llm.Text("hello"))
	assert.Equal(t, "claude says hi", text)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "claude-test", gotReq.Model)
	assert.Equal(t, defaultMaxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "hello", gotReq.Messages[0].Content[0].Text)
}

func TestGenerateText_ImageBlock(t *testing.T) {
	var gotReq claudeRequest
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write(messageJSON("seen"))
	})

	prompt := llm.Prompt{
		{Text: "what is this"},
		llm.Image("image/png", "cGlj"),
	}
	assert.Equal(t, "seen", adapter.GenerateText(context.Background(), prompt))

	content := gotReq.Messages[0].Content
	require.Len(t, content, 2)
	assert.Equal(t, "text", content[0].Type)
	assert.Equal(t, "image", content[1].Type)
	require.NotNil(t, content[1].Source)
	assert.Equal(t, "base64", content[1].Source.Type)
	assert.Equal(t, "image/png", content[1].Source.MediaType)
}

func TestGenerateText_DegradesToEmpty(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
	})
	assert.Empty(t, adapter.GenerateText(context.Background(), llm.Text("hello")))
}

func TestGenerateTextStream(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: message_start\n"))
		_, _ = w.Write([]byte(`data: {"type":"message_start"}` + "\n\n"))
		_, _ = w.Write([]byte(`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}` + "\n\n"))
		_, _ = w.Write([]byte(`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}` + "\n\n"))
		_, _ = w.Write([]byte(`data: {"type":"message_stop"}` + "\n\n"))
	})

	var got []string
	for fragment := range adapter.GenerateTextStream(context.Background(), llm.Text("hello")) {
		got = append(got, fragment)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestGenerateTextStream_StartFailureClosesImmediately(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	ch := adapter.GenerateTextStream(context.Background(), llm.Text("hello"))
	_, open := <-ch
	assert.False(t, open)
}

func TestChat_ReplaysHistory(t *testing.T) {
	var requests []claudeRequest
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		_, _ = w.Write(messageJSON("reply"))
	})

	chat, err := adapter.CreateChat(context.Background())
	require.NoError(t, err)
	chat.SendMessage(context.Background(), "one")
	chat.SendMessage(context.Background(), "two")

	require.Len(t, requests, 2)
	msgs := requests[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "user", msgs[2].Role)
}

func TestFromConfig_MaxTokens(t *testing.T) {
	model, err := FromConfig(llm.ModelConfig{
		"api_key":    "k",
		"max_tokens": float64(4096),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	adapter, ok := model.(*Adapter)
	require.True(t, ok)
	assert.Equal(t, 4096, adapter.maxTokens)
}
