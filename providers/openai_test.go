package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIServer(t *testing.T, status int, respBody string, capture *http.Request, captureBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = *r
		}
		if captureBody != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captureBody))
		}
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
}

func TestOpenAIAdapter_GenerateText(t *testing.T) {
	const ok = `{"choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`

	t.Run("request shape and bearer auth", func(t *testing.T) {
		var captured http.Request
		var body map[string]any
		server := openAIServer(t, 200, ok, &captured, &body)
		defer server.Close()

		adapter := NewOpenAI("gpt-4o-mini", server.URL, "sk-test")
		resp, err := adapter.GenerateText(context.Background(), &Request{
			Prompt:       "hi",
			SystemPrompt: "be brief",
			FewShot:      []Message{{Role: RoleUser, Text: "a"}, {Role: RoleAssistant, Text: "b"}},
			Settings:     Settings{Temperature: 0.5, MaxTokens: 100},
		})
		require.NoError(t, err)

		assert.Equal(t, "/chat/completions", captured.URL.Path)
		assert.Equal(t, "Bearer sk-test", captured.Header.Get("Authorization"))
		assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))

		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, 0.5, body["temperature"])
		assert.Equal(t, float64(100), body["max_tokens"])
		messages := body["messages"].([]any)
		require.Len(t, messages, 4)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "user", messages[1].(map[string]any)["role"])
		assert.Equal(t, "assistant", messages[2].(map[string]any)["role"])
		last := messages[3].(map[string]any)
		assert.Equal(t, "user", last["role"])
		assert.Equal(t, "hi", last["content"])

		assert.Equal(t, "hello there", resp.Text)
		assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 3}, resp.Usage)
	})

	t.Run("usage fallback when backend omits counts", func(t *testing.T) {
		server := openAIServer(t, 200, `{"choices":[{"message":{"content":"12345678"}}]}`, nil, nil)
		defer server.Close()

		adapter := NewOpenAI("gpt-4o-mini", server.URL, "sk-test")
		resp, err := adapter.GenerateText(context.Background(), &Request{Prompt: "1234"})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Usage.InputTokens)
		assert.Equal(t, 2, resp.Usage.OutputTokens)
	})

	t.Run("images become content parts", func(t *testing.T) {
		var body map[string]any
		server := openAIServer(t, 200, ok, nil, &body)
		defer server.Close()

		adapter := NewOpenAI("gpt-4o", server.URL, "sk-test")
		_, err := adapter.GenerateText(context.Background(), &Request{
			Prompt: "describe",
			Images: []Attachment{{MimeType: "image/png", Data: "AAAA"}},
		})
		require.NoError(t, err)

		messages := body["messages"].([]any)
		parts := messages[0].(map[string]any)["content"].([]any)
		require.Len(t, parts, 2)
		assert.Equal(t, "text", parts[0].(map[string]any)["type"])
		img := parts[1].(map[string]any)
		assert.Equal(t, "image_url", img["type"])
		assert.Equal(t, "data:image/png;base64,AAAA", img["image_url"].(map[string]any)["url"])
	})

	t.Run("missing choices is an api error", func(t *testing.T) {
		server := openAIServer(t, 200, `{"choices":[]}`, nil, nil)
		defer server.Close()

		adapter := NewOpenAI("gpt-4o-mini", server.URL, "sk-test")
		_, err := adapter.GenerateText(context.Background(), &Request{Prompt: "hi"})
		assert.Equal(t, KindAPIError, KindOf(err))
	})

	t.Run("status errors are classified", func(t *testing.T) {
		server := openAIServer(t, 429, `{"error":{"message":"slow down"}}`, nil, nil)
		defer server.Close()

		adapter := NewOpenAI("gpt-4o-mini", server.URL, "sk-test")
		_, err := adapter.GenerateText(context.Background(), &Request{Prompt: "hi"})
		assert.Equal(t, KindRateLimit, KindOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("transport fault is a network error", func(t *testing.T) {
		adapter := NewOpenAI("gpt-4o-mini", "http://127.0.0.1:1", "sk-test")
		_, err := adapter.GenerateText(context.Background(), &Request{Prompt: "hi"})
		assert.Equal(t, KindNetwork, KindOf(err))
		assert.True(t, IsRetryable(err))
	})
}

func TestOpenAIVariants(t *testing.T) {
	t.Run("groq keeps wire logic with its own identity", func(t *testing.T) {
		var captured http.Request
		server := openAIServer(t, 200, `{"choices":[{"message":{"content":"x"}}]}`, &captured, nil)
		defer server.Close()

		adapter := NewGroq("llama-3.1-8b-instant", server.URL, "gsk-test")
		assert.Equal(t, "groq", adapter.Name())

		_, err := adapter.GenerateText(context.Background(), &Request{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer gsk-test", captured.Header.Get("Authorization"))
	})

	t.Run("ollama sends no auth header", func(t *testing.T) {
		var captured http.Request
		server := openAIServer(t, 200, `{"choices":[{"message":{"content":"x"}}]}`, &captured, nil)
		defer server.Close()

		adapter := NewOllama("llama3", server.URL)
		assert.Equal(t, "ollama", adapter.Name())

		_, err := adapter.GenerateText(context.Background(), &Request{Prompt: "hi"})
		require.NoError(t, err)
		assert.Empty(t, captured.Header.Get("Authorization"))
	})
}
