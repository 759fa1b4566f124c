package generation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphic-ai/genflow/cancellation"
	"github.com/glyphic-ai/genflow/providers"
	"github.com/glyphic-ai/genflow/services/retry"
	"github.com/glyphic-ai/genflow/settings"
)

func testService(t *testing.T, serverURL string, pricing providers.Pricing) *Service {
	t.Helper()

	store := settings.NewStaticStore(settings.Snapshot{
		Providers: []providers.ResolvedConfig{
			{ID: "local", CapabilityID: "test/model", Enabled: true},
			{ID: "disabled", CapabilityID: "test/model", Enabled: false},
		},
		Defaults: providers.Settings{Temperature: 0.7, MaxTokens: 256},
	})
	lookup := func(id string) (providers.Capability, error) {
		if id != "test/model" {
			return providers.Capability{}, providers.NewPluginError(providers.KindInvalidConfig, "unknown capability", false, nil)
		}
		return providers.Capability{
			ID:         id,
			WireFamily: providers.FamilyOllama,
			Model:      "test-model",
			APIBaseURL: serverURL,
			Pricing:    pricing,
		}, nil
	}
	policy := retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return NewService(store, lookup, NewResponseCache(10, time.Minute), retry.New(policy, nil), "", nil)
}

func completionServer(calls *atomic.Int64, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(body))
	}))
}

func TestService_Generate(t *testing.T) {
	const body = `{"choices":[{"message":{"content":"generated text"}}],"usage":{"prompt_tokens":1000,"completion_tokens":1000}}`

	t.Run("full pipeline with cost accounting", func(t *testing.T) {
		var calls atomic.Int64
		server := completionServer(&calls, body)
		defer server.Close()

		svc := testService(t, server.URL, providers.Pricing{InputPerMillion: 5, OutputPerMillion: 15})

		var chunks []string
		resp, err := svc.Generate(context.Background(), &Request{
			ProviderID: "local",
			Prompt:     "write something",
			OnChunk:    func(text string, _ int) { chunks = append(chunks, text) },
		})
		require.NoError(t, err)

		assert.Equal(t, "generated text", resp.Text)
		assert.Equal(t, 0.02, resp.CostUSD)
		assert.Equal(t, []string{"generated text"}, chunks, "OnChunk fires exactly once")
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("second identical request is served from cache", func(t *testing.T) {
		var calls atomic.Int64
		server := completionServer(&calls, body)
		defer server.Close()

		svc := testService(t, server.URL, providers.Pricing{InputPerMillion: 5, OutputPerMillion: 15})
		req := func() *Request { return &Request{ProviderID: "local", Prompt: "write something"} }

		first, err := svc.Generate(context.Background(), req())
		require.NoError(t, err)
		second, err := svc.Generate(context.Background(), req())
		require.NoError(t, err)

		assert.Equal(t, int64(1), calls.Load())
		assert.Equal(t, first.Text, second.Text)
		assert.Equal(t, first.Usage, second.Usage)
		assert.Zero(t, second.CostUSD, "cache hits incur no spend")
	})

	t.Run("image requests bypass the cache", func(t *testing.T) {
		var calls atomic.Int64
		server := completionServer(&calls, body)
		defer server.Close()

		svc := testService(t, server.URL, providers.Pricing{})
		req := func() *Request {
			return &Request{
				ProviderID: "local",
				Prompt:     "describe",
				Images:     []providers.Attachment{{MimeType: "image/png", Data: "AAAA"}},
			}
		}

		_, err := svc.Generate(context.Background(), req())
		require.NoError(t, err)
		_, err = svc.Generate(context.Background(), req())
		require.NoError(t, err)

		assert.Equal(t, int64(2), calls.Load())
		assert.Equal(t, 0, svc.Cache().Len())
	})

	t.Run("empty prompt is invalid config", func(t *testing.T) {
		svc := testService(t, "http://unused", providers.Pricing{})
		_, err := svc.Generate(context.Background(), &Request{ProviderID: "local"})
		assert.Equal(t, providers.KindInvalidConfig, providers.KindOf(err))
	})

	t.Run("unknown provider id is invalid config", func(t *testing.T) {
		svc := testService(t, "http://unused", providers.Pricing{})
		_, err := svc.Generate(context.Background(), &Request{ProviderID: "nope", Prompt: "hi"})
		assert.Equal(t, providers.KindInvalidConfig, providers.KindOf(err))
	})

	t.Run("disabled providers are not visible", func(t *testing.T) {
		svc := testService(t, "http://unused", providers.Pricing{})
		_, err := svc.Generate(context.Background(), &Request{ProviderID: "disabled", Prompt: "hi"})
		assert.Equal(t, providers.KindInvalidConfig, providers.KindOf(err))
	})

	t.Run("pre-cancelled signal stops before any network call", func(t *testing.T) {
		var calls atomic.Int64
		server := completionServer(&calls, body)
		defer server.Close()

		svc := testService(t, server.URL, providers.Pricing{})
		signal := cancellation.NewSignal()
		signal.Cancel()

		_, err := svc.Generate(context.Background(), &Request{ProviderID: "local", Prompt: "hi", Signal: signal})
		require.Error(t, err)
		assert.Equal(t, providers.KindTimeout, providers.KindOf(err))
		assert.Equal(t, int64(0), calls.Load())
	})

	t.Run("backend auth failure is not cached", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		svc := testService(t, server.URL, providers.Pricing{})
		_, err := svc.Generate(context.Background(), &Request{ProviderID: "local", Prompt: "hi"})
		assert.Equal(t, providers.KindAuth, providers.KindOf(err))
		assert.Equal(t, 0, svc.Cache().Len())
	})

	t.Run("custom pricing override wins", func(t *testing.T) {
		var calls atomic.Int64
		server := completionServer(&calls, body)
		defer server.Close()

		store := settings.NewStaticStore(settings.Snapshot{
			Providers: []providers.ResolvedConfig{{
				ID:            "local",
				CapabilityID:  "test/model",
				Enabled:       true,
				CustomPricing: &providers.Pricing{InputPerMillion: 1, OutputPerMillion: 1},
			}},
		})
		lookup := func(string) (providers.Capability, error) {
			return providers.Capability{
				ID: "test/model", WireFamily: providers.FamilyOllama,
				Model: "m", APIBaseURL: server.URL,
				Pricing: providers.Pricing{InputPerMillion: 100, OutputPerMillion: 100},
			}, nil
		}
		policy := retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
		svc := NewService(store, lookup, NewResponseCache(10, time.Minute), retry.New(policy, nil), "", nil)

		resp, err := svc.Generate(context.Background(), &Request{ProviderID: "local", Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, 0.002, resp.CostUSD)
	})
}
