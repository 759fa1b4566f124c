// Package generation implements the single-shot request pipeline:
// resolve configuration, consult the response cache, invoke the provider
// adapter under retry, and account usage and cost.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/glyphic-ai/genflow/cancellation"
	"github.com/glyphic-ai/genflow/providers"
	"github.com/glyphic-ai/genflow/services/retry"
	"github.com/glyphic-ai/genflow/settings"
)

// Request is a single generation call. Immutable per call. OnChunk, when
// set, is invoked exactly once with the full response text; the backends
// used here do not deliver incremental tokens.
type Request struct {
	ProviderID   string
	Prompt       string
	SystemPrompt string
	FewShot      []providers.Message
	Images       []providers.Attachment
	Settings     providers.Settings
	Signal       *cancellation.Signal
	OnChunk      func(text string, estimatedTokens int)
}

// CapabilityLookup resolves a capability ID to its static metadata.
type CapabilityLookup func(id string) (providers.Capability, error)

// AdapterFactory constructs an adapter for a resolved configuration.
type AdapterFactory func(cap providers.Capability, cfg providers.ResolvedConfig, relayBaseURL string) (providers.Adapter, error)

// Service orchestrates single-shot generation requests. Each Service
// owns its cache and retry policy explicitly; independent services can
// run concurrently without shared state.
type Service struct {
	store        settings.Store
	lookup       CapabilityLookup
	newAdapter   AdapterFactory
	cache        *ResponseCache
	retrier      *retry.Orchestrator
	relayBaseURL string
	logger       *zap.Logger
	flight       singleflight.Group
}

// NewService wires the pipeline together.
func NewService(store settings.Store, lookup CapabilityLookup, cache *ResponseCache, retrier *retry.Orchestrator, relayBaseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		lookup:       lookup,
		newAdapter:   providers.NewAdapter,
		cache:        cache,
		retrier:      retrier,
		relayBaseURL: relayBaseURL,
		logger:       logger,
	}
}

// Cache exposes the service's response cache for maintenance calls
// (Clear, PurgeExpired) by the surrounding application.
func (s *Service) Cache() *ResponseCache {
	return s.cache
}

// Generate runs the full pipeline for one request and returns the
// normalized response.
func (s *Service) Generate(ctx context.Context, req *Request) (*providers.Response, error) {
	requestID := uuid.New()
	start := time.Now()

	if err := req.Signal.Check(); err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, providers.NewPluginError(providers.KindInvalidConfig, "prompt cannot be empty", false, nil)
	}

	cfg, defaults, err := s.resolveConfig(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	cap, err := s.lookup(cfg.CapabilityID)
	if err != nil {
		return nil, err
	}

	genSettings := req.Settings
	if genSettings.MaxTokens == 0 {
		genSettings.MaxTokens = defaults.MaxTokens
	}
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = genSettings.SystemPrompt
	}

	s.logger.Info("starting generation",
		zap.String("request_id", requestID.String()),
		zap.String("provider_id", cfg.ID),
		zap.String("capability", cap.ID))

	pricing := cap.Pricing
	if cfg.CustomPricing != nil {
		pricing = *cfg.CustomPricing
	}

	// Image-bearing requests are never cached: the key space would be
	// impractically large and the content is not reproducible.
	cacheable := len(req.Images) == 0
	key := CacheKey(cfg.ID, req.Prompt, systemPrompt, genSettings.Temperature, genSettings.MaxTokens)

	if cacheable {
		if hit := s.cache.Get(key); hit != nil {
			s.logger.Debug("cache hit", zap.String("request_id", requestID.String()))
			resp := &providers.Response{Text: hit.Text, Usage: hit.Usage}
			s.emitChunk(req, resp.Text)
			return resp, nil
		}
	}

	adapter, err := s.newAdapter(cap, cfg, s.relayBaseURL)
	if err != nil {
		return nil, err
	}

	providerReq := &providers.Request{
		Prompt:       req.Prompt,
		SystemPrompt: systemPrompt,
		FewShot:      req.FewShot,
		Images:       req.Images,
		Settings:     genSettings,
	}

	work := func() (*providers.Response, error) {
		// The flag is observed immediately before the network call and
		// again after it; an in-flight HTTP request itself cannot be
		// aborted mid-transfer.
		if err := req.Signal.Check(); err != nil {
			return nil, err
		}
		resp, err := adapter.GenerateText(ctx, providerReq)
		if err != nil {
			return nil, err
		}
		if err := req.Signal.Check(); err != nil {
			return nil, err
		}
		return resp, nil
	}

	var resp *providers.Response
	if cacheable {
		v, ferr, _ := s.flight.Do(key, func() (any, error) {
			r, err := s.retrier.Do(adapter.Name(), work)
			if err != nil {
				return nil, err
			}
			s.cache.Set(key, r.Text, r.Usage)
			return r, nil
		})
		if ferr != nil {
			return nil, ferr
		}
		shared := *(v.(*providers.Response))
		resp = &shared
	} else {
		resp, err = s.retrier.Do(adapter.Name(), work)
		if err != nil {
			return nil, err
		}
	}

	resp.CostUSD = providers.Cost(resp.Usage, pricing)
	s.emitChunk(req, resp.Text)

	s.logger.Info("generation completed",
		zap.String("request_id", requestID.String()),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("cost_usd", resp.CostUSD),
		zap.Duration("duration", time.Since(start)))

	return resp, nil
}

// resolveConfig re-reads the settings snapshot and finds the requested
// provider. Configs are never cached across requests.
func (s *Service) resolveConfig(ctx context.Context, providerID string) (providers.ResolvedConfig, providers.Settings, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return providers.ResolvedConfig{}, providers.Settings{}, providers.NewPluginError(
			providers.KindInvalidConfig, "failed to read settings", false, err)
	}
	for _, cfg := range snap.Providers {
		if cfg.ID == providerID {
			return cfg, snap.Defaults, nil
		}
	}
	return providers.ResolvedConfig{}, providers.Settings{}, providers.NewPluginError(
		providers.KindInvalidConfig,
		fmt.Sprintf("no enabled provider configured with id %q", providerID),
		false, nil)
}

func (s *Service) emitChunk(req *Request, text string) {
	if req.OnChunk != nil {
		req.OnChunk(text, providers.EstimateTokens(text))
	}
}
