// Command genflow runs a single generation request against a configured
// provider. Intended for smoke-testing a provider setup:
//
//	GENFLOW_PROVIDER=openai/gpt-4o-mini GENFLOW_API_KEY=sk-... genflow "Say hello"
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/glyphic-ai/genflow/capability"
	"github.com/glyphic-ai/genflow/config"
	"github.com/glyphic-ai/genflow/internal/observability"
	"github.com/glyphic-ai/genflow/providers"
	"github.com/glyphic-ai/genflow/services/generation"
	"github.com/glyphic-ai/genflow/services/retry"
	"github.com/glyphic-ai/genflow/settings"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: genflow <prompt>")
		os.Exit(2)
	}
	prompt := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	capabilityID := os.Getenv("GENFLOW_PROVIDER")
	if capabilityID == "" {
		logger.Fatal("GENFLOW_PROVIDER is not set")
	}

	store := settings.NewStaticStore(settings.Snapshot{
		Providers: []providers.ResolvedConfig{{
			ID:           capabilityID,
			CapabilityID: capabilityID,
			APIKey:       os.Getenv("GENFLOW_API_KEY"),
			CustomURL:    os.Getenv("GENFLOW_CUSTOM_URL"),
			FolderID:     os.Getenv("GENFLOW_FOLDER_ID"),
			Enabled:      true,
		}},
		Defaults: providers.Settings{Temperature: 0.7, MaxTokens: 1024},
	})

	svc := generation.NewService(
		store,
		capability.Lookup,
		generation.NewResponseCache(cfg.Cache.MaxEntries, cfg.Cache.TTL),
		retry.New(retry.Policy(cfg.Retry), logger),
		cfg.Relay.BaseURL,
		logger,
	)

	resp, err := svc.Generate(context.Background(), &generation.Request{
		ProviderID: capabilityID,
		Prompt:     prompt,
	})
	if err != nil {
		logger.Fatal("generation failed", zap.Error(err))
	}

	fmt.Println(resp.Text)
	fmt.Printf("tokens: %d in / %d out, cost: $%.6f\n",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.CostUSD)
}
