package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glyphic-ai/genflow/cancellation"
	"github.com/glyphic-ai/genflow/internal/textclean"
	"github.com/glyphic-ai/genflow/providers"
	"github.com/glyphic-ai/genflow/services/generation"
)

// applyMaxTokens caps per-layer responses for brevity.
const applyMaxTokens = 200

// applySuffix closes every per-layer system prompt so models emit the
// bare result.
const applySuffix = "Output only the result, without explanations or labels."

// LayerResult is the outcome for one item of a per-layer run.
type LayerResult struct {
	ItemID string
	Text   string
	Err    error
}

// ApplyToLayers applies one instruction independently to each item. The
// instruction becomes the system prompt (optionally combined with a
// saved system-level instruction); each item's content is the user
// message. Settings are pinned to temperature 0 and a small token
// ceiling, and each cleaned result feeds a capped few-shot context that
// biases later items toward consistent formatting.
func (p *Processor) ApplyToLayers(ctx context.Context, signal *cancellation.Signal, providerID string, items []Item, instruction, systemInstruction string, genSettings providers.Settings) ([]LayerResult, error) {
	runID := uuid.New()
	p.setState(StateRunning)
	cancelled := false

	pinned := genSettings
	pinned.Temperature = 0
	if pinned.MaxTokens <= 0 || pinned.MaxTokens > applyMaxTokens {
		pinned.MaxTokens = applyMaxTokens
	}

	systemPrompt := instruction
	if systemInstruction != "" {
		systemPrompt += "\n\n" + systemInstruction
	}
	systemPrompt += "\n\n" + applySuffix

	p.logger.Info("starting per-layer apply",
		zap.String("run_id", runID.String()),
		zap.Int("items", len(items)))

	var fewShot []providers.Message
	results := make([]LayerResult, 0, len(items))

	for i, item := range items {
		if signal.Cancelled() {
			cancelled = true
			break
		}
		p.emitProgress(i, len(items), item.Label)

		resp, err := p.gen.Generate(ctx, &generation.Request{
			ProviderID:   providerID,
			Prompt:       item.Content,
			SystemPrompt: systemPrompt,
			FewShot:      fewShot,
			Settings:     pinned,
			Signal:       signal,
		})
		if err != nil {
			results = append(results, LayerResult{ItemID: item.ID, Err: err})
			p.logger.Warn("layer item failed",
				zap.String("run_id", runID.String()),
				zap.String("item_id", item.ID),
				zap.Error(err))
		} else {
			cleaned := textclean.Clean(resp.Text, item.Content)
			results = append(results, LayerResult{ItemID: item.ID, Text: cleaned})
			if p.cfg.OnItem != nil {
				p.cfg.OnItem(item, cleaned)
			}

			fewShot = append(fewShot,
				providers.Message{Role: providers.RoleUser, Text: item.Content},
				providers.Message{Role: providers.RoleAssistant, Text: cleaned})
			if pairs := len(fewShot) / 2; pairs > p.cfg.FewShotLimit {
				fewShot = fewShot[2:]
			}
		}

		if i < len(items)-1 {
			time.Sleep(p.cfg.InterItemDelay)
		}
	}

	p.emitProgress(len(items), len(items), "completed")

	if cancelled {
		p.setState(StateCancelled)
	} else {
		p.setState(StateCompleted)
	}
	p.logger.Info("per-layer apply finished",
		zap.String("run_id", runID.String()),
		zap.String("state", p.State().String()),
		zap.Int("results", len(results)))

	return results, nil
}
