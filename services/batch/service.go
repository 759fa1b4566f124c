// Package batch implements the multi-item generation orchestrators: the
// batch processor (independent items, continue-on-error) and the
// per-layer apply flow (one instruction applied to each item with a
// growing few-shot context). Items are processed strictly sequentially
// to respect backend rate limits.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glyphic-ai/genflow/cancellation"
	"github.com/glyphic-ai/genflow/internal/textclean"
	"github.com/glyphic-ai/genflow/providers"
	"github.com/glyphic-ai/genflow/services/generation"
)

// Generator is the single-shot pipeline the orchestrators drive.
// *generation.Service implements it.
type Generator interface {
	Generate(ctx context.Context, req *generation.Request) (*providers.Response, error)
}

// Item is one unit of content to process.
type Item struct {
	ID      string
	Label   string
	Content string
}

// ProgressEvent is emitted once per item plus a terminal event at 100%.
type ProgressEvent struct {
	CurrentIndex     int
	Total            int
	CurrentItemLabel string
	Percentage       float64
}

// ProgressFunc receives progress events. Called from the run's goroutine.
type ProgressFunc func(ProgressEvent)

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCancelled
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Result aggregates a finished run. Token and cost totals cover
// successful items only.
type Result struct {
	Successful   int
	Failed       int
	TotalTokens  int
	TotalCostUSD float64
	Duration     time.Duration
}

// Config tunes a Processor.
type Config struct {
	// InterItemDelay is slept after each item except the last.
	InterItemDelay time.Duration
	// FewShotLimit caps the accumulated example pairs in the per-layer
	// flow; oldest pairs are evicted first.
	FewShotLimit int
	// OnProgress receives per-item progress events. Optional.
	OnProgress ProgressFunc
	// OnItem receives each item's cleaned result. Optional.
	OnItem func(item Item, text string)
}

// DefaultConfig returns the stock orchestrator tuning.
func DefaultConfig() Config {
	return Config{
		InterItemDelay: 500 * time.Millisecond,
		FewShotLimit:   5,
	}
}

// Processor runs multi-item generation flows over a Generator.
type Processor struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// NewProcessor creates a processor in the idle state.
func NewProcessor(gen Generator, cfg Config, logger *zap.Logger) *Processor {
	if cfg.FewShotLimit <= 0 {
		cfg.FewShotLimit = DefaultConfig().FewShotLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{gen: gen, cfg: cfg, logger: logger, state: StateIdle}
}

// State returns the current lifecycle state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Processor) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run processes items independently: each item's prompt is the
// instruction applied to its content. A per-item failure is recorded and
// the run continues; already-accumulated stats survive cancellation.
func (p *Processor) Run(ctx context.Context, signal *cancellation.Signal, providerID string, items []Item, instruction string, genSettings providers.Settings) (*Result, error) {
	runID := uuid.New()
	start := time.Now()
	p.setState(StateRunning)
	cancelled := false

	p.logger.Info("starting batch run",
		zap.String("run_id", runID.String()),
		zap.Int("items", len(items)))

	result := &Result{}
	for i, item := range items {
		if signal.Cancelled() {
			cancelled = true
			break
		}
		p.emitProgress(i, len(items), item.Label)

		resp, err := p.gen.Generate(ctx, &generation.Request{
			ProviderID: providerID,
			Prompt:     instruction + "\n\n" + item.Content,
			Settings:   genSettings,
			Signal:     signal,
		})
		if err != nil {
			result.Failed++
			p.logger.Warn("batch item failed",
				zap.String("run_id", runID.String()),
				zap.String("item_id", item.ID),
				zap.Error(err))
		} else {
			result.Successful++
			result.TotalTokens += resp.Usage.Total()
			result.TotalCostUSD += resp.CostUSD
			if p.cfg.OnItem != nil {
				p.cfg.OnItem(item, textclean.Clean(resp.Text, item.Content))
			}
		}

		if i < len(items)-1 {
			time.Sleep(p.cfg.InterItemDelay)
		}
	}

	p.emitProgress(len(items), len(items), "completed")
	result.Duration = time.Since(start)

	if cancelled {
		p.setState(StateCancelled)
	} else {
		p.setState(StateCompleted)
	}
	p.logger.Info("batch run finished",
		zap.String("run_id", runID.String()),
		zap.String("state", p.State().String()),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Float64("total_cost_usd", result.TotalCostUSD),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Processor) emitProgress(index, total int, label string) {
	if p.cfg.OnProgress == nil {
		return
	}
	pct := 100.0
	if total > 0 && index < total {
		pct = float64(index) / float64(total) * 100
	}
	p.cfg.OnProgress(ProgressEvent{
		CurrentIndex:     index,
		Total:            total,
		CurrentItemLabel: label,
		Percentage:       pct,
	})
}
