// Package retry wraps a single unit of work with bounded
// exponential-backoff retry, consulting the error classifier to decide
// whether another attempt can help.
package retry

import (
	"time"

	"go.uber.org/zap"

	"github.com/glyphic-ai/genflow/providers"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy returns the stock retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     8 * time.Second,
	}
}

// Orchestrator retries classified-retryable failures with exponential
// backoff. The backoff sleep is not cancellation-aware; a cancellation
// requested mid-sleep surfaces at the next attempt's own checks.
type Orchestrator struct {
	policy Policy
	logger *zap.Logger
	sleep  func(time.Duration)
}

// New creates an orchestrator with the given policy.
func New(policy Policy, logger *zap.Logger) *Orchestrator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		policy: policy,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// retryableKinds are the classifications for which another attempt may
// succeed. Everything else re-raises immediately.
var retryableKinds = map[providers.ErrorKind]bool{
	providers.KindNetwork:   true,
	providers.KindTimeout:   true,
	providers.KindRateLimit: true,
}

// Do invokes fn up to MaxAttempts times. A non-retryable classification
// or exhaustion of attempts returns the last classified error with no
// further delay.
func (o *Orchestrator) Do(op string, fn func() (*providers.Response, error)) (*providers.Response, error) {
	delay := o.policy.InitialDelay
	var lastErr *providers.PluginError

	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}

		lastErr = providers.Classify(err)
		if !retryableKinds[lastErr.Kind] || attempt == o.policy.MaxAttempts {
			return nil, lastErr
		}

		o.logger.Warn("retrying after failure",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.String("kind", string(lastErr.Kind)),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		o.sleep(delay)
		delay = time.Duration(float64(delay) * o.policy.Multiplier)
		if delay > o.policy.MaxDelay {
			delay = o.policy.MaxDelay
		}
	}

	return nil, lastErr
}
