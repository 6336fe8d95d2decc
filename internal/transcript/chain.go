// Package transcript runs an ordered list of transcript strategies and keeps
// the first one that produces text.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoTranscript is returned by a strategy that ran cleanly but found nothing.
var ErrNoTranscript = errors.New("no transcript available")

// Result is the outcome of one strategy: text on success, Err otherwise.
type Result struct {
	Text       string
	Confidence *float64
	Duration   *float64
	Err        error
}

// Found returns a successful Result.
func Found(text string) Result {
	return Result{Text: text}
}

// Failed returns a failed Result.
func Failed(err error) Result {
	return Result{Err: err}
}

// OK reports whether the strategy produced usable text.
func (r Result) OK() bool {
	return r.Err == nil && strings.TrimSpace(r.Text) != ""
}

// Strategy is one way of obtaining a transcript for an item.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, itemID string) Result
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	Label string
	Fn    func(ctx context.Context, itemID string) Result
}

func (s StrategyFunc) Name() string { return s.Label }

func (s StrategyFunc) Fetch(ctx context.Context, itemID string) Result {
	return s.Fn(ctx, itemID)
}

// Attempt records one strategy failure.
type Attempt struct {
	Strategy string
	Err      error
}

// ExhaustedError is returned when no strategy produced a transcript.
type ExhaustedError struct {
	ItemID   string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("no transcript for %s (%s)", e.ItemID, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Chain tries strategies in order.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain creates a chain. Nil strategies are dropped.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Chain{strategies: kept, logger: logger}
}

// Strategies returns the strategy names in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run returns the first successful result. Later strategies are not invoked
// once one succeeds. A cancelled context stops the chain immediately.
func (c *Chain) Run(ctx context.Context, itemID string) (Result, string, error) {
	exhausted := &ExhaustedError{ItemID: itemID}

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, "", err
		}

		res := s.Fetch(ctx, itemID)
		if res.OK() {
			res.Text = strings.TrimSpace(res.Text)
			c.logger.Debug("transcript found",
				zap.String("item", itemID),
				zap.String("strategy", s.Name()),
				zap.Int("chars", len(res.Text)))
			return res, s.Name(), nil
		}

		err := res.Err
		if err == nil {
			err = ErrNoTranscript
		}
		c.logger.Debug("transcript strategy failed",
			zap.String("item", itemID),
			zap.String("strategy", s.Name()),
			zap.Error(err))
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Strategy: s.Name(), Err: err})
	}

	if len(exhausted.Attempts) == 0 {
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Strategy: "none", Err: ErrNoTranscript})
	}
	return Result{}, "", exhausted
}
