package provider

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// Chain tries providers in a fixed priority order until one succeeds.
// The order is static configuration, never re-ranked at runtime.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	limiter   *rate.Limiter
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithTimeout bounds each individual provider call. A hung primary must
// not eat the whole latency budget before the secondary gets a turn.
func WithTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outbound provider calls per minute, shared across
// all providers in the chain.
func WithRateLimit(perMinute int) ChainOption {
	return func(c *Chain) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		}
	}
}

// NewChain creates a chain over the given providers in priority order.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze invokes providers in order with the same input, returning the
// first success together with the identity of the provider that
// answered. On total failure all providers' errors are aggregated.
func (c *Chain) Analyze(ctx context.Context, req Request) (*model.NutritionResult, model.ProviderID, error) {
	var failures []string
	for _, p := range c.providers {
		res, err := c.analyzeOne(ctx, p, req)
		if err != nil {
			zap.L().Warn("provider analyze failed, falling through",
				zap.String("provider", string(p.Name())),
				zap.Error(err),
			)
			failures = append(failures, string(p.Name())+": "+err.Error())
			continue
		}
		return res, p.Name(), nil
	}
	return nil, "", eris.Errorf("all providers failed: %s", strings.Join(failures, "; "))
}

// Suggest invokes providers in order for the typeahead path.
func (c *Chain) Suggest(ctx context.Context, partial string, limit int) ([]model.FoodSuggestion, error) {
	var failures []string
	for _, p := range c.providers {
		suggestions, err := c.suggestOne(ctx, p, partial, limit)
		if err != nil {
			zap.L().Warn("provider suggest failed, falling through",
				zap.String("provider", string(p.Name())),
				zap.Error(err),
			)
			failures = append(failures, string(p.Name())+": "+err.Error())
			continue
		}
		return suggestions, nil
	}
	return nil, eris.Errorf("all providers failed: %s", strings.Join(failures, "; "))
}

func (c *Chain) analyzeOne(ctx context.Context, p Provider, req Request) (*model.NutritionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return p.Analyze(ctx, req)
}

func (c *Chain) suggestOne(ctx context.Context, p Provider, partial string, limit int) ([]model.FoodSuggestion, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return p.Suggest(ctx, partial, limit)
}

func (c *Chain) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "provider rate limit")
}
