package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nutrilog-ai/nutrilog/internal/analyzer"
	"github.com/nutrilog-ai/nutrilog/internal/cache"
	"github.com/nutrilog-ai/nutrilog/internal/provider"
)

func initStore(ctx context.Context) (cache.Store, error) {
	var (
		st  cache.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "nutrilog.db"
		}
		st, err = cache.NewSQLite(dsn)
	case "postgres":
		st, err = cache.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func initChain() (*provider.Chain, error) {
	if cfg.Anthropic.Key == "" && cfg.OpenAI.Key == "" {
		return nil, eris.New("no provider configured: set NUTRILOG_ANTHROPIC_KEY and/or NUTRILOG_OPENAI_KEY")
	}

	// Fixed priority order: Anthropic first, OpenAI as fallback.
	var providers []provider.Provider
	if cfg.Anthropic.Key != "" {
		providers = append(providers, provider.NewAnthropic(cfg.Anthropic.Key, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens))
	}
	if cfg.OpenAI.Key != "" {
		providers = append(providers, provider.NewOpenAI(cfg.OpenAI.Key, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.OpenAI.MaxTokens))
	}

	return provider.NewChain(providers,
		provider.WithTimeout(time.Duration(cfg.Providers.TimeoutSecs)*time.Second),
		provider.WithRateLimit(cfg.Providers.RateLimitPerMin),
	), nil
}

func initAnalyzer(ctx context.Context) (*analyzer.Analyzer, cache.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	chain, err := initChain()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return analyzer.New(st, chain), st, nil
}
