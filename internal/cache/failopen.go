package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// failOpen wraps a Store so that storage failures degrade to cache
// misses instead of propagating. The cache is an optimization; a broken
// backing store must never fail the request that consulted it.
type failOpen struct {
	inner Store
}

// FailOpen returns a Store that absorbs every storage error: Get errors
// become misses, Put errors are logged and swallowed, FindSimilar
// errors become an empty result.
func FailOpen(inner Store) Store {
	return &failOpen{inner: inner}
}

func (f *failOpen) Get(ctx context.Context, fp string) (*model.CachedRecord, error) {
	rec, err := f.inner.Get(ctx, fp)
	if err != nil {
		zap.L().Warn("cache get failed, treating as miss",
			zap.String("fingerprint", fp),
			zap.Error(err),
		)
		return nil, nil
	}
	return rec, nil
}

func (f *failOpen) Put(ctx context.Context, rec *model.CachedRecord) error {
	if err := f.inner.Put(ctx, rec); err != nil {
		zap.L().Warn("cache put failed, skipping persistence",
			zap.String("fingerprint", rec.Fingerprint),
			zap.Error(err),
		)
	}
	return nil
}

func (f *failOpen) FindSimilar(ctx context.Context, textQuery string, limit int) ([]model.CachedRecord, error) {
	recs, err := f.inner.FindSimilar(ctx, textQuery, limit)
	if err != nil {
		zap.L().Warn("cache search failed, returning no matches", zap.Error(err))
		return nil, nil
	}
	return recs, nil
}

func (f *failOpen) Stats(ctx context.Context) (*Stats, error) {
	return f.inner.Stats(ctx)
}

func (f *failOpen) Migrate(ctx context.Context) error {
	return f.inner.Migrate(ctx)
}

func (f *failOpen) Close() error {
	return f.inner.Close()
}
