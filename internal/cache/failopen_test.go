package cache

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// brokenStore fails every operation, standing in for an unreachable backend.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*model.CachedRecord, error) {
	return nil, eris.New("connection refused")
}
func (brokenStore) Put(context.Context, *model.CachedRecord) error {
	return eris.New("connection refused")
}
func (brokenStore) FindSimilar(context.Context, string, int) ([]model.CachedRecord, error) {
	return nil, eris.New("connection refused")
}
func (brokenStore) Stats(context.Context) (*Stats, error) { return nil, eris.New("connection refused") }
func (brokenStore) Migrate(context.Context) error         { return eris.New("connection refused") }
func (brokenStore) Close() error                          { return nil }

func TestFailOpen_GetErrorBecomesMiss(t *testing.T) {
	st := FailOpen(brokenStore{})

	rec, err := st.Get(context.Background(), "fp1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFailOpen_PutErrorSwallowed(t *testing.T) {
	st := FailOpen(brokenStore{})

	err := st.Put(context.Background(), &model.CachedRecord{Fingerprint: "fp1"})
	require.NoError(t, err)
}

func TestFailOpen_FindSimilarErrorBecomesEmpty(t *testing.T) {
	st := FailOpen(brokenStore{})

	recs, err := st.FindSimilar(context.Background(), "dal", 3)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFailOpen_PassesThroughOnHealthyStore(t *testing.T) {
	inner := newTestSQLiteStore(t)
	st := FailOpen(inner)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, testRecord("fp1", "poha")))
	rec, err := st.Get(ctx, "fp1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "poha", rec.Name)
	assert.Equal(t, 2, rec.HitCount)
}
