package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRecord(fp, name string) *model.CachedRecord {
	return &model.CachedRecord{
		Fingerprint:    fp,
		QueryType:      model.QueryTypeText,
		NormalizedText: name,
		Name:           name,
		Calories:       120,
		Protein:        5,
		Carbs:          20,
		Fats:           3,
		Fiber:          2,
		PortionSize:    "1 bowl",
		PortionGrams:   180,
		HealthScore:    model.HealthGood,
		HealthTip:      "add vegetables for more fiber",
		Provider:       model.ProviderAnthropic,
	}
}

func TestSQLite_Get_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	rec, err := st.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_PutThenGet_BumpsHitCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, testRecord("fp1", "dal makhani")))

	rec, err := st.Get(ctx, "fp1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "dal makhani", rec.Name)
	assert.Equal(t, 120, rec.Calories)
	assert.Equal(t, model.HealthGood, rec.HealthScore)
	assert.Equal(t, 2, rec.HitCount) // 1 from put, bumped by the get

	rec, err = st.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.HitCount)
}

func TestSQLite_Put_OverwriteReplacesPayloadAndResetsHits(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, testRecord("fp1", "old name")))
	for i := 0; i < 3; i++ {
		_, err := st.Get(ctx, "fp1")
		require.NoError(t, err)
	}

	updated := testRecord("fp1", "new name")
	updated.Calories = 300
	updated.Provider = model.ProviderOpenAI
	require.NoError(t, st.Put(ctx, updated))

	rec, err := st.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "new name", rec.Name)
	assert.Equal(t, 300, rec.Calories)
	assert.Equal(t, model.ProviderOpenAI, rec.Provider)
	assert.Equal(t, 2, rec.HitCount) // reset to 1 by the put, bumped by this get
}

func TestSQLite_Put_OptionalFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord("fp1", "biryani")
	rec.CookingMethod = "fried"
	rec.CuisineType = "indian"
	require.NoError(t, st.Put(ctx, rec))

	got, err := st.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "fried", got.CookingMethod)
	assert.Equal(t, "indian", got.CuisineType)

	// Absent optional fields round-trip as empty strings.
	require.NoError(t, st.Put(ctx, testRecord("fp2", "salad")))
	got, err = st.Get(ctx, "fp2")
	require.NoError(t, err)
	assert.Empty(t, got.CookingMethod)
	assert.Empty(t, got.CuisineType)
}

func TestSQLite_FindSimilar_OrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, testRecord("fp-makhani", "dal makhani")))
	require.NoError(t, st.Put(ctx, testRecord("fp-tadka", "dal tadka")))
	require.NoError(t, st.Put(ctx, testRecord("fp-paneer", "paneer tikka")))

	// Make dal tadka the most popular.
	for i := 0; i < 2; i++ {
		_, err := st.Get(ctx, "fp-tadka")
		require.NoError(t, err)
	}

	recs, err := st.FindSimilar(ctx, "dal", 3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "dal tadka", recs[0].Name)
	assert.Equal(t, "dal makhani", recs[1].Name)
	for _, r := range recs {
		assert.NotEqual(t, "paneer tikka", r.Name)
	}

	recs, err = st.FindSimilar(ctx, "dal", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "dal tadka", recs[0].Name)
}

func TestSQLite_FindSimilar_DeterministicTieBreak(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, testRecord("fp-a", "dal fry")))
	require.NoError(t, st.Put(ctx, testRecord("fp-b", "dal soup")))

	first, err := st.FindSimilar(ctx, "dal", 5)
	require.NoError(t, err)
	require.Len(t, first, 2)

	for i := 0; i < 3; i++ {
		again, err := st.FindSimilar(ctx, "dal", 5)
		require.NoError(t, err)
		require.Len(t, again, 2)
		assert.Equal(t, first[0].Fingerprint, again[0].Fingerprint)
		assert.Equal(t, first[1].Fingerprint, again[1].Fingerprint)
	}
}

func TestSQLite_FindSimilar_NormalizesQuery(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, testRecord("fp1", "dal makhani")))

	recs, err := st.FindSimilar(ctx, "  DAL!! ", 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs, err = st.FindSimilar(ctx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLite_FindSimilar_UnderscoreIsLiteral(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Underscore survives normalization; it must not act as a
	// single-character LIKE wildcard.
	require.NoError(t, st.Put(ctx, testRecord("fp-dal", "dal makhani")))
	require.NoError(t, st.Put(ctx, testRecord("fp-dbl", "dbl cheeseburger")))
	require.NoError(t, st.Put(ctx, testRecord("fp-lit", "d_l special")))

	recs, err := st.FindSimilar(ctx, "d_l", 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "d_l special", recs[0].Name)
}

func TestSQLite_Stats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)

	require.NoError(t, st.Put(ctx, testRecord("fp1", "idli")))
	require.NoError(t, st.Put(ctx, testRecord("fp2", "dosa")))
	_, err = st.Get(ctx, "fp1")
	require.NoError(t, err)

	stats, err = st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entries)
	assert.Equal(t, int64(3), stats.TotalHits)
}
