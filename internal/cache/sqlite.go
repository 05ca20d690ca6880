package cache

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nutrilog-ai/nutrilog/internal/fingerprint"
	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS nutrition_cache (
	fingerprint     TEXT PRIMARY KEY,
	query_type      TEXT NOT NULL,
	normalized_text TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL,
	calories        INTEGER NOT NULL DEFAULT 0,
	protein         INTEGER NOT NULL DEFAULT 0,
	carbs           INTEGER NOT NULL DEFAULT 0,
	fats            INTEGER NOT NULL DEFAULT 0,
	fiber           INTEGER NOT NULL DEFAULT 0,
	portion_size    TEXT NOT NULL DEFAULT '',
	portion_grams   INTEGER NOT NULL DEFAULT 0,
	health_score    TEXT NOT NULL DEFAULT 'moderate',
	health_tip      TEXT NOT NULL DEFAULT '',
	cooking_method  TEXT,
	cuisine_type    TEXT,
	provider        TEXT NOT NULL,
	hit_count       INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL,
	last_used_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nutrition_cache_text ON nutrition_cache(normalized_text);
CREATE INDEX IF NOT EXISTS idx_nutrition_cache_hits ON nutrition_cache(hit_count);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const recordColumns = `fingerprint, query_type, normalized_text, name, calories, protein, carbs, fats, fiber,
	portion_size, portion_grams, health_score, health_tip, cooking_method, cuisine_type,
	provider, hit_count, created_at, last_used_at`

func (s *SQLiteStore) Get(ctx context.Context, fp string) (*model.CachedRecord, error) {
	// Bump-on-read in a single statement so concurrent hits never read
	// a stale counter from this process.
	row := s.db.QueryRowContext(ctx,
		`UPDATE nutrition_cache
		 SET hit_count = hit_count + 1, last_used_at = ?
		 WHERE fingerprint = ?
		 RETURNING `+recordColumns,
		time.Now().UTC(), fp,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get record")
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec *model.CachedRecord) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nutrition_cache (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			query_type      = excluded.query_type,
			normalized_text = excluded.normalized_text,
			name            = excluded.name,
			calories        = excluded.calories,
			protein         = excluded.protein,
			carbs           = excluded.carbs,
			fats            = excluded.fats,
			fiber           = excluded.fiber,
			portion_size    = excluded.portion_size,
			portion_grams   = excluded.portion_grams,
			health_score    = excluded.health_score,
			health_tip      = excluded.health_tip,
			cooking_method  = excluded.cooking_method,
			cuisine_type    = excluded.cuisine_type,
			provider        = excluded.provider,
			hit_count       = 1,
			created_at      = excluded.created_at,
			last_used_at    = excluded.last_used_at`,
		rec.Fingerprint, string(rec.QueryType), rec.NormalizedText, rec.Name,
		rec.Calories, rec.Protein, rec.Carbs, rec.Fats, rec.Fiber,
		rec.PortionSize, rec.PortionGrams, string(rec.HealthScore), rec.HealthTip,
		nullable(rec.CookingMethod), nullable(rec.CuisineType),
		string(rec.Provider), now, now,
	)
	return eris.Wrap(err, "sqlite: put record")
}

func (s *SQLiteStore) FindSimilar(ctx context.Context, textQuery string, limit int) ([]model.CachedRecord, error) {
	terms := strings.Fields(fingerprint.Normalize(textQuery))
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + recordColumns + ` FROM nutrition_cache WHERE 1=1`
	var args []any
	for _, term := range terms {
		query += ` AND normalized_text LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(term)+"%")
	}
	query += ` ORDER BY hit_count DESC, last_used_at DESC, fingerprint LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find similar")
	}
	defer rows.Close()

	var recs []model.CachedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan similar")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: find similar iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM nutrition_cache`,
	).Scan(&st.Entries, &st.TotalHits)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

// helpers

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.CachedRecord, error) {
	var rec model.CachedRecord
	var cooking, cuisine sql.NullString

	err := row.Scan(
		&rec.Fingerprint, &rec.QueryType, &rec.NormalizedText, &rec.Name,
		&rec.Calories, &rec.Protein, &rec.Carbs, &rec.Fats, &rec.Fiber,
		&rec.PortionSize, &rec.PortionGrams, &rec.HealthScore, &rec.HealthTip,
		&cooking, &cuisine,
		&rec.Provider, &rec.HitCount, &rec.CreatedAt, &rec.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CookingMethod = cooking.String
	rec.CuisineType = cuisine.String
	return &rec, nil
}
