package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nutrilog-ai/nutrilog/internal/fingerprint"
	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock
// satisfies it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_used_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_nutrition_cache_text ON nutrition_cache(normalized_text text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_nutrition_cache_hits ON nutrition_cache(hit_count DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, fp string) (*model.CachedRecord, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE nutrition_cache
		 SET hit_count = hit_count + 1, last_used_at = now()
		 WHERE fingerprint = $1
		 RETURNING `+recordColumns,
		fp,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get record")
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec *model.CachedRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nutrition_cache (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, now(), now())
		 ON CONFLICT (fingerprint) DO UPDATE SET
			query_type      = EXCLUDED.query_type,
			normalized_text = EXCLUDED.normalized_text,
			name            = EXCLUDED.name,
			calories        = EXCLUDED.calories,
			protein         = EXCLUDED.protein,
			carbs           = EXCLUDED.carbs,
			fats            = EXCLUDED.fats,
			fiber           = EXCLUDED.fiber,
			portion_size    = EXCLUDED.portion_size,
			portion_grams   = EXCLUDED.portion_grams,
			health_score    = EXCLUDED.health_score,
			health_tip      = EXCLUDED.health_tip,
			cooking_method  = EXCLUDED.cooking_method,
			cuisine_type    = EXCLUDED.cuisine_type,
			provider        = EXCLUDED.provider,
			hit_count       = 1,
			created_at      = now(),
			last_used_at    = now()`,
		rec.Fingerprint, string(rec.QueryType), rec.NormalizedText, rec.Name,
		rec.Calories, rec.Protein, rec.Carbs, rec.Fats, rec.Fiber,
		rec.PortionSize, rec.PortionGrams, string(rec.HealthScore), rec.HealthTip,
		nullable(rec.CookingMethod), nullable(rec.CuisineType),
		string(rec.Provider),
	)
	return eris.Wrap(err, "postgres: put record")
}

func (s *PostgresStore) FindSimilar(ctx context.Context, textQuery string, limit int) ([]model.CachedRecord, error) {
	terms := strings.Fields(fingerprint.Normalize(textQuery))
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + recordColumns + ` FROM nutrition_cache WHERE 1=1`
	var args []any
	for i, term := range terms {
		query += ` AND normalized_text LIKE $` + strconv.Itoa(i+1) + ` ESCAPE '\'`
		args = append(args, "%"+escapeLike(term)+"%")
	}
	query += ` ORDER BY hit_count DESC, last_used_at DESC, fingerprint LIMIT $` + strconv.Itoa(len(terms)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find similar")
	}
	defer rows.Close()

	var recs []model.CachedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan similar")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: find similar iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM nutrition_cache`,
	).Scan(&st.Entries, &st.TotalHits)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

