package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/review-compare/internal/db"
	"github.com/sells-group/review-compare/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var resultColumns = []string{"search_id", "position", "place_id", "name", "average_rating", "total_reviews", "record"}

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

	maxConns := int32(4)
	minConns := int32(1)
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query        TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	result_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_results (
	search_id      TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	place_id       TEXT NOT NULL,
	name           TEXT NOT NULL,
	average_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_reviews  INTEGER NOT NULL DEFAULT 0,
	record         JSONB NOT NULL,
	PRIMARY KEY (search_id, position)
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_searches_query ON searches(query);
CREATE INDEX IF NOT EXISTS idx_search_results_place_id ON search_results(place_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSearch(ctx context.Context, query, location string, records []model.BusinessRecord) (*model.SearchRun, error) {
	run := &model.SearchRun{
		ID:          uuid.New().String(),
		Query:       query,
		Location:    location,
		ResultCount: len(records),
		Businesses:  records,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin save search")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO searches (id, query, location, result_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, query, location, run.ResultCount, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search")
	}

	rows := make([][]any, 0, len(records))
	for i, r := range records {
		recordJSON, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal record")
		}
		rows = append(rows, []any{run.ID, i, r.PlaceID, r.Name, r.AverageRating, r.TotalReviews, recordJSON})
	}
	if _, err := db.CopyRows(ctx, tx, "search_results", resultColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: insert results")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit save search")
	}
	return run, nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, id string) (*model.SearchRun, error) {
	var run model.SearchRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, query, location, result_count, created_at FROM searches WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Query, &run.Location, &run.ResultCount, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get search %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get search")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT record FROM search_results WHERE search_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get search results")
	}
	defer rows.Close()

	run.Businesses = make([]model.BusinessRecord, 0, run.ResultCount)
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var r model.BusinessRecord
		if err := json.Unmarshal(recordJSON, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		run.Businesses = append(run.Businesses, r)
	}
	return &run, eris.Wrap(rows.Err(), "postgres: get search results iterate")
}

func (s *PostgresStore) ListSearches(ctx context.Context, filter HistoryFilter) ([]model.SearchRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, location, result_count, created_at FROM searches
		 WHERE ($1 = '' OR query = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		filter.Query, filter.limit(), max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	runs := []model.SearchRun{}
	for rows.Next() {
		var run model.SearchRun
		if err := rows.Scan(&run.ID, &run.Query, &run.Location, &run.ResultCount, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list searches iterate")
}

func (s *PostgresStore) DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM searches WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete searches")
	}
	return int(tag.RowsAffected()), nil
}
