package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/review-compare/internal/model"
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
CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	result_count INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_results (
	search_id      TEXT NOT NULL REFERENCES searches(id),
	position       INTEGER NOT NULL,
	place_id       TEXT NOT NULL,
	name           TEXT NOT NULL,
	average_rating REAL NOT NULL DEFAULT 0,
	total_reviews  INTEGER NOT NULL DEFAULT 0,
	record         TEXT NOT NULL,
	PRIMARY KEY (search_id, position)
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_searches_query ON searches(query);
CREATE INDEX IF NOT EXISTS idx_search_results_place_id ON search_results(place_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSearch(ctx context.Context, query, location string, records []model.BusinessRecord) (*model.SearchRun, error) {
	run := &model.SearchRun{
		ID:          uuid.New().String(),
		Query:       query,
		Location:    location,
		ResultCount: len(records),
		Businesses:  records,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin save search")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO searches (id, query, location, result_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, query, location, run.ResultCount, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search")
	}

	for i, r := range records {
		recordJSON, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal record")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO search_results (search_id, position, place_id, name, average_rating, total_reviews, record)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, r.PlaceID, r.Name, r.AverageRating, r.TotalReviews, string(recordJSON),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert result %s", r.PlaceID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit save search")
	}
	return run, nil
}

func (s *SQLiteStore) GetSearch(ctx context.Context, id string) (*model.SearchRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, location, result_count, created_at FROM searches WHERE id = ?`,
		id,
	)
	run, err := scanSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get search %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get search")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM search_results WHERE search_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get search results")
	}
	defer rows.Close()

	run.Businesses = make([]model.BusinessRecord, 0, run.ResultCount)
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var r model.BusinessRecord
		if err := json.Unmarshal([]byte(recordJSON), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		run.Businesses = append(run.Businesses, r)
	}
	return run, eris.Wrap(rows.Err(), "sqlite: get search results iterate")
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter HistoryFilter) ([]model.SearchRun, error) {
	query := `SELECT id, query, location, result_count, created_at FROM searches WHERE 1=1`
	var args []any

	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	runs := []model.SearchRun{}
	for rows.Next() {
		run, err := scanSearch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

func (s *SQLiteStore) DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin delete searches")
	}
	defer tx.Rollback() //nolint:errcheck

	cutoff = cutoff.UTC()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM search_results WHERE search_id IN (SELECT id FROM searches WHERE created_at < ?)`,
		cutoff,
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete search results")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM searches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete searches")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit delete searches")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSearch(row scannable) (*model.SearchRun, error) {
	var run model.SearchRun
	if err := row.Scan(&run.ID, &run.Query, &run.Location, &run.ResultCount, &run.CreatedAt); err != nil {
		return nil, err
	}
	return &run, nil
}
