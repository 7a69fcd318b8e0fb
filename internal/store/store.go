package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/review-compare/internal/model"
)

// ErrNotFound is returned when a search run does not exist.
var ErrNotFound = eris.New("store: search not found")

const defaultListLimit = 50

// HistoryFilter specifies criteria for listing search runs.
type HistoryFilter struct {
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (f HistoryFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for search history.
type Store interface {
	SaveSearch(ctx context.Context, query, location string, records []model.BusinessRecord) (*model.SearchRun, error)
	GetSearch(ctx context.Context, id string) (*model.SearchRun, error)
	ListSearches(ctx context.Context, filter HistoryFilter) ([]model.SearchRun, error)
	DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
