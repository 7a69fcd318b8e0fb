// Package search runs place searches through the provider, aggregates the
// ratings and memoizes results per (query, location).
package search

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/rating"
	"github.com/sells-group/review-compare/internal/resilience"
	"github.com/sells-group/review-compare/pkg/google"
)

const defaultDetailsConcurrency = 4

var reviewFields = []string{"reviews"}

// Service is the cached search entry point.
type Service struct {
	client      google.Client
	cache       *Cache
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithCache replaces the default cache.
func WithCache(c *Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithDetailsConcurrency bounds the parallel place details requests per search.
func WithDetailsConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a search Service backed by client.
func NewService(client google.Client, opts ...Option) *Service {
	s := &Service{
		client:      client,
		cache:       NewCache(DefaultTTL),
		concurrency: defaultDetailsConcurrency,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search returns the aggregated dataset for (query, location).
//
// A fresh cached result is returned verbatim. Otherwise the provider is
// queried and, if every call succeeded, the result is cached; an empty result
// is cached too. Errors are classified:
//   - *resilience.CredentialError: nil records, nothing cached.
//   - *resilience.TransientFetchError: empty records, nothing cached.
//
// When only some place details fail, those places keep an empty rating sample
// and the result is returned without error but not cached.
func (s *Service) Search(ctx context.Context, query, location string) ([]model.BusinessRecord, error) {
	key := model.SearchKey{Query: query, Location: location}
	if records, ok := s.cache.Get(key); ok {
		zap.L().Debug("search: cache hit", zap.String("query", query), zap.String("location", location))
		return records, nil
	}

	places, err := s.client.TextSearch(ctx, query, location)
	if err != nil {
		return s.fail("search: text search", query, location, err)
	}

	raw, complete, err := s.loadRatings(ctx, dedupe(places))
	if err != nil {
		return s.fail("search: place details", query, location, err)
	}

	records := rating.Aggregate(raw)
	s.attachPhotos(records, raw)

	if complete {
		s.cache.Put(key, records)
	}

	zap.L().Info("search: complete",
		zap.String("query", query),
		zap.String("location", location),
		zap.Int("places", len(records)),
		zap.Bool("cached", complete),
	)
	return records, nil
}

// CacheStats returns statistics for the underlying cache.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

func (s *Service) fail(op, query, location string, err error) ([]model.BusinessRecord, error) {
	if errors.Is(err, google.ErrAccessDenied) {
		zap.L().Error("search: provider rejected credentials",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil, &resilience.CredentialError{Op: op, Err: err}
	}
	zap.L().Warn("search: provider call failed",
		zap.String("query", query),
		zap.String("location", location),
		zap.Error(err),
	)
	return []model.BusinessRecord{}, &resilience.TransientFetchError{Op: op, Err: err}
}

// loadRatings fetches each place's reviews concurrently. A failed lookup
// leaves that place with no sampled ratings and marks the result incomplete;
// a credential failure aborts the whole load.
func (s *Service) loadRatings(ctx context.Context, places []google.Place) ([]model.RawPlace, bool, error) {
	raw := make([]model.RawPlace, len(places))
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range places {
		raw[i] = model.RawPlace{
			PlaceID:          p.PlaceID,
			Name:             p.Name,
			Address:          p.FormattedAddress,
			Rating:           p.Rating,
			UserRatingsTotal: p.UserRatingsTotal,
		}
		if len(p.Photos) > 0 {
			raw[i].PhotoReference = p.Photos[0].PhotoReference
		}
		if p.PlaceID == "" {
			continue
		}

		g.Go(func() error {
			details, err := s.client.PlaceDetails(gctx, p.PlaceID, reviewFields...)
			if err != nil {
				if errors.Is(err, google.ErrAccessDenied) {
					return err
				}
				failed.Add(1)
				zap.L().Warn("search: place details failed, using empty sample",
					zap.String("place_id", p.PlaceID),
					zap.Error(err),
				)
				return nil
			}
			ratings := make([]int, 0, len(details.Reviews))
			for _, r := range details.Reviews {
				ratings = append(ratings, r.Rating)
			}
			raw[i].Ratings = ratings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return raw, failed.Load() == 0, nil
}

func (s *Service) attachPhotos(records []model.BusinessRecord, raw []model.RawPlace) {
	refs := make(map[string]string, len(raw))
	for _, p := range raw {
		if p.PhotoReference != "" {
			refs[p.PlaceID] = p.PhotoReference
		}
	}
	for i := range records {
		records[i].PhotoReference = refs[records[i].PlaceID]
	}
}

// dedupe drops repeated place ids across result pages, keeping the first.
func dedupe(places []google.Place) []google.Place {
	seen := make(map[string]bool, len(places))
	out := make([]google.Place, 0, len(places))
	for _, p := range places {
		if p.PlaceID != "" {
			if seen[p.PlaceID] {
				continue
			}
			seen[p.PlaceID] = true
		}
		out = append(out, p)
	}
	return out
}
