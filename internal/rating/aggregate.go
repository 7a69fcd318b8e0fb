// Package rating turns provider places and their sampled review ratings into
// the tabular business dataset.
package rating

import (
	"go.uber.org/zap"

	"github.com/sells-group/review-compare/internal/model"
)

// Distribution returns the percentage of ratings in each star bucket.
// Ratings outside 1..5 are ignored. An empty (or entirely invalid) sample
// yields all zeros, not a uniform split.
func Distribution(ratings []int) model.BucketPct {
	var counts [model.Stars]int
	n := 0
	for _, r := range ratings {
		if r < 1 || r > model.Stars {
			continue
		}
		counts[r-1]++
		n++
	}

	var pct model.BucketPct
	if n == 0 {
		return pct
	}
	for i, c := range counts {
		pct[i] = float64(c) / float64(n) * 100
	}
	return pct
}

// sampleSize counts the ratings Distribution actually used.
func sampleSize(ratings []int) int {
	n := 0
	for _, r := range ratings {
		if r >= 1 && r <= model.Stars {
			n++
		}
	}
	return n
}

// FromPlace converts one place into a record. It reports false when the
// place lacks an id or a name.
func FromPlace(p model.RawPlace) (model.BusinessRecord, bool) {
	if p.PlaceID == "" || p.Name == "" {
		return model.BusinessRecord{}, false
	}

	avg := p.Rating
	if avg < 0 || avg > model.Stars {
		avg = 0
	}
	total := p.UserRatingsTotal
	if total < 0 {
		total = 0
	}

	return model.BusinessRecord{
		PlaceID:        p.PlaceID,
		Name:           p.Name,
		Address:        p.Address,
		AverageRating:  avg,
		TotalReviews:   total,
		SampledReviews: sampleSize(p.Ratings),
		Buckets:        Distribution(p.Ratings),
	}, true
}

// Aggregate builds one record per well-formed place, preserving input order.
// Malformed places are skipped and logged; Aggregate never fails.
func Aggregate(places []model.RawPlace) []model.BusinessRecord {
	records := make([]model.BusinessRecord, 0, len(places))
	skipped := 0
	for _, p := range places {
		rec, ok := FromPlace(p)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Warn("rating: skipped malformed places",
			zap.Int("skipped", skipped),
			zap.Int("total", len(places)),
		)
	}
	return records
}
