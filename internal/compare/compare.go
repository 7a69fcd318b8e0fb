// Package compare builds the side-by-side view of two businesses from a
// search dataset.
package compare

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/resilience"
)

// Axes labels the entries of a metric vector, in order.
var Axes = []string{"Average Rating", "5 Star", "4 Star", "3 Star", "2 Star", "1 Star"}

// MetricVector is the radar-chart series for a record: the average rating
// rescaled to 0..100 followed by the 5..1 star percentages.
func MetricVector(r model.BusinessRecord) [6]float64 {
	var v [6]float64
	v[0] = r.AverageRating * 20
	for i, pct := range r.Buckets.Descending() {
		v[i+1] = pct
	}
	return v
}

// Filter returns the records with an average rating of at least minRating,
// preserving order.
func Filter(dataset []model.BusinessRecord, minRating float64) []model.BusinessRecord {
	out := make([]model.BusinessRecord, 0, len(dataset))
	for _, r := range dataset {
		if r.AverageRating >= minRating {
			out = append(out, r)
		}
	}
	return out
}

// MissingBusinessError is returned when a requested business is not in the
// filtered dataset.
type MissingBusinessError struct {
	IDs       []string
	MinRating float64
}

func (e *MissingBusinessError) Error() string {
	return fmt.Sprintf("compare: %s not found with minimum rating %.1f; try lowering the minimum rating",
		strings.Join(e.IDs, ", "), e.MinRating)
}

// Kind reports the error class for resilience.Classify.
func (e *MissingBusinessError) Kind() resilience.Kind {
	return resilience.KindMissingBusiness
}

// Side is one business in a comparison.
type Side struct {
	Record     model.BusinessRecord `json:"record" yaml:"record"`
	Metrics    [6]float64           `json:"metrics" yaml:"metrics"`
	Highlights []string             `json:"highlights" yaml:"highlights"`
}

// View is the comparison result.
type View struct {
	A    Side     `json:"a" yaml:"a"`
	B    Side     `json:"b" yaml:"b"`
	Axes []string `json:"axes" yaml:"axes"`
}

// HighlightSource yields review highlights for a place and never fails;
// *highlight.Selector satisfies it.
type HighlightSource interface {
	Highlights(ctx context.Context, placeID string, n int) []string
}

// Engine compares businesses.
type Engine struct {
	highlights HighlightSource
	count      int
}

// NewEngine creates an Engine that fetches count highlights per side.
func NewEngine(src HighlightSource, count int) *Engine {
	return &Engine{highlights: src, count: count}
}

// Compare filters dataset by minRating, looks up idA and idB and returns
// their view. Either id missing from the filtered dataset yields a
// *MissingBusinessError naming exactly the missing ids.
func (e *Engine) Compare(ctx context.Context, dataset []model.BusinessRecord, idA, idB string, minRating float64) (*View, error) {
	byID := make(map[string]model.BusinessRecord)
	for _, r := range Filter(dataset, minRating) {
		if _, ok := byID[r.PlaceID]; !ok {
			byID[r.PlaceID] = r
		}
	}

	var missing []string
	for _, id := range []string{idA, idB} {
		if _, ok := byID[id]; ok {
			continue
		}
		if len(missing) == 1 && missing[0] == id {
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) > 0 {
		zap.L().Info("compare: business not in filtered dataset",
			zap.Strings("missing", missing),
			zap.Float64("min_rating", minRating),
		)
		return nil, &MissingBusinessError{IDs: missing, MinRating: minRating}
	}

	view := &View{
		A:    Side{Record: byID[idA], Metrics: MetricVector(byID[idA])},
		B:    Side{Record: byID[idB], Metrics: MetricVector(byID[idB])},
		Axes: Axes,
	}

	// Lookups degrade on their own; only cancellation fails the comparison.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view.A.Highlights = e.highlights.Highlights(gctx, idA, e.count)
		return gctx.Err()
	})
	g.Go(func() error {
		view.B.Highlights = e.highlights.Highlights(gctx, idB, e.count)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "compare: fetch highlights")
	}

	return view, nil
}
