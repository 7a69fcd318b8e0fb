package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/review-compare/internal/model"
)

func TestAggregate_EndToEnd(t *testing.T) {
	places := []model.RawPlace{
		{PlaceID: "A", Name: "Cafe X", Ratings: []int{5, 5, 4, 3, 5}},
		{PlaceID: "B", Name: "Cafe Y", Ratings: nil},
	}

	records := Aggregate(places)
	require.Len(t, records, 2)

	a := records[0]
	assert.Equal(t, "A", a.PlaceID)
	assert.InDelta(t, 60.0, a.Buckets.Get(5), 1e-9)
	assert.InDelta(t, 20.0, a.Buckets.Get(4), 1e-9)
	assert.InDelta(t, 20.0, a.Buckets.Get(3), 1e-9)
	assert.Zero(t, a.Buckets.Get(2))
	assert.Zero(t, a.Buckets.Get(1))
	assert.Equal(t, 5, a.SampledReviews)

	b := records[1]
	assert.Equal(t, "B", b.PlaceID)
	assert.Equal(t, model.BucketPct{}, b.Buckets)
	assert.Zero(t, b.SampledReviews)
}

func TestDistribution_SumsToHundred(t *testing.T) {
	samples := [][]int{
		{1},
		{1, 2, 3},
		{5, 5, 5, 4, 4, 2, 1},
		{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 1},
		{1, 2, 3, 4, 5, 1, 2, 3, 4, 5, 5},
	}
	for _, ratings := range samples {
		pct := Distribution(ratings)
		assert.InDelta(t, 100.0, pct.Sum(), 1e-6, "ratings %v", ratings)

		for star := 1; star <= model.Stars; star++ {
			count := 0
			for _, r := range ratings {
				if r == star {
					count++
				}
			}
			want := 100 * float64(count) / float64(len(ratings))
			assert.InDelta(t, want, pct.Get(star), 1e-9, "star %d of %v", star, ratings)
		}
	}
}

func TestDistribution_EmptyIsAllZero(t *testing.T) {
	assert.Equal(t, model.BucketPct{}, Distribution(nil))
	assert.Equal(t, model.BucketPct{}, Distribution([]int{}))
}

func TestDistribution_IgnoresOutOfRange(t *testing.T) {
	pct := Distribution([]int{0, 6, -1, 4, 4})
	assert.InDelta(t, 100.0, pct.Get(4), 1e-9)
	assert.InDelta(t, 100.0, pct.Sum(), 1e-9)

	assert.Equal(t, model.BucketPct{}, Distribution([]int{0, 7}))
}

func TestAggregate_SkipsMalformed(t *testing.T) {
	places := []model.RawPlace{
		{PlaceID: "", Name: "No ID", Ratings: []int{5}},
		{PlaceID: "C", Name: "", Ratings: []int{5}},
		{PlaceID: "D", Name: "Diner", Address: "2 Elm St", Rating: 4.2, UserRatingsTotal: 310, Ratings: []int{4}},
	}

	records := Aggregate(places)
	require.Len(t, records, 1)
	assert.Equal(t, "D", records[0].PlaceID)
	assert.Equal(t, "2 Elm St", records[0].Address)
	assert.InDelta(t, 4.2, records[0].AverageRating, 1e-9)
	assert.Equal(t, 310, records[0].TotalReviews)
}

func TestAggregate_Empty(t *testing.T) {
	records := Aggregate(nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFromPlace_ClampsReportedValues(t *testing.T) {
	rec, ok := FromPlace(model.RawPlace{PlaceID: "E", Name: "Odd", Rating: 7.5, UserRatingsTotal: -3})
	require.True(t, ok)
	assert.Zero(t, rec.AverageRating)
	assert.Zero(t, rec.TotalReviews)
}

func TestFromPlace_TotalReviewsIndependentOfSample(t *testing.T) {
	rec, ok := FromPlace(model.RawPlace{PlaceID: "F", Name: "Busy", UserRatingsTotal: 1200, Ratings: []int{5, 1}})
	require.True(t, ok)
	assert.Equal(t, 1200, rec.TotalReviews)
	assert.Equal(t, 2, rec.SampledReviews)
	assert.InDelta(t, 50.0, rec.Buckets.Get(5), 1e-9)
	assert.InDelta(t, 50.0, rec.Buckets.Get(1), 1e-9)
}
