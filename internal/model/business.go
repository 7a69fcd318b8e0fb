package model

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Stars is the number of rating buckets (1 through 5 stars).
const Stars = 5

// BucketPct holds the share of sampled reviews per star rating, indexed so
// that Get(1) is the 1-star share and Get(5) the 5-star share.
type BucketPct [Stars]float64

// Get returns the percentage for the given star rating, or 0 for an out of
// range star.
func (b BucketPct) Get(star int) float64 {
	if star < 1 || star > Stars {
		return 0
	}
	return b[star-1]
}

// Set stores the percentage for the given star rating. Out of range stars are ignored.
func (b *BucketPct) Set(star int, pct float64) {
	if star < 1 || star > Stars {
		return
	}
	b[star-1] = pct
}

// Sum returns the total of all five buckets.
func (b BucketPct) Sum() float64 {
	var total float64
	for _, v := range b {
		total += v
	}
	return total
}

// Descending returns the bucket values ordered 5 stars first, the order the
// distribution chart and the comparison vector use.
func (b BucketPct) Descending() [Stars]float64 {
	var out [Stars]float64
	for i := range Stars {
		out[i] = b.Get(Stars - i)
	}
	return out
}

func (b BucketPct) asMap() map[string]float64 {
	m := make(map[string]float64, Stars)
	for star := 1; star <= Stars; star++ {
		m[strconv.Itoa(star)] = b.Get(star)
	}
	return m
}

// MarshalJSON encodes the buckets as {"1": pct, ..., "5": pct}.
func (b BucketPct) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.asMap())
}

// UnmarshalJSON decodes the {"1": pct, ..., "5": pct} form.
func (b *BucketPct) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return eris.Wrap(err, "model: unmarshal buckets")
	}
	*b = BucketPct{}
	for k, v := range m {
		star, err := strconv.Atoi(k)
		if err != nil {
			return eris.Errorf("model: invalid bucket label %q", k)
		}
		b.Set(star, v)
	}
	return nil
}

// MarshalYAML encodes the buckets the same way as MarshalJSON.
func (b BucketPct) MarshalYAML() (any, error) {
	return b.asMap(), nil
}

// BusinessRecord is one row of the aggregated dataset. PlaceID is the key;
// Name is display-only and may repeat across records.
type BusinessRecord struct {
	PlaceID        string    `json:"place_id" yaml:"place_id"`
	Name           string    `json:"name" yaml:"name"`
	Address        string    `json:"address,omitempty" yaml:"address,omitempty"`
	AverageRating  float64   `json:"average_rating" yaml:"average_rating"`
	TotalReviews   int       `json:"total_reviews" yaml:"total_reviews"`
	SampledReviews int       `json:"sampled_reviews" yaml:"sampled_reviews"` // size of the sample Buckets was computed from
	Buckets        BucketPct `json:"bucket_pct" yaml:"bucket_pct"`
	// PhotoReference identifies the place's first photo. It is not a URL; the
	// keyed photo URL is built per request and never stored.
	PhotoReference string    `json:"photo_reference,omitempty" yaml:"photo_reference,omitempty"`
}

// SearchKey identifies a cached search. Matching is exact; callers normalize
// before building the key if they want to.
type SearchKey struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
}
