package model

// RawPlace is a place as returned by the provider, joined with the individual
// review ratings sampled from its details.
type RawPlace struct {
	PlaceID          string
	Name             string
	Address          string
	Rating           float64
	UserRatingsTotal int
	Ratings          []int // sampled review ratings, 1..5
	PhotoReference   string
}

// RawReview is a single provider review.
type RawReview struct {
	Rating int    `json:"rating"`
	Time   int64  `json:"time"` // unix seconds
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}
