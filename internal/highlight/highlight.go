// Package highlight picks short review excerpts to show next to a business.
package highlight

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/resilience"
	"github.com/sells-group/review-compare/pkg/google"
)

const (
	// DefaultCount is the number of highlights returned when n <= 0.
	DefaultCount = 3
	// DefaultMaxChars is the excerpt length before truncation.
	DefaultMaxChars = 200
	// Ellipsis is appended to truncated excerpts.
	Ellipsis = "..."

	// NoHighlights is the single element returned for a place with no reviews.
	NoHighlights = "No review highlights available."
	// Unavailable is the single element returned when reviews could not be fetched.
	Unavailable = "Review highlights are unavailable right now."
)

// Select ranks reviews by rating (highest first), breaking ties by time
// (newest first), and returns up to n truncated excerpts. It always returns
// at least one element: NoHighlights when reviews is empty.
func Select(reviews []model.RawReview, n int) []string {
	return selectN(reviews, n, DefaultMaxChars)
}

func selectN(reviews []model.RawReview, n, maxChars int) []string {
	if len(reviews) == 0 {
		return []string{NoHighlights}
	}
	if n <= 0 {
		n = DefaultCount
	}

	ranked := make([]model.RawReview, len(reviews))
	copy(ranked, reviews)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rating != ranked[j].Rating {
			return ranked[i].Rating > ranked[j].Rating
		}
		return ranked[i].Time > ranked[j].Time
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := range n {
		out[i] = Truncate(ranked[i].Text, maxChars)
	}
	return out
}

// Truncate shortens text longer than maxChars code points to its first
// maxChars code points plus Ellipsis. Text that fits is returned unchanged.
// When the cut would separate a base character from a following combining
// mark, the cut moves back to the previous normalization boundary so the
// excerpt never ends in a dangling base.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	head := string(runes[:maxChars])
	if !norm.NFC.PropertiesString(string(runes[maxChars:])).BoundaryBefore() {
		if b := norm.NFC.LastBoundary([]byte(head)); b > 0 {
			head = head[:b]
		}
	}
	return head + Ellipsis
}

// Selector fetches a place's reviews and selects highlights from them.
type Selector struct {
	client   google.Client
	maxChars int
}

// Option configures a Selector.
type Option func(*Selector)

// WithMaxChars overrides the excerpt length.
func WithMaxChars(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// NewSelector creates a Selector backed by the given places client.
func NewSelector(client google.Client, opts ...Option) *Selector {
	s := &Selector{client: client, maxChars: DefaultMaxChars}
	for _, o := range opts {
		o(s)
	}
	return s
}

var reviewFields = []string{"reviews"}

// Fetch returns highlights for a place, or a classified error
// (*resilience.CredentialError or *resilience.TransientFetchError).
func (s *Selector) Fetch(ctx context.Context, placeID string, n int) ([]string, error) {
	details, err := s.client.PlaceDetails(ctx, placeID, reviewFields...)
	if err != nil {
		if errors.Is(err, google.ErrAccessDenied) {
			return nil, &resilience.CredentialError{Op: "highlight: fetch reviews", Err: err}
		}
		return nil, &resilience.TransientFetchError{Op: "highlight: fetch reviews", Err: err}
	}
	return selectN(FromGoogle(details.Reviews), n, s.maxChars), nil
}

// Highlights is Fetch with errors degraded to a single Unavailable message,
// for callers that must always have something to render.
func (s *Selector) Highlights(ctx context.Context, placeID string, n int) []string {
	out, err := s.Fetch(ctx, placeID, n)
	if err != nil {
		zap.L().Warn("highlight: falling back to placeholder",
			zap.String("place_id", placeID),
			zap.String("kind", string(resilience.Classify(err))),
			zap.Error(err),
		)
		return []string{Unavailable}
	}
	return out
}

// FromGoogle converts provider reviews to the domain type. Text is kept as
// the provider sent it.
func FromGoogle(reviews []google.Review) []model.RawReview {
	out := make([]model.RawReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, model.RawReview{
			Rating: r.Rating,
			Time:   r.Time,
			Text:   r.Text,
			Author: r.AuthorName,
		})
	}
	return out
}
