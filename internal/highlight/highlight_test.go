package highlight

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/resilience"
	"github.com/sells-group/review-compare/pkg/google"
	"github.com/sells-group/review-compare/pkg/google/mocks"
)

func TestSelect_TieBrokenByNewest(t *testing.T) {
	reviews := []model.RawReview{
		{Rating: 5, Time: 100, Text: "great"},
		{Rating: 5, Time: 200, Text: "excellent"},
		{Rating: 3, Time: 300, Text: "ok"},
	}

	assert.Equal(t, []string{"excellent", "great"}, Select(reviews, 2))
}

func TestSelect_DefaultCountAndOrder(t *testing.T) {
	reviews := []model.RawReview{
		{Rating: 2, Time: 500, Text: "meh"},
		{Rating: 4, Time: 100, Text: "good"},
		{Rating: 5, Time: 50, Text: "best"},
		{Rating: 4, Time: 400, Text: "pretty good"},
		{Rating: 1, Time: 900, Text: "bad"},
	}

	got := Select(reviews, 0)
	assert.Equal(t, []string{"best", "pretty good", "good"}, got)
}

func TestSelect_FewerThanN(t *testing.T) {
	one := []model.RawReview{{Rating: 4, Time: 1, Text: "solo"}}
	two := []model.RawReview{{Rating: 1, Time: 1, Text: "low"}, {Rating: 3, Time: 1, Text: "mid"}}

	assert.Equal(t, []string{"solo"}, Select(one, 3))
	assert.Equal(t, []string{"mid", "low"}, Select(two, 3))
}

func TestSelect_EmptyReturnsSentinel(t *testing.T) {
	assert.Equal(t, []string{NoHighlights}, Select(nil, 3))
}

func TestSelect_DoesNotReorderInput(t *testing.T) {
	reviews := []model.RawReview{{Rating: 1, Text: "a"}, {Rating: 5, Text: "b"}}
	Select(reviews, 2)
	assert.Equal(t, "a", reviews[0].Text)
}

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("x", 200)
	assert.Equal(t, exact, Truncate(exact, 200))

	long := strings.Repeat("y", 250)
	got := Truncate(long, 200)
	assert.Equal(t, strings.Repeat("y", 200)+Ellipsis, got)

	short := "  short text  "
	assert.Equal(t, short, Truncate(short, 200))
}

func TestTruncate_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("\u00e9", 201)
	got := Truncate(text, 200)
	assert.Equal(t, strings.Repeat("\u00e9", 200)+Ellipsis, got)

	// 150 decomposed pairs are 300 code points.
	decomposed := strings.Repeat("e\u0301", 150)
	got = Truncate(decomposed, 200)
	assert.Equal(t, strings.Repeat("e\u0301", 100)+Ellipsis, got)
}

func TestTruncate_KeepsCombiningMarkWithBase(t *testing.T) {
	text := strings.Repeat("a", 199) + "e\u0301" + strings.Repeat("b", 10)
	assert.Equal(t, strings.Repeat("a", 199)+Ellipsis, Truncate(text, 200))
}

func TestFromGoogle_KeepsTextVerbatim(t *testing.T) {
	padded := "  friendly staff  "
	got := FromGoogle([]google.Review{{AuthorName: "Ann", Rating: 4, Time: 10, Text: padded}})

	require.Len(t, got, 1)
	assert.Equal(t, padded, got[0].Text)
	assert.Equal(t, padded, Truncate(padded, 200))
}

func TestSelector_Fetch(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("PlaceDetails", mock.Anything, "A", "reviews").Return(&google.PlaceDetails{
		PlaceID: "A",
		Reviews: []google.Review{
			{Rating: 3, Time: 300, Text: "ok"},
			{Rating: 5, Time: 100, Text: " great "},
			{Rating: 5, Time: 200, Text: "excellent"},
		},
	}, nil)

	sel := NewSelector(client)
	got, err := sel.Fetch(context.Background(), "A", 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"excellent", "great"}, got)
}

func TestSelector_FetchNoReviews(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("PlaceDetails", mock.Anything, "B", "reviews").Return(&google.PlaceDetails{PlaceID: "B"}, nil)

	got := NewSelector(client).Highlights(context.Background(), "B", 3)
	assert.Equal(t, []string{NoHighlights}, got)
}

func TestSelector_CredentialError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("PlaceDetails", mock.Anything, "A", "reviews").
		Return(nil, eris.Wrap(google.ErrAccessDenied, "google: place details"))

	sel := NewSelector(client)
	_, err := sel.Fetch(context.Background(), "A", 3)
	require.Error(t, err)
	assert.Equal(t, resilience.KindCredential, resilience.Classify(err))

	assert.Equal(t, []string{Unavailable}, sel.Highlights(context.Background(), "A", 3))
}

func TestSelector_TransientError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("PlaceDetails", mock.Anything, "A", "reviews").Return(nil, eris.New("connection refused"))

	sel := NewSelector(client)
	_, err := sel.Fetch(context.Background(), "A", 3)
	require.Error(t, err)
	assert.Equal(t, resilience.KindTransient, resilience.Classify(err))

	assert.Equal(t, []string{Unavailable}, sel.Highlights(context.Background(), "A", 3))
}

func TestSelector_MaxChars(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("PlaceDetails", mock.Anything, "A", "reviews").Return(&google.PlaceDetails{
		Reviews: []google.Review{{Rating: 5, Time: 1, Text: "abcdefghij"}},
	}, nil)

	got := NewSelector(client, WithMaxChars(4)).Highlights(context.Background(), "A", 1)
	assert.Equal(t, []string{"abcd" + Ellipsis}, got)
}
