// Package google is a client for the Google Places web service (text search,
// place details and photo URLs).
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/review-compare/internal/resilience"
)

const (
	defaultBaseURL        = "https://maps.googleapis.com/maps/api/place"
	defaultMaxPages       = 3
	defaultPageTokenDelay = 2 * time.Second
	defaultRadiusMeters   = 5000
)

// DefaultDetailFields is the field mask used by PlaceDetails when none is given.
var DefaultDetailFields = []string{"place_id", "name", "formatted_address", "rating", "user_ratings_total", "reviews"}

var (
	// ErrAccessDenied is returned (wrapped) when the API rejects the key.
	ErrAccessDenied = eris.New("google: access denied")
	// ErrNotFound is returned (wrapped) when a place id is unknown.
	ErrNotFound = eris.New("google: place not found")
	// ErrEmptyPhotoReference is returned by PhotoURL for an empty reference.
	ErrEmptyPhotoReference = eris.New("google: empty photo reference")
)

// Client performs Google Places API operations.
type Client interface {
	// TextSearch runs a text search and follows next-page tokens, returning
	// every page as one slice.
	TextSearch(ctx context.Context, query, location string) ([]Place, error)
	// PlaceDetails fetches details (including reviews) for one place.
	PlaceDetails(ctx context.Context, placeID string, fields ...string) (*PlaceDetails, error)
	// PhotoURL builds the photo endpoint URL for a photo reference. No request is made.
	PhotoURL(reference string, maxWidth int) (string, error)
}

// Place is one text search result.
type Place struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	UserRatingsTotal int     `json:"user_ratings_total,omitempty"`
	Photos           []Photo `json:"photos,omitempty"`
}

// Photo is a photo attached to a place.
type Photo struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// Review is a single user review from place details.
type Review struct {
	AuthorName              string `json:"author_name"`
	Rating                  int    `json:"rating"`
	Time                    int64  `json:"time"`
	Text                    string `json:"text"`
	RelativeTimeDescription string `json:"relative_time_description,omitempty"`
}

// PlaceDetails is the details result for one place.
type PlaceDetails struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	Reviews          []Review `json:"reviews,omitempty"`
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type textSearchResponse struct {
	envelope
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

type detailsResponse struct {
	envelope
	Result PlaceDetails `json:"result"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxPages caps how many result pages TextSearch follows.
func WithMaxPages(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithPageTokenDelay sets the wait before requesting a follow-up page.
// The API rejects a next_page_token for a short time after issuing it.
func WithPageTokenDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.pageTokenDelay = d
	}
}

// WithRadius sets the search radius used when the location is a coordinate pair.
func WithRadius(meters int) Option {
	return func(c *httpClient) {
		if meters > 0 {
			c.radius = meters
		}
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithBreaker fails calls fast while b is open.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

type httpClient struct {
	apiKey         string
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	maxPages       int
	pageTokenDelay time.Duration
	radius         int
	retry          resilience.RetryConfig
	breaker        *resilience.Breaker
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:        rate.NewLimiter(10, 10),
		maxPages:       defaultMaxPages,
		pageTokenDelay: defaultPageTokenDelay,
		radius:         defaultRadiusMeters,
		retry:          resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, query, location string) ([]Place, error) {
	params := c.searchParams(query, location)

	var places []Place
	for page := 0; page < c.maxPages; page++ {
		resp, err := c.textSearchPage(ctx, params)
		if err != nil {
			return nil, err
		}
		places = append(places, resp.Results...)

		if resp.NextPageToken == "" {
			break
		}
		if page+1 >= c.maxPages {
			break
		}

		if c.pageTokenDelay > 0 {
			timer := time.NewTimer(c.pageTokenDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, eris.Wrap(ctx.Err(), "google: text search")
			case <-timer.C:
			}
		}
		params = url.Values{"pagetoken": {resp.NextPageToken}}
	}
	return places, nil
}

// searchParams builds the first-page query. A "lat,lng" location is sent as a
// location bias; anything else is folded into the query text.
func (c *httpClient) searchParams(query, location string) url.Values {
	params := url.Values{}
	location = strings.TrimSpace(location)
	if lat, lng, ok := parseLatLng(location); ok {
		params.Set("query", query)
		params.Set("location", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lng, 'f', 6, 64))
		params.Set("radius", strconv.Itoa(c.radius))
		return params
	}
	if location != "" {
		query = query + " in " + location
	}
	params.Set("query", query)
	return params
}

func (c *httpClient) textSearchPage(ctx context.Context, params url.Values) (*textSearchResponse, error) {
	return guarded(ctx, c, "text search", func(ctx context.Context) (*textSearchResponse, error) {
		var resp textSearchResponse
		if err := c.get(ctx, "text search", "/textsearch/json", params, &resp); err != nil {
			return nil, err
		}
		if err := checkStatus("text search", resp.envelope, params.Has("pagetoken")); err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string, fields ...string) (*PlaceDetails, error) {
	if placeID == "" {
		return nil, eris.New("google: place details: empty place id")
	}
	if len(fields) == 0 {
		fields = DefaultDetailFields
	}
	params := url.Values{
		"place_id": {placeID},
		"fields":   {strings.Join(fields, ",")},
	}

	return guarded(ctx, c, "place details", func(ctx context.Context) (*PlaceDetails, error) {
		var resp detailsResponse
		if err := c.get(ctx, "place details", "/details/json", params, &resp); err != nil {
			return nil, err
		}
		if err := checkStatus("place details", resp.envelope, false); err != nil {
			return nil, err
		}
		return &resp.Result, nil
	})
}

// guarded retries fn and, when a breaker is set, runs the whole retry loop
// through it so one exhausted call counts as one failure.
func guarded[T any](ctx context.Context, c *httpClient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger(op)
	do := func(ctx context.Context) (T, error) {
		return resilience.DoVal(ctx, retry, fn)
	}
	if c.breaker == nil {
		return do(ctx)
	}
	return resilience.ExecuteVal(ctx, c.breaker, do)
}

func (c *httpClient) PhotoURL(reference string, maxWidth int) (string, error) {
	if reference == "" {
		return "", ErrEmptyPhotoReference
	}
	if maxWidth <= 0 {
		maxWidth = 400
	}
	params := url.Values{
		"maxwidth":        {strconv.Itoa(maxWidth)},
		"photo_reference": {reference},
		"key":             {c.apiKey},
	}
	return c.baseURL + "/photo?" + params.Encode(), nil
}

func (c *httpClient) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "google: %s: rate limit wait", op)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrapf(err, "google: %s: create request", op)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "google: %s: send request", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "google: %s: read response", op)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return eris.Wrapf(ErrAccessDenied, "google: %s: status %d", op, resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(
			eris.Errorf("google: %s: unexpected status %d: %s", op, resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return eris.Errorf("google: %s: unexpected status %d: %s", op, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "google: %s: unmarshal response", op)
	}
	return nil
}

// checkStatus maps the API-level status field to an error. paged is true
// when the request carried a page token, where INVALID_REQUEST means the
// token is not active yet.
func checkStatus(op string, env envelope, paged bool) error {
	switch env.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED":
		return eris.Wrapf(ErrAccessDenied, "google: %s: %s", op, env.ErrorMessage)
	case "NOT_FOUND":
		return eris.Wrapf(ErrNotFound, "google: %s", op)
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return resilience.NewTransientError(eris.Errorf("google: %s: %s %s", op, env.Status, env.ErrorMessage), 0)
	case "INVALID_REQUEST":
		if paged {
			return resilience.NewTransientError(eris.Errorf("google: %s: page token not ready", op), 0)
		}
	}
	return eris.Errorf("google: %s: status %s %s", op, env.Status, env.ErrorMessage)
}

func parseLatLng(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}
