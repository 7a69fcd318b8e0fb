package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/review-compare/internal/compare"
	"github.com/sells-group/review-compare/internal/highlight"
	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/resilience"
	"github.com/sells-group/review-compare/internal/search"
	"github.com/sells-group/review-compare/internal/store"
	"github.com/sells-group/review-compare/pkg/google"
)

// services bundles the components every command shares.
type services struct {
	Client    google.Client
	Search    *search.Service
	Selector  *highlight.Selector
	Engine    *compare.Engine
	History   store.Store
	closeFunc func()
}

// Close releases the history store, if any.
func (s *services) Close() {
	if s.closeFunc != nil {
		s.closeFunc()
	}
}

func initClient() (google.Client, error) {
	if err := cfg.Validate("search"); err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Google.MaxRetries
	retry.OnRetry = resilience.RetryLogger("google places")

	opts := []google.Option{
		google.WithBaseURL(cfg.Google.BaseURL),
		google.WithHTTPClient(&http.Client{Timeout: cfg.Google.Timeout()}),
		google.WithRateLimit(cfg.Google.RateLimit),
		google.WithMaxPages(cfg.Google.MaxPages),
		google.WithPageTokenDelay(cfg.Google.PageTokenDelay()),
		google.WithRetry(retry),
	}
	if cfg.Google.BreakerThreshold > 0 {
		bc := resilience.NewBreakerConfig(cfg.Google.BreakerThreshold, cfg.Google.BreakerCooldownSecs)
		bc.OnStateChange = func(from, to resilience.BreakerState) {
			zap.L().Warn("places breaker state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		opts = append(opts, google.WithBreaker(resilience.NewBreaker(bc)))
	}

	return google.NewClient(cfg.Google.APIKey, opts...), nil
}

// initServices wires the client, search service, selector and engine. The
// history store is opened only when configured.
func initServices(ctx context.Context) (*services, error) {
	client, err := initClient()
	if err != nil {
		return nil, err
	}

	selector := highlight.NewSelector(client, highlight.WithMaxChars(cfg.Highlights.MaxChars))
	svc := &services{
		Client: client,
		Search: search.NewService(client,
			search.WithCache(search.NewCache(cfg.Search.CacheTTL())),
			search.WithDetailsConcurrency(cfg.Search.DetailsConcurrency),
		),
		Selector: selector,
		Engine:   compare.NewEngine(selector, cfg.Highlights.Count),
	}

	if cfg.Store.Enabled() {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		svc.History = st
		svc.closeFunc = func() { st.Close() } //nolint:errcheck
	}

	return svc, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// record saves a successful search to the history store when one is
// configured. Failures are logged, never returned.
func (s *services) record(ctx context.Context, query, location string, records []model.BusinessRecord) {
	if s.History == nil {
		return
	}
	if _, err := s.History.SaveSearch(ctx, query, location, records); err != nil {
		zap.L().Warn("history: save search", zap.String("query", query), zap.Error(err))
	}
}
