// Package api exposes search, highlights and comparison as a JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/review-compare/internal/compare"
	"github.com/sells-group/review-compare/internal/highlight"
	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/search"
	"github.com/sells-group/review-compare/internal/store"
)

// Searcher runs cached searches. *search.Service satisfies it.
type Searcher interface {
	Search(ctx context.Context, query, location string) ([]model.BusinessRecord, error)
	CacheStats() search.CacheStats
}

// Comparer builds comparison views. *compare.Engine satisfies it.
type Comparer interface {
	Compare(ctx context.Context, dataset []model.BusinessRecord, idA, idB string, minRating float64) (*compare.View, error)
}

// PhotoLinker builds keyed photo URLs. google.Client satisfies it.
type PhotoLinker interface {
	PhotoURL(reference string, maxWidth int) (string, error)
}

// Server holds the API dependencies.
type Server struct {
	searcher       Searcher
	highlights     compare.HighlightSource
	comparer       Comparer
	history        store.Store
	photos         PhotoLinker
	photoMaxWidth  int
	highlightCount int
	corsOrigins    []string
}

// Option configures a Server.
type Option func(*Server)

// WithHistory records successful searches and enables the history routes.
func WithHistory(s store.Store) Option {
	return func(srv *Server) {
		srv.history = s
	}
}

// WithPhotos enables the photo redirect route. maxWidth is used when the
// request does not ask for one.
func WithPhotos(l PhotoLinker, maxWidth int) Option {
	return func(srv *Server) {
		srv.photos = l
		if maxWidth > 0 {
			srv.photoMaxWidth = maxWidth
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(srv *Server) {
		srv.corsOrigins = origins
	}
}

// WithHighlightCount sets the default number of highlights per place.
func WithHighlightCount(n int) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.highlightCount = n
		}
	}
}

// NewServer creates a Server.
func NewServer(searcher Searcher, highlights compare.HighlightSource, comparer Comparer, opts ...Option) *Server {
	srv := &Server{
		searcher:       searcher,
		highlights:     highlights,
		comparer:       comparer,
		highlightCount: highlight.DefaultCount,
		photoMaxWidth:  defaultPhotoMaxWidth,
		corsOrigins:    []string{"*"},
	}
	for _, o := range opts {
		o(srv)
	}
	return srv
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/places/{placeID}/highlights", s.handleHighlights)
		r.Get("/compare", s.handleCompare)
		r.Get("/photos/{photoRef}", s.handlePhoto)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Get("/history", s.handleListHistory)
		r.Get("/history/{searchID}", s.handleGetHistory)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
