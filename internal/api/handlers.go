package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/review-compare/internal/compare"
	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/resilience"
	"github.com/sells-group/review-compare/internal/store"
)

const (
	defaultMinRating     = 1.0
	maxHighlights        = 10
	defaultHistoryLimit  = 20
	defaultPhotoMaxWidth = 400
	maxPhotoWidth        = 1600
	transientMessage     = "The places service is temporarily unavailable; showing no results."
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type searchResponse struct {
	Query      string                 `json:"query"`
	Location   string                 `json:"location,omitempty"`
	Count      int                    `json:"count"`
	Businesses []model.BusinessRecord `json:"businesses"`
	Message    string                 `json:"message,omitempty"`
}

type highlightsResponse struct {
	PlaceID    string   `json:"place_id"`
	Highlights []string `json:"highlights"`
}

type missingResponse struct {
	errorResponse
	Missing    []string `json:"missing"`
	MinRating  float64  `json:"min_rating"`
	Suggestion string   `json:"suggestion"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, kind resilience.Kind) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: string(kind)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required", resilience.KindNone)
		return
	}

	records, err := s.searcher.Search(r.Context(), q, location)
	resp := searchResponse{Query: q, Location: location}

	switch resilience.Classify(err) {
	case resilience.KindNone:
		s.recordHistory(r, q, location, records)
	case resilience.KindCredential:
		writeError(w, http.StatusServiceUnavailable, "places API credentials are missing or invalid", resilience.KindCredential)
		return
	default:
		resp.Message = transientMessage
		records = []model.BusinessRecord{}
	}

	if records == nil {
		records = []model.BusinessRecord{}
	}
	resp.Businesses = records
	resp.Count = len(records)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordHistory(r *http.Request, query, location string, records []model.BusinessRecord) {
	if s.history == nil {
		return
	}
	if _, err := s.history.SaveSearch(r.Context(), query, location, records); err != nil {
		zap.L().Warn("api: save search history", zap.String("query", query), zap.Error(err))
	}
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")

	n := s.highlightCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxHighlights {
			writeError(w, http.StatusBadRequest, "n must be an integer between 1 and 10", resilience.KindNone)
			return
		}
		n = v
	}

	writeJSON(w, http.StatusOK, highlightsResponse{
		PlaceID:    placeID,
		Highlights: s.highlights.Highlights(r.Context(), placeID, n),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	location := strings.TrimSpace(params.Get("location"))
	idA, idB := params.Get("a"), params.Get("b")
	if q == "" || idA == "" || idB == "" {
		writeError(w, http.StatusBadRequest, "q, a and b are required", resilience.KindNone)
		return
	}

	minRating := defaultMinRating
	if raw := params.Get("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 5 {
			writeError(w, http.StatusBadRequest, "min_rating must be a number between 0 and 5", resilience.KindNone)
			return
		}
		minRating = v
	}

	dataset, err := s.searcher.Search(r.Context(), q, location)
	switch resilience.Classify(err) {
	case resilience.KindNone:
	case resilience.KindCredential:
		writeError(w, http.StatusServiceUnavailable, "places API credentials are missing or invalid", resilience.KindCredential)
		return
	default:
		writeError(w, http.StatusBadGateway, "places service is temporarily unavailable", resilience.KindTransient)
		return
	}

	view, err := s.comparer.Compare(r.Context(), dataset, idA, idB, minRating)
	if err != nil {
		var missing *compare.MissingBusinessError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusUnprocessableEntity, missingResponse{
				errorResponse: errorResponse{Error: err.Error(), Kind: string(resilience.KindMissingBusiness)},
				Missing:       missing.IDs,
				MinRating:     missing.MinRating,
				Suggestion:    "lower min_rating or pick businesses from the current results",
			})
			return
		}
		zap.L().Error("api: compare failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "comparison failed", resilience.Classify(err))
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// handlePhoto redirects to the provider's photo endpoint. The API key is
// added here so records, history and exports only ever hold the reference.
func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if s.photos == nil {
		writeError(w, http.StatusNotImplemented, "photos are not configured", resilience.KindCredential)
		return
	}

	width := s.photoMaxWidth
	if raw := r.URL.Query().Get("maxwidth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxPhotoWidth {
			writeError(w, http.StatusBadRequest, "maxwidth must be an integer between 1 and 1600", resilience.KindNone)
			return
		}
		width = v
	}

	u, err := s.photos.PhotoURL(chi.URLParam(r, "photoRef"), width)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photo reference", resilience.KindNone)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.searcher.CacheStats())
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "search history is not configured", resilience.KindCredential)
		return
	}

	filter := store.HistoryFilter{Query: r.URL.Query().Get("q"), Limit: defaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", resilience.KindNone)
			return
		}
		filter.Limit = v
	}

	runs, err := s.history.ListSearches(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list search history", resilience.KindTransient)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "search history is not configured", resilience.KindCredential)
		return
	}

	run, err := s.history.GetSearch(r.Context(), chi.URLParam(r, "searchID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "search not found", resilience.KindNone)
		return
	}
	if err != nil {
		zap.L().Error("api: get history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load search", resilience.KindTransient)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
