package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/review-compare/internal/export"
	"github.com/sells-group/review-compare/internal/store"
)

const secretKey = "SECRET-KEY"

func placesServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/textsearch/json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, secretKey, r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"OK","results":[
			{"place_id":"A","name":"Cafe X","formatted_address":"1 Main St","rating":4.5,"user_ratings_total":120,
			 "photos":[{"photo_reference":"ref-a","width":800,"height":600}]}
		]}`)
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"OK","result":{"place_id":"A","name":"Cafe X","reviews":[
			{"author_name":"Ann","rating":5,"time":1700000000,"text":"Great coffee"}
		]}}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestAPIKey_NeverStoredOrExported(t *testing.T) {
	testConfig(t)
	places := placesServer(t)
	cfg.Google.APIKey = secretKey
	cfg.Google.BaseURL = places.URL
	cfg.Google.PageTokenDelayMS = 0
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	svc, err := initServices(ctx)
	require.NoError(t, err)
	defer svc.Close()

	records, err := svc.Search.Search(ctx, "coffee", "Austin")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ref-a", records[0].PhotoReference)

	svc.record(ctx, "coffee", "Austin", records)
	runs, err := svc.History.ListSearches(ctx, store.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run, err := svc.History.GetSearch(ctx, runs[0].ID)
	require.NoError(t, err)
	stored, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(stored), "ref-a")
	assert.NotContains(t, string(stored), secretKey)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, export.ToFile(csvPath, run.Businesses))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ref-a")
	assert.NotContains(t, string(raw), secretKey)

	xlsxPath := filepath.Join(dir, "out.xlsx")
	require.NoError(t, export.ToFile(xlsxPath, run.Businesses))
	book, err := xlsx.OpenFile(xlsxPath)
	require.NoError(t, err)
	for _, sheet := range book.Sheets {
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				assert.NotContains(t, cell.String(), secretKey)
			}
		}
	}
}

func TestAPIKey_OnlyInPhotoRedirect(t *testing.T) {
	testConfig(t)
	places := placesServer(t)
	cfg.Google.APIKey = secretKey
	cfg.Google.BaseURL = places.URL
	cfg.Google.PageTokenDelayMS = 0

	svc, err := initServices(context.Background())
	require.NoError(t, err)
	defer svc.Close()

	apiSrv := httptest.NewServer(newAPIServer(svc).Router())
	t.Cleanup(apiSrv.Close)

	resp, err := http.Get(apiSrv.URL + "/api/v1/search?q=coffee&location=Austin")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"photo_reference":"ref-a"`)
	assert.NotContains(t, string(body), secretKey)

	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err = noFollow.Get(apiSrv.URL + "/api/v1/photos/ref-a")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "key="+secretKey)
	assert.Contains(t, resp.Header.Get("Location"), "photo_reference=ref-a")
}
