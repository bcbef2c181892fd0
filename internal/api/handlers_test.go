package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maltedev/product-options-crawler/internal/crawler"
	"github.com/maltedev/product-options-crawler/internal/filetx"
	"github.com/maltedev/product-options-crawler/internal/models"
	"github.com/maltedev/product-options-crawler/internal/options"
	"github.com/maltedev/product-options-crawler/internal/scraper"
	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCrawler struct {
	outcome *crawler.Outcome
	err     error
	gotURL  string
}

func (s *stubCrawler) CrawlProduct(_ context.Context, url string) (*crawler.Outcome, error) {
	s.gotURL = url
	return s.outcome, s.err
}

func setup(t *testing.T, c Crawler) (http.Handler, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandlers(c, filetx.NewManager(fs, logger), map[string]Batch{
		"options":  {Path: "out/product_options_sql.txt", Table: sqlbatch.ProductOptions},
		"products": {Path: "out/product_sql.txt", Table: sqlbatch.Products},
	}, logger)

	return NewRouter(h, RouterOptions{}), fs
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := setup(t, &stubCrawler{})

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []any{"options", "products"}, body["batches"])
}

func TestCrawlProduct(t *testing.T) {
	stub := &stubCrawler{outcome: &crawler.Outcome{CrawlID: "c1", ProductID: 7, Options: 2}}
	h, _ := setup(t, stub)

	rec := do(t, h, http.MethodPost, "/api/v1/products/crawl", `{"url":"  https://www.oliveyoung.co.kr/x?goodsNo=A1 "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://www.oliveyoung.co.kr/x?goodsNo=A1", stub.gotURL)

	var out crawler.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(7), out.ProductID)
	assert.Equal(t, 2, out.Options)
}

func TestCrawlProduct_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid url", fmt.Errorf("%w: %w", crawler.ErrFetch, scraper.ErrInvalidURL), http.StatusBadRequest},
		{"duplicate", crawler.ErrDuplicateProduct, http.StatusConflict},
		{"no valid options", fmt.Errorf("staging failed: %w", options.ErrNoValidOptions), http.StatusUnprocessableEntity},
		{"missing data", crawler.ErrMissingProductData, http.StatusUnprocessableEntity},
		{"fetch failure", fmt.Errorf("%w: %w", crawler.ErrFetch, scraper.ErrBlocked), http.StatusBadGateway},
		{"commit failure", filetx.ErrCommit, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setup(t, &stubCrawler{err: tt.err})

			rec := do(t, h, http.MethodPost, "/api/v1/products/crawl", `{"url":"https://www.oliveyoung.co.kr/x"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestCrawlProduct_BadRequest(t *testing.T) {
	h, _ := setup(t, &stubCrawler{})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/products/crawl", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/products/crawl", `{"url":" "}`).Code)
}

func TestGetBatch(t *testing.T) {
	h, fs := setup(t, &stubCrawler{})

	rec := do(t, h, http.MethodGet, "/api/v1/batches/options", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var empty BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.False(t, empty.Exists)
	assert.Equal(t, 0, empty.Summary.Tuples)

	content, err := sqlbatch.MergeOptions("", []models.OptionRow{
		{ProductID: 1, OptionName: "a", SafetyStock: 10},
		{ProductID: 1, OptionName: "b", SafetyStock: 10, DisplayOrder: 1},
	})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "out/product_options_sql.txt", []byte(content), 0644))

	rec = do(t, h, http.MethodGet, "/api/v1/batches/options", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Exists)
	assert.Equal(t, 2, got.Summary.Tuples)
	assert.Equal(t, 1, got.Summary.Terminators)
}

func TestGetBatch_UnknownKind(t *testing.T) {
	h, _ := setup(t, &stubCrawler{})
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/batches/brands", "").Code)
}

func TestVerifyBatch(t *testing.T) {
	h, fs := setup(t, &stubCrawler{})

	content, err := sqlbatch.MergeProducts("", []models.ProductRow{{ProductID: 1, CategoryName: "c", ProductName: "p"}})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "out/product_sql.txt", []byte(content), 0644))

	rec := do(t, h, http.MethodPost, "/api/v1/batches/products/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Valid)
	assert.Equal(t, 1, got.Rows)
}

func TestVerifyBatch_Malformed(t *testing.T) {
	h, fs := setup(t, &stubCrawler{})
	require.NoError(t, afero.WriteFile(fs, "out/product_options_sql.txt", []byte("INSERT INTO product_options VALUES (1"), 0644))

	rec := do(t, h, http.MethodPost, "/api/v1/batches/options/verify", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var got VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Valid)
	assert.NotEmpty(t, got.Error)
}
