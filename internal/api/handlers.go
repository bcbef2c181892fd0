package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/product-options-crawler/internal/crawler"
	"github.com/maltedev/product-options-crawler/internal/scraper"
	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
	"github.com/maltedev/product-options-crawler/internal/verify"
)

type Crawler interface {
	CrawlProduct(ctx context.Context, url string) (*crawler.Outcome, error)
}

type FileReader interface {
	ReadFile(path string) (string, bool, error)
}

// Batch is a batch file exposed under /api/v1/batches/{kind}.
type Batch struct {
	Path  string
	Table sqlbatch.Table
}

type Handlers struct {
	crawler Crawler
	files   FileReader
	batches map[string]Batch
	logger  *slog.Logger
}

func NewHandlers(c Crawler, files FileReader, batches map[string]Batch, logger *slog.Logger) *Handlers {
	return &Handlers{
		crawler: c,
		files:   files,
		batches: batches,
		logger:  logger.With("component", "api"),
	}
}

type CrawlRequest struct {
	URL string `json:"url"`
}

type CrawlResponse struct {
	*crawler.Outcome
	Error string `json:"error,omitempty"`
}

type BatchResponse struct {
	Kind    string           `json:"kind"`
	Path    string           `json:"path"`
	Exists  bool             `json:"exists"`
	Summary sqlbatch.Summary `json:"summary"`
}

type VerifyResponse struct {
	*verify.Report
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, len(h.batches))
	for kind := range h.batches {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"batches": kinds,
	})
}

// CrawlProduct crawls one product and commits its batch rows.
func (h *Handlers) CrawlProduct(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	outcome, err := h.crawler.CrawlProduct(r.Context(), req.URL)
	if err != nil {
		status := crawlStatus(err)
		h.logger.Warn("crawl failed", "url", req.URL, "status", status, "error", err)
		h.respondJSON(w, status, CrawlResponse{Outcome: outcome, Error: err.Error()})
		return
	}

	h.respondJSON(w, http.StatusCreated, CrawlResponse{Outcome: outcome})
}

func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	kind, batch, ok := h.batch(w, r)
	if !ok {
		return
	}

	content, exists, err := h.files.ReadFile(batch.Path)
	if err != nil {
		h.logger.Error("failed to read batch", "kind", kind, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to read batch")
		return
	}

	h.respondJSON(w, http.StatusOK, BatchResponse{
		Kind:    kind,
		Path:    batch.Path,
		Exists:  exists,
		Summary: sqlbatch.Inspect(content, batch.Table),
	})
}

// VerifyBatch replays the batch file into a scratch database.
func (h *Handlers) VerifyBatch(w http.ResponseWriter, r *http.Request) {
	kind, batch, ok := h.batch(w, r)
	if !ok {
		return
	}

	content, _, err := h.files.ReadFile(batch.Path)
	if err != nil {
		h.logger.Error("failed to read batch", "kind", kind, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to read batch")
		return
	}

	report, err := verify.Verify(r.Context(), content, batch.Table)
	switch {
	case errors.Is(err, verify.ErrMalformed):
		h.respondJSON(w, http.StatusUnprocessableEntity, VerifyResponse{Report: report, Error: err.Error()})
	case err != nil:
		h.logger.Error("failed to verify batch", "kind", kind, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to verify batch")
	default:
		h.respondJSON(w, http.StatusOK, VerifyResponse{Report: report, Valid: true})
	}
}

func (h *Handlers) batch(w http.ResponseWriter, r *http.Request) (string, Batch, bool) {
	kind := chi.URLParam(r, "kind")
	batch, ok := h.batches[kind]
	if !ok {
		h.respondError(w, http.StatusNotFound, "unknown batch kind")
	}
	return kind, batch, ok
}

func crawlStatus(err error) int {
	switch {
	case errors.Is(err, scraper.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, crawler.ErrDuplicateProduct):
		return http.StatusConflict
	case crawler.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, crawler.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
