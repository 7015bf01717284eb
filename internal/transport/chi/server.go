// Package chi is the HTTP API surface: a thin JSON layer over the paper and
// search services, plus the auth middleware that resolves callers to
// visibility scopes.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/search/request"
	paperuc "github.com/kailas-cloud/paperdex/internal/usecase/paper"
	searchuc "github.com/kailas-cloud/paperdex/internal/usecase/search"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeInvalidQuery       = "invalid_query"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codePaperNotFound      = "paper_not_found"
	codeProviderError      = "embedding_provider_error"
	codeStorageUnavailable = "storage_unavailable"
	codeInternalError      = "internal_error"
)

// Pinger reports storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the paper and search services over HTTP.
type Server struct {
	papers        *paperuc.Service
	search        *searchuc.Service
	store         Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	papers *paperuc.Service,
	search *searchuc.Service,
	store Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		papers: papers,
		search: search,
		store:  store,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrPaperNotFound, http.StatusNotFound, codePaperNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrStorageUnavailable, http.StatusServiceUnavailable, codeStorageUnavailable),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.SearchPapers)
		r.Post("/papers", s.CreatePaper)
		r.Get("/papers/{id}", s.GetPaper)
		r.Put("/papers/{id}", s.UpdatePaper)
		r.Delete("/papers/{id}", s.DeletePaper)
	})
}

type paperRequest struct {
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	ArxivID   string `json:"arxiv_id,omitempty"`
	DOI       string `json:"doi,omitempty"`
	URL       string `json:"url,omitempty"`
	Abstract  string `json:"abstract,omitempty"`
	Summary   string `json:"summary"`
	IsPrivate bool   `json:"is_private"`
}

type paperResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Authors   string    `json:"authors"`
	ArxivID   string    `json:"arxiv_id,omitempty"`
	DOI       string    `json:"doi,omitempty"`
	URL       string    `json:"url,omitempty"`
	Abstract  string    `json:"abstract,omitempty"`
	Summary   string    `json:"summary"`
	IsPrivate bool      `json:"is_private"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type searchResultItem struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// SearchPapers handles GET /api/v1/search.
func (s *Server) SearchPapers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	req, err := request.New(r.URL.Query().Get("q"), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	vis := VisibilityFromContext(r.Context())
	results, err := s.search.Search(r.Context(), req, vis)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultItem{ID: results[i].ID(), Score: results[i].Score()}
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// CreatePaper handles POST /api/v1/papers.
func (s *Server) CreatePaper(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req paperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p := paperFromRequest(req)
	p.OwnerID = principal

	if err := s.papers.Create(r.Context(), &p); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/papers/"+strconv.FormatInt(p.ID, 10))
	writeJSON(w, http.StatusCreated, paperToResponse(p))
}

// GetPaper handles GET /api/v1/papers/{id}.
func (s *Server) GetPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	vis := VisibilityFromContext(r.Context())
	p, err := s.papers.Get(r.Context(), vis, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paperToResponse(p))
}

// UpdatePaper handles PUT /api/v1/papers/{id}.
func (s *Server) UpdatePaper(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	var req paperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p := paperFromRequest(req)
	p.ID = id

	if err := s.papers.Update(r.Context(), principal, &p); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paperToResponse(p))
}

// DeletePaper handles DELETE /api/v1/papers/{id}.
func (s *Server) DeletePaper(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	if err := s.papers.Delete(r.Context(), principal, id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status, httpStatus := "healthy", http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		checks["database"] = "unavailable"
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// requirePrincipal rejects anonymous callers on write endpoints.
func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (int64, bool) {
	principal, ok := VisibilityFromContext(r.Context()).PrincipalID()
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return 0, false
	}
	return principal, true
}

func paperIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "paper id must be a positive integer")
		return 0, false
	}
	return id, true
}

func paperFromRequest(req paperRequest) domain.Paper {
	return domain.Paper{
		Title:     req.Title,
		Authors:   req.Authors,
		ArxivID:   req.ArxivID,
		DOI:       req.DOI,
		PaperURL:  req.URL,
		Abstract:  req.Abstract,
		Summary:   req.Summary,
		IsPrivate: req.IsPrivate,
	}
}

func paperToResponse(p domain.Paper) paperResponse {
	return paperResponse{
		ID:        p.ID,
		Title:     p.Title,
		Authors:   p.Authors,
		ArxivID:   p.ArxivID,
		DOI:       p.DOI,
		URL:       p.PaperURL,
		Abstract:  p.Abstract,
		Summary:   p.Summary,
		IsPrivate: p.IsPrivate,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrValidation,
		domain.ErrPaperNotFound,
		domain.ErrForbidden,
		domain.ErrProviderUnavailable,
		domain.ErrStorageUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
