// Package httpapi exposes the retrieval service over HTTP with chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/domain"
	healthuc "github.com/cardseer/cardseer/internal/usecase/health"
	retrievaluc "github.com/cardseer/cardseer/internal/usecase/retrieval"
)

// RetrievalService is the slice of the retrieval usecase the API needs.
type RetrievalService interface {
	GetCards(ctx context.Context, q retrievaluc.CardsQuery) ([]retrievaluc.ScoredCard, error)
	GetRules(ctx context.Context, q retrievaluc.RulesQuery) ([]retrievaluc.ScoredDocument, error)
	Annotate(ctx context.Context, req retrievaluc.AnnotateRequest) (retrievaluc.AnnotateResult, error)
}

// CardFinder looks up a single card by exact name.
type CardFinder interface {
	Card(name string) (domain.Card, bool)
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP API handlers.
type Server struct {
	retrieval     RetrievalService
	cards         CardFinder
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval RetrievalService,
	cards CardFinder,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		cards:     cards,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRole, http.StatusBadRequest, CodeInvalidRole),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrIndexNotInitialized, http.StatusServiceUnavailable, CodeIndexNotReady),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// Register mounts the API routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Post("/cards/", s.GetCards)
	r.Get("/cards/search", s.SearchCards)
	r.Post("/rules/", s.GetRules)
	r.Post("/annotate/", s.Annotate)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// GetCards handles POST /cards/.
func (s *Server) GetCards(w http.ResponseWriter, r *http.Request) {
	var req CardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}

	scored, err := s.retrieval.GetCards(r.Context(), retrievaluc.CardsQuery{
		Text:           req.Text,
		K:              req.K,
		Threshold:      req.Threshold,
		LassoThreshold: req.LassoThreshold,
		SampleResults:  req.SampleResults,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]CardResult, 0, len(scored))
	for _, sc := range scored {
		items = append(items, CardResult{Card: sc.Card, Distance: sc.Distance})
	}
	writeJSON(w, http.StatusOK, items)
}

// SearchCards handles GET /cards/search. Exact name lookup against the catalog.
func (s *Server) SearchCards(w http.ResponseWriter, r *http.Request) {
	var name string
	if err := runtime.BindQueryParameter("form", true, true, "name", r.URL.Query(), &name); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid query parameter name: "+err.Error())
		return
	}

	card, ok := s.cards.Card(name)
	if !ok {
		s.handleDomainError(w, fmt.Errorf("card %q: %w", name, domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// GetRules handles POST /rules/.
func (s *Server) GetRules(w http.ResponseWriter, r *http.Request) {
	var req RulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}

	scored, err := s.retrieval.GetRules(r.Context(), retrievaluc.RulesQuery{
		Text:           req.Text,
		K:              req.K,
		Threshold:      req.Threshold,
		LassoThreshold: req.LassoThreshold,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentResult, 0, len(scored))
	for _, sd := range scored {
		items = append(items, DocumentResult{Document: sd.Document, Distance: sd.Distance})
	}
	writeJSON(w, http.StatusOK, items)
}

// Annotate handles POST /annotate/.
func (s *Server) Annotate(w http.ResponseWriter, r *http.Request) {
	var req AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}

	result, err := s.retrieval.Annotate(r.Context(), retrievaluc.AnnotateRequest{
		Text:         req.Text,
		Role:         domain.Role(req.Role),
		IncludeRules: req.IncludeRules,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := AnnotateResponse{
		Text:  result.Text,
		Cards: result.Cards,
		Rules: result.Rules,
	}
	if resp.Cards == nil {
		resp.Cards = []domain.Card{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRole,
		domain.ErrNotFound,
		domain.ErrIndexNotInitialized,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
