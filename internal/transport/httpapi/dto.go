package httpapi

import "github.com/cardseer/cardseer/internal/domain"

// ErrorCode identifies an API error category.
type ErrorCode string

const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeInvalidRole            ErrorCode = "invalid_role"
	CodeNotFound               ErrorCode = "not_found"
	CodeIndexNotReady          ErrorCode = "index_not_ready"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CardsRequest is the POST /cards/ body. Zero-valued knobs fall back to the
// server defaults.
type CardsRequest struct {
	Text           string  `json:"text"`
	K              int     `json:"k,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
	LassoThreshold float64 `json:"lasso_threshold,omitempty"`
	SampleResults  bool    `json:"sample_results,omitempty"`
}

// CardResult pairs a card with its cosine distance from the query.
type CardResult struct {
	Card     domain.Card `json:"card"`
	Distance float64     `json:"distance"`
}

// RulesRequest is the POST /rules/ body.
type RulesRequest struct {
	Text           string  `json:"text"`
	K              int     `json:"k,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
	LassoThreshold float64 `json:"lasso_threshold,omitempty"`
}

// DocumentResult pairs a rules document with its cosine distance.
type DocumentResult struct {
	Document domain.Document `json:"document"`
	Distance float64         `json:"distance"`
}

// AnnotateRequest is the POST /annotate/ body.
type AnnotateRequest struct {
	Text         string `json:"text"`
	Role         string `json:"role"`
	IncludeRules bool   `json:"include_rules,omitempty"`
}

// AnnotateResponse carries the rewritten text plus the cards (and optionally
// rules) it references.
type AnnotateResponse struct {
	Text  string            `json:"text"`
	Cards []domain.Card     `json:"cards"`
	Rules []domain.Document `json:"rules,omitempty"`
}

// HealthResponse reports aggregated component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
