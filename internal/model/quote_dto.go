package model

import (
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// IngestResponse is the per-file outcome report of an ingestion request.
// Stored counts documents that became records; Failed counts rejections.
type IngestResponse struct {
	Results []service.IngestOutcome `json:"results"`
	Stored  int                     `json:"stored"`
	Failed  int                     `json:"failed"`
}

// QuoteListResponse wraps a list of quote summaries.
type QuoteListResponse struct {
	Quotes []domain.QuoteSummary `json:"quotes"`
	Count  int                   `json:"count"`
}

// StatusUpdateRequest is the body of a status transition request.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}
