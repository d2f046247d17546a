package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// ErrorKind classifies failures at the analysis boundary.
type ErrorKind string

const (
	// KindAuthFailure means the credential was rejected. Never retried.
	KindAuthFailure ErrorKind = "AUTH_FAILURE"
	// KindRateLimited means the service pushed back. Retried with backoff.
	KindRateLimited ErrorKind = "RATE_LIMITED"
	// KindMalformedResponse means the payload did not parse as structured
	// data. Retried once with a stricter schema hint, then surfaced.
	KindMalformedResponse ErrorKind = "MALFORMED_RESPONSE"
	// KindTimeout covers deadline and transport-level timeouts. Retried up
	// to the bounded attempt count.
	KindTimeout ErrorKind = "TIMEOUT"
	// KindEmptyInput means the text was blank; rejected before any call is
	// made so a paid request is never wasted on nothing.
	KindEmptyInput ErrorKind = "EMPTY_INPUT"
)

// ErrUnavailable is returned when no credential is configured. Callers
// degrade to extraction-only behavior instead of failing the whole service.
var ErrUnavailable = errors.New("analysis unavailable: no API key configured")

// AnalysisError represents a classified failure from the extraction service boundary.
type AnalysisError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analysis error [%s]: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("analysis error [%s]: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err, or "" if err is not an
// AnalysisError.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Analyzer turns raw extracted text into a structured quote payload
// restricted to the requested fields. Implementations must not fabricate
// fields that were not requested or could not be extracted; absent fields
// are reported through QuotePayload.MissingFields.
type Analyzer interface {
	Analyze(ctx context.Context, text string, fields domain.FieldSet) (*domain.QuotePayload, error)
}
