package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ridwanfathin/quote-ingestion-service/internal/analyzer"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/extractor"
	"github.com/ridwanfathin/quote-ingestion-service/internal/repository"
)

// IngestionServiceError represents an error in the ingestion service
type IngestionServiceError struct {
	Op  string
	Err error
}

func (e *IngestionServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *IngestionServiceError) Unwrap() error {
	return e.Err
}

// FailureCode labels where in the pipeline a document was rejected.
type FailureCode string

const (
	FailureNone FailureCode = ""
	// FailureExtraction means text extraction failed; nothing was stored.
	FailureExtraction FailureCode = "EXTRACTION_FAILED"
	// FailureAnalysis means the analysis call or its validation failed;
	// nothing was stored.
	FailureAnalysis FailureCode = "ANALYSIS_FAILED"
	// FailureAnalysisUnavailable means no analysis credential is configured.
	// Extraction results are still returned, but no record is stored.
	FailureAnalysisUnavailable FailureCode = "ANALYSIS_UNAVAILABLE"
	// FailureStore means the record could not be persisted.
	FailureStore FailureCode = "STORE_FAILED"
)

// IngestOptions control a single ingestion call.
type IngestOptions struct {
	// Extract is passed through to the document extractor.
	Extract extractor.Options
	// Fields restricts what the analyzer may return. Nil means all fields.
	Fields domain.FieldSet
}

// IngestOutcome is the per-document result of an ingestion call. Exactly one
// of Quote (stored) or Failure (rejected) is meaningful; Extraction is
// populated whenever extraction ran, even for rejected documents.
type IngestOutcome struct {
	Filename    string            `json:"filename"`
	Stored      bool              `json:"stored"`
	Quote       *domain.Quote     `json:"quote,omitempty"`
	Extraction  *extractor.Result `json:"extraction,omitempty"`
	Failure     FailureCode       `json:"failure,omitempty"`
	FailureKind string            `json:"failure_kind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// IngestionService defines the interface for the document ingestion pipeline
type IngestionService interface {
	// Ingest runs one document through extract, analyze, validate and store.
	// The returned outcome is always non-nil; err is non-nil exactly when
	// the document was not stored.
	Ingest(ctx context.Context, raw extractor.RawDocument, opts IngestOptions) (*IngestOutcome, error)

	// IngestBatch processes documents independently; one bad document never
	// affects its neighbors. Outcomes come back in input order.
	IngestBatch(ctx context.Context, docs []extractor.RawDocument, opts IngestOptions) []IngestOutcome

	// ExtractText runs extraction only. Nothing is analyzed or stored.
	ExtractText(ctx context.Context, raw extractor.RawDocument, opts extractor.Options) (*extractor.Result, error)
}

// DocumentExtractor is the extraction dependency of the pipeline. It is
// satisfied by *extractor.Extractor.
type DocumentExtractor interface {
	Extract(ctx context.Context, raw extractor.RawDocument, opts extractor.Options) extractor.Result
}

// IngestionServiceImpl implements the IngestionService interface
type IngestionServiceImpl struct {
	repository      repository.QuoteRepository
	extractor       DocumentExtractor
	analyzer        analyzer.Analyzer
	amountTolerance float64
	workerPool      chan struct{}
}

// NewIngestionService creates a new IngestionService. analyzer may be nil
// when no credential is configured; ingestion then degrades to
// extraction-only responses and stores nothing.
func NewIngestionService(repo repository.QuoteRepository, ext DocumentExtractor, an analyzer.Analyzer, amountTolerance float64, maxWorkers int) IngestionService {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &IngestionServiceImpl{
		repository:      repo,
		extractor:       ext,
		analyzer:        an,
		amountTolerance: amountTolerance,
		workerPool:      make(chan struct{}, maxWorkers),
	}
}

// Ingest processes one document end to end.
func (s *IngestionServiceImpl) Ingest(ctx context.Context, raw extractor.RawDocument, opts IngestOptions) (*IngestOutcome, error) {
	// Acquire worker from pool
	select {
	case s.workerPool <- struct{}{}:
		defer func() {
			<-s.workerPool
		}()
	case <-ctx.Done():
		outcome := &IngestOutcome{
			Filename: raw.Filename,
			Failure:  FailureExtraction,
			Error:    ctx.Err().Error(),
		}
		return outcome, &IngestionServiceError{Op: "acquire_worker", Err: ctx.Err()}
	}

	return s.ingestOne(ctx, raw, opts)
}

// IngestBatch processes each document in turn. The batch shares the worker
// pool with every other caller; documents are admitted one at a time.
func (s *IngestionServiceImpl) IngestBatch(ctx context.Context, docs []extractor.RawDocument, opts IngestOptions) []IngestOutcome {
	outcomes := make([]IngestOutcome, 0, len(docs))
	for _, doc := range docs {
		outcome, _ := s.Ingest(ctx, doc, opts)
		outcomes = append(outcomes, *outcome)
	}
	return outcomes
}

// ExtractText runs extraction only, still bounded by the worker pool.
func (s *IngestionServiceImpl) ExtractText(ctx context.Context, raw extractor.RawDocument, opts extractor.Options) (*extractor.Result, error) {
	select {
	case s.workerPool <- struct{}{}:
		defer func() {
			<-s.workerPool
		}()
	case <-ctx.Done():
		return nil, &IngestionServiceError{Op: "acquire_worker", Err: ctx.Err()}
	}

	res := s.extractor.Extract(ctx, raw, opts)
	return &res, nil
}

func (s *IngestionServiceImpl) ingestOne(ctx context.Context, raw extractor.RawDocument, opts IngestOptions) (*IngestOutcome, error) {
	outcome := &IngestOutcome{Filename: raw.Filename}

	res := s.extractor.Extract(ctx, raw, opts.Extract)
	outcome.Extraction = &res
	if !res.Success {
		outcome.Failure = FailureExtraction
		outcome.FailureKind = string(res.ErrorKind)
		outcome.Error = res.Error
		return outcome, &IngestionServiceError{
			Op:  "extract_document",
			Err: fmt.Errorf("%s: %s", res.ErrorKind, res.Error),
		}
	}

	if s.analyzer == nil {
		outcome.Failure = FailureAnalysisUnavailable
		outcome.Error = analyzer.ErrUnavailable.Error()
		return outcome, &IngestionServiceError{Op: "analyze_document", Err: analyzer.ErrUnavailable}
	}

	fields := opts.Fields
	if fields == nil {
		fields = domain.AllFields()
	}

	payload, err := s.analyzer.Analyze(ctx, res.Text, fields)
	if err != nil {
		if errors.Is(err, analyzer.ErrUnavailable) {
			outcome.Failure = FailureAnalysisUnavailable
			outcome.Error = err.Error()
			return outcome, &IngestionServiceError{Op: "analyze_document", Err: err}
		}
		outcome.Failure = FailureAnalysis
		outcome.FailureKind = string(analyzer.KindOf(err))
		outcome.Error = err.Error()
		return outcome, &IngestionServiceError{Op: "analyze_document", Err: err}
	}

	payload, err = analyzer.ValidatePayload(payload, fields)
	if err != nil {
		outcome.Failure = FailureAnalysis
		outcome.FailureKind = string(analyzer.KindOf(err))
		outcome.Error = err.Error()
		return outcome, &IngestionServiceError{Op: "validate_payload", Err: err}
	}
	payload.Warnings = append(payload.Warnings, analyzer.CheckAmounts(payload, s.amountTolerance)...)

	quote := buildQuote(raw.Filename, res.Text, payload)

	stored, err := s.repository.Insert(ctx, quote)
	if err != nil {
		outcome.Failure = FailureStore
		outcome.Error = err.Error()
		return outcome, &IngestionServiceError{Op: "insert_quote", Err: err}
	}

	outcome.Stored = true
	outcome.Quote = stored
	return outcome, nil
}

// buildQuote maps a validated payload onto a storable record. Unresolved
// warnings leave the record PENDING for review instead of COMPLETED.
func buildQuote(filename, text string, payload *domain.QuotePayload) *domain.Quote {
	quote := &domain.Quote{
		Filename:     filename,
		Supplier:     payload.Supplier,
		TotalAmount:  payload.TotalAmount,
		OriginalText: text,
		Status:       domain.StatusCompleted,
		Warnings:     payload.Warnings,
	}

	if payload.QuoteDate != nil {
		if t, err := time.Parse("2006-01-02", *payload.QuoteDate); err == nil {
			quote.QuoteDate = &domain.DateOnly{Time: t}
		}
	}

	quote.Items = make([]domain.QuoteItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		quote.Items = append(quote.Items, domain.QuoteItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	if len(quote.Warnings) > 0 {
		quote.Status = domain.StatusPending
	}
	return quote
}
