package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/quote-ingestion-service/internal/analyzer"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/extractor"
	"github.com/ridwanfathin/quote-ingestion-service/internal/repository"
)

// fakeExtractor maps filenames to canned results so pipeline behavior can be
// exercised without real documents.
type fakeExtractor struct {
	results map[string]extractor.Result
}

func (f *fakeExtractor) Extract(_ context.Context, raw extractor.RawDocument, _ extractor.Options) extractor.Result {
	if res, ok := f.results[raw.Filename]; ok {
		return res
	}
	return extractor.Result{
		Text:           "QUOTATION\nAcme Industrial\nTotal: 300.00",
		PageCount:      1,
		CharacterCount: 38,
		Method:         extractor.MethodNative,
		Success:        true,
		Stage:          extractor.StageDone,
	}
}

type fakeAnalyzer struct {
	payload *domain.QuotePayload
	err     error
	calls   int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ domain.FieldSet) (*domain.QuotePayload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.payload
	return &p, nil
}

func corruptResult() extractor.Result {
	return extractor.Result{
		Success:   false,
		Error:     "document is not parseable",
		ErrorKind: extractor.KindCorruptFile,
		Stage:     extractor.StageFailed,
	}
}

func cleanPayload() *domain.QuotePayload {
	supplier := "Acme Industrial"
	date := "2025-03-01"
	total := 300.0
	sub1, sub2 := 100.0, 200.0
	return &domain.QuotePayload{
		Supplier:    &supplier,
		QuoteDate:   &date,
		TotalAmount: &total,
		Items: []domain.PayloadItem{
			{Description: "widget", Subtotal: &sub1},
			{Description: "gadget", Subtotal: &sub2},
		},
	}
}

func newTestService(an analyzer.Analyzer, results map[string]extractor.Result) (IngestionService, *repository.MemoryQuoteRepository) {
	repo := repository.NewMemoryQuoteRepository()
	svc := NewIngestionService(repo, &fakeExtractor{results: results}, an, 0.05, 2)
	return svc, repo
}

func TestIngest_StoresCompletedQuote(t *testing.T) {
	svc, repo := newTestService(&fakeAnalyzer{payload: cleanPayload()}, nil)

	outcome, err := svc.Ingest(context.Background(), extractor.RawDocument{Filename: "acme.pdf"}, IngestOptions{})
	require.NoError(t, err)

	assert.True(t, outcome.Stored)
	require.NotNil(t, outcome.Quote)
	assert.Equal(t, domain.StatusCompleted, outcome.Quote.Status)
	assert.Equal(t, "Acme Industrial", *outcome.Quote.Supplier)
	assert.Equal(t, "2025-03-01", outcome.Quote.QuoteDate.Format("2006-01-02"))
	assert.Len(t, outcome.Quote.Items, 2)
	assert.NotEmpty(t, outcome.Quote.OriginalText)

	stored, err := repo.GetByID(context.Background(), outcome.Quote.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme.pdf", stored.Filename)
}

func TestIngest_AmountMismatchLeavesQuotePending(t *testing.T) {
	payload := cleanPayload()
	stated := 999.0
	payload.TotalAmount = &stated // items sum to 300

	svc, _ := newTestService(&fakeAnalyzer{payload: payload}, nil)

	outcome, err := svc.Ingest(context.Background(), extractor.RawDocument{Filename: "acme.pdf"}, IngestOptions{})
	require.NoError(t, err)

	require.NotNil(t, outcome.Quote)
	assert.Equal(t, domain.StatusPending, outcome.Quote.Status)
	require.NotEmpty(t, outcome.Quote.Warnings)
	assert.True(t, strings.HasPrefix(outcome.Quote.Warnings[0], analyzer.WarnAmountMismatch))
}

func TestIngest_ExtractionFailureStoresNothing(t *testing.T) {
	an := &fakeAnalyzer{payload: cleanPayload()}
	svc, repo := newTestService(an, map[string]extractor.Result{
		"bad.pdf": corruptResult(),
	})

	outcome, err := svc.Ingest(context.Background(), extractor.RawDocument{Filename: "bad.pdf"}, IngestOptions{})
	require.Error(t, err)

	assert.False(t, outcome.Stored)
	assert.Equal(t, FailureExtraction, outcome.Failure)
	assert.Equal(t, string(extractor.KindCorruptFile), outcome.FailureKind)
	assert.Zero(t, an.calls, "analyzer must not run after a failed extraction")

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIngest_AnalyzerAbsentDegradesToExtractionOnly(t *testing.T) {
	svc, repo := newTestService(nil, nil)

	outcome, err := svc.Ingest(context.Background(), extractor.RawDocument{Filename: "acme.pdf"}, IngestOptions{})
	require.Error(t, err)

	assert.False(t, outcome.Stored)
	assert.Equal(t, FailureAnalysisUnavailable, outcome.Failure)
	require.NotNil(t, outcome.Extraction, "extraction results are still returned")
	assert.True(t, outcome.Extraction.Success)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIngest_AnalysisFailureCarriesKind(t *testing.T) {
	an := &fakeAnalyzer{err: &analyzer.AnalysisError{Kind: analyzer.KindRateLimited, Op: "chat_completion"}}
	svc, repo := newTestService(an, nil)

	outcome, err := svc.Ingest(context.Background(), extractor.RawDocument{Filename: "acme.pdf"}, IngestOptions{})
	require.Error(t, err)

	assert.Equal(t, FailureAnalysis, outcome.Failure)
	assert.Equal(t, string(analyzer.KindRateLimited), outcome.FailureKind)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	svc, repo := newTestService(&fakeAnalyzer{payload: cleanPayload()}, map[string]extractor.Result{
		"c.pdf": corruptResult(),
	})

	docs := []extractor.RawDocument{
		{Filename: "a.pdf"},
		{Filename: "b.pdf"},
		{Filename: "c.pdf"},
		{Filename: "d.pdf"},
	}
	outcomes := svc.IngestBatch(context.Background(), docs, IngestOptions{})
	require.Len(t, outcomes, 4)

	assert.Equal(t, "a.pdf", outcomes[0].Filename)
	assert.True(t, outcomes[0].Stored)
	assert.True(t, outcomes[1].Stored)
	assert.False(t, outcomes[2].Stored)
	assert.Equal(t, FailureExtraction, outcomes[2].Failure)
	assert.True(t, outcomes[3].Stored, "failure of one document must not affect the next")

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestExtractText_DoesNotTouchStore(t *testing.T) {
	svc, repo := newTestService(&fakeAnalyzer{payload: cleanPayload()}, nil)

	res, err := svc.ExtractText(context.Background(), extractor.RawDocument{Filename: "acme.pdf"}, extractor.Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Text)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateQuoteStatus_RejectsUnknownStatus(t *testing.T) {
	repo := repository.NewMemoryQuoteRepository()
	qs := NewQuoteService(repo, 10, 7)

	_, err := qs.UpdateQuoteStatus(context.Background(), 1, domain.QuoteStatus("BOGUS"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusInvalid)
}
