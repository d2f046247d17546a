package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/extractor"
	"github.com/ridwanfathin/quote-ingestion-service/internal/model"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// stubIngestionService returns canned per-file outcomes keyed by filename.
type stubIngestionService struct {
	outcomes map[string]service.IngestOutcome
	extract  extractor.Result
}

func (s *stubIngestionService) Ingest(_ context.Context, raw extractor.RawDocument, _ service.IngestOptions) (*service.IngestOutcome, error) {
	outcome := s.outcomes[raw.Filename]
	outcome.Filename = raw.Filename
	if outcome.Stored {
		return &outcome, nil
	}
	return &outcome, &service.IngestionServiceError{Op: "ingest"}
}

func (s *stubIngestionService) IngestBatch(ctx context.Context, docs []extractor.RawDocument, opts service.IngestOptions) []service.IngestOutcome {
	results := make([]service.IngestOutcome, 0, len(docs))
	for _, doc := range docs {
		outcome, _ := s.Ingest(ctx, doc, opts)
		results = append(results, *outcome)
	}
	return results
}

func (s *stubIngestionService) ExtractText(_ context.Context, _ extractor.RawDocument, _ extractor.Options) (*extractor.Result, error) {
	res := s.extract
	return &res, nil
}

func newIngestRouter(svc service.IngestionService) *gin.Engine {
	ingestHandler := NewIngestHandler(svc)
	router := gin.New()
	router.POST("/v1/quotes/ingest", ingestHandler.IngestQuotes)
	router.POST("/v1/quotes/extract-text", ingestHandler.ExtractText)
	return router
}

func multipartBody(t *testing.T, field string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.7 fake content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postMultipart(router *gin.Engine, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngestQuotes(t *testing.T) {
	stored := service.IngestOutcome{
		Stored: true,
		Quote:  &domain.Quote{ID: 1, Filename: "good.pdf", Status: domain.StatusCompleted},
	}
	rejected := service.IngestOutcome{
		Failure:     service.FailureExtraction,
		FailureKind: string(extractor.KindCorruptFile),
		Error:       "document is not parseable",
	}

	t.Run("mixed batch reports per-file outcomes", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{outcomes: map[string]service.IngestOutcome{
			"good.pdf": stored,
			"bad.pdf":  rejected,
		}})

		body, contentType := multipartBody(t, "files", "good.pdf", "bad.pdf")
		w := postMultipart(router, "/v1/quotes/ingest", body, contentType)
		require.Equal(t, http.StatusOK, w.Code)

		var got model.IngestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 1, got.Stored)
		assert.Equal(t, 1, got.Failed)
		require.Len(t, got.Results, 2)
		assert.Equal(t, "good.pdf", got.Results[0].Filename)
		assert.Equal(t, service.FailureExtraction, got.Results[1].Failure)
	})

	t.Run("all rejected is unprocessable", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{outcomes: map[string]service.IngestOutcome{
			"bad.pdf": rejected,
		}})

		body, contentType := multipartBody(t, "files", "bad.pdf")
		w := postMultipart(router, "/v1/quotes/ingest", body, contentType)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("analyzer unavailable is service unavailable", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{outcomes: map[string]service.IngestOutcome{
			"doc.pdf": {Failure: service.FailureAnalysisUnavailable, Error: "analysis unavailable"},
		}})

		body, contentType := multipartBody(t, "files", "doc.pdf")
		w := postMultipart(router, "/v1/quotes/ingest", body, contentType)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("single file field is accepted", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{outcomes: map[string]service.IngestOutcome{
			"good.pdf": stored,
		}})

		body, contentType := multipartBody(t, "file", "good.pdf")
		w := postMultipart(router, "/v1/quotes/ingest", body, contentType)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing file is a bad request", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{})

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.Close())
		w := postMultipart(router, "/v1/quotes/ingest", body, writer.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExtractText(t *testing.T) {
	t.Run("success returns the extraction result", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{extract: extractor.Result{
			Text:           "QUOTATION",
			CharacterCount: 9,
			PageCount:      1,
			Method:         extractor.MethodNative,
			Success:        true,
			Stage:          extractor.StageDone,
		}})

		body, contentType := multipartBody(t, "file", "doc.pdf")
		w := postMultipart(router, "/v1/quotes/extract-text", body, contentType)
		require.Equal(t, http.StatusOK, w.Code)

		var got extractor.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "QUOTATION", got.Text)
		assert.True(t, got.Success)
	})

	t.Run("failed extraction is unprocessable", func(t *testing.T) {
		router := newIngestRouter(&stubIngestionService{extract: extractor.Result{
			Success:   false,
			Error:     "extraction error [ENCRYPTED]: doc.pdf",
			ErrorKind: extractor.KindEncrypted,
			Stage:     extractor.StageFailed,
		}})

		body, contentType := multipartBody(t, "file", "doc.pdf")
		w := postMultipart(router, "/v1/quotes/extract-text", body, contentType)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var got extractor.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, extractor.KindEncrypted, got.ErrorKind)
	})
}
