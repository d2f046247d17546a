package handler

import (
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/quote-ingestion-service/internal/extractor"
	"github.com/ridwanfathin/quote-ingestion-service/internal/model"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// IngestHandler handles HTTP requests for document ingestion
type IngestHandler struct {
	ingestionService service.IngestionService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestionService service.IngestionService) *IngestHandler {
	return &IngestHandler{
		ingestionService: ingestionService,
	}
}

// IngestQuotes handles the POST /v1/quotes/ingest endpoint
// @Summary Ingest quotation documents
// @Description Upload one or more PDF quotations; each is extracted, analyzed and stored independently
// @Tags quotes
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "PDF quotation documents"
// @Param use_ocr query bool false "Force OCR on every page"
// @Success 200 {object} model.IngestResponse "Per-file outcomes, at least one stored"
// @Failure 400 {object} model.ErrorResponse "Bad request"
// @Failure 422 {object} model.IngestResponse "Every document was rejected"
// @Failure 503 {object} model.ErrorResponse "Analysis service not configured"
// @Router /v1/quotes/ingest [post]
func (h *IngestHandler) IngestQuotes(c *gin.Context) {
	headers, err := getFormFiles(c)
	if err != nil {
		respondBadRequest(c, err.Error(), newErrorDetail("files", "At least one PDF document is required"))
		return
	}

	docs, err := readDocuments(headers)
	if err != nil {
		logError(c, "failed_to_read_upload", err, map[string]interface{}{
			"file_count": len(headers),
		})
		respondBadRequest(c, ErrFileUpload)
		return
	}

	opts := service.IngestOptions{
		Extract: extractor.Options{
			UseOCR:        getQueryBool(c, "use_ocr"),
			ExtractImages: getQueryBool(c, "extract_images"),
		},
	}

	outcomes := h.ingestionService.IngestBatch(c.Request.Context(), docs, opts)

	response := model.IngestResponse{Results: outcomes}
	unavailable := 0
	for _, outcome := range outcomes {
		if outcome.Stored {
			response.Stored++
			continue
		}
		response.Failed++
		if outcome.Failure == service.FailureAnalysisUnavailable {
			unavailable++
		}
	}

	if unavailable == len(outcomes) && len(outcomes) > 0 {
		respondServiceUnavailable(c, "Analysis service is not configured; use /v1/quotes/extract-text for extraction only")
		return
	}
	if response.Stored == 0 {
		respondSuccess(c, StatusUnprocessableEntity, response)
		return
	}
	respondOK(c, response)
}

// ExtractText handles the POST /v1/quotes/extract-text endpoint
// @Summary Extract text from a quotation document
// @Description Run text extraction only; nothing is analyzed or stored
// @Tags quotes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Param use_ocr query bool false "Force OCR on every page"
// @Param extract_images query bool false "Also collect embedded images"
// @Success 200 {object} extractor.Result "Extraction result"
// @Failure 400 {object} model.ErrorResponse "Bad request"
// @Failure 422 {object} extractor.Result "Extraction failed"
// @Router /v1/quotes/extract-text [post]
func (h *IngestHandler) ExtractText(c *gin.Context) {
	headers, err := getFormFiles(c)
	if err != nil {
		respondBadRequest(c, err.Error(), newErrorDetail("file", "A PDF document is required"))
		return
	}

	docs, err := readDocuments(headers[:1])
	if err != nil {
		logError(c, "failed_to_read_upload", err, nil)
		respondBadRequest(c, ErrFileUpload)
		return
	}

	opts := extractor.Options{
		UseOCR:        getQueryBool(c, "use_ocr"),
		ExtractImages: getQueryBool(c, "extract_images"),
	}

	res, err := h.ingestionService.ExtractText(c.Request.Context(), docs[0], opts)
	if err != nil {
		logError(c, "failed_to_extract_text", err, map[string]interface{}{
			"filename": docs[0].Filename,
		})
		respondInternalServerError(c, ErrFileProcessing)
		return
	}

	if !res.Success {
		respondSuccess(c, StatusUnprocessableEntity, res)
		return
	}
	respondOK(c, res)
}

func readDocuments(headers []*multipart.FileHeader) ([]extractor.RawDocument, error) {
	docs := make([]extractor.RawDocument, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		docs = append(docs, extractor.RawDocument{
			Bytes:    data,
			Filename: header.Filename,
			Size:     header.Size,
		})
	}
	return docs, nil
}
