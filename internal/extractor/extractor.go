package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// Method records how the text of a document was obtained.
type Method string

const (
	MethodNative Method = "NATIVE"
	MethodOCR    Method = "OCR"
)

// Stage tracks the fallback state machine for one extraction call, so the
// OCR-fallback policy can be asserted independently of any OCR backend.
type Stage string

const (
	StageNotAttempted Stage = "NOT_ATTEMPTED"
	StageNativeTried  Stage = "NATIVE_TRIED"
	StageOCRTried     Stage = "OCR_TRIED"
	StageDone         Stage = "DONE"
	StageFailed       Stage = "FAILED"
)

// RawDocument is one uploaded PDF. It is owned by the caller and never
// persisted; the extractor only reads it.
type RawDocument struct {
	Bytes    []byte
	Filename string
	Size     int64
}

// Options control a single extraction call.
type Options struct {
	// UseOCR forces recognition on every page regardless of native content.
	UseOCR bool
	// ExtractImages additionally collects embedded raster images. Failures
	// on this side channel never fail the call.
	ExtractImages bool
}

// Config holds extraction policy. The zero value is unusable; use
// DefaultConfig and override as needed.
type Config struct {
	// MinContentChars is the per-page native character floor below which the
	// page is treated as image-only and sent to OCR.
	MinContentChars int
	// MaxPages is the page-count ceiling; documents above it are rejected
	// with PAGE_LIMIT_EXCEEDED.
	MaxPages int
	// Timeout is the wall-clock budget for one call.
	Timeout time.Duration
	// TempDir is where per-call scratch directories are created.
	TempDir string
}

// DefaultConfig returns the documented policy defaults.
func DefaultConfig() Config {
	return Config{
		MinContentChars: 32,
		MaxPages:        100,
		Timeout:         60 * time.Second,
		TempDir:         os.TempDir(),
	}
}

// Result is the outcome of one extraction call.
//
// Invariants: Success=false implies Text=="" and Error set; Success=true
// implies CharacterCount == len(Text). Text accumulated before an abort is
// preserved in PartialText so callers can still inspect it.
type Result struct {
	Text           string    `json:"text"`
	PageCount      int       `json:"page_count"`
	CharacterCount int       `json:"character_count"`
	Method         Method    `json:"method"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	PartialText    string    `json:"partial_text,omitempty"`
	Warnings       []string  `json:"warnings,omitempty"`
	Images         [][]byte  `json:"-"`
	Stage          Stage     `json:"stage"`
}

const pageMarker = "\n\n--- Page %d ---\n\n"

// Extractor turns one PDF byte stream into plain text plus extraction
// metadata. It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	cfg        Config
	recognizer ImageRecognizer
}

// New creates an Extractor. recognizer may be nil, in which case OCR
// fallback degrades to a warning instead of recognized text.
func New(cfg Config, recognizer ImageRecognizer) *Extractor {
	if cfg.MinContentChars <= 0 {
		cfg.MinContentChars = DefaultConfig().MinContentChars
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Extractor{cfg: cfg, recognizer: recognizer}
}

// Extract runs the native pass, applies the OCR fallback policy, and
// collects embedded images when requested. Per-call scratch files are
// removed on every exit path.
func (e *Extractor) Extract(ctx context.Context, raw RawDocument, opts Options) Result {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	res := Result{Method: MethodNative, Stage: StageNotAttempted}

	if len(raw.Bytes) == 0 {
		return failed(res, KindUnsupportedFormat, "empty document", nil)
	}
	if !bytes.HasPrefix(raw.Bytes, []byte("%PDF-")) {
		return failed(res, KindUnsupportedFormat, fmt.Sprintf("%s: missing PDF header", raw.Filename), nil)
	}

	scratch, err := os.MkdirTemp(e.cfg.TempDir, "quote-extract-")
	if err != nil {
		return failed(res, KindCorruptFile, "create scratch dir", err)
	}
	defer os.RemoveAll(scratch)

	docPath := filepath.Join(scratch, uuid.New().String()+".pdf")
	if err := os.WriteFile(docPath, raw.Bytes, 0o644); err != nil {
		return failed(res, KindCorruptFile, "write scratch document", err)
	}

	meta, err := readDocumentMeta(docPath)
	if err != nil {
		if errors.Is(err, errEncrypted) {
			return failed(res, KindEncrypted, raw.Filename, nil)
		}
		return failed(res, KindCorruptFile, raw.Filename, err)
	}
	if meta.PageCount > e.cfg.MaxPages {
		return failed(res, KindPageLimitExceeded,
			fmt.Sprintf("%s: %d pages exceeds limit of %d", raw.Filename, meta.PageCount, e.cfg.MaxPages), nil)
	}
	res.PageCount = meta.PageCount

	pages, warnings, err := e.nativePass(ctx, raw.Bytes, meta.PageCount)
	res.Stage = StageNativeTried
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		if ctx.Err() != nil {
			res.PartialText = joinPages(pages)
			return failed(res, KindTimeout, raw.Filename, ctx.Err())
		}
		return failed(res, KindCorruptFile, raw.Filename, err)
	}

	affected := e.affectedPages(pages, opts)
	if len(affected) > 0 {
		if err := e.ocrFallback(ctx, docPath, scratch, pages, affected, &res); err != nil {
			res.PartialText = joinPages(pages)
			return failed(res, KindTimeout, raw.Filename, err)
		}
	}

	if opts.ExtractImages {
		images, imgWarnings := collectEmbeddedImages(docPath, scratch)
		res.Images = images
		res.Warnings = append(res.Warnings, imgWarnings...)
	}

	text := joinPages(pages)
	if strings.TrimSpace(text) == "" && len(res.Warnings) > 0 {
		// Every page failed; treat the document as unreadable.
		res.PartialText = ""
		return failed(res, KindCorruptFile, fmt.Sprintf("%s: no page yielded text", raw.Filename), nil)
	}

	res.Text = text
	res.CharacterCount = len(text)
	res.Success = true
	res.Stage = StageDone
	return res
}

// nativePass extracts the text layer page by page. A corrupt page is
// reported inline and the rest of the document still gets processed.
func (e *Extractor) nativePass(ctx context.Context, data []byte, pageCount int) ([]string, []string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open text layer: %w", err)
	}

	pages := make([]string, pageCount)
	var warnings []string
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return pages, warnings, err
		}
		text, err := nativePageText(reader, i)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pages[i-1] = text
	}
	return pages, warnings, nil
}

// nativePageText isolates one page so a panic inside the PDF library on a
// malformed page corrupts only that page's output.
func nativePageText(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text layer panic: %v", r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// affectedPages returns 1-indexed page numbers that should go through OCR.
func (e *Extractor) affectedPages(pages []string, opts Options) []int {
	var affected []int
	for i, text := range pages {
		if opts.UseOCR || len(strings.TrimSpace(text)) < e.cfg.MinContentChars {
			affected = append(affected, i+1)
		}
	}
	return affected
}

// ocrFallback runs recognition over the affected pages, updating res in
// place. Without a configured recognizer the native text is kept and the
// result still reports a native extraction.
func (e *Extractor) ocrFallback(ctx context.Context, docPath, scratch string, pages []string, affected []int, res *Result) error {
	if e.recognizer == nil {
		res.Warnings = append(res.Warnings, "ocr requested but no recognizer configured; keeping native text")
		return nil
	}
	res.Method = MethodOCR
	res.Stage = StageOCRTried
	warnings := e.ocrPass(ctx, docPath, scratch, pages, affected)
	res.Warnings = append(res.Warnings, warnings...)
	return ctx.Err()
}

// ocrPass rasterizes each affected page (via its embedded images) and
// replaces the page text with recognized text. Page failures are inline
// warnings; the pass never fails the whole call on its own.
func (e *Extractor) ocrPass(ctx context.Context, docPath, scratch string, pages []string, affected []int) []string {
	var warnings []string
	for _, pageNum := range affected {
		if ctx.Err() != nil {
			return warnings
		}
		image, err := pageRaster(docPath, scratch, pageNum)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: rasterize: %v", pageNum, err))
			continue
		}
		text, err := e.recognizer.Recognize(ctx, image)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: ocr: %v", pageNum, err))
			continue
		}
		pages[pageNum-1] = text
	}
	return warnings
}

func joinPages(pages []string) string {
	var b strings.Builder
	for i, text := range pages {
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(fmt.Sprintf(pageMarker, i+1))
		}
		b.WriteString(text)
	}
	return b.String()
}

func failed(res Result, kind ErrorKind, op string, err error) Result {
	extractionErr := &ExtractionError{Kind: kind, Op: op, Err: err}
	res.Text = ""
	res.CharacterCount = 0
	res.Success = false
	res.Error = extractionErr.Error()
	res.ErrorKind = kind
	res.Stage = StageFailed
	return res
}
