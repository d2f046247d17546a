package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var errEncrypted = errors.New("document is encrypted")

type documentMeta struct {
	PageCount int
	FileSize  int64
}

// readDocumentMeta reads the PDF cross-reference via pdfcpu to classify the
// document before any text extraction is attempted.
func readDocumentMeta(docPath string) (documentMeta, error) {
	pdfCtx, err := api.ReadContextFile(docPath)
	if err != nil {
		return documentMeta{}, fmt.Errorf("read PDF context: %w", err)
	}
	if pdfCtx.Encrypt != nil {
		return documentMeta{}, errEncrypted
	}

	info, err := os.Stat(docPath)
	if err != nil {
		return documentMeta{}, err
	}

	return documentMeta{
		PageCount: pdfCtx.PageCount,
		FileSize:  info.Size(),
	}, nil
}

// pageRaster extracts the embedded raster images of one page and returns the
// largest one. For scanned documents the page is a single full-page scan, so
// the largest embedded image is the page raster the recognizer needs.
func pageRaster(docPath, scratch string, pageNum int) ([]byte, error) {
	outDir := filepath.Join(scratch, "raster_"+strconv.Itoa(pageNum))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(docPath, outDir, []string{strconv.Itoa(pageNum)}, conf); err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}

	var largest []byte
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		if len(content) > len(largest) {
			largest = content
		}
	}
	if largest == nil {
		return nil, errors.New("no embedded image on page")
	}
	return largest, nil
}

// collectEmbeddedImages extracts every embedded raster image in the document
// for the ExtractImages side channel. Failures here are reported as warnings
// by the caller and never fail the overall extraction.
func collectEmbeddedImages(docPath, scratch string) ([][]byte, []string) {
	outDir := filepath.Join(scratch, "images")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, []string{fmt.Sprintf("image extraction: %v", err)}
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(docPath, outDir, nil, conf); err != nil {
		return nil, []string{fmt.Sprintf("image extraction: %v", err)}
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, []string{fmt.Sprintf("image extraction: %v", err)}
	}

	var images [][]byte
	var warnings []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("image extraction: %s: %v", entry.Name(), err))
			continue
		}
		images = append(images, content)
	}
	return images, warnings
}
