package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ImageRecognizer turns one raster image into text. Implementations must be
// safe for concurrent use; the extractor calls them once per scanned page.
type ImageRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TesseractConfig holds configuration for the tesseract-based recognizer.
type TesseractConfig struct {
	Binary   string // binary name or absolute path; if empty -> "tesseract"
	Language string // default "eng"
	TempDir  string // default os.TempDir()
}

// TesseractRecognizer shells out to the tesseract binary. It exists so the
// service has one real OCR backend; everything above it depends only on the
// ImageRecognizer interface.
type TesseractRecognizer struct {
	cfg    TesseractConfig
	runner commandRunner
}

var _ ImageRecognizer = (*TesseractRecognizer)(nil)

// commandRunner abstracts process execution for tests.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return []byte(out.String()), []byte(errb.String()), err
}

// NewTesseractRecognizer creates a recognizer with defaults filled in.
func NewTesseractRecognizer(cfg TesseractConfig) *TesseractRecognizer {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &TesseractRecognizer{cfg: cfg, runner: execRunner{}}
}

// Recognize writes the image to a scratch file and runs
// `tesseract <file> stdout -l <lang>`.
func (r *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	path := filepath.Join(r.cfg.TempDir, fmt.Sprintf("ocr_%s.png", uuid.New().String()))
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("write ocr scratch file: %w", err)
	}
	defer os.Remove(path)

	out, errb, err := r.runner.Run(ctx, r.cfg.Binary, path, "stdout", "-l", r.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, string(errb))
	}
	return normalizeRecognizedText(string(out)), nil
}

var reBoxNoise = regexp.MustCompile(`[|¦]{2,}`)

// normalizeRecognizedText cleans up obvious OCR line noise and trims
// trailing whitespace per line.
func normalizeRecognizedText(s string) string {
	s = reBoxNoise.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
