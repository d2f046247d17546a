package extractor

import "fmt"

// ErrorKind classifies why a document could not be extracted.
type ErrorKind string

const (
	KindCorruptFile       ErrorKind = "CORRUPT_FILE"
	KindEncrypted         ErrorKind = "ENCRYPTED"
	KindUnsupportedFormat ErrorKind = "UNSUPPORTED_FORMAT"
	KindTimeout           ErrorKind = "TIMEOUT"
	KindPageLimitExceeded ErrorKind = "PAGE_LIMIT_EXCEEDED"
)

// ExtractionError represents a document-level extraction failure
type ExtractionError struct {
	Kind ErrorKind
	Op   string // Operation that caused the error
	Err  error  // Original error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction error [%s]: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("extraction error [%s]: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ExtractionError) Unwrap() error {
	return e.Err
}
