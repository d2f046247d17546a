package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ridwanfathin/quote-ingestion-service/internal/analyzer"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// maxPromptChars bounds how much extracted text is sent per request. Long
// quotation documents carry their commercial terms in the first pages.
const maxPromptChars = 8000

// Config holds configuration for the OpenRouter client
type Config struct {
	APIKey         string
	BaseURL        string // override for tests; default https://openrouter.ai/api/v1
	ModelID        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a default configuration for the OpenRouter client
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://openrouter.ai/api/v1",
		ModelID:        "meta-llama/llama-3.2-11b-vision-instruct:free",
		Timeout:        60 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
	}
}

// Client calls the OpenRouter chat-completions API to turn raw quotation
// text into a structured payload. It implements analyzer.Analyzer.
type Client struct {
	apiKey         string
	apiURL         string
	modelID        string
	httpClient     *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
}

var _ analyzer.Analyzer = (*Client)(nil)

// NewClient creates a new OpenRouter client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.ModelID == "" {
		config.ModelID = defaults.ModelID
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = defaults.RetryBaseDelay
	}

	return &Client{
		apiKey:         config.APIKey,
		apiURL:         strings.TrimRight(config.BaseURL, "/") + "/chat/completions",
		modelID:        config.ModelID,
		maxRetries:     config.MaxRetries,
		retryBaseDelay: config.RetryBaseDelay,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Analyze sends the extracted text to the model and returns the structured
// payload restricted to the requested fields. Blank input is rejected before
// any HTTP call. RATE_LIMITED and TIMEOUT failures are retried with
// exponential backoff; a MALFORMED_RESPONSE gets exactly one retry with a
// stricter schema hint; AUTH_FAILURE is never retried.
func (c *Client) Analyze(ctx context.Context, text string, fields domain.FieldSet) (*domain.QuotePayload, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &analyzer.AnalysisError{Kind: analyzer.KindEmptyInput, Op: "analyze"}
	}
	if !c.Configured() {
		return nil, analyzer.ErrUnavailable
	}
	if len(fields) == 0 {
		fields = domain.AllFields()
	}

	strictHint := false
	malformedRetried := false
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		payload, err := c.analyzeOnce(ctx, text, fields, strictHint)
		if err == nil {
			return payload, nil
		}

		switch analyzer.KindOf(err) {
		case analyzer.KindRateLimited, analyzer.KindTimeout:
			if attempt == c.maxRetries-1 {
				return nil, err
			}
			if waitErr := c.backoff(ctx, attempt); waitErr != nil {
				return nil, &analyzer.AnalysisError{Kind: analyzer.KindTimeout, Op: "backoff", Err: waitErr}
			}
		case analyzer.KindMalformedResponse:
			if malformedRetried {
				return nil, err
			}
			malformedRetried = true
			strictHint = true
		default:
			return nil, err
		}
	}
	return nil, &analyzer.AnalysisError{Kind: analyzer.KindTimeout, Op: "analyze", Err: fmt.Errorf("retries exhausted")}
}

func (c *Client) analyzeOnce(ctx context.Context, text string, fields domain.FieldSet, strictHint bool) (*domain.QuotePayload, error) {
	body := map[string]interface{}{
		"model": c.modelID,
		"messages": []map[string]string{
			{"role": "system", "content": buildSystemPrompt(fields, strictHint)},
			{"role": "user", "content": buildUserPrompt(text)},
		},
	}

	requestData, err := json.Marshal(body)
	if err != nil {
		return nil, &analyzer.AnalysisError{Kind: analyzer.KindMalformedResponse, Op: "marshal_request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestData))
	if err != nil {
		return nil, &analyzer.AnalysisError{Kind: analyzer.KindMalformedResponse, Op: "create_request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &analyzer.AnalysisError{Kind: analyzer.KindTimeout, Op: "read_response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &analyzer.AnalysisError{
			Kind: analyzer.KindAuthFailure,
			Op:   "check_api_response",
			Err:  fmt.Errorf("API error: %s", resp.Status),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &analyzer.AnalysisError{
			Kind: analyzer.KindRateLimited,
			Op:   "check_api_response",
			Err:  fmt.Errorf("API error: %s", resp.Status),
		}
	case resp.StatusCode >= 500:
		return nil, &analyzer.AnalysisError{
			Kind: analyzer.KindTimeout,
			Op:   "check_api_response",
			Err:  fmt.Errorf("transient upstream error: %s", resp.Status),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &analyzer.AnalysisError{
			Kind: analyzer.KindMalformedResponse,
			Op:   "check_api_response",
			Err:  fmt.Errorf("API error: %s - %s", resp.Status, string(respBody)),
		}
	}

	return parseAnalysisResponse(respBody, fields)
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.retryBaseDelay * (1 << attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &analyzer.AnalysisError{Kind: analyzer.KindTimeout, Op: "send_request", Err: err}
	}
	// Other transport failures are transient from the caller's point of
	// view and share the timeout retry budget.
	return &analyzer.AnalysisError{Kind: analyzer.KindTimeout, Op: "send_request", Err: err}
}

func buildSystemPrompt(fields domain.FieldSet, strictHint bool) string {
	requested := make([]string, 0, len(fields))
	for f := range fields {
		requested = append(requested, string(f))
	}
	sort.Strings(requested)

	parts := []string{
		"You are a supplier quotation parser. Extract structured data from the quotation text you are given.",
		"Requested fields: " + strings.Join(requested, ", ") + ". Extract ONLY the requested fields.",
		"If a requested field is not present in the text, omit it entirely. Never guess or fabricate a value.",
	}

	shape := []string{}
	if fields.Has(domain.FieldSupplier) {
		shape = append(shape, `"supplier": "..."`)
	}
	if fields.Has(domain.FieldDates) {
		shape = append(shape, `"quote_date": "YYYY-MM-DD"`)
	}
	if fields.Has(domain.FieldPricing) {
		shape = append(shape, `"total_amount": 0.0`)
	}
	if fields.Has(domain.FieldItems) {
		shape = append(shape, `"items": [{"description": "...", "quantity": 0.0, "unit_price": 0.0, "subtotal": 0.0}]`)
	}
	parts = append(parts,
		"Format your response as a valid JSON object with the following structure: {"+strings.Join(shape, ", ")+"}",
		"Use ISO-8601 dates (YYYY-MM-DD). Amounts are plain numbers without currency symbols or thousands separators.",
		"Do not include any other text in your response, only provide the JSON.",
	)

	if strictHint {
		parts = append(parts,
			"IMPORTANT: your previous response did not parse as JSON.",
			"Return exactly one JSON object, no markdown fences, no commentary, no trailing text.")
	}

	return strings.Join(parts, " ")
}

func buildUserPrompt(text string) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return "Extract the data from this quotation text:\n\n" + text
}
