package openrouter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ridwanfathin/quote-ingestion-service/internal/analyzer"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

var (
	reFence  = regexp.MustCompile("```(?:json)?\\s*")
	reObject = regexp.MustCompile(`\{[\s\S]*\}`)
	reNumber = regexp.MustCompile(`[^0-9.\-]`)
)

// flexFloat accepts a JSON number, a numeric string (optionally carrying
// currency noise like "$1,200.00"), or null. Models are inconsistent about
// which one they emit.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		f.value = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		inner = reNumber.ReplaceAllString(inner, "")
		if inner == "" {
			f.value = nil
			return nil
		}
		v, err := strconv.ParseFloat(inner, 64)
		if err != nil {
			return fmt.Errorf("numeric field %q: %w", s, err)
		}
		f.value = &v
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("numeric field %q: %w", s, err)
	}
	f.value = &v
	return nil
}

// wirePayload mirrors the JSON shape the model is prompted for.
type wirePayload struct {
	Supplier    *string   `json:"supplier"`
	QuoteDate   *string   `json:"quote_date"`
	TotalAmount flexFloat `json:"total_amount"`
	Items       []struct {
		Description string    `json:"description"`
		Quantity    flexFloat `json:"quantity"`
		UnitPrice   flexFloat `json:"unit_price"`
		Subtotal    flexFloat `json:"subtotal"`
	} `json:"items"`
}

// parseAnalysisResponse parses the chat-completions envelope, digs the JSON
// object out of the message content (stripping markdown fences when the
// model adds them), and maps it onto a QuotePayload restricted to the
// requested fields.
func parseAnalysisResponse(respBody []byte, fields domain.FieldSet) (*domain.QuotePayload, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, &analyzer.AnalysisError{Kind: analyzer.KindMalformedResponse, Op: "parse_response_json", Err: err}
	}
	if len(response.Choices) == 0 {
		return nil, &analyzer.AnalysisError{
			Kind: analyzer.KindMalformedResponse,
			Op:   "check_response_choices",
			Err:  fmt.Errorf("no choices in response"),
		}
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	content = reFence.ReplaceAllString(content, "")

	jsonMatch := reObject.FindString(content)
	if jsonMatch == "" {
		return nil, &analyzer.AnalysisError{
			Kind: analyzer.KindMalformedResponse,
			Op:   "extract_json",
			Err:  fmt.Errorf("no JSON object in model response"),
		}
	}

	var wire wirePayload
	if err := json.Unmarshal([]byte(jsonMatch), &wire); err != nil {
		return nil, &analyzer.AnalysisError{Kind: analyzer.KindMalformedResponse, Op: "parse_content", Err: err}
	}

	// Restrict to requested fields: anything the caller did not ask for is
	// dropped even if the model volunteered it.
	payload := &domain.QuotePayload{}
	if fields.Has(domain.FieldSupplier) {
		payload.Supplier = wire.Supplier
	}
	if fields.Has(domain.FieldDates) {
		payload.QuoteDate = wire.QuoteDate
	}
	if fields.Has(domain.FieldPricing) {
		payload.TotalAmount = wire.TotalAmount.value
	}
	if fields.Has(domain.FieldItems) {
		for _, item := range wire.Items {
			payload.Items = append(payload.Items, domain.PayloadItem{
				Description: item.Description,
				Quantity:    item.Quantity.value,
				UnitPrice:   item.UnitPrice.value,
				Subtotal:    item.Subtotal.value,
			})
		}
	}
	return payload, nil
}
