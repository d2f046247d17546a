package analyzer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// Validation warning reasons attached to a record instead of aborting its
// ingestion.
const (
	WarnAmountMismatch  = "AMOUNT_MISMATCH"
	WarnUnparseableDate = "UNPARSEABLE_DATE"
)

// dateLayouts are tried in order when normalizing a quote date. The service
// is prompted for ISO dates but suppliers write what they write.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// ValidatePayload checks a payload returned by the extraction service before
// it is trusted. Numeric fields must be non-negative (the payload is rejected
// otherwise), missing optional fields stay nil rather than erroring, and date
// strings are normalized to YYYY-MM-DD; a specific unparsable date drops the
// field with an UNPARSEABLE_DATE warning instead of rejecting the payload.
// Requested fields that came back absent are recorded in MissingFields.
func ValidatePayload(payload *domain.QuotePayload, fields domain.FieldSet) (*domain.QuotePayload, error) {
	if payload == nil {
		return nil, &AnalysisError{Kind: KindMalformedResponse, Op: "validate", Err: fmt.Errorf("nil payload")}
	}

	out := &domain.QuotePayload{
		Supplier: trimmedOrNil(payload.Supplier),
	}

	if payload.TotalAmount != nil {
		if err := checkNonNegative("total_amount", *payload.TotalAmount); err != nil {
			return nil, err
		}
		out.TotalAmount = payload.TotalAmount
	}

	for i, item := range payload.Items {
		if strings.TrimSpace(item.Description) == "" && item.Subtotal == nil && item.UnitPrice == nil {
			continue // discard fully empty rows the model sometimes pads with
		}
		for name, v := range map[string]*float64{
			fmt.Sprintf("items[%d].quantity", i):   item.Quantity,
			fmt.Sprintf("items[%d].unit_price", i): item.UnitPrice,
			fmt.Sprintf("items[%d].subtotal", i):   item.Subtotal,
		} {
			if v == nil {
				continue
			}
			if err := checkNonNegative(name, *v); err != nil {
				return nil, err
			}
		}
		out.Items = append(out.Items, domain.PayloadItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	if payload.QuoteDate != nil && strings.TrimSpace(*payload.QuoteDate) != "" {
		if normalized, ok := normalizeDate(*payload.QuoteDate); ok {
			out.QuoteDate = &normalized
		} else {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("%s: %q", WarnUnparseableDate, *payload.QuoteDate))
		}
	}

	out.MissingFields = missingFields(out, fields)
	return out, nil
}

// CheckAmounts compares the stated total against the recomputed item
// subtotal sum. A disagreement beyond the tolerance is reported as an
// AMOUNT_MISMATCH warning and never silently corrected to either value.
func CheckAmounts(payload *domain.QuotePayload, tolerance float64) []string {
	if payload.TotalAmount == nil {
		return nil
	}
	sum, found := itemSum(payload.Items)
	if !found {
		return nil
	}
	if math.Abs(sum-*payload.TotalAmount) > tolerance {
		return []string{fmt.Sprintf("%s: items sum to %.2f but stated total is %.2f",
			WarnAmountMismatch, sum, *payload.TotalAmount)}
	}
	return nil
}

func itemSum(items []domain.PayloadItem) (float64, bool) {
	var sum float64
	var found bool
	for _, item := range items {
		if item.Subtotal != nil {
			sum += *item.Subtotal
			found = true
		}
	}
	return sum, found
}

func checkNonNegative(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &AnalysisError{
			Kind: KindMalformedResponse,
			Op:   "validate",
			Err:  fmt.Errorf("%s: %v is not a non-negative number", name, v),
		}
	}
	return nil
}

func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func missingFields(payload *domain.QuotePayload, fields domain.FieldSet) []domain.Field {
	var missing []domain.Field
	if fields.Has(domain.FieldSupplier) && payload.Supplier == nil {
		missing = append(missing, domain.FieldSupplier)
	}
	if fields.Has(domain.FieldItems) && len(payload.Items) == 0 {
		missing = append(missing, domain.FieldItems)
	}
	if fields.Has(domain.FieldPricing) && payload.TotalAmount == nil {
		missing = append(missing, domain.FieldPricing)
	}
	if fields.Has(domain.FieldDates) && payload.QuoteDate == nil {
		missing = append(missing, domain.FieldDates)
	}
	return missing
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
