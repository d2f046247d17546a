package domain

import (
	"encoding/json"
	"time"
)

// QuoteStatus tracks the review state of a stored quote.
type QuoteStatus string

const (
	// StatusPending marks records stored with unresolved validation warnings.
	StatusPending QuoteStatus = "PENDING"
	// StatusCompleted marks records that passed validation or were reviewed.
	StatusCompleted QuoteStatus = "COMPLETED"
	// StatusArchived marks records kept for history but excluded from review queues.
	StatusArchived QuoteStatus = "ARCHIVED"
)

// Valid reports whether s is one of the known statuses.
func (s QuoteStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// DateOnly is a custom type for handling date-only strings from JSON
type DateOnly struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for date-only strings
func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	// Handle null/empty dates
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	// Parse date-only format
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON implements custom marshaling for date-only strings
func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}

// QuoteItem represents a single line item inside a quote. Items have no
// identity of their own; they live and die with the owning quote.
type QuoteItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Subtotal    *float64 `json:"subtotal,omitempty"`
}

// Quote represents a structured commercial record derived from one supplier
// quotation document.
type Quote struct {
	ID           int64       `json:"id"`
	Filename     string      `json:"filename"`
	Supplier     *string     `json:"supplier,omitempty"`
	QuoteDate    *DateOnly   `json:"quote_date,omitempty"`
	TotalAmount  *float64    `json:"total_amount,omitempty"`
	Items        []QuoteItem `json:"items"`
	OriginalText string      `json:"original_text"`
	Status       QuoteStatus `json:"status"`
	Warnings     []string    `json:"warnings,omitempty"`
	ProcessedAt  time.Time   `json:"processed_at"`
}

// ItemCount returns the number of line items on the quote.
func (q *Quote) ItemCount() int {
	return len(q.Items)
}

// ItemSubtotalSum returns the sum of item subtotals and whether any item
// carried a subtotal at all.
func (q *Quote) ItemSubtotalSum() (float64, bool) {
	var sum float64
	var found bool
	for _, item := range q.Items {
		if item.Subtotal != nil {
			sum += *item.Subtotal
			found = true
		}
	}
	return sum, found
}

// QuoteSummary is the list-shaped view of a quote: everything except the
// original text and the line items themselves.
type QuoteSummary struct {
	ID          int64       `json:"id"`
	Filename    string      `json:"filename"`
	Supplier    *string     `json:"supplier,omitempty"`
	QuoteDate   *DateOnly   `json:"quote_date,omitempty"`
	TotalAmount *float64    `json:"total_amount,omitempty"`
	ItemCount   int         `json:"item_count"`
	Status      QuoteStatus `json:"status"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// Summary derives the list view of q.
func (q *Quote) Summary() QuoteSummary {
	return QuoteSummary{
		ID:          q.ID,
		Filename:    q.Filename,
		Supplier:    q.Supplier,
		QuoteDate:   q.QuoteDate,
		TotalAmount: q.TotalAmount,
		ItemCount:   q.ItemCount(),
		Status:      q.Status,
		ProcessedAt: q.ProcessedAt,
	}
}

// QuoteFilter represents filters for querying quotes. StartDate is an
// inclusive and EndDate an exclusive bound on the processed time.
type QuoteFilter struct {
	Supplier  string
	StartDate *time.Time
	EndDate   *time.Time
	Status    *QuoteStatus
}
