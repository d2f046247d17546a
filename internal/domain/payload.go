package domain

// Field identifies one extractable aspect of a quotation document.
type Field string

const (
	FieldSupplier Field = "SUPPLIER"
	FieldItems    Field = "ITEMS"
	FieldPricing  Field = "PRICING"
	FieldDates    Field = "DATES"
)

// FieldSet is the set of fields an analysis call is allowed to return.
type FieldSet map[Field]bool

// AllFields returns a set containing every extractable field.
func AllFields() FieldSet {
	return FieldSet{
		FieldSupplier: true,
		FieldItems:    true,
		FieldPricing:  true,
		FieldDates:    true,
	}
}

// Has reports whether f is part of the set. An empty set requests nothing.
func (s FieldSet) Has(f Field) bool {
	return s[f]
}

// PayloadItem is one raw line item as returned by the extraction service,
// before validation coerces it into a QuoteItem.
type PayloadItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Subtotal    *float64 `json:"subtotal,omitempty"`
}

// QuotePayload is the structured result of analyzing extracted text. Fields
// that were not requested, or that the service could not extract, are nil;
// MissingFields lists requested fields the service could not provide so the
// caller is never handed a best-guess value silently.
type QuotePayload struct {
	Supplier    *string       `json:"supplier,omitempty"`
	QuoteDate   *string       `json:"quote_date,omitempty"` // YYYY-MM-DD after validation
	TotalAmount *float64      `json:"total_amount,omitempty"`
	Items       []PayloadItem `json:"items,omitempty"`

	MissingFields []Field  `json:"missing_fields,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}
