package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// QuotesXLSX returns an XLSX workbook with one Quotes sheet (flat columns)
// and one Items sheet keyed by quote id.
func QuotesXLSX(quotes []domain.Quote) ([]byte, error) {
	f := excelize.NewFile()

	const quotesSheet = "Quotes"
	const itemsSheet = "Items"

	if err := f.SetSheetName("Sheet1", quotesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("add items sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(quotesSheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(quotesSheet, cell, h)
	}

	itemHeaders := []string{"quote_id", "description", "quantity", "unit_price", "subtotal"}
	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	itemRow := 2
	for i := range quotes {
		q := &quotes[i]
		row := i + 2

		write(quotesSheet, 1, row, q.ID)
		write(quotesSheet, 2, row, q.Filename)
		write(quotesSheet, 3, row, stringOrEmpty(q.Supplier))
		write(quotesSheet, 4, row, dateOrEmpty(q.QuoteDate))
		if q.TotalAmount != nil {
			write(quotesSheet, 5, row, *q.TotalAmount)
		}
		write(quotesSheet, 6, row, q.ItemCount())
		write(quotesSheet, 7, row, q.ProcessedAt.UTC().Format("2006-01-02 15:04:05"))
		write(quotesSheet, 8, row, string(q.Status))

		for _, item := range q.Items {
			write(itemsSheet, 1, itemRow, q.ID)
			write(itemsSheet, 2, itemRow, item.Description)
			if item.Quantity != nil {
				write(itemsSheet, 3, itemRow, *item.Quantity)
			}
			if item.UnitPrice != nil {
				write(itemsSheet, 4, itemRow, *item.UnitPrice)
			}
			if item.Subtotal != nil {
				write(itemsSheet, 5, itemRow, *item.Subtotal)
			}
			itemRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(quotesSheet, "B", "B", 32) // filename
	_ = f.SetColWidth(quotesSheet, "C", "C", 28) // supplier
	_ = f.SetColWidth(quotesSheet, "G", "G", 20) // processed_at
	_ = f.SetColWidth(itemsSheet, "B", "B", 48)  // description

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
