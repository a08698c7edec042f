package sheets

import (
	"context"

	"finarth/internal/core"
)

// HoldingExporter mirrors a user's holdings to an external spreadsheet.
type HoldingExporter interface {
	ExportHoldings(ctx context.Context, userID int64, holdings []core.Holding) error
}

// Header is the first row of every exported tab.
var Header = []string{"ID", "Date", "Name", "Category", "Symbol", "Amount"}

// HoldingRows renders holdings as spreadsheet rows, header first.
func HoldingRows(holdings []core.Holding) [][]interface{} {
	rows := make([][]interface{}, 0, len(holdings)+1)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, h := range holdings {
		rows = append(rows, []interface{}{
			h.ID,
			h.Date.String(),
			h.Name,
			h.Category,
			h.Symbol,
			h.Amount.StringFixed(2),
		})
	}
	return rows
}
