package sheets

import (
	"testing"

	"finarth/internal/core"

	"github.com/shopspring/decimal"
)

func TestHoldingRows(t *testing.T) {
	rows := HoldingRows([]core.Holding{{
		ID:       3,
		Name:     "Gold ETF",
		Category: "Gold",
		Amount:   decimal.NewFromInt(2000),
		Date:     core.NewDate(2024, 3, 1),
	}})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][5] != "Amount" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	want := []interface{}{int64(3), "2024-03-01", "Gold ETF", "Gold", "", "2000.00"}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Fatalf("column %d: expected %v, got %v", i, want[i], rows[1][i])
		}
	}
}
