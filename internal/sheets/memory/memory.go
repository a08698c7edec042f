// Package memory provides an in-process HoldingExporter. The worker uses it
// when no spreadsheet is configured so the export path stays exercised.
package memory

import (
	"context"
	"sync"

	"finarth/internal/core"
	ports "finarth/internal/sheets"
)

type Exporter struct {
	mu    sync.Mutex
	tabs  map[int64][][]interface{}
	count int
}

var _ ports.HoldingExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{tabs: make(map[int64][][]interface{})}
}

// ExportHoldings replaces the stored rows for userID.
func (e *Exporter) ExportHoldings(_ context.Context, userID int64, holdings []core.Holding) error {
	rows := ports.HoldingRows(holdings)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs[userID] = rows
	e.count++
	return nil
}

// Rows returns a copy of the last export for userID, header included.
func (e *Exporter) Rows(userID int64) [][]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]interface{}(nil), e.tabs[userID]...)
}

// Exports counts ExportHoldings calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
