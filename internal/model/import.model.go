package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ImportStatus string

const (
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

type PaymentImport struct {
	ID                uuid.UUID    `json:"id"`
	BatchID           uuid.UUID    `json:"batch_id"`
	FileName          string       `json:"file_name"`
	ImportedBy        *uuid.UUID   `json:"imported_by,omitempty"`
	TotalRows         int          `json:"total_rows"`
	SuccessfulImports int          `json:"successful_imports"`
	FailedImports     int          `json:"failed_imports"`
	Status            ImportStatus `json:"status"`
	ErrorLog          string       `json:"error_log"`
	CreatedAt         time.Time    `json:"created_at"`
}

// SuccessRate is the share of rows imported, in percent.
func (p *PaymentImport) SuccessRate() float64 {
	if p.TotalRows == 0 {
		return 0
	}
	return float64(p.SuccessfulImports) / float64(p.TotalRows) * 100
}

// ImportRow is one parsed spreadsheet line. Row is the 1-based sheet row.
type ImportRow struct {
	Row         int
	StudentCode string
	Total       decimal.Decimal
	Currency    string
}
