package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

type PaymentImportEntity struct {
	pg.Model
	BatchID           uuid.UUID  `gorm:"column:batch_id;type:uuid;not null;index"`
	FileName          string     `gorm:"column:file_name;size:255;not null"`
	ImportedBy        *uuid.UUID `gorm:"column:imported_by;type:uuid"`
	TotalRows         int        `gorm:"column:total_rows;not null"`
	SuccessfulImports int        `gorm:"column:successful_imports;not null"`
	FailedImports     int        `gorm:"column:failed_imports;not null"`
	Status            string     `gorm:"column:status;size:20;not null;default:processing"`
	ErrorLog          string     `gorm:"column:error_log;type:text"`
}

func (PaymentImportEntity) TableName() string {
	return "payment_imports"
}

func toPaymentImportEntity(m *model.PaymentImport) *PaymentImportEntity {
	return &PaymentImportEntity{
		Model:             pg.Model{ID: m.ID, CreatedAt: m.CreatedAt},
		BatchID:           m.BatchID,
		FileName:          m.FileName,
		ImportedBy:        m.ImportedBy,
		TotalRows:         m.TotalRows,
		SuccessfulImports: m.SuccessfulImports,
		FailedImports:     m.FailedImports,
		Status:            string(m.Status),
		ErrorLog:          m.ErrorLog,
	}
}

func toPaymentImportModel(e *PaymentImportEntity) *model.PaymentImport {
	return &model.PaymentImport{
		ID:                e.ID,
		BatchID:           e.BatchID,
		FileName:          e.FileName,
		ImportedBy:        e.ImportedBy,
		TotalRows:         e.TotalRows,
		SuccessfulImports: e.SuccessfulImports,
		FailedImports:     e.FailedImports,
		Status:            model.ImportStatus(e.Status),
		ErrorLog:          e.ErrorLog,
		CreatedAt:         e.CreatedAt,
	}
}
