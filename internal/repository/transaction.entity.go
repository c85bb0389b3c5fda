package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	pg.Model
	LedgerID      uuid.UUID       `gorm:"column:student_payment_id;type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Method        string          `gorm:"column:payment_method;size:20;not null;default:cash"`
	ReceiptNumber string          `gorm:"column:receipt_number;size:50;not null;uniqueIndex"`
	PaidAt        time.Time       `gorm:"column:payment_date;not null"`
	ProcessedBy   *uuid.UUID      `gorm:"column:processed_by;type:uuid"`
	Notes         string          `gorm:"column:notes;type:text"`
}

func (TransactionEntity) TableName() string {
	return "payment_transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		Model: pg.Model{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			IsActive:  m.IsActive,
		},
		LedgerID:      m.LedgerID,
		Amount:        m.Amount,
		Method:        string(m.Method),
		ReceiptNumber: m.ReceiptNumber,
		PaidAt:        m.PaidAt,
		ProcessedBy:   m.ProcessedBy,
		Notes:         m.Notes,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:            e.ID,
		LedgerID:      e.LedgerID,
		Amount:        e.Amount,
		Method:        model.PaymentMethod(e.Method),
		ReceiptNumber: e.ReceiptNumber,
		PaidAt:        e.PaidAt,
		ProcessedBy:   e.ProcessedBy,
		Notes:         e.Notes,
		IsActive:      e.IsActive,
		CreatedAt:     e.CreatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
