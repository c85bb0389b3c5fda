package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type LedgerEntity struct {
	pg.Model
	StudentID    uuid.UUID       `gorm:"column:student_id;type:uuid;not null;uniqueIndex:ux_student_payments_student_batch"`
	BatchID      uuid.UUID       `gorm:"column:batch_id;type:uuid;not null;uniqueIndex:ux_student_payments_student_batch;index"`
	TargetAmount decimal.Decimal `gorm:"column:target_amount;type:numeric(12,2);not null"`
	CurrencyID   uuid.UUID       `gorm:"column:currency_id;type:uuid;not null"`
	Method       string          `gorm:"column:payment_method;size:20;not null;default:installments"`
	Status       string          `gorm:"column:status;size:20;not null;default:pending;index"`
	Notes        string          `gorm:"column:notes;type:text"`
	CreatedBy    *uuid.UUID      `gorm:"column:created_by;type:uuid"`

	Currency *CurrencyEntity `gorm:"foreignKey:CurrencyID"`
	Student  *StudentEntity  `gorm:"foreignKey:StudentID"`
	Batch    *BatchEntity    `gorm:"foreignKey:BatchID"`
}

func (LedgerEntity) TableName() string {
	return "student_payments"
}

func toLedgerEntity(m *model.Ledger) *LedgerEntity {
	if m == nil {
		return nil
	}
	return &LedgerEntity{
		Model: pg.Model{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			IsActive:  m.IsActive,
		},
		StudentID:    m.StudentID,
		BatchID:      m.BatchID,
		TargetAmount: m.TargetAmount,
		CurrencyID:   m.CurrencyID,
		Method:       string(m.Method),
		Status:       string(m.Status),
		Notes:        m.Notes,
		CreatedBy:    m.CreatedBy,
	}
}

func toLedgerModel(e *LedgerEntity) *model.Ledger {
	if e == nil {
		return nil
	}
	return &model.Ledger{
		ID:           e.ID,
		StudentID:    e.StudentID,
		BatchID:      e.BatchID,
		TargetAmount: e.TargetAmount,
		CurrencyID:   e.CurrencyID,
		Method:       model.LedgerMethod(e.Method),
		Status:       model.LedgerStatus(e.Status),
		Notes:        e.Notes,
		CreatedBy:    e.CreatedBy,
		IsActive:     e.IsActive,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		Currency:     toCurrencyModel(e.Currency),
		Student:      toStudentModel(e.Student),
		Batch:        toBatchModel(e.Batch),
	}
}

func toLedgerModels(entities []*LedgerEntity) []*model.Ledger {
	if entities == nil {
		return nil
	}
	models := make([]*model.Ledger, len(entities))
	for i, e := range entities {
		models[i] = toLedgerModel(e)
	}
	return models
}
