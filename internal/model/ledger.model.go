package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerPartial   LedgerStatus = "partial"
	LedgerCompleted LedgerStatus = "completed"
	LedgerOverdue   LedgerStatus = "overdue"
)

func (s LedgerStatus) Valid() bool {
	switch s {
	case LedgerPending, LedgerPartial, LedgerCompleted, LedgerOverdue:
		return true
	}
	return false
}

var LedgerStatuses = []LedgerStatus{LedgerPending, LedgerPartial, LedgerCompleted, LedgerOverdue}

type LedgerMethod string

const (
	MethodInstallments LedgerMethod = "installments"
	MethodFullPayment  LedgerMethod = "full_payment"
)

func (m LedgerMethod) Valid() bool {
	return m == MethodInstallments || m == MethodFullPayment
}

type PaymentMethod string

const (
	PayCash          PaymentMethod = "cash"
	PayBankTransfer  PaymentMethod = "bank_transfer"
	PayCreditCard    PaymentMethod = "credit_card"
	PayDebitCard     PaymentMethod = "debit_card"
	PayOnlinePayment PaymentMethod = "online_payment"
	PayCheck         PaymentMethod = "check"
	PayMobilePayment PaymentMethod = "mobile_payment"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayBankTransfer, PayCreditCard, PayDebitCard, PayOnlinePayment, PayCheck, PayMobilePayment:
		return true
	}
	return false
}

// Ledger is the payment obligation of one student in one batch.
type Ledger struct {
	ID           uuid.UUID       `json:"id"`
	StudentID    uuid.UUID       `json:"student_id"`
	BatchID      uuid.UUID       `json:"batch_id"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	CurrencyID   uuid.UUID       `json:"currency_id"`
	Method       LedgerMethod    `json:"method"`
	Status       LedgerStatus    `json:"status"`
	Notes        string          `json:"notes"`
	CreatedBy    *uuid.UUID      `json:"created_by,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Currency     *Currency      `json:"currency,omitempty"`
	Student      *Student       `json:"student,omitempty"`
	Batch        *Batch         `json:"batch,omitempty"`
	Transactions []*Transaction `json:"transactions,omitempty"`
}

// Transaction is one posted payment. It is never updated after insert.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	LedgerID      uuid.UUID       `json:"ledger_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	ReceiptNumber string          `json:"receipt_number"`
	PaidAt        time.Time       `json:"paid_at"`
	ProcessedBy   *uuid.UUID      `json:"processed_by,omitempty"`
	Notes         string          `json:"notes"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LedgerTotals are derived from the active transactions on every read.
type LedgerTotals struct {
	TotalPaid            decimal.Decimal `json:"total_paid"`
	RemainingAmount      decimal.Decimal `json:"remaining_amount"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
}

type LedgerView struct {
	*Ledger
	LedgerTotals
}

type LedgerFilter struct {
	BatchID   *uuid.UUID
	StudentID *uuid.UUID
	Status    LedgerStatus
	Search    string
	Limit     int
	Offset    int
}

type LedgerCreateRequest struct {
	StudentID    uuid.UUID        `json:"student_id" validate:"required"`
	BatchID      uuid.UUID        `json:"batch_id" validate:"required"`
	TargetAmount decimal.Decimal  `json:"target_amount" validate:"dgte=0"`
	CurrencyID   *uuid.UUID       `json:"currency_id"`
	Method       LedgerMethod     `json:"method"`
	Notes        string           `json:"notes"`
	FirstPayment *decimal.Decimal `json:"first_payment" validate:"omitempty,dgt=0"`
	CreatedBy    *uuid.UUID       `json:"-"`
}

// LedgerUpdateRequest is a partial update; nil fields are left alone.
type LedgerUpdateRequest struct {
	TargetAmount *decimal.Decimal `json:"target_amount" validate:"omitempty,dgte=0"`
	CurrencyID   *uuid.UUID       `json:"currency_id"`
	Method       *LedgerMethod    `json:"method"`
	Status       *LedgerStatus    `json:"status"`
	Notes        *string          `json:"notes"`
}

type PostTransactionRequest struct {
	LedgerID      uuid.UUID       `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	Notes         string          `json:"notes"`
	ReceiptNumber string          `json:"receipt_number"`
	ProcessedBy   *uuid.UUID      `json:"-"`
}

type PostTransactionResult struct {
	Transaction     *Transaction    `json:"transaction"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          LedgerStatus    `json:"status"`
}

type LedgerDashboard struct {
	Items        []*LedgerView          `json:"items"`
	Total        int64                  `json:"total"`
	StatusCounts map[LedgerStatus]int64 `json:"status_counts"`
}

type BatchOverview struct {
	Batch                *Batch                 `json:"batch"`
	LedgerCount          int                    `json:"ledger_count"`
	TotalTarget          decimal.Decimal        `json:"total_target"`
	TotalPaid            decimal.Decimal        `json:"total_paid"`
	TotalRemaining       decimal.Decimal        `json:"total_remaining"`
	CompletionPercentage decimal.Decimal        `json:"completion_percentage"`
	StatusCounts         map[LedgerStatus]int64 `json:"status_counts"`
}
