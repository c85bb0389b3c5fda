package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code" validate:"required,len=3,alpha"`
	Name         string          `json:"name" validate:"notblank"`
	Symbol       string          `json:"symbol" validate:"required"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" validate:"dgt=0"`
	IsDefault    bool            `json:"is_default"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type FeeStructure struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name" validate:"notblank"`
	Description      string          `json:"description"`
	TotalAmount      decimal.Decimal `json:"total_amount" validate:"dgte=0"`
	CurrencyID       uuid.UUID       `json:"currency_id" validate:"required"`
	InstallmentCount int             `json:"installment_count" validate:"gte=1,lte=12"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	Currency         *Currency       `json:"currency,omitempty"`
}

// InstallmentAmount is the per-installment share rounded to cents.
func (f *FeeStructure) InstallmentAmount() decimal.Decimal {
	if f.InstallmentCount <= 0 {
		return f.TotalAmount
	}
	return f.TotalAmount.Div(decimal.NewFromInt(int64(f.InstallmentCount))).Round(2)
}

type AcademicYear struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"notblank"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsCurrent bool      `json:"is_current"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Semester struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name" validate:"notblank"`
	AcademicYearID uuid.UUID `json:"academic_year_id" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsCurrent      bool      `json:"is_current"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Course struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code" validate:"notblank,max=20"`
	Name        string    `json:"name" validate:"notblank"`
	Description string    `json:"description"`
	Credits     int       `json:"credits" validate:"gte=0"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
