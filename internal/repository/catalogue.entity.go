package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type CurrencyEntity struct {
	pg.Model
	Code         string          `gorm:"column:code;size:3;not null;uniqueIndex"`
	Name         string          `gorm:"column:name;size:50;not null"`
	Symbol       string          `gorm:"column:symbol;size:5;not null"`
	ExchangeRate decimal.Decimal `gorm:"column:exchange_rate;type:numeric(10,4);not null"`
	IsDefault    bool            `gorm:"column:is_default;not null"`
}

func (CurrencyEntity) TableName() string {
	return "currencies"
}

func toCurrencyEntity(m *model.Currency) *CurrencyEntity {
	if m == nil {
		return nil
	}
	return &CurrencyEntity{
		Model:        pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Code:         m.Code,
		Name:         m.Name,
		Symbol:       m.Symbol,
		ExchangeRate: m.ExchangeRate,
		IsDefault:    m.IsDefault,
	}
}

func toCurrencyModel(e *CurrencyEntity) *model.Currency {
	if e == nil {
		return nil
	}
	return &model.Currency{
		ID:           e.ID,
		Code:         e.Code,
		Name:         e.Name,
		Symbol:       e.Symbol,
		ExchangeRate: e.ExchangeRate,
		IsDefault:    e.IsDefault,
		IsActive:     e.IsActive,
		CreatedAt:    e.CreatedAt,
	}
}

func toCurrencyModels(entities []*CurrencyEntity) []*model.Currency {
	models := make([]*model.Currency, len(entities))
	for i, e := range entities {
		models[i] = toCurrencyModel(e)
	}
	return models
}

type FeeStructureEntity struct {
	pg.Model
	Name             string          `gorm:"column:name;size:100;not null"`
	Description      string          `gorm:"column:description;type:text"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CurrencyID       uuid.UUID       `gorm:"column:currency_id;type:uuid;not null"`
	InstallmentCount int             `gorm:"column:installment_count;not null;default:2"`

	Currency *CurrencyEntity `gorm:"foreignKey:CurrencyID"`
}

func (FeeStructureEntity) TableName() string {
	return "fee_structures"
}

func toFeeStructureEntity(m *model.FeeStructure) *FeeStructureEntity {
	if m == nil {
		return nil
	}
	return &FeeStructureEntity{
		Model:            pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Name:             m.Name,
		Description:      m.Description,
		TotalAmount:      m.TotalAmount,
		CurrencyID:       m.CurrencyID,
		InstallmentCount: m.InstallmentCount,
	}
}

func toFeeStructureModel(e *FeeStructureEntity) *model.FeeStructure {
	if e == nil {
		return nil
	}
	return &model.FeeStructure{
		ID:               e.ID,
		Name:             e.Name,
		Description:      e.Description,
		TotalAmount:      e.TotalAmount,
		CurrencyID:       e.CurrencyID,
		InstallmentCount: e.InstallmentCount,
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt,
		Currency:         toCurrencyModel(e.Currency),
	}
}

type AcademicYearEntity struct {
	pg.Model
	Name      string    `gorm:"column:name;size:20;not null;uniqueIndex"`
	StartDate time.Time `gorm:"column:start_date;type:date;not null"`
	EndDate   time.Time `gorm:"column:end_date;type:date;not null"`
	IsCurrent bool      `gorm:"column:is_current;not null"`
}

func (AcademicYearEntity) TableName() string {
	return "academic_years"
}

func toAcademicYearEntity(m *model.AcademicYear) *AcademicYearEntity {
	return &AcademicYearEntity{
		Model:     pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Name:      m.Name,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		IsCurrent: m.IsCurrent,
	}
}

func toAcademicYearModel(e *AcademicYearEntity) *model.AcademicYear {
	return &model.AcademicYear{
		ID:        e.ID,
		Name:      e.Name,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		IsCurrent: e.IsCurrent,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	}
}

type SemesterEntity struct {
	pg.Model
	Name           string    `gorm:"column:name;size:50;not null"`
	AcademicYearID uuid.UUID `gorm:"column:academic_year_id;type:uuid;not null;index"`
	StartDate      time.Time `gorm:"column:start_date;type:date;not null"`
	EndDate        time.Time `gorm:"column:end_date;type:date;not null"`
	IsCurrent      bool      `gorm:"column:is_current;not null"`
}

func (SemesterEntity) TableName() string {
	return "semesters"
}

func toSemesterEntity(m *model.Semester) *SemesterEntity {
	return &SemesterEntity{
		Model:          pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Name:           m.Name,
		AcademicYearID: m.AcademicYearID,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		IsCurrent:      m.IsCurrent,
	}
}

func toSemesterModel(e *SemesterEntity) *model.Semester {
	return &model.Semester{
		ID:             e.ID,
		Name:           e.Name,
		AcademicYearID: e.AcademicYearID,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		IsCurrent:      e.IsCurrent,
		IsActive:       e.IsActive,
		CreatedAt:      e.CreatedAt,
	}
}

type CourseEntity struct {
	pg.Model
	Code        string `gorm:"column:code;size:20;not null;uniqueIndex"`
	Name        string `gorm:"column:name;size:200;not null"`
	Description string `gorm:"column:description;type:text"`
	Credits     int    `gorm:"column:credits;not null;default:3"`
}

func (CourseEntity) TableName() string {
	return "courses"
}

func toCourseEntity(m *model.Course) *CourseEntity {
	return &CourseEntity{
		Model:       pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Code:        m.Code,
		Name:        m.Name,
		Description: m.Description,
		Credits:     m.Credits,
	}
}

func toCourseModel(e *CourseEntity) *model.Course {
	return &model.Course{
		ID:          e.ID,
		Code:        e.Code,
		Name:        e.Name,
		Description: e.Description,
		Credits:     e.Credits,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
	}
}
