package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

type BatchEntity struct {
	pg.Model
	Name           string     `gorm:"column:name;size:50;not null"`
	Code           string     `gorm:"column:code;size:20;not null;uniqueIndex"`
	AcademicYearID *uuid.UUID `gorm:"column:academic_year_id;type:uuid"`
	SemesterID     *uuid.UUID `gorm:"column:semester_id;type:uuid"`
	StartDate      *time.Time `gorm:"column:start_date;type:date"`
	EndDate        *time.Time `gorm:"column:end_date;type:date"`
	Status         string     `gorm:"column:status;size:20;not null;default:planning"`
	CoordinatorID  *uuid.UUID `gorm:"column:coordinator_id;type:uuid"`
	FeeStructureID *uuid.UUID `gorm:"column:fee_structure_id;type:uuid"`
}

func (BatchEntity) TableName() string {
	return "batches"
}

func toBatchEntity(m *model.Batch) *BatchEntity {
	if m == nil {
		return nil
	}
	return &BatchEntity{
		Model:          pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Name:           m.Name,
		Code:           m.Code,
		AcademicYearID: m.AcademicYearID,
		SemesterID:     m.SemesterID,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		Status:         string(m.Status),
		CoordinatorID:  m.CoordinatorID,
		FeeStructureID: m.FeeStructureID,
	}
}

func toBatchModel(e *BatchEntity) *model.Batch {
	if e == nil {
		return nil
	}
	return &model.Batch{
		ID:             e.ID,
		Name:           e.Name,
		Code:           e.Code,
		AcademicYearID: e.AcademicYearID,
		SemesterID:     e.SemesterID,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		Status:         model.BatchStatus(e.Status),
		CoordinatorID:  e.CoordinatorID,
		FeeStructureID: e.FeeStructureID,
		IsActive:       e.IsActive,
		CreatedAt:      e.CreatedAt,
	}
}

func toBatchModels(entities []*BatchEntity) []*model.Batch {
	models := make([]*model.Batch, len(entities))
	for i, e := range entities {
		models[i] = toBatchModel(e)
	}
	return models
}
