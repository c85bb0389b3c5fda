package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/validation"
	"github.com/nimasrn/academy-ledger/pkg/logger"
)

type CatalogueRepository interface {
	CreateCurrency(ctx context.Context, c *model.Currency) (*model.Currency, error)
	GetCurrency(ctx context.Context, id uuid.UUID) (*model.Currency, error)
	ListCurrencies(ctx context.Context) ([]*model.Currency, error)
	ClearDefaultCurrency(ctx context.Context, keep uuid.UUID) error

	CreateFeeStructure(ctx context.Context, f *model.FeeStructure) (*model.FeeStructure, error)
	GetFeeStructure(ctx context.Context, id uuid.UUID) (*model.FeeStructure, error)
	ListFeeStructures(ctx context.Context) ([]*model.FeeStructure, error)

	CreateAcademicYear(ctx context.Context, y *model.AcademicYear) (*model.AcademicYear, error)
	GetAcademicYear(ctx context.Context, id uuid.UUID) (*model.AcademicYear, error)
	ListAcademicYears(ctx context.Context) ([]*model.AcademicYear, error)
	SetCurrentAcademicYear(ctx context.Context, id uuid.UUID) error

	CreateSemester(ctx context.Context, s *model.Semester) (*model.Semester, error)
	GetSemester(ctx context.Context, id uuid.UUID) (*model.Semester, error)
	ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error)
	SetCurrentSemester(ctx context.Context, id uuid.UUID) error

	CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error)
	ListCourses(ctx context.Context) ([]*model.Course, error)

	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type BatchRepository interface {
	Create(ctx context.Context, b *model.Batch) (*model.Batch, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	List(ctx context.Context, status model.BatchStatus) ([]*model.Batch, error)
}

const defaultInstallmentCount = 2

// CatalogueService manages the reference data: currencies, fee structures,
// the academic calendar, courses and batches.
type CatalogueService struct {
	catalogueRepo CatalogueRepository
	batchRepo     BatchRepository
}

func NewCatalogueService(catalogueRepo CatalogueRepository, batchRepo BatchRepository) *CatalogueService {
	return &CatalogueService{
		catalogueRepo: catalogueRepo,
		batchRepo:     batchRepo,
	}
}

// CreateCurrency stores a currency. Flagging it default clears the flag on
// every other currency in the same transaction.
func (s *CatalogueService) CreateCurrency(ctx context.Context, c model.Currency) (*model.Currency, error) {
	c.ID = uuid.Nil
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	c.IsActive = true

	var created *model.Currency
	err := s.catalogueRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.catalogueRepo.CreateCurrency(ctx, &c); err != nil {
			return err
		}
		if c.IsDefault {
			return s.catalogueRepo.ClearDefaultCurrency(ctx, created.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *CatalogueService) ListCurrencies(ctx context.Context) ([]*model.Currency, error) {
	return s.catalogueRepo.ListCurrencies(ctx)
}

func (s *CatalogueService) CreateFeeStructure(ctx context.Context, f model.FeeStructure) (*model.FeeStructure, error) {
	f.ID = uuid.Nil
	if f.InstallmentCount == 0 {
		f.InstallmentCount = defaultInstallmentCount
	}
	if err := validation.Struct(f); err != nil {
		return nil, err
	}
	currency, err := s.catalogueRepo.GetCurrency(ctx, f.CurrencyID)
	if err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.IsActive = true

	created, err := s.catalogueRepo.CreateFeeStructure(ctx, &f)
	if err != nil {
		return nil, err
	}
	created.Currency = currency
	return created, nil
}

func (s *CatalogueService) GetFeeStructure(ctx context.Context, id uuid.UUID) (*model.FeeStructure, error) {
	return s.catalogueRepo.GetFeeStructure(ctx, id)
}

func (s *CatalogueService) ListFeeStructures(ctx context.Context) ([]*model.FeeStructure, error) {
	return s.catalogueRepo.ListFeeStructures(ctx)
}

// CreateAcademicYear stores the year; a year created as current displaces the
// previous current one.
func (s *CatalogueService) CreateAcademicYear(ctx context.Context, y model.AcademicYear) (*model.AcademicYear, error) {
	y.ID = uuid.Nil
	if err := validation.Struct(y); err != nil {
		return nil, err
	}
	y.Name = strings.TrimSpace(y.Name)
	current := y.IsCurrent
	y.IsCurrent = false
	y.IsActive = true

	var created *model.AcademicYear
	err := s.catalogueRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.catalogueRepo.CreateAcademicYear(ctx, &y); err != nil {
			return err
		}
		if !current {
			return nil
		}
		created.IsCurrent = true
		return s.catalogueRepo.SetCurrentAcademicYear(ctx, created.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *CatalogueService) ListAcademicYears(ctx context.Context) ([]*model.AcademicYear, error) {
	return s.catalogueRepo.ListAcademicYears(ctx)
}

func (s *CatalogueService) SetCurrentAcademicYear(ctx context.Context, id uuid.UUID) error {
	if err := s.catalogueRepo.SetCurrentAcademicYear(ctx, id); err != nil {
		return err
	}
	logger.Info("current academic year changed", "academic_year_id", id)
	return nil
}

func (s *CatalogueService) CreateSemester(ctx context.Context, sem model.Semester) (*model.Semester, error) {
	sem.ID = uuid.Nil
	if err := validation.Struct(sem); err != nil {
		return nil, err
	}
	sem.Name = strings.TrimSpace(sem.Name)
	current := sem.IsCurrent
	sem.IsCurrent = false
	sem.IsActive = true

	var created *model.Semester
	err := s.catalogueRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.catalogueRepo.GetAcademicYear(ctx, sem.AcademicYearID); err != nil {
			return err
		}
		var err error
		if created, err = s.catalogueRepo.CreateSemester(ctx, &sem); err != nil {
			return err
		}
		if !current {
			return nil
		}
		created.IsCurrent = true
		return s.catalogueRepo.SetCurrentSemester(ctx, created.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *CatalogueService) ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error) {
	return s.catalogueRepo.ListSemesters(ctx, academicYearID)
}

func (s *CatalogueService) SetCurrentSemester(ctx context.Context, id uuid.UUID) error {
	if err := s.catalogueRepo.SetCurrentSemester(ctx, id); err != nil {
		return err
	}
	logger.Info("current semester changed", "semester_id", id)
	return nil
}

func (s *CatalogueService) CreateCourse(ctx context.Context, c model.Course) (*model.Course, error) {
	c.ID = uuid.Nil
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(c.Name)
	c.IsActive = true
	return s.catalogueRepo.CreateCourse(ctx, &c)
}

func (s *CatalogueService) GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	return s.catalogueRepo.GetCourse(ctx, id)
}

func (s *CatalogueService) ListCourses(ctx context.Context) ([]*model.Course, error) {
	return s.catalogueRepo.ListCourses(ctx)
}

// CreateBatch stores a batch, deriving the code from the name when none is
// given. Referenced calendar entries and fee structure must exist.
func (s *CatalogueService) CreateBatch(ctx context.Context, b model.Batch) (*model.Batch, error) {
	b.ID = uuid.Nil
	b.Name = strings.TrimSpace(b.Name)
	b.Code = strings.TrimSpace(b.Code)
	if b.Code == "" {
		b.Code = BatchCode(b.Name)
	}
	if b.Status == "" {
		b.Status = model.BatchPlanning
	}
	if err := validation.Struct(b); err != nil {
		return nil, err
	}
	b.IsActive = true

	if b.AcademicYearID != nil {
		if _, err := s.catalogueRepo.GetAcademicYear(ctx, *b.AcademicYearID); err != nil {
			return nil, err
		}
	}
	if b.SemesterID != nil {
		if _, err := s.catalogueRepo.GetSemester(ctx, *b.SemesterID); err != nil {
			return nil, err
		}
	}
	if b.FeeStructureID != nil {
		if _, err := s.catalogueRepo.GetFeeStructure(ctx, *b.FeeStructureID); err != nil {
			return nil, err
		}
	}

	created, err := s.batchRepo.Create(ctx, &b)
	if err != nil {
		return nil, err
	}
	logger.Info("batch created", "batch", created.Code)
	return created, nil
}

func (s *CatalogueService) GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

func (s *CatalogueService) ListBatches(ctx context.Context, status model.BatchStatus) ([]*model.Batch, error) {
	return s.batchRepo.List(ctx, status)
}
