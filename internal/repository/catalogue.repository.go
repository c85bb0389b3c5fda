package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm"
)

const (
	currencyEntity     = "currency"
	feeStructureEntity = "fee structure"
	academicYearEntity = "academic year"
	semesterEntity     = "semester"
	courseEntity       = "course"
)

// CatalogueRepository stores the reference data the ledger and the grade
// book point at: currencies, fee structures, academic years, semesters and
// courses.
type CatalogueRepository struct {
	*pg.DB
}

func NewCatalogueRepository(db *pg.DB) *CatalogueRepository {
	return &CatalogueRepository{
		db,
	}
}

func (r *CatalogueRepository) CreateCurrency(ctx context.Context, c *model.Currency) (*model.Currency, error) {
	entity := toCurrencyEntity(c)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, currencyEntity, c.Code)
	}
	return toCurrencyModel(entity), nil
}

func (r *CatalogueRepository) GetCurrency(ctx context.Context, id uuid.UUID) (*model.Currency, error) {
	var entity CurrencyEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, currencyEntity, id.String())
	}
	return toCurrencyModel(&entity), nil
}

func (r *CatalogueRepository) GetCurrencyByCode(ctx context.Context, code string) (*model.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var entity CurrencyEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, currencyEntity, code)
	}
	return toCurrencyModel(&entity), nil
}

// DefaultCurrency returns the currency flagged default, falling back to the
// given code when no row carries the flag.
func (r *CatalogueRepository) DefaultCurrency(ctx context.Context, fallbackCode string) (*model.Currency, error) {
	var entity CurrencyEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&entity).
		Error
	if err == nil {
		return toCurrencyModel(&entity), nil
	}
	if !pg.IsNotFound(err) {
		return nil, translate(err, currencyEntity, "default")
	}
	return r.GetCurrencyByCode(ctx, fallbackCode)
}

func (r *CatalogueRepository) ListCurrencies(ctx context.Context) ([]*model.Currency, error) {
	var entities []*CurrencyEntity
	if err := r.Read(ctx).WithContext(ctx).Where("is_active = ?", true).Order("code ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, currencyEntity, "list")
	}
	return toCurrencyModels(entities), nil
}

// ClearDefaultCurrency unsets is_default on every currency but keep.
func (r *CatalogueRepository) ClearDefaultCurrency(ctx context.Context, keep uuid.UUID) error {
	err := r.Write(ctx).WithContext(ctx).
		Model(&CurrencyEntity{}).
		Where("id <> ? AND is_default = ?", keep, true).
		Update("is_default", false).
		Error
	return translate(err, currencyEntity, "default")
}

func (r *CatalogueRepository) CreateFeeStructure(ctx context.Context, f *model.FeeStructure) (*model.FeeStructure, error) {
	entity := toFeeStructureEntity(f)
	if err := r.Write(ctx).WithContext(ctx).Omit("Currency").Create(entity).Error; err != nil {
		return nil, translate(err, feeStructureEntity, f.Name)
	}
	return toFeeStructureModel(entity), nil
}

func (r *CatalogueRepository) GetFeeStructure(ctx context.Context, id uuid.UUID) (*model.FeeStructure, error) {
	var entity FeeStructureEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Currency").
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, feeStructureEntity, id.String())
	}
	return toFeeStructureModel(&entity), nil
}

func (r *CatalogueRepository) ListFeeStructures(ctx context.Context) ([]*model.FeeStructure, error) {
	var entities []*FeeStructureEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Currency").
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, feeStructureEntity, "list")
	}
	models := make([]*model.FeeStructure, len(entities))
	for i, e := range entities {
		models[i] = toFeeStructureModel(e)
	}
	return models, nil
}

func (r *CatalogueRepository) CreateAcademicYear(ctx context.Context, y *model.AcademicYear) (*model.AcademicYear, error) {
	entity := toAcademicYearEntity(y)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, academicYearEntity, y.Name)
	}
	return toAcademicYearModel(entity), nil
}

func (r *CatalogueRepository) GetAcademicYear(ctx context.Context, id uuid.UUID) (*model.AcademicYear, error) {
	var entity AcademicYearEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&entity).Error
	if err != nil {
		return nil, translate(err, academicYearEntity, id.String())
	}
	return toAcademicYearModel(&entity), nil
}

func (r *CatalogueRepository) ListAcademicYears(ctx context.Context) ([]*model.AcademicYear, error) {
	var entities []*AcademicYearEntity
	if err := r.Read(ctx).WithContext(ctx).Where("is_active = ?", true).Order("start_date DESC").Find(&entities).Error; err != nil {
		return nil, translate(err, academicYearEntity, "list")
	}
	models := make([]*model.AcademicYear, len(entities))
	for i, e := range entities {
		models[i] = toAcademicYearModel(e)
	}
	return models, nil
}

// SetCurrentAcademicYear marks id current and clears the flag everywhere else.
func (r *CatalogueRepository) SetCurrentAcademicYear(ctx context.Context, id uuid.UUID) error {
	return r.setCurrent(ctx, &AcademicYearEntity{}, id, academicYearEntity)
}

func (r *CatalogueRepository) CreateSemester(ctx context.Context, s *model.Semester) (*model.Semester, error) {
	entity := toSemesterEntity(s)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, semesterEntity, s.Name)
	}
	return toSemesterModel(entity), nil
}

func (r *CatalogueRepository) GetSemester(ctx context.Context, id uuid.UUID) (*model.Semester, error) {
	var entity SemesterEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&entity).Error
	if err != nil {
		return nil, translate(err, semesterEntity, id.String())
	}
	return toSemesterModel(&entity), nil
}

func (r *CatalogueRepository) ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error) {
	q := r.Read(ctx).WithContext(ctx).Where("is_active = ?", true)
	if academicYearID != nil {
		q = q.Where("academic_year_id = ?", *academicYearID)
	}
	var entities []*SemesterEntity
	if err := q.Order("start_date DESC").Find(&entities).Error; err != nil {
		return nil, translate(err, semesterEntity, "list")
	}
	models := make([]*model.Semester, len(entities))
	for i, e := range entities {
		models[i] = toSemesterModel(e)
	}
	return models, nil
}

func (r *CatalogueRepository) SetCurrentSemester(ctx context.Context, id uuid.UUID) error {
	return r.setCurrent(ctx, &SemesterEntity{}, id, semesterEntity)
}

func (r *CatalogueRepository) setCurrent(ctx context.Context, table interface{}, id uuid.UUID, entity string) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		db := r.Write(ctx).WithContext(ctx)
		if err := db.Model(table).Where("id <> ? AND is_current = ?", id, true).Update("is_current", false).Error; err != nil {
			return translate(err, entity, id.String())
		}
		result := db.Model(table).Where("id = ? AND is_active = ?", id, true).Update("is_current", true)
		if result.Error != nil {
			return translate(result.Error, entity, id.String())
		}
		if result.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, entity, id.String())
		}
		return nil
	})
}

func (r *CatalogueRepository) CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error) {
	entity := toCourseEntity(c)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, courseEntity, c.Code)
	}
	return toCourseModel(entity), nil
}

func (r *CatalogueRepository) GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	var entity CourseEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&entity).Error
	if err != nil {
		return nil, translate(err, courseEntity, id.String())
	}
	return toCourseModel(&entity), nil
}

func (r *CatalogueRepository) ListCourses(ctx context.Context) ([]*model.Course, error) {
	var entities []*CourseEntity
	if err := r.Read(ctx).WithContext(ctx).Where("is_active = ?", true).Order("code ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, courseEntity, "list")
	}
	models := make([]*model.Course, len(entities))
	for i, e := range entities {
		models[i] = toCourseModel(e)
	}
	return models, nil
}
