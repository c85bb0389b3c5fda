package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm"
)

const studentEntity = "student"

type StudentRepository struct {
	*pg.DB
}

func NewStudentRepository(db *pg.DB) *StudentRepository {
	return &StudentRepository{
		db,
	}
}

func (r *StudentRepository) Create(ctx context.Context, s *model.Student) (*model.Student, error) {
	entity := toStudentEntity(s)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, studentEntity, s.StudentCode)
	}

	return toStudentModel(entity), nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	var entity StudentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, studentEntity, id.String())
	}
	return toStudentModel(&entity), nil
}

func (r *StudentRepository) GetByCode(ctx context.Context, code string) (*model.Student, error) {
	var entity StudentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("student_id = ? AND is_active = ?", code, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, studentEntity, code)
	}
	return toStudentModel(&entity), nil
}

// MaxCode returns the lexicographically greatest student code starting with
// prefix, or "" when there is none. Soft-deleted students count.
func (r *StudentRepository) MaxCode(ctx context.Context, prefix string) (string, error) {
	var codes []string
	err := r.Write(ctx).WithContext(ctx).
		Model(&StudentEntity{}).
		Where("student_id LIKE ?", prefix+"%").
		Order("student_id DESC").
		Limit(1).
		Pluck("student_id", &codes).
		Error
	if err != nil {
		return "", translate(err, studentEntity, prefix)
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

// Updates writes only the given columns.
func (r *StudentRepository) Updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&StudentEntity{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error, studentEntity, id.String())
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, studentEntity, id.String())
	}
	return nil
}

func (r *StudentRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.Updates(ctx, id, map[string]interface{}{"is_active": false})
}

func (r *StudentRepository) List(ctx context.Context, f model.StudentFilter) ([]*model.Student, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&StudentEntity{}).
		Where("is_active = ?", true)

	if f.BatchID != nil {
		q = q.Where("batch_id = ?", *f.BatchID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(student_id) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?)",
			pattern, pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, studentEntity, "list")
	}

	limit, offset := pageBounds(f.Limit, f.Offset)

	var entities []*StudentEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, translate(err, studentEntity, "list")
	}
	return toStudentModels(entities), total, nil
}

// FindByName matches active students whose names contain the given names in
// either order, ignoring case. Exact matches are a subset of these.
func (r *StudentRepository) FindByName(ctx context.Context, first, last string) ([]*model.Student, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return nil, nil
	}
	fp, lp := likePattern(first), likePattern(last)

	var entities []*StudentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("is_active = ?", true).
		Where("((LOWER(first_name) LIKE ? AND LOWER(last_name) LIKE ?) OR (LOWER(first_name) LIKE ? AND LOWER(last_name) LIKE ?))",
			fp, lp, lp, fp).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, studentEntity, "search")
	}
	return toStudentModels(entities), nil
}

func (r *StudentRepository) FindByPhone(ctx context.Context, phone string) ([]*model.Student, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}

	var entities []*StudentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("is_active = ? AND phone LIKE ?", true, "%"+phone+"%").
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, studentEntity, "search")
	}
	return toStudentModels(entities), nil
}

func (r *StudentRepository) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var n int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&StudentEntity{}).
		Where("batch_id = ? AND is_active = ?", batchID, true).
		Count(&n).
		Error
	return n, translate(err, studentEntity, "count")
}
