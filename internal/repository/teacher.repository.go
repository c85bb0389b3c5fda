package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

const teacherEntity = "teacher"

type TeacherRepository struct {
	*pg.DB
}

func NewTeacherRepository(db *pg.DB) *TeacherRepository {
	return &TeacherRepository{
		db,
	}
}

func (r *TeacherRepository) Create(ctx context.Context, t *model.Teacher) (*model.Teacher, error) {
	entity := toTeacherEntity(t)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, teacherEntity, t.EmployeeCode)
	}

	return toTeacherModel(entity), nil
}

func (r *TeacherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Teacher, error) {
	var entity TeacherEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, teacherEntity, id.String())
	}
	return toTeacherModel(&entity), nil
}

// MaxCode mirrors StudentRepository.MaxCode for employee codes.
func (r *TeacherRepository) MaxCode(ctx context.Context, prefix string) (string, error) {
	var codes []string
	err := r.Write(ctx).WithContext(ctx).
		Model(&TeacherEntity{}).
		Where("employee_id LIKE ?", prefix+"%").
		Order("employee_id DESC").
		Limit(1).
		Pluck("employee_id", &codes).
		Error
	if err != nil {
		return "", translate(err, teacherEntity, prefix)
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

func (r *TeacherRepository) List(ctx context.Context, search string, limit, offset int) ([]*model.Teacher, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&TeacherEntity{}).
		Where("is_active = ?", true)
	if search != "" {
		pattern := likePattern(search)
		q = q.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(employee_id) LIKE ?)", pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, teacherEntity, "list")
	}

	limit, offset = pageBounds(limit, offset)

	var entities []*TeacherEntity
	if err := q.Order("employee_id ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, translate(err, teacherEntity, "list")
	}
	models := make([]*model.Teacher, len(entities))
	for i, e := range entities {
		models[i] = toTeacherModel(e)
	}
	return models, total, nil
}
