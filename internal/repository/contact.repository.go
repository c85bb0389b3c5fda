package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm"
)

const contactEntity = "contact"

type ContactRepository struct {
	*pg.DB
}

func NewContactRepository(db *pg.DB) *ContactRepository {
	return &ContactRepository{
		db,
	}
}

func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	entity := toContactEntity(c)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, contactEntity, c.Name)
	}
	return toContactModel(entity), nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	var entity ContactEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, contactEntity, id.String())
	}
	return toContactModel(&entity), nil
}

func (r *ContactRepository) Updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&ContactEntity{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error, contactEntity, id.String())
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, contactEntity, id.String())
	}
	return nil
}

func (r *ContactRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.Updates(ctx, id, map[string]interface{}{"is_active": false})
}

func (r *ContactRepository) List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&ContactEntity{}).
		Where("is_active = ?", true)
	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(notes) LIKE ?)",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, contactEntity, "list")
	}

	limit, offset := pageBounds(f.Limit, f.Offset)

	var entities []*ContactEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, translate(err, contactEntity, "list")
	}
	return toContactModels(entities), total, nil
}
