package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ledgerEntity = "payment record"

type LedgerRepository struct {
	*pg.DB
}

func NewLedgerRepository(db *pg.DB) *LedgerRepository {
	return &LedgerRepository{
		db,
	}
}

func (r *LedgerRepository) Create(ctx context.Context, l *model.Ledger) (*model.Ledger, error) {
	entity := toLedgerEntity(l)

	if err := r.Write(ctx).WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return nil, translate(err, ledgerEntity, "for student and batch")
	}

	return toLedgerModel(entity), nil
}

func (r *LedgerRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Currency").Preload("Student").Preload("Batch")
}

// GetByID returns an active ledger with currency, student and batch loaded.
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ledger, error) {
	var entity LedgerEntity
	err := r.withRelations(r.Read(ctx).WithContext(ctx)).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, ledgerEntity, id.String())
	}
	return toLedgerModel(&entity), nil
}

// GetForUpdate locks the ledger row until the surrounding transaction ends.
// It must be called inside WithinTransaction. Relations are loaded by
// separate, unlocked queries.
func (r *LedgerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Ledger, error) {
	var entity LedgerEntity
	err := r.withRelations(r.Write(ctx).WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, ledgerEntity, id.String())
	}
	return toLedgerModel(&entity), nil
}

// FindByStudentBatch returns the ledger for the pair whether or not it is
// active, since the unique index covers soft-deleted rows too.
func (r *LedgerRepository) FindByStudentBatch(ctx context.Context, studentID, batchID uuid.UUID) (*model.Ledger, error) {
	var entity LedgerEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("student_id = ? AND batch_id = ?", studentID, batchID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, ledgerEntity, "for student and batch")
	}
	return toLedgerModel(&entity), nil
}

// Update persists every mutable column, including is_active so a
// soft-deleted ledger can be revived by an import.
func (r *LedgerRepository) Update(ctx context.Context, l *model.Ledger) error {
	err := r.Write(ctx).WithContext(ctx).
		Model(&LedgerEntity{}).
		Where("id = ?", l.ID).
		Updates(map[string]interface{}{
			"target_amount":  l.TargetAmount,
			"currency_id":    l.CurrencyID,
			"payment_method": string(l.Method),
			"status":         string(l.Status),
			"notes":          l.Notes,
			"created_by":     l.CreatedBy,
			"is_active":      l.IsActive,
		}).
		Error
	return translate(err, ledgerEntity, l.ID.String())
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LedgerStatus) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&LedgerEntity{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return translate(result.Error, ledgerEntity, id.String())
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, ledgerEntity, id.String())
	}
	return nil
}

func (r *LedgerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&LedgerEntity{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return translate(result.Error, ledgerEntity, id.String())
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, ledgerEntity, id.String())
	}
	return nil
}

func (r *LedgerRepository) filtered(ctx context.Context, f model.LedgerFilter) *gorm.DB {
	q := r.Read(ctx).WithContext(ctx).
		Model(&LedgerEntity{}).
		Where("student_payments.is_active = ?", true)

	if f.BatchID != nil {
		q = q.Where("student_payments.batch_id = ?", *f.BatchID)
	}
	if f.StudentID != nil {
		q = q.Where("student_payments.student_id = ?", *f.StudentID)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Joins("JOIN students ON students.id = student_payments.student_id").
			Where("(LOWER(students.first_name) LIKE ? OR LOWER(students.last_name) LIKE ? OR LOWER(students.student_id) LIKE ?)",
				pattern, pattern, pattern)
	}
	return q
}

// List applies the filter, counts before pagination and returns the page
// with relations loaded, newest first.
func (r *LedgerRepository) List(ctx context.Context, f model.LedgerFilter) ([]*model.Ledger, int64, error) {
	q := r.filtered(ctx, f)
	if f.Status != "" {
		q = q.Where("student_payments.status = ?", string(f.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, ledgerEntity, "list")
	}

	limit, offset := pageBounds(f.Limit, f.Offset)

	var entities []*LedgerEntity
	err := r.withRelations(q).
		Order("student_payments.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).
		Error
	if err != nil {
		return nil, 0, translate(err, ledgerEntity, "list")
	}

	return toLedgerModels(entities), total, nil
}

// CountByStatus ignores f.Status so the counts describe the whole filtered set.
func (r *LedgerRepository) CountByStatus(ctx context.Context, f model.LedgerFilter) (map[model.LedgerStatus]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.filtered(ctx, f).
		Select("student_payments.status AS status, COUNT(*) AS count").
		Group("student_payments.status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, translate(err, ledgerEntity, "counts")
	}

	counts := make(map[model.LedgerStatus]int64, len(model.LedgerStatuses))
	for _, s := range model.LedgerStatuses {
		counts[s] = 0
	}
	for _, c := range rows {
		counts[model.LedgerStatus(c.Status)] = c.Count
	}
	return counts, nil
}

// ListAll returns every active ledger that matches the filter, unpaginated.
func (r *LedgerRepository) ListAll(ctx context.Context, f model.LedgerFilter) ([]*model.Ledger, error) {
	q := r.filtered(ctx, f)
	if f.Status != "" {
		q = q.Where("student_payments.status = ?", string(f.Status))
	}

	var entities []*LedgerEntity
	if err := r.withRelations(q).Order("student_payments.created_at ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, ledgerEntity, "list")
	}
	return toLedgerModels(entities), nil
}
