package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

const batchEntity = "batch"

type BatchRepository struct {
	*pg.DB
}

func NewBatchRepository(db *pg.DB) *BatchRepository {
	return &BatchRepository{
		db,
	}
}

func (r *BatchRepository) Create(ctx context.Context, b *model.Batch) (*model.Batch, error) {
	entity := toBatchEntity(b)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, batchEntity, b.Code)
	}

	return toBatchModel(entity), nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var entity BatchEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, batchEntity, id.String())
	}
	return toBatchModel(&entity), nil
}

// List returns active batches with their active student counts.
func (r *BatchRepository) List(ctx context.Context, status model.BatchStatus) ([]*model.Batch, error) {
	q := r.Read(ctx).WithContext(ctx).Where("is_active = ?", true)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var entities []*BatchEntity
	if err := q.Order("name ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, batchEntity, "list")
	}
	batches := toBatchModels(entities)
	if len(batches) == 0 {
		return batches, nil
	}

	type row struct {
		BatchID uuid.UUID
		Count   int64
	}
	var rows []row
	err := r.Read(ctx).WithContext(ctx).
		Model(&StudentEntity{}).
		Select("batch_id, COUNT(*) AS count").
		Where("is_active = ? AND batch_id IS NOT NULL", true).
		Group("batch_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, translate(err, batchEntity, "counts")
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, c := range rows {
		counts[c.BatchID] = c.Count
	}
	for _, b := range batches {
		b.StudentCount = counts[b.ID]
	}
	return batches, nil
}
