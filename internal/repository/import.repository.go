package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

const importEntity = "payment import"

type ImportRepository struct {
	*pg.DB
}

func NewImportRepository(db *pg.DB) *ImportRepository {
	return &ImportRepository{
		db,
	}
}

func (r *ImportRepository) Create(ctx context.Context, p *model.PaymentImport) (*model.PaymentImport, error) {
	entity := toPaymentImportEntity(p)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, importEntity, p.FileName)
	}
	return toPaymentImportModel(entity), nil
}

// Finish stores the final counters, status and error log.
func (r *ImportRepository) Finish(ctx context.Context, p *model.PaymentImport) error {
	err := r.Write(ctx).WithContext(ctx).
		Model(&PaymentImportEntity{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"total_rows":         p.TotalRows,
			"successful_imports": p.SuccessfulImports,
			"failed_imports":     p.FailedImports,
			"status":             string(p.Status),
			"error_log":          p.ErrorLog,
		}).
		Error
	return translate(err, importEntity, p.ID.String())
}

func (r *ImportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentImport, error) {
	var entity PaymentImportEntity
	if err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, importEntity, id.String())
	}
	return toPaymentImportModel(&entity), nil
}

func (r *ImportRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*model.PaymentImport, error) {
	var entities []*PaymentImportEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, importEntity, "list")
	}
	models := make([]*model.PaymentImport, len(entities))
	for i, e := range entities {
		models[i] = toPaymentImportModel(e)
	}
	return models, nil
}
