package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm"
)

const outboxEntity = "outbox event"

type OutboxRepository struct {
	*pg.DB
}

func NewOutboxRepository(db *pg.DB) *OutboxRepository {
	return &OutboxRepository{
		db,
	}
}

// Append writes events with the caller's transaction when ctx carries one.
func (r *OutboxRepository) Append(ctx context.Context, events []*model.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	entities := make([]*OutboxEventEntity, len(events))
	for i, e := range events {
		entities[i] = toOutboxEventEntity(e)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(&entities).Error; err != nil {
		return translate(err, outboxEntity, "append")
	}
	for i, e := range entities {
		events[i].ID = e.ID
	}
	return nil
}

// Pending returns up to limit unpublished events older than olderThan, oldest first.
func (r *OutboxRepository) Pending(ctx context.Context, olderThan time.Time, limit int) ([]*model.OutboxEvent, error) {
	limit, _ = pageBounds(limit, 0)

	var entities []*OutboxEventEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ? AND occurred_at <= ?", string(model.OutboxPending), olderThan).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, outboxEntity, "pending")
	}
	return toOutboxEventModels(entities), nil
}

func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&OutboxEventEntity{}).
		Where("status = ?", string(model.OutboxPending)).
		Count(&n).
		Error
	return n, translate(err, outboxEntity, "count")
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.Write(ctx).WithContext(ctx).
		Model(&OutboxEventEntity{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":       string(model.OutboxPublished),
			"published_at": at,
			"last_error":   "",
		}).
		Error
	return translate(err, outboxEntity, "publish")
}

// MarkFailed bumps the attempt counter and keeps the last error for operators.
func (r *OutboxRepository) MarkFailed(ctx context.Context, ids []uuid.UUID, cause string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.Write(ctx).WithContext(ctx).
		Model(&OutboxEventEntity{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).
		Error
	return translate(err, outboxEntity, "fail")
}
