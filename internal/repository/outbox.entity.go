package repository

import (
	"encoding/json"
	"time"

	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/datatypes"
)

type OutboxEventEntity struct {
	pg.Model
	Collection  string         `gorm:"column:collection;size:50;not null"`
	DocumentID  string         `gorm:"column:document_id;size:100;not null"`
	Operation   string         `gorm:"column:operation;size:10;not null"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	Status      string         `gorm:"column:status;size:20;not null;index:ix_outbox_events_status_created"`
	Attempts    int            `gorm:"column:attempts;not null"`
	LastError   string         `gorm:"column:last_error;type:text"`
	OccurredAt  time.Time      `gorm:"column:occurred_at;not null;index:ix_outbox_events_status_created"`
	PublishedAt *time.Time     `gorm:"column:published_at"`
}

func (OutboxEventEntity) TableName() string {
	return "outbox_events"
}

func toOutboxEventEntity(m *model.OutboxEvent) *OutboxEventEntity {
	return &OutboxEventEntity{
		Model:       pg.Model{ID: m.ID},
		Collection:  m.Collection,
		DocumentID:  m.DocumentID,
		Operation:   string(m.Operation),
		Payload:     datatypes.JSON(m.Payload),
		Status:      string(m.Status),
		Attempts:    m.Attempts,
		LastError:   m.LastError,
		OccurredAt:  m.OccurredAt,
		PublishedAt: m.PublishedAt,
	}
}

func toOutboxEventModel(e *OutboxEventEntity) *model.OutboxEvent {
	return &model.OutboxEvent{
		ReplicaEvent: model.ReplicaEvent{
			ID:         e.ID,
			Collection: e.Collection,
			DocumentID: e.DocumentID,
			Operation:  model.ReplicaOp(e.Operation),
			Payload:    json.RawMessage(e.Payload),
			OccurredAt: e.OccurredAt,
		},
		Status:      model.OutboxStatus(e.Status),
		Attempts:    e.Attempts,
		LastError:   e.LastError,
		PublishedAt: e.PublishedAt,
	}
}

func toOutboxEventModels(entities []*OutboxEventEntity) []*model.OutboxEvent {
	models := make([]*model.OutboxEvent, len(entities))
	for i, e := range entities {
		models[i] = toOutboxEventModel(e)
	}
	return models
}
