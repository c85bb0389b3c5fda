package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

type ContactEntity struct {
	pg.Model
	Name        string     `gorm:"column:name;size:200;not null"`
	Email       string     `gorm:"column:email;size:254"`
	Phone       string     `gorm:"column:phone;size:20"`
	FacebookURL string     `gorm:"column:facebook_url;size:200"`
	Notes       string     `gorm:"column:notes;type:text"`
	CreatedBy   *uuid.UUID `gorm:"column:created_by;type:uuid"`
}

func (ContactEntity) TableName() string {
	return "contacts"
}

func toContactEntity(m *model.Contact) *ContactEntity {
	return &ContactEntity{
		Model: pg.Model{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			IsActive:  m.IsActive,
		},
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		FacebookURL: m.FacebookURL,
		Notes:       m.Notes,
		CreatedBy:   m.CreatedBy,
	}
}

func toContactModel(e *ContactEntity) *model.Contact {
	return &model.Contact{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Phone:       e.Phone,
		FacebookURL: e.FacebookURL,
		Notes:       e.Notes,
		CreatedBy:   e.CreatedBy,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toContactModels(entities []*ContactEntity) []*model.Contact {
	models := make([]*model.Contact, len(entities))
	for i, e := range entities {
		models[i] = toContactModel(e)
	}
	return models
}
