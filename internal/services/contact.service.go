package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/validation"
)

type ContactRepository interface {
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	Updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error)
}

// ContactService keeps the address book of people the office deals with.
// Contacts are not replicated.
type ContactService struct {
	contactRepo ContactRepository
}

func NewContactService(contactRepo ContactRepository) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

func (s *ContactService) Create(ctx context.Context, c model.Contact, createdBy *uuid.UUID) (*model.Contact, error) {
	c.ID = uuid.Nil
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.FacebookURL = strings.TrimSpace(c.FacebookURL)
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	c.CreatedBy = createdBy
	c.IsActive = true
	return s.contactRepo.Create(ctx, &c)
}

func (s *ContactService) Get(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	return s.contactRepo.GetByID(ctx, id)
}

func (s *ContactService) List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.contactRepo.List(ctx, f)
}

func (s *ContactService) Update(ctx context.Context, id uuid.UUID, req model.ContactUpdateRequest) (*model.Contact, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	for col, v := range map[string]*string{
		"name":         req.Name,
		"email":        req.Email,
		"phone":        req.Phone,
		"facebook_url": req.FacebookURL,
		"notes":        req.Notes,
	} {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	if len(fields) > 0 {
		if err := s.contactRepo.Updates(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.contactRepo.GetByID(ctx, id)
}

func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.contactRepo.Deactivate(ctx, id)
}
