package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

type ContactService interface {
	Create(ctx context.Context, c model.Contact, createdBy *uuid.UUID) (*model.Contact, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error)
	Update(ctx context.Context, id uuid.UUID, req model.ContactUpdateRequest) (*model.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ContactHandler struct {
	svc ContactService
}

func NewContactHandler(svc ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

func RegisterContactRoutes(e *router.Group, h *ContactHandler) {
	e.GET("/contacts", h.ListContacts)
	e.POST("/contacts", h.CreateContact)
	e.GET("/contacts/{id}", h.GetContact)
	e.PATCH("/contacts/{id}", h.UpdateContact)
	e.DELETE("/contacts/{id}", h.DeleteContact)
}

func (h *ContactHandler) ListContacts(ctx *xhttp.RequestCtx) {
	f := model.ContactFilter{Search: query(ctx, "q")}
	f.Limit, f.Offset = paging(ctx)

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Contact]{Items: items, Total: total})
}

func (h *ContactHandler) CreateContact(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageContacts) {
		return
	}
	var c model.Contact
	if err := readJSON(ctx, &c); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	out, err := h.svc.Create(ctx, c, actorID(ctx))
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, out)
}

func (h *ContactHandler) GetContact(ctx *xhttp.RequestCtx) {
	get(ctx, h.svc.Get)
}

func (h *ContactHandler) UpdateContact(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageContacts) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req model.ContactUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	out, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, out)
}

func (h *ContactHandler) DeleteContact(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageContacts) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeAppError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
